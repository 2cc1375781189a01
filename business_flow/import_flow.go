package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/openmkt/campaignkit/app/dto"
	"github.com/openmkt/campaignkit/app/services"
	"github.com/openmkt/campaignkit/models"
	"github.com/openmkt/campaignkit/repository"
	"github.com/openmkt/campaignkit/utils"
	"gorm.io/gorm"
)

// ImportFlow handles the bulk import of rendered emails into a campaign
type ImportFlow interface {
	ImportRenderedEmails(ctx context.Context, req *dto.ImportRenderedEmailsRequest, metadata *ClientMetadata) (*dto.ImportRenderedEmailsResponse, error)
	ImportRenderedEmailsFromFile(ctx context.Context, req *dto.ImportRenderedEmailsFileRequest, metadata *ClientMetadata) (*dto.ImportRenderedEmailsResponse, error)
}

// ImportFlowImpl implements the rendered emails import flow
type ImportFlowImpl struct {
	campaignRepo      repository.CampaignRepository
	customerRepo      repository.CustomerRepository
	contactRepo       repository.ContactRepository
	recipientRepo     repository.CampaignRecipientRepository
	renderedEmailRepo repository.CampaignRenderedEmailRepository
	fileRepo          repository.StoredFileRepository
	storage           services.StorageService
	auditRepo         repository.AuditLogRepository
	db                *gorm.DB
}

// NewImportFlow creates a new import flow instance
func NewImportFlow(
	campaignRepo repository.CampaignRepository,
	customerRepo repository.CustomerRepository,
	contactRepo repository.ContactRepository,
	recipientRepo repository.CampaignRecipientRepository,
	renderedEmailRepo repository.CampaignRenderedEmailRepository,
	fileRepo repository.StoredFileRepository,
	storage services.StorageService,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) ImportFlow {
	return &ImportFlowImpl{
		campaignRepo:      campaignRepo,
		customerRepo:      customerRepo,
		contactRepo:       contactRepo,
		recipientRepo:     recipientRepo,
		renderedEmailRepo: renderedEmailRepo,
		fileRepo:          fileRepo,
		storage:           storage,
		auditRepo:         auditRepo,
		db:                db,
	}
}

// ImportRenderedEmails imports an inline row set into the campaign. Failing
// rows are reported individually; the rest of the batch still lands.
func (s *ImportFlowImpl) ImportRenderedEmails(ctx context.Context, req *dto.ImportRenderedEmailsRequest, metadata *ClientMetadata) (*dto.ImportRenderedEmailsResponse, error) {
	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	return s.importRows(ctx, &customer, campaign, req.Rows, nil, metadata)
}

// ImportRenderedEmailsFromFile imports from a previously uploaded JSON file.
// The file may hold either a top-level array of rows or an object with a
// "recipients" array.
func (s *ImportFlowImpl) ImportRenderedEmailsFromFile(ctx context.Context, req *dto.ImportRenderedEmailsFileRequest, metadata *ClientMetadata) (*dto.ImportRenderedEmailsResponse, error) {
	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	file, err := s.fileRepo.ByCustomerAndID(ctx, req.CustomerID, req.FileID)
	if err != nil {
		return nil, NewBusinessError("FILE_LOOKUP_FAILED", "Failed to lookup file", err)
	}
	if file == nil {
		return nil, NewBusinessError("FILE_NOT_FOUND", "File not found", ErrFileNotFound)
	}

	rows, err := s.decodeRowsFile(file)
	if err != nil {
		return nil, NewBusinessError("IMPORT_PAYLOAD_MALFORMED", "Import payload is malformed", err)
	}

	return s.importRows(ctx, &customer, campaign, rows, file, metadata)
}

func (s *ImportFlowImpl) decodeRowsFile(file *models.StoredFile) ([]dto.RenderedEmailRow, error) {
	reader, err := s.storage.Open(file)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var raw json.RawMessage
	if err := json.NewDecoder(reader).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedImportPayload, err)
	}

	var rows []dto.RenderedEmailRow
	if err := json.Unmarshal(raw, &rows); err == nil {
		return rows, nil
	}

	var wrapped struct {
		Recipients []dto.RenderedEmailRow `json:"recipients"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil || wrapped.Recipients == nil {
		return nil, fmt.Errorf("%w: expected an array of rows or an object with a recipients array", ErrMalformedImportPayload)
	}

	return wrapped.Recipients, nil
}

// importRows runs the per-row upsert loop and recomputes the campaign summary
func (s *ImportFlowImpl) importRows(ctx context.Context, customer *models.Customer, campaign *models.Campaign, rows []dto.RenderedEmailRow, sourceFile *models.StoredFile, metadata *ClientMetadata) (*dto.ImportRenderedEmailsResponse, error) {
	rowErrors := make([]dto.ImportRowError, 0)
	upsertedRecipients := 0
	upsertedEmails := 0

	for i, row := range rows {
		recipientDone, emailDone, err := s.importRow(ctx, campaign, row)
		if err != nil {
			rowErrors = append(rowErrors, dto.ImportRowError{Index: i, Message: err.Error()})
			continue
		}
		if recipientDone {
			upsertedRecipients++
		}
		if emailDone {
			upsertedEmails++
		}
	}

	totalRecipients, err := s.recipientRepo.CountByCampaign(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("IMPORT_SUMMARY_FAILED", "Failed to recompute import summary", err)
	}

	personaCounts, err := s.recipientRepo.PersonaCounts(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("IMPORT_SUMMARY_FAILED", "Failed to recompute import summary", err)
	}

	byPersona := make(map[string]int64, len(personaCounts))
	for _, pc := range personaCounts {
		byPersona[pc.PersonaCode] = pc.Count
	}

	if err := s.persistSummary(ctx, campaign, totalRecipients, byPersona, len(rowErrors), sourceFile); err != nil {
		return nil, NewBusinessError("IMPORT_SUMMARY_FAILED", "Failed to persist import summary", err)
	}

	msg := fmt.Sprintf("Imported %d rendered emails into campaign %s (%d rows, %d errors)",
		upsertedEmails, campaign.UUID.String(), len(rows), len(rowErrors))
	_ = createAuditLog(ctx, s.auditRepo, customer, models.AuditActionRenderedEmailsImport, msg, true, nil, metadata)

	return &dto.ImportRenderedEmailsResponse{
		Message:            "Rendered emails imported",
		TotalRows:          len(rows),
		UpsertedRecipients: upsertedRecipients,
		UpsertedEmails:     upsertedEmails,
		TotalRecipients:    totalRecipients,
		ByPersona:          byPersona,
		Errors:             rowErrors,
	}, nil
}

// importRow upserts the contact, the recipient, and the rendered email of one
// row inside its own transaction, so a failing row leaves nothing behind.
func (s *ImportFlowImpl) importRow(ctx context.Context, campaign *models.Campaign, row dto.RenderedEmailRow) (recipientDone, emailDone bool, err error) {
	email := strings.ToLower(strings.TrimSpace(row.Customer.CustomerEmail))
	if email == "" {
		return false, false, fmt.Errorf("Missing customer_email")
	}

	firstName, lastName := splitDisplayName(row.Customer.DisplayName)

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		contact := &models.Contact{
			CustomerID: campaign.CustomerID,
			Email:      email,
			FirstName:  firstName,
			LastName:   lastName,
		}
		if err := s.contactRepo.UpsertByOwnerEmail(txCtx, contact); err != nil {
			return err
		}
		if contact.ID == 0 {
			existing, err := s.contactRepo.ByOwnerAndEmail(txCtx, campaign.CustomerID, email)
			if err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("contact upsert did not persist")
			}
			contact = existing
		}

		recipient := &models.CampaignRecipient{
			CampaignID: campaign.ID,
			ContactID:  contact.ID,
			Status:     models.RecipientStatusStaged,
		}
		if row.Persona.PersonaCode != "" {
			recipient.PersonaCode = utils.ToPtr(row.Persona.PersonaCode)
		}
		if row.Persona.PersonaDisplayName != "" {
			recipient.PersonaDisplayName = utils.ToPtr(row.Persona.PersonaDisplayName)
		}
		if row.Persona.MatchConfidence != nil {
			recipient.Confidence = utils.ToPtr(scaleConfidence(*row.Persona.MatchConfidence))
		}

		if err := s.recipientRepo.UpsertByCampaignContact(txCtx, recipient); err != nil {
			return err
		}
		if recipient.ID == 0 {
			matches, err := s.recipientRepo.ByFilter(txCtx, models.CampaignRecipientFilter{
				CampaignID: &campaign.ID,
				ContactID:  &contact.ID,
			}, "", 1, 0)
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				return fmt.Errorf("recipient upsert did not persist")
			}
			recipient = matches[0]
		}
		recipientDone = true

		rendered := &models.CampaignRenderedEmail{
			CampaignID:          campaign.ID,
			CampaignRecipientID: recipient.ID,
			Subject:             row.Email.Meta.Subject,
			HTML:                row.Email.HTMLBody,
			Rationale:           buildRationale(row),
		}
		if row.Email.Meta.Preheader != "" {
			rendered.Preheader = utils.ToPtr(row.Email.Meta.Preheader)
		}
		if row.Email.Meta.From != "" {
			rendered.FromEmail = utils.ToPtr(row.Email.Meta.From)
		}
		if row.Email.Meta.To != "" {
			rendered.ToEmail = utils.ToPtr(row.Email.Meta.To)
		}
		if row.Email.Meta.TemplateID != "" {
			rendered.TemplateID = utils.ToPtr(row.Email.Meta.TemplateID)
		}

		if err := s.renderedEmailRepo.UpsertByRecipient(txCtx, rendered); err != nil {
			return err
		}
		emailDone = true

		return nil
	})
	if err != nil {
		return false, false, err
	}

	return recipientDone, emailDone, nil
}

// persistSummary writes the recomputed aggregate back into the wizard state
func (s *ImportFlowImpl) persistSummary(ctx context.Context, campaign *models.Campaign, totalRecipients int64, byPersona map[string]int64, importErrors int, sourceFile *models.StoredFile) error {
	summary := &models.SummaryStep{
		TotalRecipients: totalRecipients,
		ByPersona:       byPersona,
	}
	if importErrors > 0 {
		summary.ImportErrors = utils.ToPtr(importErrors)
	}

	campaign.StepState.Summary = summary
	if sourceFile != nil {
		campaign.StepState.RenderedEmailsFile = sourceFile.ToStepRef()
	}
	campaign.LastSavedAt = utils.UTCNow()

	return repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.campaignRepo.Update(txCtx, *campaign)
	})
}

// splitDisplayName splits "First Rest Of Name" into first and last name parts
func splitDisplayName(displayName string) (*string, *string) {
	trimmed := strings.TrimSpace(displayName)
	if trimmed == "" {
		return nil, nil
	}

	parts := strings.SplitN(trimmed, " ", 2)
	first := parts[0]
	if len(parts) == 1 {
		return &first, nil
	}
	last := strings.TrimSpace(parts[1])
	return &first, &last
}

// scaleConfidence converts a 0..1 match confidence to a clamped 0..100 integer
func scaleConfidence(confidence float64) int {
	scaled := int(math.Round(confidence * 100))
	if scaled < 0 {
		return 0
	}
	if scaled > 100 {
		return 100
	}
	return scaled
}

// buildRationale packs the row's rationale id and UI links into one JSON blob
func buildRationale(row dto.RenderedEmailRow) json.RawMessage {
	if row.RationaleID == "" && len(row.UILinks) == 0 {
		return nil
	}

	payload := map[string]any{}
	if row.RationaleID != "" {
		payload["rationale_id"] = row.RationaleID
	}
	if len(row.UILinks) > 0 {
		payload["ui_links"] = json.RawMessage(row.UILinks)
	}

	bs, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return bs
}
