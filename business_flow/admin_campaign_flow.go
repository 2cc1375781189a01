package businessflow

import (
	"context"
	"fmt"

	"github.com/openmkt/campaignkit/app/dto"
	"github.com/openmkt/campaignkit/app/services"
	"github.com/openmkt/campaignkit/config"
	"github.com/openmkt/campaignkit/models"
	"github.com/openmkt/campaignkit/repository"
	"github.com/openmkt/campaignkit/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// AdminCampaignFlow handles campaign oversight operations for platform admins
type AdminCampaignFlow interface {
	ListAllCampaigns(ctx context.Context, req *dto.AdminListCampaignsRequest) (*dto.ListCampaignsResponse, error)
	PauseCampaign(ctx context.Context, req *dto.AdminCampaignStatusRequest, metadata *ClientMetadata) (*dto.AdminCampaignStatusResponse, error)
	ResumeCampaign(ctx context.Context, req *dto.AdminCampaignStatusRequest, metadata *ClientMetadata) (*dto.AdminCampaignStatusResponse, error)
	CompleteCampaign(ctx context.Context, req *dto.AdminCampaignStatusRequest, metadata *ClientMetadata) (*dto.AdminCampaignStatusResponse, error)
	ExportRecipients(ctx context.Context, req *dto.AdminExportRecipientsRequest) (*dto.AdminExportRecipientsResponse, error)
	TestProviderConnection(ctx context.Context, req *dto.ProviderTestRequest, metadata *ClientMetadata) (*dto.ProviderTestResponse, error)
}

// AdminCampaignFlowImpl implements the admin campaign flow
type AdminCampaignFlowImpl struct {
	campaignRepo  repository.CampaignRepository
	recipientRepo repository.CampaignRecipientRepository
	auditRepo     repository.AuditLogRepository
	mailConfig    *config.MailConfig
	db            *gorm.DB
}

// NewAdminCampaignFlow creates a new admin campaign flow instance
func NewAdminCampaignFlow(
	campaignRepo repository.CampaignRepository,
	recipientRepo repository.CampaignRecipientRepository,
	auditRepo repository.AuditLogRepository,
	mailConfig *config.MailConfig,
	db *gorm.DB,
) AdminCampaignFlow {
	return &AdminCampaignFlowImpl{
		campaignRepo:  campaignRepo,
		recipientRepo: recipientRepo,
		auditRepo:     auditRepo,
		mailConfig:    mailConfig,
		db:            db,
	}
}

// ListAllCampaigns lists campaigns across all customers
func (s *AdminCampaignFlowImpl) ListAllCampaigns(ctx context.Context, req *dto.AdminListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	page, limit, err := normalizePagination(req.Page, req.Limit)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_VALIDATION_FAILED", "Campaign list validation failed", err)
	}

	filter := models.CampaignFilter{}
	if req.Status != nil && *req.Status != "" {
		status := models.CampaignStatus(*req.Status)
		filter.Status = &status
	}

	orderBy := "created_at DESC"
	if req.OrderBy == "oldest" {
		orderBy = "created_at ASC"
	}

	total, err := s.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}

	offset := (page - 1) * limit
	campaigns, err := s.campaignRepo.ByFilter(ctx, filter, orderBy, limit, offset)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list campaigns", err)
	}

	items := make([]dto.CampaignDTO, 0, len(campaigns))
	for _, campaign := range campaigns {
		items = append(items, ToCampaignDTO(*campaign))
	}

	return &dto.ListCampaignsResponse{
		Message: "Campaigns retrieved successfully",
		Items:   items,
		Pagination: dto.PaginationInfo{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: int((total + int64(limit) - 1) / int64(limit)),
		},
	}, nil
}

// PauseCampaign transitions an active campaign to PAUSED
func (s *AdminCampaignFlowImpl) PauseCampaign(ctx context.Context, req *dto.AdminCampaignStatusRequest, metadata *ClientMetadata) (*dto.AdminCampaignStatusResponse, error) {
	return s.transition(ctx, req.UUID, models.CampaignStatusPaused, models.AuditActionCampaignPaused, metadata)
}

// ResumeCampaign transitions a paused campaign back to ACTIVE
func (s *AdminCampaignFlowImpl) ResumeCampaign(ctx context.Context, req *dto.AdminCampaignStatusRequest, metadata *ClientMetadata) (*dto.AdminCampaignStatusResponse, error) {
	return s.transition(ctx, req.UUID, models.CampaignStatusActive, models.AuditActionCampaignResumed, metadata)
}

// CompleteCampaign transitions an active campaign to COMPLETED
func (s *AdminCampaignFlowImpl) CompleteCampaign(ctx context.Context, req *dto.AdminCampaignStatusRequest, metadata *ClientMetadata) (*dto.AdminCampaignStatusResponse, error) {
	return s.transition(ctx, req.UUID, models.CampaignStatusCompleted, models.AuditActionCampaignCompleted, metadata)
}

func (s *AdminCampaignFlowImpl) transition(ctx context.Context, campaignUUID string, target models.CampaignStatus, auditAction string, metadata *ClientMetadata) (*dto.AdminCampaignStatusResponse, error) {
	if campaignUUID == "" {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", ErrCampaignUUIDRequired)
	}

	var campaign *models.Campaign

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		campaign, err = s.campaignRepo.ByUUID(txCtx, campaignUUID)
		if err != nil {
			return err
		}
		if campaign == nil {
			return ErrCampaignNotFound
		}

		if !campaign.CanTransitionTo(target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, campaign.Status, target)
		}

		campaign.Status = target
		return s.campaignRepo.UpdateStatus(txCtx, campaign.ID, target)
	})

	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_TRANSITION_FAILED", "Campaign status transition failed", err)
	}

	msg := fmt.Sprintf("Campaign %s transitioned to %s by admin", campaign.UUID.String(), target)
	_ = createAuditLog(ctx, s.auditRepo, campaign.Customer, auditAction, msg, true, nil, metadata)

	return &dto.AdminCampaignStatusResponse{
		Message: "Campaign status updated successfully",
		UUID:    campaign.UUID.String(),
		Status:  target.String(),
	}, nil
}

// ExportRecipients builds an XLSX workbook of a campaign's recipients
func (s *AdminCampaignFlowImpl) ExportRecipients(ctx context.Context, req *dto.AdminExportRecipientsRequest) (*dto.AdminExportRecipientsResponse, error) {
	if req.UUID == "" {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", ErrCampaignUUIDRequired)
	}

	campaign, err := s.campaignRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	shallow, err := s.recipientRepo.ByFilter(ctx, models.CampaignRecipientFilter{CampaignID: &campaign.ID}, "id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_EXPORT_FAILED", "Failed to load recipients", err)
	}

	ids := make([]uint, 0, len(shallow))
	for _, recipient := range shallow {
		ids = append(ids, recipient.ID)
	}

	recipients, err := s.recipientRepo.ListByIDsWithDetails(ctx, ids)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_EXPORT_FAILED", "Failed to load recipients", err)
	}

	content, err := buildRecipientsWorkbook(recipients)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_EXPORT_FAILED", "Failed to build export workbook", err)
	}

	return &dto.AdminExportRecipientsResponse{
		Filename: fmt.Sprintf("campaign-%s-recipients.xlsx", campaign.UUID.String()),
		Content:  content,
	}, nil
}

func buildRecipientsWorkbook(recipients []*models.CampaignRecipient) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Recipients"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{"Email", "Name", "Persona", "Confidence", "Status", "Subject"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for rowIdx, recipient := range recipients {
		email, name := "", ""
		if recipient.Contact != nil {
			email = recipient.Contact.Email
			name = recipient.Contact.DisplayName()
		}

		persona := ""
		if recipient.PersonaDisplayName != nil {
			persona = *recipient.PersonaDisplayName
		} else if recipient.PersonaCode != nil {
			persona = *recipient.PersonaCode
		}

		subject := ""
		if recipient.RenderedEmail != nil {
			subject = recipient.RenderedEmail.Subject
		}

		values := []any{email, name, persona, nil, recipient.Status.String(), subject}
		if recipient.Confidence != nil {
			values[3] = *recipient.Confidence
		}

		for colIdx, value := range values {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TestProviderConnection verifies the mail provider configured in the
// campaign's wizard state is reachable with the platform credentials.
func (s *AdminCampaignFlowImpl) TestProviderConnection(ctx context.Context, req *dto.ProviderTestRequest, metadata *ClientMetadata) (*dto.ProviderTestResponse, error) {
	if req.UUID == "" {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", ErrCampaignUUIDRequired)
	}

	campaign, err := s.campaignRepo.ByUUID(ctx, req.UUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	provider := utils.MailProviderBaseline
	if campaign.StepState.MailService != nil && campaign.StepState.MailService.Provider != "" {
		provider = campaign.StepState.MailService.Provider
	}

	mailService := services.ResolveMailService(provider, s.mailConfig)
	connectErr := mailService.TestConnection(ctx)

	msg := fmt.Sprintf("Provider %s connection test for campaign %s: connected=%t",
		mailService.Name(), campaign.UUID.String(), connectErr == nil)
	_ = createAuditLog(ctx, s.auditRepo, campaign.Customer, models.AuditActionProviderTested, msg, connectErr == nil, nil, metadata)

	out := &dto.ProviderTestResponse{
		Provider:  mailService.Name(),
		Connected: connectErr == nil,
	}
	if connectErr != nil {
		out.Message = fmt.Sprintf("Provider connection failed: %v", connectErr)
	} else {
		out.Message = "Provider connection verified"
	}

	return out, nil
}
