// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openmkt/campaignkit/app/dto"
	"github.com/openmkt/campaignkit/config"
	"github.com/openmkt/campaignkit/models"
	"github.com/openmkt/campaignkit/repository"
	"github.com/openmkt/campaignkit/stepstate"
	"github.com/openmkt/campaignkit/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CampaignFlow handles the campaign wizard and lifecycle business logic
type CampaignFlow interface {
	CreateDraft(ctx context.Context, req *dto.CreateDraftRequest, metadata *ClientMetadata) (*dto.CreateDraftResponse, error)
	UpdateDraft(ctx context.Context, req *dto.UpdateDraftRequest, metadata *ClientMetadata) (*dto.UpdateDraftResponse, error)
	DeleteDraft(ctx context.Context, req *dto.DeleteDraftRequest, metadata *ClientMetadata) (*dto.DeleteDraftResponse, error)
	GetCampaign(ctx context.Context, req *dto.GetCampaignRequest) (*dto.CampaignDTO, error)
	ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error)
	UpdateAnalysisSteps(ctx context.Context, req *dto.UpdateAnalysisStepsRequest, metadata *ClientMetadata) (*dto.UpdateAnalysisStepsResponse, error)
	LaunchCampaign(ctx context.Context, req *dto.LaunchCampaignRequest, metadata *ClientMetadata) (*dto.LaunchCampaignResponse, error)
	GetCampaignsSummary(ctx context.Context, customerID uint) (*dto.CampaignsSummaryResponse, error)
}

// CampaignFlowImpl implements the campaign business flow
type CampaignFlowImpl struct {
	campaignRepo       repository.CampaignRepository
	customerRepo       repository.CustomerRepository
	recipientRepo      repository.CampaignRecipientRepository
	companyProfileRepo repository.CompanyProfileRepository
	outboxRepo         repository.SendOutboxRepository
	auditRepo          repository.AuditLogRepository
	cacheConfig        *config.CacheConfig
	rc                 *redis.Client
	db                 *gorm.DB
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	customerRepo repository.CustomerRepository,
	recipientRepo repository.CampaignRecipientRepository,
	companyProfileRepo repository.CompanyProfileRepository,
	outboxRepo repository.SendOutboxRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo:       campaignRepo,
		customerRepo:       customerRepo,
		recipientRepo:      recipientRepo,
		companyProfileRepo: companyProfileRepo,
		outboxRepo:         outboxRepo,
		auditRepo:          auditRepo,
		cacheConfig:        cacheConfig,
		rc:                 rc,
		db:                 db,
	}
}

// CreateDraft creates a new draft campaign at step zero with the default analysis pipeline
func (s *CampaignFlowImpl) CreateDraft(ctx context.Context, req *dto.CreateDraftRequest, metadata *ClientMetadata) (*dto.CreateDraftResponse, error) {
	if req.Name == "" {
		return nil, NewBusinessError("CAMPAIGN_VALIDATION_FAILED", "Campaign validation failed", ErrCampaignNameRequired)
	}

	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	now := utils.UTCNow()
	campaign := &models.Campaign{
		UUID:          uuid.New(),
		CustomerID:    customer.ID,
		Name:          req.Name,
		Status:        models.CampaignStatusDraft,
		CurrentStep:   0,
		StepState:     models.StepState{},
		AnalysisSteps: models.DefaultAnalysisSteps(),
		LastSavedAt:   now,
		CreatedAt:     now,
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.campaignRepo.Save(txCtx, campaign)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Campaign creation failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionCampaignCreated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_CREATION_FAILED", "Campaign creation failed", err)
	}

	msg := fmt.Sprintf("Campaign created successfully: %s", campaign.UUID.String())
	_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionCampaignCreated, msg, true, nil, metadata)

	s.invalidateSummaryCache(ctx, customer.ID)

	return &dto.CreateDraftResponse{
		Message:  "Campaign created successfully",
		Campaign: ToCampaignDTO(*campaign),
	}, nil
}

// UpdateDraft merges the submitted wizard state into the stored draft.
// Step state patches merge deeply for objects and replace arrays and
// primitives wholesale; a single invalid value rejects the whole write.
func (s *CampaignFlowImpl) UpdateDraft(ctx context.Context, req *dto.UpdateDraftRequest, metadata *ClientMetadata) (*dto.UpdateDraftResponse, error) {
	if req.Name == nil && req.CurrentStep == nil && req.Status == nil && req.StepState == nil && req.AnalysisSteps == nil {
		return nil, NewBusinessError("CAMPAIGN_UPDATE_VALIDATION_FAILED", "Campaign update validation failed", ErrCampaignUpdateRequired)
	}

	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	if !campaign.IsEditable() {
		return nil, NewBusinessError("CAMPAIGN_NOT_EDITABLE", "Campaign is no longer editable", ErrCampaignNotEditable)
	}

	// Status changes go through launch/pause/resume, never through the wizard save
	if req.Status != nil && *req.Status != campaign.Status.String() {
		return nil, NewBusinessError("CAMPAIGN_STATUS_LOCKED", "Campaign status cannot be changed here", ErrInvalidStatusTransition)
	}

	if err := s.applyDraftUpdate(ctx, campaign, req); err != nil {
		errMsg := fmt.Sprintf("Campaign update failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionCampaignUpdated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "Campaign update failed", err)
	}

	campaign.LastSavedAt = utils.UTCNow()

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.campaignRepo.Update(txCtx, *campaign)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Campaign update failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionCampaignUpdated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_UPDATE_FAILED", "Campaign update failed", err)
	}

	msg := fmt.Sprintf("Campaign updated successfully: %s", campaign.UUID.String())
	_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionCampaignUpdated, msg, true, nil, metadata)

	return &dto.UpdateDraftResponse{
		Message:  "Campaign updated successfully",
		Campaign: ToCampaignDTO(*campaign),
	}, nil
}

// applyDraftUpdate mutates the in-memory campaign with the requested changes
func (s *CampaignFlowImpl) applyDraftUpdate(ctx context.Context, campaign *models.Campaign, req *dto.UpdateDraftRequest) error {
	if req.Name != nil {
		if *req.Name == "" {
			return ErrCampaignNameRequired
		}
		campaign.Name = *req.Name
	}

	if req.CurrentStep != nil {
		campaign.CurrentStep = *req.CurrentStep
	}

	if req.StepState != nil {
		existing, err := campaign.StepState.ToMap()
		if err != nil {
			return err
		}

		merged, err := stepstate.ApplyPatch(existing, req.StepState)
		if err != nil {
			return err
		}

		typed, err := models.StepStateFromMap(merged)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnknownStepKey, err)
		}

		if err := s.syncCompanyProfile(ctx, campaign, &typed); err != nil {
			return err
		}
		syncPersonaFileRef(campaign, &typed)

		campaign.StepState = typed
	}

	if req.AnalysisSteps != nil {
		updated, err := applyAnalysisStepUpdates(campaign.AnalysisSteps, req.AnalysisSteps)
		if err != nil {
			return err
		}
		campaign.AnalysisSteps = updated
	}

	return nil
}

// syncCompanyProfile refreshes the denormalized company profile snapshot from
// the database when the wizard selects a profile by id. The stored snapshot is
// authoritative over whatever the client sent.
func (s *CampaignFlowImpl) syncCompanyProfile(ctx context.Context, campaign *models.Campaign, state *models.StepState) error {
	if state.CompanyProfile == nil || state.CompanyProfile.ID == 0 {
		return nil
	}

	profile, err := s.companyProfileRepo.ByID(ctx, state.CompanyProfile.ID)
	if err != nil {
		return err
	}
	if profile == nil || profile.CustomerID != campaign.CustomerID {
		return ErrCompanyProfileNotFound
	}

	campaign.CompanyProfileID = &profile.ID
	state.CompanyProfile = profile.ToStepSnapshot()
	return nil
}

// syncPersonaFileRef mirrors a numeric classified persona file id onto the campaign row
func syncPersonaFileRef(campaign *models.Campaign, state *models.StepState) {
	if state.ClassifiedPersonaFile == nil {
		return
	}

	// File ids arrive as JSON numbers; opaque string references stay in the blob only
	if id, ok := state.ClassifiedPersonaFile.FileID.(float64); ok && id > 0 {
		fileID := uint(id)
		campaign.ClassifiedPersonaFileID = &fileID
	}
}

// applyAnalysisStepUpdates replaces the status of known pipeline steps and
// rejects unknown keys.
func applyAnalysisStepUpdates(current models.AnalysisStepList, updates []dto.AnalysisStepDTO) (models.AnalysisStepList, error) {
	out := make(models.AnalysisStepList, len(current))
	copy(out, current)

	for _, update := range updates {
		found := false
		for i := range out {
			if out[i].Key == update.Key {
				out[i].Status = update.Status
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrUnknownAnalysisStep, update.Key)
		}
	}

	return out, nil
}

// DeleteDraft removes a draft campaign. Launched campaigns cannot be deleted.
func (s *CampaignFlowImpl) DeleteDraft(ctx context.Context, req *dto.DeleteDraftRequest, metadata *ClientMetadata) (*dto.DeleteDraftResponse, error) {
	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	if !campaign.IsDeletable() {
		return nil, NewBusinessError("CAMPAIGN_NOT_DELETABLE", "Campaign can no longer be deleted", ErrCampaignNotDeletable)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.campaignRepo.Delete(txCtx, campaign.ID)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Campaign deletion failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionCampaignDeleted, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_DELETION_FAILED", "Campaign deletion failed", err)
	}

	msg := fmt.Sprintf("Campaign deleted successfully: %s", campaign.UUID.String())
	_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionCampaignDeleted, msg, true, nil, metadata)

	s.invalidateSummaryCache(ctx, customer.ID)

	return &dto.DeleteDraftResponse{Message: "Campaign deleted successfully"}, nil
}

// GetCampaign returns one campaign with its relations
func (s *CampaignFlowImpl) GetCampaign(ctx context.Context, req *dto.GetCampaignRequest) (*dto.CampaignDTO, error) {
	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	withRelations, err := s.campaignRepo.ByIDWithRelations(ctx, campaign.ID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if withRelations != nil {
		campaign = withRelations
	}

	out := ToCampaignDTO(*campaign)
	return &out, nil
}

// ListCampaigns returns the customer's campaigns, newest first by default
func (s *CampaignFlowImpl) ListCampaigns(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	page, limit, err := normalizePagination(req.Page, req.Limit)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_VALIDATION_FAILED", "Campaign list validation failed", err)
	}

	filter := models.CampaignFilter{CustomerID: &req.CustomerID}
	if req.Filter != nil {
		if req.Filter.Name != nil && *req.Filter.Name != "" {
			filter.Name = req.Filter.Name
		}
		if req.Filter.Status != nil && *req.Filter.Status != "" {
			status := models.CampaignStatus(*req.Filter.Status)
			filter.Status = &status
		}
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

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &dto.ListCampaignsResponse{
		Message: "Campaigns retrieved successfully",
		Items:   items,
		Pagination: dto.PaginationInfo{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	}, nil
}

// UpdateAnalysisSteps updates the status of the analysis pipeline steps.
// Only statuses change; keys and labels are fixed at draft creation.
func (s *CampaignFlowImpl) UpdateAnalysisSteps(ctx context.Context, req *dto.UpdateAnalysisStepsRequest, metadata *ClientMetadata) (*dto.UpdateAnalysisStepsResponse, error) {
	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	campaign, err := getCampaign(ctx, s.campaignRepo, req.UUID, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}

	updated, err := applyAnalysisStepUpdates(campaign.AnalysisSteps, req.Steps)
	if err != nil {
		return nil, NewBusinessError("ANALYSIS_STEP_UPDATE_FAILED", "Analysis step update failed", err)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.campaignRepo.UpdateAnalysisSteps(txCtx, campaign.ID, updated)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Analysis step update failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionCampaignUpdated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("ANALYSIS_STEP_UPDATE_FAILED", "Analysis step update failed", err)
	}

	return &dto.UpdateAnalysisStepsResponse{
		Message:       "Analysis steps updated successfully",
		AnalysisSteps: ToAnalysisStepDTOs(updated),
	}, nil
}

// LaunchCampaign activates a draft and enqueues its staged recipients for
// delivery. The outbox row is written in the same transaction as the status
// flip, so a committed launch is always eventually dispatched.
func (s *CampaignFlowImpl) LaunchCampaign(ctx context.Context, req *dto.LaunchCampaignRequest, metadata *ClientMetadata) (*dto.LaunchCampaignResponse, error) {
	customer, err := getCustomer(ctx, s.customerRepo, req.CustomerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	var campaign *models.Campaign

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		campaign, err = getCampaign(txCtx, s.campaignRepo, req.UUID, req.CustomerID)
		if err != nil {
			return err
		}

		switch campaign.Status {
		case models.CampaignStatusDraft:
			// launchable
		case models.CampaignStatusActive:
			return ErrCampaignAlreadyActive
		default:
			return ErrInvalidStatusTransition
		}

		if campaign.CurrentStep == 0 {
			return ErrCampaignStepNotReady
		}

		now := utils.UTCNow()
		campaign.Status = models.CampaignStatusActive
		campaign.LaunchedAt = &now
		campaign.CurrentStep++
		campaign.StepState.Launched = utils.ToPtr(true)
		campaign.LastSavedAt = now

		if err := s.campaignRepo.Update(txCtx, *campaign); err != nil {
			return err
		}

		staged, err := s.recipientRepo.ListStagedWithDetails(txCtx, campaign.ID)
		if err != nil {
			return err
		}

		recipientIDs := make([]int64, 0, len(staged))
		for _, recipient := range staged {
			recipientIDs = append(recipientIDs, int64(recipient.ID))
		}

		job := &models.SendOutboxJob{
			CorrelationID: uuid.New().String(),
			CampaignID:    campaign.ID,
			RecipientIDs:  recipientIDs,
			Status:        models.OutboxStatusPending,
			ScheduledAt:   now,
		}

		return s.outboxRepo.Save(txCtx, job)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Campaign launch failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionCampaignLaunched, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CAMPAIGN_LAUNCH_FAILED", "Campaign launch failed", err)
	}

	msg := fmt.Sprintf("Campaign launched successfully: %s", campaign.UUID.String())
	_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionCampaignLaunched, msg, true, nil, metadata)

	s.invalidateSummaryCache(ctx, customer.ID)

	return &dto.LaunchCampaignResponse{
		Message:  "Campaign launched successfully",
		Campaign: ToCampaignDTO(*campaign),
	}, nil
}

// GetCampaignsSummary returns per-status campaign counts for the customer,
// cached in Redis for the configured TTL.
func (s *CampaignFlowImpl) GetCampaignsSummary(ctx context.Context, customerID uint) (*dto.CampaignsSummaryResponse, error) {
	cacheKey := s.summaryCacheKey(customerID)

	if s.cacheEnabled() {
		if cached, err := s.rc.Get(ctx, cacheKey).Result(); err == nil {
			var out dto.CampaignsSummaryResponse
			if err := json.Unmarshal([]byte(cached), &out); err == nil {
				return &out, nil
			}
		}
	}

	filter := models.CampaignFilter{CustomerID: &customerID}
	total, err := s.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_SUMMARY_FAILED", "Failed to compute campaign summary", err)
	}

	byStatus := make(map[string]int64, 4)
	for _, status := range []models.CampaignStatus{
		models.CampaignStatusDraft,
		models.CampaignStatusActive,
		models.CampaignStatusPaused,
		models.CampaignStatusCompleted,
	} {
		st := status
		count, err := s.campaignRepo.Count(ctx, models.CampaignFilter{CustomerID: &customerID, Status: &st})
		if err != nil {
			return nil, NewBusinessError("CAMPAIGN_SUMMARY_FAILED", "Failed to compute campaign summary", err)
		}
		byStatus[status.String()] = count
	}

	out := &dto.CampaignsSummaryResponse{
		Message:   "Campaign summary retrieved successfully",
		Total:     total,
		ByStatus:  byStatus,
		UpdatedAt: utils.UTCNowRFC3339(),
	}

	if s.cacheEnabled() {
		if bs, err := json.Marshal(out); err == nil {
			ttl := time.Hour
			if s.cacheConfig != nil && s.cacheConfig.DefaultTTL > 0 {
				ttl = s.cacheConfig.DefaultTTL
			}
			_ = s.rc.Set(ctx, cacheKey, bs, ttl).Err()
		}
	}

	return out, nil
}

func (s *CampaignFlowImpl) cacheEnabled() bool {
	return s.rc != nil && (s.cacheConfig == nil || s.cacheConfig.Enabled)
}

func (s *CampaignFlowImpl) summaryCacheKey(customerID uint) string {
	prefix := ""
	if s.cacheConfig != nil {
		prefix = s.cacheConfig.RedisPrefix
	}
	return fmt.Sprintf("%s%s:%d", prefix, utils.CampaignSummaryCacheKey, customerID)
}

func (s *CampaignFlowImpl) invalidateSummaryCache(ctx context.Context, customerID uint) {
	if !s.cacheEnabled() {
		return
	}
	_ = s.rc.Del(ctx, s.summaryCacheKey(customerID)).Err()
}
