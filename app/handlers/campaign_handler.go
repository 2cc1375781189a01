package handlers

import (
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/openmkt/campaignkit/app/dto"
	businessflow "github.com/openmkt/campaignkit/business_flow"
)

// CampaignHandlerInterface defines the contract for campaign handlers
type CampaignHandlerInterface interface {
	CreateDraft(c fiber.Ctx) error
	UpdateDraft(c fiber.Ctx) error
	DeleteDraft(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	ListCampaigns(c fiber.Ctx) error
	GetCampaignsSummary(c fiber.Ctx) error
	UpdateAnalysisSteps(c fiber.Ctx) error
	LaunchCampaign(c fiber.Ctx) error
}

// CampaignHandler handles campaign wizard HTTP requests
type CampaignHandler struct {
	campaignFlow businessflow.CampaignFlow
	validator    *validator.Validate
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaignFlow businessflow.CampaignFlow) *CampaignHandler {
	return &CampaignHandler{
		campaignFlow: campaignFlow,
		validator:    validator.New(),
	}
}

// campaignErrorResponse maps the shared campaign lookup failures. It returns
// false when the error is not one of them.
func campaignErrorResponse(c fiber.Ctx, err error) (error, bool) {
	switch {
	case businessflow.IsCustomerNotFound(err):
		return errorResponse(c, fiber.StatusUnauthorized, "Customer not found", "CUSTOMER_NOT_FOUND", nil), true
	case businessflow.IsAccountInactive(err):
		return errorResponse(c, fiber.StatusUnauthorized, "Customer account is inactive", "ACCOUNT_INACTIVE", nil), true
	case businessflow.IsCampaignNotFound(err):
		return errorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil), true
	case businessflow.IsCampaignAccessDenied(err):
		return errorResponse(c, fiber.StatusForbidden, "Access denied: campaign belongs to another customer", "CAMPAIGN_ACCESS_DENIED", nil), true
	case businessflow.IsCampaignUUIDRequired(err):
		return errorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil), true
	}
	return nil, false
}

// CreateDraft creates a new draft campaign for the authenticated customer
func (h *CampaignHandler) CreateDraft(c fiber.Ctx) error {
	var req dto.CreateDraftRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}
	req.CustomerID = customerID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.CreateDraft(requestContext(c), &req, metadata)
	if err != nil {
		if resp, handled := campaignErrorResponse(c, err); handled {
			return resp
		}
		if businessflow.IsCampaignNameRequired(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Campaign name is required", "CAMPAIGN_NAME_REQUIRED", nil)
		}

		log.Println("Draft creation failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Draft creation failed", "DRAFT_CREATION_FAILED", nil)
	}

	return successResponse(c, fiber.StatusCreated, "Draft created successfully", fiber.Map{
		"message":  result.Message,
		"campaign": result.Campaign,
	})
}

// UpdateDraft merges a partial wizard update into a draft campaign
func (h *CampaignHandler) UpdateDraft(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.UpdateDraftRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.UUID = campaignUUID

	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}
	req.CustomerID = customerID

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.UpdateDraft(requestContext(c), &req, metadata)
	if err != nil {
		if resp, handled := campaignErrorResponse(c, err); handled {
			return resp
		}
		if businessflow.IsCampaignNotEditable(err) {
			return errorResponse(c, fiber.StatusForbidden, "Campaign cannot be updated in current status", "CAMPAIGN_NOT_EDITABLE", nil)
		}
		if businessflow.IsInvalidStatusTransition(err) {
			return errorResponse(c, fiber.StatusForbidden, "Campaign status cannot be changed through draft updates", "CAMPAIGN_STATUS_LOCKED", nil)
		}
		if businessflow.IsUnknownStepKey(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Step state contains an unknown key", "UNKNOWN_STEP_KEY", nil)
		}
		if businessflow.IsUnknownAnalysisStep(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Unknown analysis step key", "UNKNOWN_ANALYSIS_STEP", nil)
		}
		if businessflow.IsCompanyProfileNotFound(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Referenced company profile not found", "COMPANY_PROFILE_NOT_FOUND", nil)
		}
		if businessflow.IsCampaignUpdateRequired(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Update contains no changes", "EMPTY_UPDATE", nil)
		}

		log.Println("Draft update failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Draft update failed", "DRAFT_UPDATE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Draft updated successfully", fiber.Map{
		"message":  result.Message,
		"campaign": result.Campaign,
	})
}

// DeleteDraft deletes a draft campaign
func (h *CampaignHandler) DeleteDraft(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req := &dto.DeleteDraftRequest{UUID: campaignUUID, CustomerID: customerID}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.DeleteDraft(requestContext(c), req, metadata)
	if err != nil {
		if resp, handled := campaignErrorResponse(c, err); handled {
			return resp
		}
		if businessflow.IsCampaignNotDeletable(err) {
			return errorResponse(c, fiber.StatusForbidden, "Only draft campaigns can be deleted", "CAMPAIGN_NOT_DELETABLE", nil)
		}

		log.Println("Draft deletion failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Draft deletion failed", "DRAFT_DELETION_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Draft deleted successfully", fiber.Map{
		"message": result.Message,
	})
}

// GetCampaign fetches one campaign with its relations
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	campaign, err := h.campaignFlow.GetCampaign(requestContext(c), &dto.GetCampaignRequest{
		UUID:       campaignUUID,
		CustomerID: customerID,
	})
	if err != nil {
		if resp, handled := campaignErrorResponse(c, err); handled {
			return resp
		}

		log.Println("Get campaign failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to fetch campaign", "GET_CAMPAIGN_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Campaign retrieved successfully", fiber.Map{
		"campaign": campaign,
	})
}

// ListCampaigns returns the customer's campaigns with filters and pagination
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	page := 1
	if v, err := strconv.Atoi(c.Query("page", "1")); err == nil && v > 0 {
		page = v
	}
	limit := 20
	if v, err := strconv.Atoi(c.Query("limit", "20")); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}
	orderby := c.Query("orderby", "newest")
	name := c.Query("name")
	status := c.Query("status")

	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	var filter *dto.ListCampaignsFilter
	if name != "" || status != "" {
		filter = &dto.ListCampaignsFilter{}
		if name != "" {
			filter.Name = &name
		}
		if status != "" {
			filter.Status = &status
		}
	}

	req := &dto.ListCampaignsRequest{
		CustomerID: customerID,
		Page:       page,
		Limit:      limit,
		OrderBy:    orderby,
		Filter:     filter,
	}

	result, err := h.campaignFlow.ListCampaigns(requestContext(c), req)
	if err != nil {
		if resp, handled := campaignErrorResponse(c, err); handled {
			return resp
		}

		log.Println("List campaigns failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list campaigns", "LIST_CAMPAIGNS_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", fiber.Map{
		"message":    result.Message,
		"items":      result.Items,
		"pagination": result.Pagination,
	})
}

// GetCampaignsSummary returns cached per-status campaign counts
func (h *CampaignHandler) GetCampaignsSummary(c fiber.Ctx) error {
	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.campaignFlow.GetCampaignsSummary(requestContext(c), customerID)
	if err != nil {
		log.Println("Campaigns summary failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to compute campaigns summary", "CAMPAIGNS_SUMMARY_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Campaigns summary retrieved successfully", fiber.Map{
		"total":      result.Total,
		"by_status":  result.ByStatus,
		"updated_at": result.UpdatedAt,
	})
}

// UpdateAnalysisSteps updates the analysis pipeline statuses of a campaign
func (h *CampaignHandler) UpdateAnalysisSteps(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.UpdateAnalysisStepsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.UUID = campaignUUID

	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}
	req.CustomerID = customerID

	if err := h.validator.Struct(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.UpdateAnalysisSteps(requestContext(c), &req, metadata)
	if err != nil {
		if resp, handled := campaignErrorResponse(c, err); handled {
			return resp
		}
		if businessflow.IsUnknownAnalysisStep(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Unknown analysis step key", "UNKNOWN_ANALYSIS_STEP", nil)
		}

		log.Println("Analysis steps update failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Analysis steps update failed", "ANALYSIS_STEPS_UPDATE_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Analysis steps updated successfully", fiber.Map{
		"message":        result.Message,
		"analysis_steps": result.AnalysisSteps,
	})
}

// LaunchCampaign activates a draft campaign and enqueues its staged recipients
func (h *CampaignHandler) LaunchCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	req := &dto.LaunchCampaignRequest{UUID: campaignUUID, CustomerID: customerID}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.campaignFlow.LaunchCampaign(requestContext(c), req, metadata)
	if err != nil {
		if resp, handled := campaignErrorResponse(c, err); handled {
			return resp
		}
		if businessflow.IsCampaignAlreadyActive(err) {
			return errorResponse(c, fiber.StatusConflict, "Campaign is already active", "CAMPAIGN_ALREADY_ACTIVE", nil)
		}
		if businessflow.IsCampaignStepNotReady(err) {
			return errorResponse(c, fiber.StatusBadRequest, "Campaign wizard has not progressed far enough to launch", "CAMPAIGN_STEP_NOT_READY", nil)
		}
		if businessflow.IsInvalidStatusTransition(err) {
			return errorResponse(c, fiber.StatusConflict, "Campaign cannot be launched from its current status", "INVALID_STATUS_TRANSITION", nil)
		}

		log.Println("Campaign launch failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Campaign launch failed", "CAMPAIGN_LAUNCH_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Campaign launched successfully", fiber.Map{
		"message":  result.Message,
		"campaign": result.Campaign,
	})
}
