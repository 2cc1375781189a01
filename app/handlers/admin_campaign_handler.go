package handlers

import (
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/openmkt/campaignkit/app/dto"
	businessflow "github.com/openmkt/campaignkit/business_flow"
)

// AdminCampaignHandlerInterface defines the contract for admin campaign handlers
type AdminCampaignHandlerInterface interface {
	ListAllCampaigns(c fiber.Ctx) error
	PauseCampaign(c fiber.Ctx) error
	ResumeCampaign(c fiber.Ctx) error
	CompleteCampaign(c fiber.Ctx) error
	ExportRecipients(c fiber.Ctx) error
	TestProviderConnection(c fiber.Ctx) error
}

// AdminCampaignHandler handles campaign oversight endpoints for platform admins
type AdminCampaignHandler struct {
	adminFlow businessflow.AdminCampaignFlow
	validator *validator.Validate
}

// NewAdminCampaignHandler creates a new admin campaign handler
func NewAdminCampaignHandler(adminFlow businessflow.AdminCampaignFlow) *AdminCampaignHandler {
	return &AdminCampaignHandler{
		adminFlow: adminFlow,
		validator: validator.New(),
	}
}

// ListAllCampaigns lists campaigns across all customers
func (h *AdminCampaignHandler) ListAllCampaigns(c fiber.Ctx) error {
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

	req := &dto.AdminListCampaignsRequest{
		Page:    page,
		Limit:   limit,
		OrderBy: c.Query("orderby", "newest"),
	}
	if status := c.Query("status"); status != "" {
		req.Status = &status
	}

	if err := h.validator.Struct(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}

	result, err := h.adminFlow.ListAllCampaigns(requestContext(c), req)
	if err != nil {
		log.Println("Admin list campaigns failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to list campaigns", "LIST_CAMPAIGNS_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", fiber.Map{
		"message":    result.Message,
		"items":      result.Items,
		"pagination": result.Pagination,
	})
}

func (h *AdminCampaignHandler) transition(c fiber.Ctx, call func(*dto.AdminCampaignStatusRequest, *businessflow.ClientMetadata) (*dto.AdminCampaignStatusResponse, error)) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := call(&dto.AdminCampaignStatusRequest{UUID: campaignUUID}, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsInvalidStatusTransition(err) {
			return errorResponse(c, fiber.StatusConflict, "Campaign cannot transition from its current status", "INVALID_STATUS_TRANSITION", nil)
		}

		log.Println("Admin campaign transition failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Campaign status transition failed", "CAMPAIGN_TRANSITION_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Campaign status updated successfully", fiber.Map{
		"message": result.Message,
		"uuid":    result.UUID,
		"status":  result.Status,
	})
}

// PauseCampaign pauses an active campaign
func (h *AdminCampaignHandler) PauseCampaign(c fiber.Ctx) error {
	ctx := requestContext(c)
	return h.transition(c, func(req *dto.AdminCampaignStatusRequest, metadata *businessflow.ClientMetadata) (*dto.AdminCampaignStatusResponse, error) {
		return h.adminFlow.PauseCampaign(ctx, req, metadata)
	})
}

// ResumeCampaign resumes a paused campaign
func (h *AdminCampaignHandler) ResumeCampaign(c fiber.Ctx) error {
	ctx := requestContext(c)
	return h.transition(c, func(req *dto.AdminCampaignStatusRequest, metadata *businessflow.ClientMetadata) (*dto.AdminCampaignStatusResponse, error) {
		return h.adminFlow.ResumeCampaign(ctx, req, metadata)
	})
}

// CompleteCampaign marks an active campaign as completed
func (h *AdminCampaignHandler) CompleteCampaign(c fiber.Ctx) error {
	ctx := requestContext(c)
	return h.transition(c, func(req *dto.AdminCampaignStatusRequest, metadata *businessflow.ClientMetadata) (*dto.AdminCampaignStatusResponse, error) {
		return h.adminFlow.CompleteCampaign(ctx, req, metadata)
	})
}

// ExportRecipients streams the campaign's recipients as an XLSX workbook
func (h *AdminCampaignHandler) ExportRecipients(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	result, err := h.adminFlow.ExportRecipients(requestContext(c), &dto.AdminExportRecipientsRequest{UUID: campaignUUID})
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("Recipient export failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to export recipients", "RECIPIENT_EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename="+result.Filename)
	return c.Send(result.Content)
}

// TestProviderConnection checks the campaign's configured mail provider is reachable
func (h *AdminCampaignHandler) TestProviderConnection(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.adminFlow.TestProviderConnection(requestContext(c), &dto.ProviderTestRequest{UUID: campaignUUID}, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("Provider connection test failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Provider connection test failed", "PROVIDER_TEST_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Provider connection tested", fiber.Map{
		"message":   result.Message,
		"provider":  result.Provider,
		"connected": result.Connected,
	})
}
