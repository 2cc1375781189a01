package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/openmkt/campaignkit/app/dto"
	businessflow "github.com/openmkt/campaignkit/business_flow"
)

// ImportHandlerInterface defines the contract for rendered email import handlers
type ImportHandlerInterface interface {
	ImportRenderedEmails(c fiber.Ctx) error
	ImportRenderedEmailsFromFile(c fiber.Ctx) error
}

// ImportHandler handles bulk import of rendered campaign emails
type ImportHandler struct {
	importFlow businessflow.ImportFlow
	validator  *validator.Validate
}

// NewImportHandler creates a new import handler
func NewImportHandler(importFlow businessflow.ImportFlow) *ImportHandler {
	return &ImportHandler{
		importFlow: importFlow,
		validator:  validator.New(),
	}
}

func importErrorResponse(c fiber.Ctx, err error) (error, bool) {
	switch {
	case businessflow.IsCustomerNotFound(err):
		return errorResponse(c, fiber.StatusUnauthorized, "Customer not found", "CUSTOMER_NOT_FOUND", nil), true
	case businessflow.IsAccountInactive(err):
		return errorResponse(c, fiber.StatusUnauthorized, "Customer account is inactive", "ACCOUNT_INACTIVE", nil), true
	case businessflow.IsCampaignNotFound(err):
		return errorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil), true
	case businessflow.IsCampaignAccessDenied(err):
		return errorResponse(c, fiber.StatusForbidden, "Access denied: campaign belongs to another customer", "CAMPAIGN_ACCESS_DENIED", nil), true
	case businessflow.IsFileNotFound(err):
		return errorResponse(c, fiber.StatusNotFound, "Stored file not found", "FILE_NOT_FOUND", nil), true
	case businessflow.IsMalformedImportPayload(err):
		return errorResponse(c, fiber.StatusBadRequest, "Import payload is not a rendered emails document", "MALFORMED_IMPORT_PAYLOAD", nil), true
	}
	return nil, false
}

// ImportRenderedEmails imports rendered emails supplied inline in the request body
func (h *ImportHandler) ImportRenderedEmails(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.ImportRenderedEmailsRequest
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

	result, err := h.importFlow.ImportRenderedEmails(requestContext(c), &req, metadata)
	if err != nil {
		if resp, handled := importErrorResponse(c, err); handled {
			return resp
		}

		log.Println("Rendered emails import failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Rendered emails import failed", "IMPORT_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Rendered emails imported", fiber.Map{
		"message":             result.Message,
		"total_rows":          result.TotalRows,
		"upserted_recipients": result.UpsertedRecipients,
		"upserted_emails":     result.UpsertedEmails,
		"total_recipients":    result.TotalRecipients,
		"by_persona":          result.ByPersona,
		"errors":              result.Errors,
	})
}

// ImportRenderedEmailsFromFile imports rendered emails from a previously uploaded file
func (h *ImportHandler) ImportRenderedEmailsFromFile(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.ImportRenderedEmailsFileRequest
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

	result, err := h.importFlow.ImportRenderedEmailsFromFile(requestContext(c), &req, metadata)
	if err != nil {
		if resp, handled := importErrorResponse(c, err); handled {
			return resp
		}

		log.Println("Rendered emails file import failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Rendered emails import failed", "IMPORT_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Rendered emails imported", fiber.Map{
		"message":             result.Message,
		"total_rows":          result.TotalRows,
		"upserted_recipients": result.UpsertedRecipients,
		"upserted_emails":     result.UpsertedEmails,
		"total_recipients":    result.TotalRecipients,
		"by_persona":          result.ByPersona,
		"errors":              result.Errors,
	})
}
