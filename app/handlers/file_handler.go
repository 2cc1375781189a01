package handlers

import (
	"log"

	"github.com/gofiber/fiber/v3"
	businessflow "github.com/openmkt/campaignkit/business_flow"
)

// FileHandlerInterface defines the contract for file upload handlers
type FileHandlerInterface interface {
	Upload(c fiber.Ctx) error
}

// FileHandler handles stored file uploads for the campaign wizard
type FileHandler struct {
	fileFlow businessflow.FileFlow
}

// NewFileHandler creates a new file handler
func NewFileHandler(fileFlow businessflow.FileFlow) *FileHandler {
	return &FileHandler{fileFlow: fileFlow}
}

// Upload stores a multipart file for the authenticated customer. The purpose
// form field tags what wizard step the file belongs to.
func (h *FileHandler) Upload(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader == nil {
		return errorResponse(c, fiber.StatusBadRequest, "file is required", "INVALID_FILE", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "invalid file", "INVALID_FILE", err.Error())
	}
	defer file.Close()

	purpose := c.FormValue("purpose")
	if purpose == "" {
		return errorResponse(c, fiber.StatusBadRequest, "purpose is required", "MISSING_PURPOSE", nil)
	}

	customerID, ok := authenticatedCustomerID(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.fileFlow.UploadFile(requestContext(c), customerID, fileHeader.Filename, purpose, file, metadata)
	if err != nil {
		if businessflow.IsCustomerNotFound(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Customer not found", "CUSTOMER_NOT_FOUND", nil)
		}
		if businessflow.IsAccountInactive(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Customer account is inactive", "ACCOUNT_INACTIVE", nil)
		}

		log.Println("File upload failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to upload file", "UPLOAD_FAILED", nil)
	}

	return successResponse(c, fiber.StatusCreated, "Upload successful", fiber.Map{
		"message": result.Message,
		"file":    result.File,
	})
}
