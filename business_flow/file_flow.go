package businessflow

import (
	"context"
	"fmt"
	"io"

	"github.com/openmkt/campaignkit/app/dto"
	"github.com/openmkt/campaignkit/app/services"
	"github.com/openmkt/campaignkit/models"
	"github.com/openmkt/campaignkit/repository"
	"gorm.io/gorm"
)

// FileFlow handles customer file uploads
type FileFlow interface {
	UploadFile(ctx context.Context, customerID uint, filename, purpose string, content io.Reader, metadata *ClientMetadata) (*dto.UploadFileResponse, error)
}

// FileFlowImpl implements the file upload flow
type FileFlowImpl struct {
	customerRepo repository.CustomerRepository
	fileRepo     repository.StoredFileRepository
	storage      services.StorageService
	auditRepo    repository.AuditLogRepository
	db           *gorm.DB
}

// NewFileFlow creates a new file flow instance
func NewFileFlow(
	customerRepo repository.CustomerRepository,
	fileRepo repository.StoredFileRepository,
	storage services.StorageService,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) FileFlow {
	return &FileFlowImpl{
		customerRepo: customerRepo,
		fileRepo:     fileRepo,
		storage:      storage,
		auditRepo:    auditRepo,
		db:           db,
	}
}

// UploadFile stores the content on disk and persists its metadata record.
// The disk write happens first; a failing DB save cleans the blob up again.
func (s *FileFlowImpl) UploadFile(ctx context.Context, customerID uint, filename, purpose string, content io.Reader, metadata *ClientMetadata) (*dto.UploadFileResponse, error) {
	customer, err := getCustomer(ctx, s.customerRepo, customerID)
	if err != nil {
		return nil, NewBusinessError("CUSTOMER_LOOKUP_FAILED", "Failed to lookup customer", err)
	}

	file, err := s.storage.Save(customerID, filename, purpose, content)
	if err != nil {
		return nil, NewBusinessError("FILE_UPLOAD_FAILED", "File upload failed", err)
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.fileRepo.Save(txCtx, file)
	})
	if err != nil {
		_ = s.storage.Delete(file)
		return nil, NewBusinessError("FILE_UPLOAD_FAILED", "File upload failed", err)
	}

	msg := fmt.Sprintf("File uploaded: %s (%d bytes, purpose %s)", file.OriginalFilename, file.SizeBytes, file.Purpose)
	_ = createAuditLog(ctx, s.auditRepo, &customer, models.AuditActionFileUploaded, msg, true, nil, metadata)

	return &dto.UploadFileResponse{
		Message: "File uploaded successfully",
		File:    *ToStoredFileDTO(file),
	}, nil
}
