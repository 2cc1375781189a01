package services

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/openmkt/campaignkit/config"
	"github.com/openmkt/campaignkit/models"
	"github.com/openmkt/campaignkit/utils"
)

// StorageService persists uploaded files on disk and hands back their metadata
type StorageService interface {
	// Save writes the content under the customer's directory and returns the
	// metadata record to persist. The caller owns saving the record.
	Save(customerID uint, originalFilename, purpose string, content io.Reader) (*models.StoredFile, error)
	// Open returns a reader over a previously stored file
	Open(file *models.StoredFile) (io.ReadCloser, error)
	// Delete removes the stored content from disk
	Delete(file *models.StoredFile) error
}

// DiskStorageService implements StorageService on the local filesystem
type DiskStorageService struct {
	basePath      string
	maxUploadSize int64
}

// NewDiskStorageService creates a disk-backed storage service rooted at the
// configured base path.
func NewDiskStorageService(cfg *config.StorageConfig) (*DiskStorageService, error) {
	if err := os.MkdirAll(cfg.BasePath, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage base path: %w", err)
	}

	return &DiskStorageService{
		basePath:      cfg.BasePath,
		maxUploadSize: cfg.MaxUploadSize,
	}, nil
}

// Save streams the content to disk under <base>/<customerID>/<uuid><ext>
func (s *DiskStorageService) Save(customerID uint, originalFilename, purpose string, content io.Reader) (*models.StoredFile, error) {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if len(ext) > 20 {
		ext = ""
	}

	fileUUID := uuid.New()
	dir := filepath.Join(s.basePath, fmt.Sprintf("%d", customerID))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create customer directory: %w", err)
	}

	storedPath := filepath.Join(dir, fileUUID.String()+ext)
	out, err := os.OpenFile(storedPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	limited := io.LimitReader(content, s.maxUploadSize+1)
	written, err := io.Copy(out, limited)
	closeErr := out.Close()
	if err != nil {
		os.Remove(storedPath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if closeErr != nil {
		os.Remove(storedPath)
		return nil, fmt.Errorf("failed to close file: %w", closeErr)
	}
	if written > s.maxUploadSize {
		os.Remove(storedPath)
		return nil, fmt.Errorf("file exceeds maximum upload size of %d bytes", s.maxUploadSize)
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	now := utils.UTCNow()
	return &models.StoredFile{
		UUID:             fileUUID,
		CustomerID:       customerID,
		OriginalFilename: filepath.Base(originalFilename),
		StoredPath:       storedPath,
		SizeBytes:        written,
		MimeType:         mimeType,
		Purpose:          purpose,
		Extension:        strings.TrimPrefix(ext, "."),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Open returns a reader over the stored content
func (s *DiskStorageService) Open(file *models.StoredFile) (io.ReadCloser, error) {
	if !strings.HasPrefix(filepath.Clean(file.StoredPath), s.basePath) {
		return nil, fmt.Errorf("stored path escapes storage root")
	}

	f, err := os.Open(file.StoredPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open stored file: %w", err)
	}
	return f, nil
}

// Delete removes the stored content. Missing files are not an error.
func (s *DiskStorageService) Delete(file *models.StoredFile) error {
	if err := os.Remove(file.StoredPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete stored file: %w", err)
	}
	return nil
}
