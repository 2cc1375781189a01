package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/openmkt/campaignkit/utils"
	"gorm.io/gorm"
)

// File purpose constants
const (
	FilePurposeCustomerList      = "customer_list"
	FilePurposeClassifiedPersona = "classified_persona"
	FilePurposeRenderedEmails    = "rendered_emails"
	FilePurposeDesignAsset       = "design_asset"
	FilePurposeMarketingContent  = "marketing_content"
	FilePurposeExport            = "export"
)

// StoredFile represents an uploaded file persisted on disk with its metadata.
type StoredFile struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID             uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	CustomerID       uint      `gorm:"not null;index" json:"customer_id"`
	OriginalFilename string    `gorm:"type:varchar(255);not null" json:"original_filename"`
	StoredPath       string    `gorm:"type:text;not null" json:"stored_path"`
	SizeBytes        int64     `gorm:"type:bigint;not null" json:"size_bytes"`
	MimeType         string    `gorm:"type:varchar(100);not null" json:"mime_type"`
	Purpose          string    `gorm:"type:varchar(50);not null;index" json:"purpose"`
	Extension        string    `gorm:"type:varchar(20);not null" json:"extension"`
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Customer *Customer `gorm:"foreignKey:CustomerID;references:ID;constraint:OnDelete:CASCADE" json:"customer,omitempty"`
}

func (StoredFile) TableName() string { return "stored_files" }

// BeforeCreate ensures UUID and timestamps are set.
func (f *StoredFile) BeforeCreate(tx *gorm.DB) error {
	if f.UUID == uuid.Nil {
		f.UUID = uuid.New()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = utils.UTCNow()
	}
	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// ToStepRef builds the file reference kept inside the campaign wizard state.
func (f *StoredFile) ToStepRef() *FileRefStep {
	return &FileRefStep{FileID: f.ID, FileName: f.OriginalFilename}
}

// StoredFileFilter represents filter criteria for stored file queries.
type StoredFileFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	CustomerID    *uint      `json:"customer_id,omitempty"`
	Purpose       *string    `json:"purpose,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
