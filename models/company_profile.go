package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openmkt/campaignkit/utils"
	"gorm.io/gorm"
)

// BusinessInfo is the free-form analysis output attached to a company profile.
type BusinessInfo map[string]any

// Value implements the driver.Valuer interface for BusinessInfo
func (b BusinessInfo) Value() (driver.Value, error) {
	if b == nil {
		return json.Marshal(map[string]any{})
	}
	return json.Marshal(b)
}

// Scan implements the sql.Scanner interface for BusinessInfo
func (b *BusinessInfo) Scan(value any) error {
	if value == nil {
		*b = nil
		return nil
	}

	var bs []byte
	switch v := value.(type) {
	case []byte:
		bs = v
	case string:
		bs = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into BusinessInfo", value)
	}

	return json.Unmarshal(bs, b)
}

// CompanyProfile is the analyzed snapshot of a customer's company used to
// drive template generation and persona classification.
type CompanyProfile struct {
	ID                     uint         `gorm:"primaryKey" json:"id"`
	UUID                   uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:uk_company_profiles_uuid" json:"uuid"`
	CustomerID             uint         `gorm:"not null;index:idx_company_profiles_customer_id" json:"customer_id"`
	Name                   string       `gorm:"size:255;not null" json:"name"`
	Website                *string      `gorm:"size:500" json:"website,omitempty"`
	BusinessInfo           BusinessInfo `gorm:"type:jsonb" json:"business_info,omitempty"`
	DesignAssetFileID      *uint        `json:"design_asset_file_id,omitempty"`
	MarketingContentFileID *uint        `json:"marketing_content_file_id,omitempty"`
	CreatedAt              time.Time    `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt              time.Time    `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	Customer             *Customer   `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	DesignAssetFile      *StoredFile `gorm:"foreignKey:DesignAssetFileID;references:ID" json:"design_asset_file,omitempty"`
	MarketingContentFile *StoredFile `gorm:"foreignKey:MarketingContentFileID;references:ID" json:"marketing_content_file,omitempty"`
}

func (CompanyProfile) TableName() string { return "company_profiles" }

// BeforeCreate is called before creating a new record
func (p *CompanyProfile) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = utils.UTCNow()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// ToStepSnapshot builds the denormalized copy kept inside the campaign wizard state.
func (p *CompanyProfile) ToStepSnapshot() *CompanyProfileStep {
	website := ""
	if p.Website != nil {
		website = *p.Website
	}
	return &CompanyProfileStep{
		ID:                     p.ID,
		Name:                   p.Name,
		UserID:                 p.CustomerID,
		Website:                website,
		CreatedAt:              p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:              p.UpdatedAt.UTC().Format(time.RFC3339),
		BusinessInfo:           p.BusinessInfo,
		DesignAssetFileID:      p.DesignAssetFileID,
		MarketingContentFileID: p.MarketingContentFileID,
	}
}

// CompanyProfileFilter represents filter criteria for company profile queries
type CompanyProfileFilter struct {
	ID         *uint      `json:"id,omitempty"`
	UUID       *uuid.UUID `json:"uuid,omitempty"`
	CustomerID *uint      `json:"customer_id,omitempty"`
	Name       *string    `json:"name,omitempty"`
}
