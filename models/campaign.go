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

// CampaignStatus represents the status of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "DRAFT"
	CampaignStatusActive    CampaignStatus = "ACTIVE"
	CampaignStatusPaused    CampaignStatus = "PAUSED"
	CampaignStatusCompleted CampaignStatus = "COMPLETED"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive,
		CampaignStatusPaused, CampaignStatusCompleted:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// AnalysisStep is one stage of the company profile analysis pipeline.
type AnalysisStep struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

// AnalysisStepList is the ordered list of analysis stages stored as JSON.
type AnalysisStepList []AnalysisStep

// Value implements the driver.Valuer interface for AnalysisStepList
func (l AnalysisStepList) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for AnalysisStepList
func (l *AnalysisStepList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into AnalysisStepList", value)
	}

	return json.Unmarshal(bytes, l)
}

// DefaultAnalysisSteps returns the fixed four-stage pipeline every new draft starts with.
func DefaultAnalysisSteps() AnalysisStepList {
	return AnalysisStepList{
		{Key: utils.AnalysisStepScrape, Label: "Scraping website", Status: utils.AnalysisStatusWaiting},
		{Key: utils.AnalysisStepProfile, Label: "Building company profile", Status: utils.AnalysisStatusWaiting},
		{Key: utils.AnalysisStepPersonas, Label: "Classifying personas", Status: utils.AnalysisStatusWaiting},
		{Key: utils.AnalysisStepTemplate, Label: "Generating template", Status: utils.AnalysisStatusWaiting},
	}
}

// Campaign represents an email campaign in the database
type Campaign struct {
	ID                      uint             `gorm:"primaryKey" json:"id"`
	UUID                    uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid;index:idx_campaigns_uuid" json:"uuid"`
	CustomerID              uint             `gorm:"not null;index:idx_campaigns_customer_id" json:"customer_id"`
	Name                    string           `gorm:"size:255;not null" json:"name"`
	Status                  CampaignStatus   `gorm:"type:campaign_status;not null;default:'DRAFT';index:idx_campaigns_status" json:"status"`
	CurrentStep             int              `gorm:"not null;default:0" json:"current_step"`
	StepState               StepState        `gorm:"type:jsonb;not null" json:"step_state"`
	AnalysisSteps           AnalysisStepList `gorm:"type:jsonb;not null" json:"analysis_steps"`
	CompanyProfileID        *uint            `gorm:"index:idx_campaigns_company_profile_id" json:"company_profile_id,omitempty"`
	ClassifiedPersonaFileID *uint            `json:"classified_persona_file_id,omitempty"`
	LaunchedAt              *time.Time       `json:"launched_at,omitempty"`
	LastSavedAt             time.Time        `gorm:"not null" json:"last_saved_at"`
	CreatedAt               time.Time        `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt               *time.Time       `gorm:"index:idx_campaigns_updated_at" json:"updated_at,omitempty"`

	// Relations
	Customer              *Customer           `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	CompanyProfile        *CompanyProfile     `gorm:"foreignKey:CompanyProfileID;references:ID" json:"company_profile,omitempty"`
	ClassifiedPersonaFile *StoredFile         `gorm:"foreignKey:ClassifiedPersonaFileID;references:ID" json:"classified_persona_file,omitempty"`
	Recipients            []CampaignRecipient `gorm:"foreignKey:CampaignID" json:"recipients,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	if c.LastSavedAt.IsZero() {
		c.LastSavedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// IsEditable checks if the campaign can still be configured through the wizard
func (c *Campaign) IsEditable() bool {
	return c.Status == CampaignStatusDraft
}

// IsDeletable checks if the campaign can be deleted
func (c *Campaign) IsDeletable() bool {
	return c.Status == CampaignStatusDraft
}

// CanTransitionTo checks if the campaign can transition to the given status.
// DRAFT -> ACTIVE (launch); ACTIVE <-> PAUSED; ACTIVE -> COMPLETED.
// No transition re-enters DRAFT.
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	switch c.Status {
	case CampaignStatusDraft:
		return newStatus == CampaignStatusActive
	case CampaignStatusActive:
		return newStatus == CampaignStatusPaused ||
			newStatus == CampaignStatusCompleted
	case CampaignStatusPaused:
		return newStatus == CampaignStatusActive
	default:
		return false
	}
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	CustomerID    *uint           `json:"customer_id,omitempty"`
	Status        *CampaignStatus `json:"status,omitempty"`
	Name          *string         `json:"name,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
	UpdatedAfter  *time.Time      `json:"updated_after,omitempty"`
	UpdatedBefore *time.Time      `json:"updated_before,omitempty"`
}

// GetStatusDisplayName returns a human-readable status name
func (c *Campaign) GetStatusDisplayName() string {
	switch c.Status {
	case CampaignStatusDraft:
		return "Draft"
	case CampaignStatusActive:
		return "Active"
	case CampaignStatusPaused:
		return "Paused"
	case CampaignStatusCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}
