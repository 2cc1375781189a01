package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/openmkt/campaignkit/utils"
	"gorm.io/gorm"
)

// RecipientStatus represents the delivery state of a campaign recipient
type RecipientStatus string

const (
	RecipientStatusStaged RecipientStatus = "STAGED"
	RecipientStatusSent   RecipientStatus = "SENT"
	RecipientStatusFailed RecipientStatus = "FAILED"
)

// String returns the string representation of the status
func (s RecipientStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s RecipientStatus) Valid() bool {
	switch s {
	case RecipientStatusStaged, RecipientStatusSent, RecipientStatusFailed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for RecipientStatus
func (s *RecipientStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = RecipientStatus(v)
	case []byte:
		*s = RecipientStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into RecipientStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for RecipientStatus
func (s RecipientStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid RecipientStatus: %s", s)
	}
	return string(s), nil
}

// CampaignRecipient stages one contact for a campaign send.
// Unique on (campaign_id, contact_id) so re-imports upsert.
type CampaignRecipient struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	CampaignID         uint            `gorm:"not null;uniqueIndex:uk_campaign_recipients_campaign_contact;index:idx_campaign_recipients_campaign_id" json:"campaign_id"`
	ContactID          uint            `gorm:"not null;uniqueIndex:uk_campaign_recipients_campaign_contact" json:"contact_id"`
	PersonaCode        *string         `gorm:"size:100;index:idx_campaign_recipients_persona_code" json:"persona_code,omitempty"`
	PersonaDisplayName *string         `gorm:"size:255" json:"persona_display_name,omitempty"`
	Confidence         *int            `json:"confidence,omitempty"` // 0..100
	Status             RecipientStatus `gorm:"type:recipient_status;not null;default:'STAGED';index:idx_campaign_recipients_status" json:"status"`
	CreatedAt          time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	Campaign      *Campaign              `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Contact       *Contact               `gorm:"foreignKey:ContactID;references:ID" json:"contact,omitempty"`
	RenderedEmail *CampaignRenderedEmail `gorm:"foreignKey:CampaignRecipientID" json:"rendered_email,omitempty"`
}

func (CampaignRecipient) TableName() string { return "campaign_recipients" }

// BeforeCreate is called before creating a new record
func (r *CampaignRecipient) BeforeCreate(tx *gorm.DB) error {
	if r.Status == "" {
		r.Status = RecipientStatusStaged
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = utils.UTCNow()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// Sendable reports whether the recipient can actually be delivered:
// it needs a contact email and a rendered email body.
func (r *CampaignRecipient) Sendable() bool {
	return r.Contact != nil && r.Contact.Email != "" && r.RenderedEmail != nil
}

// CampaignRecipientFilter represents filter criteria for recipient queries
type CampaignRecipientFilter struct {
	ID          *uint            `json:"id,omitempty"`
	CampaignID  *uint            `json:"campaign_id,omitempty"`
	ContactID   *uint            `json:"contact_id,omitempty"`
	PersonaCode *string          `json:"persona_code,omitempty"`
	Status      *RecipientStatus `json:"status,omitempty"`
}

// PersonaCount is a groupBy aggregate of recipients per persona code.
type PersonaCount struct {
	PersonaCode string `json:"persona_code"`
	Count       int64  `json:"count"`
}
