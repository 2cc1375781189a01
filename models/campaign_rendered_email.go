package models

import (
	"encoding/json"
	"time"

	"github.com/openmkt/campaignkit/utils"
	"gorm.io/gorm"
)

// CampaignRenderedEmail is the fully personalized email body for one
// recipient, produced by the generation flow or the admin bulk import.
// One per recipient (campaign_recipient_id is unique).
type CampaignRenderedEmail struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	CampaignID          uint            `gorm:"not null;index:idx_rendered_emails_campaign_id" json:"campaign_id"`
	CampaignRecipientID uint            `gorm:"not null;uniqueIndex:uk_rendered_emails_recipient" json:"campaign_recipient_id"`
	Subject             string          `gorm:"size:500;not null" json:"subject"`
	Preheader           *string         `gorm:"size:500" json:"preheader,omitempty"`
	HTML                string          `gorm:"type:text;not null" json:"html"`
	FromEmail           *string         `gorm:"size:255" json:"from_email,omitempty"`
	ToEmail             *string         `gorm:"size:255" json:"to_email,omitempty"`
	TemplateID          *string         `gorm:"size:100" json:"template_id,omitempty"`
	Rationale           json.RawMessage `gorm:"type:jsonb" json:"rationale,omitempty"`
	CreatedAt           time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	Campaign  *Campaign          `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Recipient *CampaignRecipient `gorm:"foreignKey:CampaignRecipientID;references:ID" json:"recipient,omitempty"`
}

func (CampaignRenderedEmail) TableName() string { return "campaign_rendered_emails" }

// BeforeCreate is called before creating a new record
func (e *CampaignRenderedEmail) BeforeCreate(tx *gorm.DB) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = utils.UTCNow()
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// CampaignRenderedEmailFilter represents filter criteria for rendered email queries
type CampaignRenderedEmailFilter struct {
	ID                  *uint `json:"id,omitempty"`
	CampaignID          *uint `json:"campaign_id,omitempty"`
	CampaignRecipientID *uint `json:"campaign_recipient_id,omitempty"`
}
