package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/openmkt/campaignkit/utils"
	"gorm.io/gorm"
)

// Contact is an address-book entry scoped to its owning customer.
// Email is unique per owner so concurrent imports upsert instead of duplicating.
type Contact struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uk_contacts_uuid" json:"uuid"`
	CustomerID uint            `gorm:"not null;uniqueIndex:uk_contacts_owner_email;index:idx_contacts_customer_id" json:"customer_id"`
	Email      string          `gorm:"size:255;not null;uniqueIndex:uk_contacts_owner_email" json:"email"`
	FirstName  *string         `gorm:"size:255" json:"first_name,omitempty"`
	LastName   *string         `gorm:"size:255" json:"last_name,omitempty"`
	Attributes json.RawMessage `gorm:"type:jsonb" json:"attributes,omitempty"`
	CreatedAt  time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	Customer *Customer `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
}

func (Contact) TableName() string { return "contacts" }

// BeforeCreate is called before creating a new record
func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// DisplayName joins first and last name with a space, falling back to empty.
func (c *Contact) DisplayName() string {
	first, last := "", ""
	if c.FirstName != nil {
		first = *c.FirstName
	}
	if c.LastName != nil {
		last = *c.LastName
	}
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	default:
		return last
	}
}

// ContactFilter represents filter criteria for contact queries
type ContactFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	CustomerID    *uint      `json:"customer_id,omitempty"`
	Email         *string    `json:"email,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
