package models

import (
	"time"

	"github.com/lib/pq"
)

// Outbox job status constants
const (
	OutboxStatusPending    = "pending"
	OutboxStatusProcessing = "processing"
	OutboxStatusDone       = "done"
	OutboxStatusFailed     = "failed"
)

// OutboxMaxAttempts is the delivery attempt budget. A failed job goes back to
// pending until the budget is spent, then parks as failed.
const OutboxMaxAttempts = 3

// SendOutboxJob represents a scheduled job to deliver a launched campaign's
// staged recipients. Rows are written in the same transaction as the launch
// so the dispatcher delivers at least once.
type SendOutboxJob struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	CorrelationID string        `gorm:"size:64;index:idx_send_outbox_corr_id;not null" json:"correlation_id"`
	CampaignID    uint          `gorm:"index:idx_send_outbox_campaign_id;not null" json:"campaign_id"`
	RecipientIDs  pq.Int64Array `gorm:"type:bigint[];not null" json:"recipient_ids"`
	Status        string        `gorm:"size:20;not null;default:'pending';index:idx_send_outbox_status" json:"status"`
	Attempts      int           `gorm:"not null;default:0" json:"attempts"`
	ScheduledAt   time.Time     `gorm:"index:idx_send_outbox_scheduled;not null" json:"scheduled_at"`
	ExecutedAt    *time.Time    `json:"executed_at,omitempty"`
	LastError     *string       `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt     time.Time     `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');not null" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');not null" json:"updated_at"`
}

func (SendOutboxJob) TableName() string { return "send_outbox" }
