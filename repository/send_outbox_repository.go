package repository

import (
	"context"
	"errors"
	"time"

	"github.com/openmkt/campaignkit/models"
	"github.com/openmkt/campaignkit/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SendOutboxRepositoryImpl implements the SendOutboxRepository interface
type SendOutboxRepositoryImpl struct {
	db *gorm.DB
}

// NewSendOutboxRepository creates a new send outbox repository
func NewSendOutboxRepository(db *gorm.DB) SendOutboxRepository {
	return &SendOutboxRepositoryImpl{db: db}
}

func (r *SendOutboxRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// Save inserts a new outbox job
func (r *SendOutboxRepositoryImpl) Save(ctx context.Context, job *models.SendOutboxJob) error {
	db := r.getDB(ctx)
	return db.Create(job).Error
}

// ByID retrieves an outbox job by ID
func (r *SendOutboxRepositoryImpl) ByID(ctx context.Context, id uint) (*models.SendOutboxJob, error) {
	db := r.getDB(ctx)

	var job models.SendOutboxJob
	if err := db.Last(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// ClaimDue atomically claims due pending jobs: rows are locked with SKIP
// LOCKED so concurrent dispatcher instances never pick the same job, then
// flipped to processing with attempts incremented.
func (r *SendOutboxRepositoryImpl) ClaimDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*models.SendOutboxJob, error) {
	if limit <= 0 {
		limit = 20
	}

	var claimed []*models.SendOutboxJob
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var jobs []*models.SendOutboxJob
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND scheduled_at <= ? AND attempts < ?",
				models.OutboxStatusPending, now, maxAttempts).
			Order("scheduled_at ASC, id ASC").
			Limit(limit).
			Find(&jobs).Error; err != nil {
			return err
		}
		if len(jobs) == 0 {
			return nil
		}

		ids := make([]uint, 0, len(jobs))
		for _, j := range jobs {
			ids = append(ids, j.ID)
		}
		if err := tx.Model(&models.SendOutboxJob{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":     models.OutboxStatusProcessing,
				"attempts":   gorm.Expr("attempts + 1"),
				"updated_at": utils.UTCNow(),
			}).Error; err != nil {
			return err
		}

		for _, j := range jobs {
			j.Status = models.OutboxStatusProcessing
			j.Attempts++
		}
		claimed = jobs
		return nil
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

// MarkDone marks a job as successfully executed
func (r *SendOutboxRepositoryImpl) MarkDone(ctx context.Context, id uint, executedAt time.Time) error {
	db := r.getDB(ctx)
	return db.Model(&models.SendOutboxJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      models.OutboxStatusDone,
			"executed_at": executedAt,
			"updated_at":  utils.UTCNow(),
		}).Error
}

// MarkFailed records the failure. The job goes back to pending for another
// attempt unless the attempt budget is spent, in which case it parks as failed.
func (r *SendOutboxRepositoryImpl) MarkFailed(ctx context.Context, id uint, lastError string, maxAttempts int) error {
	if maxAttempts <= 0 {
		maxAttempts = models.OutboxMaxAttempts
	}
	db := r.getDB(ctx)
	return db.Model(&models.SendOutboxJob{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": gorm.Expr("CASE WHEN attempts >= ? THEN ? ELSE ? END",
				maxAttempts, models.OutboxStatusFailed, models.OutboxStatusPending),
			"last_error": lastError,
			"updated_at": utils.UTCNow(),
		}).Error
}
