package repository

import (
	"context"

	"github.com/openmkt/campaignkit/models"
	"github.com/openmkt/campaignkit/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CampaignRenderedEmailRepositoryImpl implements the CampaignRenderedEmailRepository interface
type CampaignRenderedEmailRepositoryImpl struct {
	*BaseRepository[models.CampaignRenderedEmail, models.CampaignRenderedEmailFilter]
}

// NewCampaignRenderedEmailRepository creates a new rendered email repository
func NewCampaignRenderedEmailRepository(db *gorm.DB) CampaignRenderedEmailRepository {
	return &CampaignRenderedEmailRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignRenderedEmail, models.CampaignRenderedEmailFilter](db),
	}
}

// UpsertByRecipient inserts the rendered email or, on the unique
// campaign_recipient_id constraint, replaces its content.
func (r *CampaignRenderedEmailRepositoryImpl) UpsertByRecipient(ctx context.Context, email *models.CampaignRenderedEmail) error {
	db := r.getDB(ctx)

	email.UpdatedAt = utils.UTCNow()
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "campaign_recipient_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subject", "preheader", "html", "from_email", "to_email",
			"template_id", "rationale", "updated_at",
		}),
	}).Create(email).Error
}

// CountByCampaign counts rendered emails of a campaign
func (r *CampaignRenderedEmailRepositoryImpl) CountByCampaign(ctx context.Context, campaignID uint) (int64, error) {
	filter := models.CampaignRenderedEmailFilter{CampaignID: &campaignID}
	return r.Count(ctx, filter)
}

// ByFilter retrieves rendered emails based on filter criteria
func (r *CampaignRenderedEmailRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignRenderedEmailFilter, orderBy string, limit, offset int) ([]*models.CampaignRenderedEmail, error) {
	db := r.getDB(ctx)

	var emails []*models.CampaignRenderedEmail
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&emails).Error
	if err != nil {
		return nil, err
	}

	return emails, nil
}

// Count returns the number of rendered emails matching the filter
func (r *CampaignRenderedEmailRepositoryImpl) Count(ctx context.Context, filter models.CampaignRenderedEmailFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.CampaignRenderedEmail{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any rendered email matching the filter exists
func (r *CampaignRenderedEmailRepositoryImpl) Exists(ctx context.Context, filter models.CampaignRenderedEmailFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CampaignRenderedEmailRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignRenderedEmailFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.CampaignRecipientID != nil {
		db = db.Where("campaign_recipient_id = ?", *filter.CampaignRecipientID)
	}

	return db
}
