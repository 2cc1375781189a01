package repository

import (
	"context"

	"github.com/openmkt/campaignkit/models"
	"github.com/openmkt/campaignkit/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CampaignRecipientRepositoryImpl implements the CampaignRecipientRepository interface
type CampaignRecipientRepositoryImpl struct {
	*BaseRepository[models.CampaignRecipient, models.CampaignRecipientFilter]
}

// NewCampaignRecipientRepository creates a new campaign recipient repository
func NewCampaignRecipientRepository(db *gorm.DB) CampaignRecipientRepository {
	return &CampaignRecipientRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignRecipient, models.CampaignRecipientFilter](db),
	}
}

// UpsertByCampaignContact inserts the recipient or, on the
// (campaign_id, contact_id) unique constraint, refreshes persona fields and
// resets the status. Re-importing a row stages the recipient again.
func (r *CampaignRecipientRepositoryImpl) UpsertByCampaignContact(ctx context.Context, recipient *models.CampaignRecipient) error {
	db := r.getDB(ctx)

	recipient.UpdatedAt = utils.UTCNow()
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "campaign_id"}, {Name: "contact_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"persona_code", "persona_display_name", "confidence", "status", "updated_at",
		}),
	}).Create(recipient).Error
}

// ListStagedWithDetails loads all STAGED recipients of a campaign with their
// contact and rendered email preloaded.
func (r *CampaignRecipientRepositoryImpl) ListStagedWithDetails(ctx context.Context, campaignID uint) ([]*models.CampaignRecipient, error) {
	db := r.getDB(ctx)

	var recipients []*models.CampaignRecipient
	err := db.Where("campaign_id = ? AND status = ?", campaignID, models.RecipientStatusStaged).
		Preload("Contact").
		Preload("RenderedEmail").
		Order("id ASC").
		Find(&recipients).Error
	if err != nil {
		return nil, err
	}

	return recipients, nil
}

// ListByIDsWithDetails loads the given recipients with contact and rendered email preloaded.
func (r *CampaignRecipientRepositoryImpl) ListByIDsWithDetails(ctx context.Context, ids []uint) ([]*models.CampaignRecipient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db := r.getDB(ctx)

	var recipients []*models.CampaignRecipient
	err := db.Where("id IN ?", ids).
		Preload("Contact").
		Preload("RenderedEmail").
		Order("id ASC").
		Find(&recipients).Error
	if err != nil {
		return nil, err
	}

	return recipients, nil
}

// CountByCampaign counts all recipients of a campaign
func (r *CampaignRecipientRepositoryImpl) CountByCampaign(ctx context.Context, campaignID uint) (int64, error) {
	filter := models.CampaignRecipientFilter{CampaignID: &campaignID}
	return r.Count(ctx, filter)
}

// PersonaCounts returns recipient counts grouped by persona code for a campaign
func (r *CampaignRecipientRepositoryImpl) PersonaCounts(ctx context.Context, campaignID uint) ([]models.PersonaCount, error) {
	db := r.getDB(ctx)

	var rows []models.PersonaCount
	err := db.Model(&models.CampaignRecipient{}).
		Select("COALESCE(persona_code, '') AS persona_code, COUNT(*) AS count").
		Where("campaign_id = ?", campaignID).
		Group("persona_code").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// UpdateStatusBatch updates the status of the given recipients in one statement
func (r *CampaignRecipientRepositoryImpl) UpdateStatusBatch(ctx context.Context, ids []uint, status models.RecipientStatus) error {
	if len(ids) == 0 {
		return nil
	}
	db := r.getDB(ctx)

	return db.Model(&models.CampaignRecipient{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":     status,
			"updated_at": utils.UTCNow(),
		}).Error
}

// ByFilter retrieves recipients based on filter criteria
func (r *CampaignRecipientRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignRecipientFilter, orderBy string, limit, offset int) ([]*models.CampaignRecipient, error) {
	db := r.getDB(ctx)

	var recipients []*models.CampaignRecipient
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

	err := query.Find(&recipients).Error
	if err != nil {
		return nil, err
	}

	return recipients, nil
}

// Count returns the number of recipients matching the filter
func (r *CampaignRecipientRepositoryImpl) Count(ctx context.Context, filter models.CampaignRecipientFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.CampaignRecipient{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any recipient matching the filter exists
func (r *CampaignRecipientRepositoryImpl) Exists(ctx context.Context, filter models.CampaignRecipientFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CampaignRecipientRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignRecipientFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.ContactID != nil {
		db = db.Where("contact_id = ?", *filter.ContactID)
	}
	if filter.PersonaCode != nil {
		db = db.Where("persona_code = ?", *filter.PersonaCode)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}

	return db
}
