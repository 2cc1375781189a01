package repository

import (
	"context"

	"github.com/openmkt/campaignkit/models"
	"gorm.io/gorm"
)

// CompanyProfileRepositoryImpl implements the CompanyProfileRepository interface
type CompanyProfileRepositoryImpl struct {
	*BaseRepository[models.CompanyProfile, models.CompanyProfileFilter]
}

// NewCompanyProfileRepository creates a new company profile repository
func NewCompanyProfileRepository(db *gorm.DB) CompanyProfileRepository {
	return &CompanyProfileRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CompanyProfile, models.CompanyProfileFilter](db),
	}
}

// ByCustomerID retrieves company profiles by customer ID with pagination
func (r *CompanyProfileRepositoryImpl) ByCustomerID(ctx context.Context, customerID uint, limit, offset int) ([]*models.CompanyProfile, error) {
	filter := models.CompanyProfileFilter{CustomerID: &customerID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// ByFilter retrieves company profiles based on filter criteria
func (r *CompanyProfileRepositoryImpl) ByFilter(ctx context.Context, filter models.CompanyProfileFilter, orderBy string, limit, offset int) ([]*models.CompanyProfile, error) {
	db := r.getDB(ctx)

	var profiles []*models.CompanyProfile
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

	err := query.Find(&profiles).Error
	if err != nil {
		return nil, err
	}

	return profiles, nil
}

// Count returns the number of company profiles matching the filter
func (r *CompanyProfileRepositoryImpl) Count(ctx context.Context, filter models.CompanyProfileFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.CompanyProfile{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any company profile matching the filter exists
func (r *CompanyProfileRepositoryImpl) Exists(ctx context.Context, filter models.CompanyProfileFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CompanyProfileRepositoryImpl) applyFilter(db *gorm.DB, filter models.CompanyProfileFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Name != nil {
		db = db.Where("name ILIKE ?", "%"+*filter.Name+"%")
	}

	return db
}
