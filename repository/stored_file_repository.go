package repository

import (
	"context"
	"errors"

	"github.com/openmkt/campaignkit/models"
	"gorm.io/gorm"
)

// StoredFileRepositoryImpl implements the StoredFileRepository interface
type StoredFileRepositoryImpl struct {
	*BaseRepository[models.StoredFile, models.StoredFileFilter]
}

// NewStoredFileRepository creates a new stored file repository
func NewStoredFileRepository(db *gorm.DB) StoredFileRepository {
	return &StoredFileRepositoryImpl{
		BaseRepository: NewBaseRepository[models.StoredFile, models.StoredFileFilter](db),
	}
}

// ByCustomerAndID retrieves a file owned by the given customer
func (r *StoredFileRepositoryImpl) ByCustomerAndID(ctx context.Context, customerID, id uint) (*models.StoredFile, error) {
	db := r.getDB(ctx)

	var file models.StoredFile
	err := db.Where("customer_id = ? AND id = ?", customerID, id).Last(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &file, nil
}

// ByFilter retrieves stored files based on filter criteria
func (r *StoredFileRepositoryImpl) ByFilter(ctx context.Context, filter models.StoredFileFilter, orderBy string, limit, offset int) ([]*models.StoredFile, error) {
	db := r.getDB(ctx)

	var files []*models.StoredFile
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

	err := query.Find(&files).Error
	if err != nil {
		return nil, err
	}

	return files, nil
}

// Count returns the number of stored files matching the filter
func (r *StoredFileRepositoryImpl) Count(ctx context.Context, filter models.StoredFileFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.StoredFile{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any stored file matching the filter exists
func (r *StoredFileRepositoryImpl) Exists(ctx context.Context, filter models.StoredFileFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *StoredFileRepositoryImpl) applyFilter(db *gorm.DB, filter models.StoredFileFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Purpose != nil {
		db = db.Where("purpose = ?", *filter.Purpose)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
