// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/openmkt/campaignkit/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CustomerRepository defines operations for customers
type CustomerRepository interface {
	Repository[models.Customer, models.CustomerFilter]
	ByEmail(ctx context.Context, email string) (*models.Customer, error)
	ByUUID(ctx context.Context, uuid string) (*models.Customer, error)
	UpdateLastLogin(ctx context.Context, customerID uint, at time.Time) error
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	ByIDWithRelations(ctx context.Context, id uint) (*models.Campaign, error)
	ByCustomerID(ctx context.Context, customerID uint, limit, offset int) ([]*models.Campaign, error)
	Update(ctx context.Context, campaign models.Campaign) error
	UpdateStatus(ctx context.Context, id uint, status models.CampaignStatus) error
	UpdateAnalysisSteps(ctx context.Context, id uint, steps models.AnalysisStepList) error
	Delete(ctx context.Context, id uint) error
}

// ContactRepository defines operations for contacts
type ContactRepository interface {
	Repository[models.Contact, models.ContactFilter]
	ByOwnerAndEmail(ctx context.Context, customerID uint, email string) (*models.Contact, error)
	UpsertByOwnerEmail(ctx context.Context, contact *models.Contact) error
}

// CampaignRecipientRepository defines operations for campaign recipients
type CampaignRecipientRepository interface {
	Repository[models.CampaignRecipient, models.CampaignRecipientFilter]
	UpsertByCampaignContact(ctx context.Context, recipient *models.CampaignRecipient) error
	ListStagedWithDetails(ctx context.Context, campaignID uint) ([]*models.CampaignRecipient, error)
	ListByIDsWithDetails(ctx context.Context, ids []uint) ([]*models.CampaignRecipient, error)
	CountByCampaign(ctx context.Context, campaignID uint) (int64, error)
	PersonaCounts(ctx context.Context, campaignID uint) ([]models.PersonaCount, error)
	UpdateStatusBatch(ctx context.Context, ids []uint, status models.RecipientStatus) error
}

// CampaignRenderedEmailRepository defines operations for rendered emails
type CampaignRenderedEmailRepository interface {
	Repository[models.CampaignRenderedEmail, models.CampaignRenderedEmailFilter]
	UpsertByRecipient(ctx context.Context, email *models.CampaignRenderedEmail) error
	CountByCampaign(ctx context.Context, campaignID uint) (int64, error)
}

// CompanyProfileRepository defines operations for company profiles
type CompanyProfileRepository interface {
	Repository[models.CompanyProfile, models.CompanyProfileFilter]
	ByCustomerID(ctx context.Context, customerID uint, limit, offset int) ([]*models.CompanyProfile, error)
}

// StoredFileRepository defines operations for stored files
type StoredFileRepository interface {
	Repository[models.StoredFile, models.StoredFileFilter]
	ByCustomerAndID(ctx context.Context, customerID, id uint) (*models.StoredFile, error)
}

// SendOutboxRepository defines operations for send outbox jobs
type SendOutboxRepository interface {
	Save(ctx context.Context, job *models.SendOutboxJob) error
	ByID(ctx context.Context, id uint) (*models.SendOutboxJob, error)
	ClaimDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*models.SendOutboxJob, error)
	MarkDone(ctx context.Context, id uint, executedAt time.Time) error
	MarkFailed(ctx context.Context, id uint, lastError string, maxAttempts int) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.AuditLog, error)
}

// AdminRepository defines operations for admins
type AdminRepository interface {
	Repository[models.Admin, models.AdminFilter]
	ByUsername(ctx context.Context, username string) (*models.Admin, error)
}
