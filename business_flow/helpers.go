package businessflow

import (
	"context"

	"github.com/openmkt/campaignkit/models"
	"github.com/openmkt/campaignkit/repository"
	"github.com/openmkt/campaignkit/utils"
)

// getCustomer loads an active customer by id
func getCustomer(ctx context.Context, repo repository.CustomerRepository, customerID uint) (models.Customer, error) {
	customer, err := repo.ByID(ctx, customerID)
	if err != nil {
		return models.Customer{}, err
	}
	if customer == nil {
		return models.Customer{}, ErrCustomerNotFound
	}
	if !customer.Active() {
		return models.Customer{}, ErrAccountInactive
	}
	return *customer, nil
}

// getCampaign loads a campaign by UUID and verifies the caller owns it
func getCampaign(ctx context.Context, repo repository.CampaignRepository, campaignUUID string, customerID uint) (*models.Campaign, error) {
	if campaignUUID == "" {
		return nil, ErrCampaignUUIDRequired
	}

	campaign, err := repo.ByUUID(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}
	if campaign.CustomerID != customerID {
		return nil, ErrCampaignAccessDenied
	}

	return campaign, nil
}

// createAuditLog writes an audit log entry for a flow operation
func createAuditLog(ctx context.Context, repo repository.AuditLogRepository, customer *models.Customer, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var customerID *uint
	if customer != nil {
		customerID = &customer.ID
	}

	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		CustomerID:   customerID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	requestID := ctx.Value(utils.RequestIDKey)
	if requestID != nil {
		if requestIDStr, ok := requestID.(string); ok {
			audit.RequestID = &requestIDStr
		}
	}

	return repo.Save(ctx, audit)
}

func normalizePagination(page, limit int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 20
	}
	if page < 1 {
		return 0, 0, ErrInvalidPage
	}
	if limit < 1 || limit > 100 {
		return 0, 0, ErrInvalidPageSize
	}
	return page, limit, nil
}
