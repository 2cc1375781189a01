package dto

// AdminListCampaignsRequest lists campaigns across all customers
type AdminListCampaignsRequest struct {
	Page    int     `json:"page"`
	Limit   int     `json:"limit"`
	Status  *string `json:"status,omitempty" validate:"omitempty,oneof=DRAFT ACTIVE PAUSED COMPLETED"`
	OrderBy string  `json:"orderby"` // newest, oldest
}

// AdminCampaignStatusRequest targets one campaign for a status transition
type AdminCampaignStatusRequest struct {
	UUID string `json:"-"`
}

// AdminCampaignStatusResponse reports the applied transition
type AdminCampaignStatusResponse struct {
	Message string `json:"message"`
	UUID    string `json:"uuid"`
	Status  string `json:"status"`
}

// AdminExportRecipientsRequest exports a campaign's recipients as a spreadsheet
type AdminExportRecipientsRequest struct {
	UUID string `json:"-"`
}

// AdminExportRecipientsResponse carries the generated spreadsheet
type AdminExportRecipientsResponse struct {
	Filename string `json:"filename"`
	Content  []byte `json:"-"`
}

// ProviderTestRequest tests the connection of the configured mail provider
type ProviderTestRequest struct {
	UUID       string `json:"-"`
	CustomerID uint   `json:"-"`
}

// ProviderTestResponse reports the provider connectivity check
type ProviderTestResponse struct {
	Message   string `json:"message"`
	Provider  string `json:"provider"`
	Connected bool   `json:"connected"`
}
