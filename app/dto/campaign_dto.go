package dto

import (
	"time"
)

// AnalysisStepDTO mirrors one entry of a campaign's analysis step list
type AnalysisStepDTO struct {
	Key    string `json:"key" validate:"required"`
	Label  string `json:"label,omitempty"`
	Status string `json:"status" validate:"required,oneof=waiting running done failed"`
}

// CampaignDTO represents a campaign in responses
type CampaignDTO struct {
	ID                      uint                `json:"id"`
	UUID                    string              `json:"uuid"`
	Name                    string              `json:"name"`
	Status                  string              `json:"status"`
	CurrentStep             int                 `json:"current_step"`
	StepState               map[string]any      `json:"step_state"`
	AnalysisSteps           []AnalysisStepDTO   `json:"analysis_steps"`
	CompanyProfileID        *uint               `json:"company_profile_id,omitempty"`
	ClassifiedPersonaFileID *uint               `json:"classified_persona_file_id,omitempty"`
	LaunchedAt              *time.Time          `json:"launched_at,omitempty"`
	LastSavedAt             time.Time           `json:"last_saved_at"`
	CreatedAt               time.Time           `json:"created_at"`
	UpdatedAt               *time.Time          `json:"updated_at,omitempty"`
	Owner                   *OwnerDTO           `json:"owner,omitempty"`
	CompanyProfile          *CompanyProfileDTO  `json:"company_profile,omitempty"`
	ClassifiedPersonaFile   *StoredFileDTO      `json:"classified_persona_file,omitempty"`
}

// OwnerDTO is the owning customer as embedded in campaign responses
type OwnerDTO struct {
	ID        uint   `json:"id"`
	UUID      string `json:"uuid"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// CompanyProfileDTO is a company profile as embedded in campaign responses
type CompanyProfileDTO struct {
	ID           uint           `json:"id"`
	Name         string         `json:"name"`
	Website      *string        `json:"website,omitempty"`
	BusinessInfo map[string]any `json:"business_info,omitempty"`
}

// StoredFileDTO is a stored file reference in responses
type StoredFileDTO struct {
	ID               uint   `json:"id"`
	OriginalFilename string `json:"original_filename"`
	SizeBytes        int64  `json:"size_bytes"`
	MimeType         string `json:"mime_type"`
	Purpose          string `json:"purpose"`
}

// CreateDraftRequest represents the request to create a new draft campaign
type CreateDraftRequest struct {
	CustomerID uint   `json:"-"`
	Name       string `json:"name" validate:"required,min=1,max=255"`
}

// CreateDraftResponse represents the response to create a new draft campaign
type CreateDraftResponse struct {
	Message  string      `json:"message"`
	Campaign CampaignDTO `json:"campaign"`
}

// UpdateDraftRequest represents the request to update a draft campaign
type UpdateDraftRequest struct {
	UUID          string            `json:"-"`
	CustomerID    uint              `json:"-"`
	Name          *string           `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	CurrentStep   *int              `json:"current_step,omitempty" validate:"omitempty,gte=0"`
	Status        *string           `json:"status,omitempty" validate:"omitempty,oneof=DRAFT ACTIVE PAUSED COMPLETED"`
	StepState     map[string]any    `json:"step_state,omitempty"`
	AnalysisSteps []AnalysisStepDTO `json:"analysis_steps,omitempty" validate:"omitempty,dive"`
}

// UpdateDraftResponse represents the response to update a draft campaign
type UpdateDraftResponse struct {
	Message  string      `json:"message"`
	Campaign CampaignDTO `json:"campaign"`
}

// DeleteDraftRequest represents the request to delete a draft campaign
type DeleteDraftRequest struct {
	UUID       string `json:"-"`
	CustomerID uint   `json:"-"`
}

// DeleteDraftResponse represents the response to delete a draft campaign
type DeleteDraftResponse struct {
	Message string `json:"message"`
}

// GetCampaignRequest represents the request to fetch a single campaign
type GetCampaignRequest struct {
	UUID       string `json:"-"`
	CustomerID uint   `json:"-"`
}

// UpdateAnalysisStepsRequest updates statuses of the analysis pipeline steps
type UpdateAnalysisStepsRequest struct {
	UUID       string            `json:"-"`
	CustomerID uint              `json:"-"`
	Steps      []AnalysisStepDTO `json:"steps" validate:"required,min=1,dive"`
}

// UpdateAnalysisStepsResponse represents the response to the analysis step update
type UpdateAnalysisStepsResponse struct {
	Message       string            `json:"message"`
	AnalysisSteps []AnalysisStepDTO `json:"analysis_steps"`
}

// LaunchCampaignRequest represents the request to launch a campaign
type LaunchCampaignRequest struct {
	UUID       string `json:"-"`
	CustomerID uint   `json:"-"`
}

// LaunchCampaignResponse represents the response to launch a campaign
type LaunchCampaignResponse struct {
	Message  string      `json:"message"`
	Campaign CampaignDTO `json:"campaign"`
}

// ListCampaignsFilter represents filter criteria for listing campaigns
type ListCampaignsFilter struct {
	Name   *string `json:"name,omitempty"`
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=DRAFT ACTIVE PAUSED COMPLETED"`
}

// ListCampaignsRequest represents a paginated list request for a customer's campaigns
type ListCampaignsRequest struct {
	CustomerID uint                 `json:"-"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	OrderBy    string               `json:"orderby"` // newest, oldest
	Filter     *ListCampaignsFilter `json:"filter,omitempty"`
}

// PaginationInfo contains pagination metadata
type PaginationInfo struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// ListCampaignsResponse represents a paginated list of campaigns
type ListCampaignsResponse struct {
	Message    string         `json:"message"`
	Items      []CampaignDTO  `json:"items"`
	Pagination PaginationInfo `json:"pagination"`
}

// CampaignsSummaryResponse aggregates campaign counts for a customer
type CampaignsSummaryResponse struct {
	Message   string           `json:"message"`
	Total     int64            `json:"total"`
	ByStatus  map[string]int64 `json:"by_status"`
	UpdatedAt string           `json:"updated_at"`
}
