// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/openmkt/campaignkit/app/dto"
	"github.com/openmkt/campaignkit/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToAuthCustomerDTO converts a customer model to AuthCustomerDTO for authentication responses
func ToAuthCustomerDTO(customer models.Customer) dto.AuthCustomerDTO {
	return dto.AuthCustomerDTO{
		ID:              customer.ID,
		UUID:            customer.UUID.String(),
		Email:           customer.Email,
		FirstName:       customer.FirstName,
		LastName:        customer.LastName,
		IsActive:        customer.IsActive,
		IsEmailVerified: customer.IsEmailVerified,
		CreatedAt:       customer.CreatedAt.Format(time.RFC3339),
	}
}

// ToCampaignDTO converts a campaign model to its response representation.
// The step state is flattened to a generic JSON object so clients see exactly
// what they saved.
func ToCampaignDTO(campaign models.Campaign) dto.CampaignDTO {
	stepState, err := campaign.StepState.ToMap()
	if err != nil {
		stepState = map[string]any{}
	}

	out := dto.CampaignDTO{
		ID:                      campaign.ID,
		UUID:                    campaign.UUID.String(),
		Name:                    campaign.Name,
		Status:                  campaign.Status.String(),
		CurrentStep:             campaign.CurrentStep,
		StepState:               stepState,
		AnalysisSteps:           ToAnalysisStepDTOs(campaign.AnalysisSteps),
		CompanyProfileID:        campaign.CompanyProfileID,
		ClassifiedPersonaFileID: campaign.ClassifiedPersonaFileID,
		LaunchedAt:              campaign.LaunchedAt,
		LastSavedAt:             campaign.LastSavedAt,
		CreatedAt:               campaign.CreatedAt,
		UpdatedAt:               campaign.UpdatedAt,
	}

	if campaign.Customer != nil {
		out.Owner = &dto.OwnerDTO{
			ID:        campaign.Customer.ID,
			UUID:      campaign.Customer.UUID.String(),
			Email:     campaign.Customer.Email,
			FirstName: campaign.Customer.FirstName,
			LastName:  campaign.Customer.LastName,
		}
	}

	if campaign.CompanyProfile != nil {
		out.CompanyProfile = &dto.CompanyProfileDTO{
			ID:           campaign.CompanyProfile.ID,
			Name:         campaign.CompanyProfile.Name,
			Website:      campaign.CompanyProfile.Website,
			BusinessInfo: campaign.CompanyProfile.BusinessInfo,
		}
	}

	if campaign.ClassifiedPersonaFile != nil {
		out.ClassifiedPersonaFile = ToStoredFileDTO(campaign.ClassifiedPersonaFile)
	}

	return out
}

// ToAnalysisStepDTOs converts the stored analysis step list to its response representation
func ToAnalysisStepDTOs(steps models.AnalysisStepList) []dto.AnalysisStepDTO {
	out := make([]dto.AnalysisStepDTO, 0, len(steps))
	for _, step := range steps {
		out = append(out, dto.AnalysisStepDTO{
			Key:    step.Key,
			Label:  step.Label,
			Status: step.Status,
		})
	}
	return out
}

// ToStoredFileDTO converts a stored file model to its response representation
func ToStoredFileDTO(file *models.StoredFile) *dto.StoredFileDTO {
	if file == nil {
		return nil
	}
	return &dto.StoredFileDTO{
		ID:               file.ID,
		OriginalFilename: file.OriginalFilename,
		SizeBytes:        file.SizeBytes,
		MimeType:         file.MimeType,
		Purpose:          file.Purpose,
	}
}
