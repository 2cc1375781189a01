// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Customer-related errors
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrAccountInactive   = errors.New("account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")

	// Admin-related errors
	ErrAdminNotFound = errors.New("admin not found")
	ErrAdminInactive = errors.New("admin account is inactive")

	// Campaign-related errors
	ErrCampaignNotFound         = errors.New("campaign not found")
	ErrCampaignAccessDenied     = errors.New("campaign access denied")
	ErrCampaignNotEditable      = errors.New("campaign is no longer editable")
	ErrCampaignNotDeletable     = errors.New("campaign can no longer be deleted")
	ErrCampaignAlreadyActive    = errors.New("campaign is already active")
	ErrCampaignStepNotReady     = errors.New("campaign wizard has not advanced past the first step")
	ErrCampaignUUIDRequired     = errors.New("campaign UUID is required")
	ErrUnknownStepKey           = errors.New("unknown step state key")
	ErrUnknownAnalysisStep      = errors.New("unknown analysis step key")
	ErrInvalidStatusTransition  = errors.New("invalid campaign status transition")
	ErrCampaignNameRequired     = errors.New("campaign name is required")
	ErrCampaignUpdateRequired   = errors.New("at least one field must be provided for update")
	ErrCompanyProfileNotFound   = errors.New("company profile not found")

	// File and import errors
	ErrFileNotFound           = errors.New("file not found")
	ErrMalformedImportPayload = errors.New("malformed import payload")

	// Provider errors
	ErrProviderNotConnected = errors.New("mail provider is not connected")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsCustomerNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsAdminNotFound(err error) bool {
	return errors.Is(err, ErrAdminNotFound)
}

func IsAdminInactive(err error) bool {
	return errors.Is(err, ErrAdminInactive)
}

func IsCampaignNotFound(err error) bool {
	return errors.Is(err, ErrCampaignNotFound)
}

func IsCampaignAccessDenied(err error) bool {
	return errors.Is(err, ErrCampaignAccessDenied)
}

func IsCampaignNotEditable(err error) bool {
	return errors.Is(err, ErrCampaignNotEditable)
}

func IsCampaignNotDeletable(err error) bool {
	return errors.Is(err, ErrCampaignNotDeletable)
}

func IsCampaignAlreadyActive(err error) bool {
	return errors.Is(err, ErrCampaignAlreadyActive)
}

func IsCampaignStepNotReady(err error) bool {
	return errors.Is(err, ErrCampaignStepNotReady)
}

func IsCampaignUUIDRequired(err error) bool {
	return errors.Is(err, ErrCampaignUUIDRequired)
}

func IsUnknownStepKey(err error) bool {
	return errors.Is(err, ErrUnknownStepKey)
}

func IsUnknownAnalysisStep(err error) bool {
	return errors.Is(err, ErrUnknownAnalysisStep)
}

func IsInvalidStatusTransition(err error) bool {
	return errors.Is(err, ErrInvalidStatusTransition)
}

func IsCampaignNameRequired(err error) bool {
	return errors.Is(err, ErrCampaignNameRequired)
}

func IsCampaignUpdateRequired(err error) bool {
	return errors.Is(err, ErrCampaignUpdateRequired)
}

func IsCompanyProfileNotFound(err error) bool {
	return errors.Is(err, ErrCompanyProfileNotFound)
}

func IsFileNotFound(err error) bool {
	return errors.Is(err, ErrFileNotFound)
}

func IsMalformedImportPayload(err error) bool {
	return errors.Is(err, ErrMalformedImportPayload)
}

func IsProviderNotConnected(err error) bool {
	return errors.Is(err, ErrProviderNotConnected)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}
