package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Step keys of the campaign wizard. The step state blob accepts only these keys.
const (
	StepCustomerFile          = "customerFile"
	StepMailService           = "mailService"
	StepCompanyProfile        = "companyProfile"
	StepCommonTemplate        = "commonTemplate"
	StepGenerator             = "generator"
	StepClassifiedPersonaFile = "classifiedPersonaFile"
	StepSummary               = "summary"
	StepRenderedEmailsFile    = "renderedEmailsFile"
	StepLaunched              = "launched"
)

// Mail provider identifiers accepted in stepState.mailService.provider
const (
	MailProviderMailchimp = "mailchimp"
	MailProviderHubspot   = "hubspot"
	MailProviderSenderNet = "sender_net"
	MailProviderBaseline  = "baseline"
)

// Analysis step keys for the company profile analysis pipeline
const (
	AnalysisStepScrape   = "scrape"
	AnalysisStepProfile  = "profile"
	AnalysisStepPersonas = "personas"
	AnalysisStepTemplate = "template"
)

// Analysis step statuses
const (
	AnalysisStatusWaiting = "waiting"
	AnalysisStatusRunning = "running"
	AnalysisStatusDone    = "done"
	AnalysisStatusFailed  = "failed"
)

// CampaignSummaryCacheKey is the cache key prefix for per-customer campaign summaries
const CampaignSummaryCacheKey = "campaigns:summary"

// RequestIDKey is the context key carrying the request id
const RequestIDKey = "X-Request-ID"
