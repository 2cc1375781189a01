package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/openmkt/campaignkit/config"
	"github.com/openmkt/campaignkit/utils"
)

// SendRecord is a single personalized email handed to a provider
type SendRecord struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Subject     string `json:"subject"`
	HTML        string `json:"html"`
	Preheader   string `json:"preheader,omitempty"`
	FromEmail   string `json:"from_email"`
	FromName    string `json:"from_name"`
}

// SendResult reports the outcome of a provider batch send
type SendResult struct {
	Accepted   int
	ProviderID string
}

// MailService defines the contract for campaign email delivery providers
type MailService interface {
	// SendCampaign delivers a batch of rendered emails. The batch either
	// succeeds as a whole or returns an error for the dispatcher to retry.
	SendCampaign(ctx context.Context, records []SendRecord) (*SendResult, error)
	// TestConnection verifies the provider credentials are usable
	TestConnection(ctx context.Context) error
	// Name returns the provider identifier
	Name() string
}

// ResolveMailService maps a campaign's configured provider name to a service.
// Unset or unrecognized providers fall back to the baseline relay.
func ResolveMailService(provider string, cfg *config.MailConfig) MailService {
	switch provider {
	case utils.MailProviderMailchimp:
		return NewMailchimpService(cfg)
	case utils.MailProviderHubspot:
		return NewHubspotService(cfg)
	case utils.MailProviderSenderNet:
		return NewSenderNetService(cfg)
	default:
		return NewBaselineMailService(cfg)
	}
}

// MailchimpService implements MailService using the Mailchimp Transactional API
type MailchimpService struct {
	apiKey       string
	serverPrefix string
	fromEmail    string
	fromName     string
	httpClient   *http.Client
}

// NewMailchimpService creates a new Mailchimp-backed mail service
func NewMailchimpService(cfg *config.MailConfig) *MailchimpService {
	return &MailchimpService{
		apiKey:       cfg.Mailchimp.APIKey,
		serverPrefix: cfg.Mailchimp.ServerPrefix,
		fromEmail:    cfg.FromEmail,
		fromName:     cfg.FromName,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (s *MailchimpService) Name() string { return utils.MailProviderMailchimp }

// SendCampaign sends each record as a transactional message
func (s *MailchimpService) SendCampaign(ctx context.Context, records []SendRecord) (*SendResult, error) {
	url := fmt.Sprintf("https://%s.api.mailchimp.com/3.0/messages/send", s.serverPrefix)

	for i, record := range records {
		payload := map[string]any{
			"key": s.apiKey,
			"message": map[string]any{
				"from_email": record.FromEmail,
				"from_name":  record.FromName,
				"subject":    record.Subject,
				"html":       record.HTML,
				"to": []map[string]string{
					{"email": record.Email, "name": record.DisplayName, "type": "to"},
				},
			},
		}

		if err := s.post(ctx, url, payload, nil); err != nil {
			return nil, fmt.Errorf("mailchimp send failed at record %d: %w", i, err)
		}
	}

	return &SendResult{Accepted: len(records)}, nil
}

// TestConnection pings the Mailchimp API with the configured key
func (s *MailchimpService) TestConnection(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("mailchimp API key is not configured")
	}
	url := fmt.Sprintf("https://%s.api.mailchimp.com/3.0/users/ping", s.serverPrefix)
	return s.post(ctx, url, map[string]any{"key": s.apiKey}, nil)
}

func (s *MailchimpService) post(ctx context.Context, url string, payload any, headers map[string]string) error {
	return postJSON(ctx, s.httpClient, url, payload, headers)
}

// HubspotService implements MailService using the HubSpot single-send API
type HubspotService struct {
	accessToken string
	httpClient  *http.Client
}

// NewHubspotService creates a new HubSpot-backed mail service
func NewHubspotService(cfg *config.MailConfig) *HubspotService {
	return &HubspotService{
		accessToken: cfg.Hubspot.AccessToken,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (s *HubspotService) Name() string { return utils.MailProviderHubspot }

// SendCampaign sends each record through the HubSpot single-send endpoint
func (s *HubspotService) SendCampaign(ctx context.Context, records []SendRecord) (*SendResult, error) {
	url := "https://api.hubapi.com/marketing/v3/transactional/single-email/send"
	headers := map[string]string{
		"Authorization": "Bearer " + s.accessToken,
	}

	for i, record := range records {
		payload := map[string]any{
			"message": map[string]any{
				"to":      record.Email,
				"from":    fmt.Sprintf("%s <%s>", record.FromName, record.FromEmail),
				"subject": record.Subject,
			},
			"customProperties": map[string]any{
				"html_body": record.HTML,
				"preheader": record.Preheader,
			},
		}

		if err := postJSON(ctx, s.httpClient, url, payload, headers); err != nil {
			return nil, fmt.Errorf("hubspot send failed at record %d: %w", i, err)
		}
	}

	return &SendResult{Accepted: len(records)}, nil
}

// TestConnection verifies the HubSpot access token
func (s *HubspotService) TestConnection(ctx context.Context) error {
	if s.accessToken == "" {
		return fmt.Errorf("hubspot access token is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.hubapi.com/account-info/v3/details", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hubspot connection test failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hubspot connection test failed with status %d", resp.StatusCode)
	}
	return nil
}

// SenderNetService implements MailService using the Sender.net API
type SenderNetService struct {
	apiToken   string
	httpClient *http.Client
}

// NewSenderNetService creates a new Sender.net-backed mail service
func NewSenderNetService(cfg *config.MailConfig) *SenderNetService {
	return &SenderNetService{
		apiToken: cfg.SenderNet.APIToken,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (s *SenderNetService) Name() string { return utils.MailProviderSenderNet }

// SendCampaign sends the batch through the Sender.net transactional endpoint
func (s *SenderNetService) SendCampaign(ctx context.Context, records []SendRecord) (*SendResult, error) {
	url := "https://api.sender.net/v2/email/send"
	headers := map[string]string{
		"Authorization": "Bearer " + s.apiToken,
	}

	for i, record := range records {
		payload := map[string]any{
			"to":         []string{record.Email},
			"from":       record.FromEmail,
			"from_name":  record.FromName,
			"subject":    record.Subject,
			"html_body":  record.HTML,
			"preheader":  record.Preheader,
			"email_type": "transactional",
		}

		if err := postJSON(ctx, s.httpClient, url, payload, headers); err != nil {
			return nil, fmt.Errorf("sender.net send failed at record %d: %w", i, err)
		}
	}

	return &SendResult{Accepted: len(records)}, nil
}

// TestConnection verifies the Sender.net token by listing the account
func (s *SenderNetService) TestConnection(ctx context.Context) error {
	if s.apiToken == "" {
		return fmt.Errorf("sender.net API token is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.sender.net/v2/account", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sender.net connection test failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sender.net connection test failed with status %d", resp.StatusCode)
	}
	return nil
}

// BaselineMailService is the in-house relay used when a campaign has no
// connected provider. It posts the whole batch to a single endpoint.
type BaselineMailService struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewBaselineMailService creates the fallback relay service
func NewBaselineMailService(cfg *config.MailConfig) *BaselineMailService {
	return &BaselineMailService{
		endpoint: cfg.Baseline.Endpoint,
		apiKey:   cfg.Baseline.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (s *BaselineMailService) Name() string { return utils.MailProviderBaseline }

// SendCampaign posts the batch to the relay endpoint in one request
func (s *BaselineMailService) SendCampaign(ctx context.Context, records []SendRecord) (*SendResult, error) {
	if s.endpoint == "" {
		// No relay configured: log and accept so campaigns remain testable
		// in environments without outbound mail.
		for _, record := range records {
			log.Printf("BASELINE MAIL to %s: %s", record.Email, record.Subject)
		}
		return &SendResult{Accepted: len(records)}, nil
	}

	payload := map[string]any{
		"messages": records,
	}
	headers := map[string]string{
		"X-API-Key": s.apiKey,
	}

	var response struct {
		Accepted int    `json:"accepted"`
		BatchID  string `json:"batch_id"`
	}
	if err := postJSONDecode(ctx, s.httpClient, s.endpoint, payload, headers, &response); err != nil {
		return nil, fmt.Errorf("baseline relay send failed: %w", err)
	}

	return &SendResult{Accepted: response.Accepted, ProviderID: response.BatchID}, nil
}

// TestConnection checks the relay endpoint is reachable
func (s *BaselineMailService) TestConnection(ctx context.Context) error {
	if s.endpoint == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-Key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("baseline relay connection test failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("baseline relay connection test failed with status %d", resp.StatusCode)
	}
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any, headers map[string]string) error {
	return postJSONDecode(ctx, client, url, payload, headers, nil)
}

func postJSONDecode(ctx context.Context, client *http.Client, url string, payload any, headers map[string]string, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// MockMailService implements MailService for testing
type MockMailService struct {
	mu          sync.Mutex
	SentBatches [][]SendRecord
	ShouldFail  bool
	FailWith    error
	ConnectErr  error
	Delay       time.Duration
	ProviderTag string
}

// NewMockMailService creates a new mock mail service
func NewMockMailService() *MockMailService {
	return &MockMailService{
		SentBatches: make([][]SendRecord, 0),
	}
}

func (m *MockMailService) Name() string {
	if m.ProviderTag != "" {
		return m.ProviderTag
	}
	return "mock"
}

// SendCampaign records the batch for test inspection
func (m *MockMailService) SendCampaign(ctx context.Context, records []SendRecord) (*SendResult, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.ShouldFail {
		if m.FailWith != nil {
			return nil, m.FailWith
		}
		return nil, fmt.Errorf("mock mail service configured to fail")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	batch := make([]SendRecord, len(records))
	copy(batch, records)
	m.SentBatches = append(m.SentBatches, batch)

	return &SendResult{Accepted: len(records), ProviderID: fmt.Sprintf("mock-%d", len(m.SentBatches))}, nil
}

// TestConnection returns the configured connection error, if any
func (m *MockMailService) TestConnection(ctx context.Context) error {
	return m.ConnectErr
}

// SentCount returns the total number of records sent across batches
func (m *MockMailService) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, batch := range m.SentBatches {
		total += len(batch)
	}
	return total
}
