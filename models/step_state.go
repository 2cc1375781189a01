package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FileRefStep references an uploaded file recorded in a wizard step. FileID
// is client-facing and may be either a numeric stored file id or an opaque
// string reference.
type FileRefStep struct {
	FileID   any    `json:"fileId,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

// MailServiceStep records the mail provider connection chosen by the owner.
type MailServiceStep struct {
	Provider       string `json:"provider,omitempty"`
	Connected      bool   `json:"connected,omitempty"`
	MailProviderID string `json:"mailProviderId,omitempty"`
}

// CompanyProfileStep is the denormalized company profile snapshot kept in the wizard state.
type CompanyProfileStep struct {
	ID                     uint           `json:"id"`
	Name                   string         `json:"name,omitempty"`
	UserID                 uint           `json:"userId,omitempty"`
	Website                string         `json:"website,omitempty"`
	CreatedAt              string         `json:"createdAt,omitempty"`
	UpdatedAt              string         `json:"updatedAt,omitempty"`
	BusinessInfo           map[string]any `json:"businessInfo,omitempty"`
	DesignAssetFileID      *uint          `json:"designAssetFileId,omitempty"`
	MarketingContentFileID *uint          `json:"marketingContentFileId,omitempty"`
}

// CommonTemplateStep is the shared email template before per-recipient personalization.
type CommonTemplateStep struct {
	Subject   string `json:"subject,omitempty"`
	Preheader string `json:"preheader,omitempty"`
	HTML      string `json:"html,omitempty"`
}

// SummaryStep carries aggregate recipient counts recomputed from the database.
type SummaryStep struct {
	TotalRecipients int64            `json:"totalRecipients"`
	ByPersona       map[string]int64 `json:"byPersona,omitempty"`
	Skipped         *int64           `json:"skipped,omitempty"`
	ImportErrors    *int             `json:"importErrors,omitempty"`
}

// StepState is the JSON blob accumulating per-wizard-step configuration for a
// campaign. The key set is closed; writes with unknown keys are rejected
// before they reach this type.
type StepState struct {
	CustomerFile          *FileRefStep        `json:"customerFile,omitempty"`
	MailService           *MailServiceStep    `json:"mailService,omitempty"`
	CompanyProfile        *CompanyProfileStep `json:"companyProfile,omitempty"`
	CommonTemplate        *CommonTemplateStep `json:"commonTemplate,omitempty"`
	Generator             map[string]any      `json:"generator,omitempty"`
	ClassifiedPersonaFile *FileRefStep        `json:"classifiedPersonaFile,omitempty"`
	Summary               *SummaryStep        `json:"summary,omitempty"`
	RenderedEmailsFile    *FileRefStep        `json:"renderedEmailsFile,omitempty"`
	Launched              *bool               `json:"launched,omitempty"`
}

// Value implements the driver.Valuer interface for StepState
func (s StepState) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for StepState
func (s *StepState) Scan(value any) error {
	if value == nil {
		*s = StepState{}
		return nil
	}

	var bs []byte
	switch v := value.(type) {
	case []byte:
		bs = v
	case string:
		bs = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StepState", value)
	}

	return json.Unmarshal(bs, s)
}

// ToMap converts the typed state to a generic JSON object for merging.
func (s StepState) ToMap() (map[string]any, error) {
	bs, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(bs, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StepStateFromMap decodes a generic JSON object into the typed state,
// rejecting unknown keys anywhere in the payload.
func StepStateFromMap(m map[string]any) (StepState, error) {
	var out StepState
	bs, err := json.Marshal(m)
	if err != nil {
		return out, err
	}
	dec := json.NewDecoder(bytes.NewReader(bs))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("invalid step state: %w", err)
	}
	return out, nil
}
