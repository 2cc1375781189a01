package dto

import "encoding/json"

// ImportCustomerBlock carries the contact identity of one import row
type ImportCustomerBlock struct {
	CustomerEmail string `json:"customer_email"`
	DisplayName   string `json:"display_name,omitempty"`
}

// ImportPersonaBlock carries the persona classification of one import row
type ImportPersonaBlock struct {
	PersonaCode        string   `json:"persona_code,omitempty"`
	PersonaDisplayName string   `json:"persona_display_name,omitempty"`
	MatchConfidence    *float64 `json:"match_confidence,omitempty"` // 0..1
}

// ImportEmailMeta carries the envelope of one rendered email
type ImportEmailMeta struct {
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Preheader  string `json:"preheader,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
}

// ImportEmailBlock carries the rendered email of one import row
type ImportEmailBlock struct {
	Meta     ImportEmailMeta `json:"meta"`
	HTMLBody string          `json:"html_body"`
}

// RenderedEmailRow is one row of the bit-exact rendered-emails import schema
type RenderedEmailRow struct {
	EmailID     string              `json:"email_id,omitempty"`
	Customer    ImportCustomerBlock `json:"customer"`
	Persona     ImportPersonaBlock  `json:"persona"`
	Email       ImportEmailBlock    `json:"email"`
	RationaleID string              `json:"rationale_id,omitempty"`
	UILinks     json.RawMessage     `json:"ui_links,omitempty"`
}

// ImportRowError records a row-level import failure
type ImportRowError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// ImportRenderedEmailsRequest imports rendered emails from an inline row set
type ImportRenderedEmailsRequest struct {
	UUID       string             `json:"-"`
	CustomerID uint               `json:"-"`
	Rows       []RenderedEmailRow `json:"rows" validate:"required"`
}

// ImportRenderedEmailsFileRequest imports rendered emails from a stored file
type ImportRenderedEmailsFileRequest struct {
	UUID       string `json:"-"`
	CustomerID uint   `json:"-"`
	FileID     uint   `json:"file_id" validate:"required"`
}

// ImportRenderedEmailsResponse reports the outcome of a bulk import.
// A non-empty Errors slice is a partial-success signal, not a hard failure.
type ImportRenderedEmailsResponse struct {
	Message            string           `json:"message"`
	TotalRows          int              `json:"total_rows"`
	UpsertedRecipients int              `json:"upserted_recipients"`
	UpsertedEmails     int              `json:"upserted_emails"`
	TotalRecipients    int64            `json:"total_recipients"`
	ByPersona          map[string]int64 `json:"by_persona"`
	Errors             []ImportRowError `json:"errors"`
}
