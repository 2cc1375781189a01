package stepstate

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/openmkt/campaignkit/utils"
)

var (
	// htmlPolicy keeps the markup an email template legitimately needs.
	htmlPolicy = bluemonday.UGCPolicy()
	// textPolicy strips every tag from plain-text fields.
	textPolicy = bluemonday.StrictPolicy()
)

// Sanitize returns a copy of the state with HTML-bearing fields sanitized and
// plain-text fields stripped of all markup. Only the commonTemplate step
// carries user-authored markup.
func Sanitize(state map[string]any) map[string]any {
	if state == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(state))
	for k, v := range state {
		out[k] = v
	}

	tmpl, ok := out[utils.StepCommonTemplate].(map[string]any)
	if !ok {
		return out
	}
	cleaned := make(map[string]any, len(tmpl))
	for k, v := range tmpl {
		s, isString := v.(string)
		if !isString {
			cleaned[k] = v
			continue
		}
		if k == "html" {
			cleaned[k] = htmlPolicy.Sanitize(s)
		} else {
			cleaned[k] = strings.TrimSpace(textPolicy.Sanitize(s))
		}
	}
	out[utils.StepCommonTemplate] = cleaned
	return out
}
