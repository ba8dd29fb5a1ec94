// Package redact masks sensitive header values on copies of an
// Interaction that leave the core — admin responses, broadcast payloads,
// cassette writes, and the intercept queue display. It never mutates a
// stored Interaction.
package redact

import (
	"strings"

	"github.com/sagikazarmark/replayr/internal/model"
)

const maskedValue = "REDACTED"

var sensitiveNames = map[string]bool{
	"authorization": true,
	"x-api-key":     true,
	"api-key":       true,
}

// Headers returns a new header map with authorization, x-api-key, and
// api-key values replaced by the literal REDACTED. The input map is never
// modified. Header names are matched case-insensitively but the returned
// map preserves the original casing of keys.
func Headers(h map[string]string) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if sensitiveNames[strings.ToLower(k)] {
			out[k] = maskedValue
		} else {
			out[k] = v
		}
	}
	return out
}

// Interaction returns a redacted copy of an Interaction: request and
// response headers pass through Headers, everything else is shared
// as-is (bodies and metadata are never considered sensitive by this
// system — only the three header names above are).
func Interaction(i model.Interaction) model.Interaction {
	out := i
	out.Request.Headers = Headers(i.Request.Headers)
	out.Response.Headers = Headers(i.Response.Headers)
	return out
}
