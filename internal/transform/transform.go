// Package transform implements the delimited regex body transformer from
// spec section 4.3: a pattern expression whose first rune is the
// delimiter, followed by pattern<delim>replacement[<delim>...ignored].
package transform

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sagikazarmark/replayr/internal/model"
)

// Transformer rewrites request/response bodies by applying a compiled
// regular expression replacement to the body's serialized text form. A
// nil *Transformer is a valid no-op, so callers never need a nil check
// before calling Apply.
type Transformer struct {
	pattern     *regexp.Regexp
	replacement string
}

// Parse compiles a delimited pattern expression into a Transformer.
// Example: "/input_tokens":\s*\d+/"input_tokens": 0/ using "/" as the
// delimiter. Returns an error if the expression is too short to contain
// a delimiter and a pattern/replacement pair, or if the pattern segment
// is not a valid regular expression.
func Parse(expr string) (*Transformer, error) {
	if expr == "" {
		return nil, fmt.Errorf("transform: empty expression")
	}

	delim, size := utf8.DecodeRuneInString(expr)
	rest := expr[size:]

	parts := strings.SplitN(rest, string(delim), 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("transform: expression %q must be <delim>pattern<delim>replacement", expr)
	}

	re, err := regexp.Compile(parts[0])
	if err != nil {
		return nil, fmt.Errorf("transform: invalid pattern %q: %w", parts[0], err)
	}

	return &Transformer{pattern: re, replacement: parts[1]}, nil
}

// Apply runs the transform against a body's serialized text form. If the
// regex produces no change, the original JsonOrString is returned
// unmodified (preserving its original parsed-vs-string shape). If it
// changes the text, the result is re-parsed into JsonOrString the same
// way an inbound body would be.
func (t *Transformer) Apply(body model.JsonOrString) model.JsonOrString {
	if t == nil {
		return body
	}

	text := body.Serialize()
	replaced := t.pattern.ReplaceAllString(text, t.replacement)
	if replaced == text {
		return body
	}
	return model.ParseBody([]byte(replaced))
}

// ApplyText runs the transform directly against a raw chunk of text
// (used for SSE chunks, which are never wrapped in JsonOrString).
func (t *Transformer) ApplyText(text string) string {
	if t == nil {
		return text
	}
	return t.pattern.ReplaceAllString(text, t.replacement)
}
