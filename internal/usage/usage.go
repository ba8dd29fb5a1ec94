// Package usage implements the Usage Extractor (spec section 4.4): pulling
// token counts out of a final response text, and detecting provider/model
// from the request.
package usage

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/sagikazarmark/replayr/internal/model"
)

var (
	lastInputTokens  = regexp.MustCompile(`"input_tokens"\s*:\s*(\d+)`)
	lastOutputTokens = regexp.MustCompile(`"output_tokens"\s*:\s*(\d+)`)
)

// usageFields covers both the Anthropic-style (input_tokens/output_tokens)
// and OpenAI-style (prompt_tokens/completion_tokens) shapes nested under a
// top-level "usage" object.
type usageFields struct {
	InputTokens      *int `json:"input_tokens"`
	OutputTokens     *int `json:"output_tokens"`
	PromptTokens     *int `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens"`
}

type usageEnvelope struct {
	Usage *usageFields `json:"usage"`
}

// Extract sets InputTokens, OutputTokens, and TotalTokens on a Metadata
// value from the final response text (buffered body or concatenated
// stream chunks). The regex fallback only runs when text doesn't parse
// as JSON at all — matching the original extractor's
// "if let Ok(value) = ... { ...; return }" structure, a valid JSON body
// that merely lacks usage fields is never rescanned with the regexes.
func Extract(text string) model.Metadata {
	var md model.Metadata

	if in, out, ok, valid := fromJSON(text); valid {
		if ok {
			md.InputTokens = &in
			md.OutputTokens = &out
		}
	} else if in, out, ok := fromRegexScan(text); ok {
		md.InputTokens = &in
		md.OutputTokens = &out
	}

	if md.InputTokens != nil && md.OutputTokens != nil {
		total := *md.InputTokens + *md.OutputTokens
		md.TotalTokens = &total
	}

	return md
}

// fromJSON reports valid=false only when text fails to parse as JSON at
// all. When it does parse (valid=true), ok reports whether a usable
// usage object was found inside it — a well-formed body with no usage
// fields must NOT fall through to the regex scan.
func fromJSON(text string) (input, output int, ok, valid bool) {
	var env usageEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return 0, 0, false, false
	}
	if env.Usage == nil {
		return 0, 0, false, true
	}

	u := env.Usage
	switch {
	case u.InputTokens != nil && u.OutputTokens != nil:
		return *u.InputTokens, *u.OutputTokens, true, true
	case u.PromptTokens != nil && u.CompletionTokens != nil:
		return *u.PromptTokens, *u.CompletionTokens, true, true
	default:
		return 0, 0, false, true
	}
}

// fromRegexScan takes the LAST match of each token-count regex — SSE
// streams emit incremental usage then a final cumulative total.
func fromRegexScan(text string) (input, output int, ok bool) {
	inMatches := lastInputTokens.FindAllStringSubmatch(text, -1)
	outMatches := lastOutputTokens.FindAllStringSubmatch(text, -1)
	if len(inMatches) == 0 || len(outMatches) == 0 {
		return 0, 0, false
	}

	in, err1 := strconv.Atoi(inMatches[len(inMatches)-1][1])
	out, err2 := strconv.Atoi(outMatches[len(outMatches)-1][1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return in, out, true
}

// DetectProvider implements spec section 4.4's provider detection from
// request path + headers.
func DetectProvider(req model.StoredRequest) string {
	path := req.Path
	switch {
	case strings.Contains(path, "/v1/messages") && headerPresent(req.Headers, "x-api-key"):
		return "anthropic"
	case strings.Contains(path, "/v1/chat/completions") && hasBearerAuth(req.Headers):
		return "openai"
	default:
		return ""
	}
}

func headerPresent(headers map[string]string, name string) bool {
	for k, v := range headers {
		if strings.EqualFold(k, name) && v != "" {
			return true
		}
	}
	return false
}

func hasBearerAuth(headers map[string]string) bool {
	for k, v := range headers {
		if strings.EqualFold(k, "authorization") && strings.HasPrefix(strings.ToLower(v), "bearer ") {
			return true
		}
	}
	return false
}

// DetectModel reads body.model when the body is a JSON object with a
// string value under that key.
func DetectModel(body model.JsonOrString) string {
	obj, ok := body.AsObject()
	if !ok {
		return ""
	}
	name, ok := obj["model"].(string)
	if !ok {
		return ""
	}
	return name
}
