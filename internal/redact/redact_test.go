package redact

import (
	"testing"

	"github.com/sagikazarmark/replayr/internal/model"
)

func TestHeaders_MasksSensitiveNames(t *testing.T) {
	in := map[string]string{
		"Authorization": "Bearer secret",
		"X-Api-Key":     "key-123",
		"api-key":       "other-key",
		"Content-Type":  "application/json",
	}
	out := Headers(in)

	if out["Authorization"] != maskedValue {
		t.Errorf("Authorization = %q, want %q", out["Authorization"], maskedValue)
	}
	if out["X-Api-Key"] != maskedValue {
		t.Errorf("X-Api-Key = %q, want %q", out["X-Api-Key"], maskedValue)
	}
	if out["api-key"] != maskedValue {
		t.Errorf("api-key = %q, want %q", out["api-key"], maskedValue)
	}
	if out["Content-Type"] != "application/json" {
		t.Errorf("Content-Type should pass through unmasked, got %q", out["Content-Type"])
	}
}

func TestHeaders_DoesNotMutateInput(t *testing.T) {
	in := map[string]string{"authorization": "secret"}
	_ = Headers(in)
	if in["authorization"] != "secret" {
		t.Error("Headers mutated its input map")
	}
}

func TestHeaders_NilInput(t *testing.T) {
	if Headers(nil) != nil {
		t.Error("expected nil output for nil input")
	}
}

func TestInteraction_RedactsBothSides(t *testing.T) {
	i := model.Interaction{
		Request: model.StoredRequest{
			Headers: map[string]string{"x-api-key": "secret"},
		},
		Response: model.StoredResponse{
			Headers: map[string]string{"authorization": "Bearer x"},
		},
	}

	out := Interaction(i)
	if out.Request.Headers["x-api-key"] != maskedValue {
		t.Error("expected request x-api-key to be redacted")
	}
	if out.Response.Headers["authorization"] != maskedValue {
		t.Error("expected response authorization to be redacted")
	}

	// Original must be untouched.
	if i.Request.Headers["x-api-key"] != "secret" {
		t.Error("Interaction must not mutate the original")
	}
}
