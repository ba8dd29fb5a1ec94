package proxyerr

import (
	"errors"
	"testing"
)

func TestError_MessageIncludesKindAndCause(t *testing.T) {
	err := New(NotFound, errors.New("no such id"))
	if got, want := err.Error(), "not_found: no such id"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestError_NilCauseUsesKindOnly(t *testing.T) {
	err := New(Config, nil)
	if got, want := err.Error(), "config"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := New(IOFailure, cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{BadRequest, 400},
		{NotFound, 404},
		{IOFailure, 400},
		{UpstreamTransport, 500},
		{Config, 500},
	}
	for _, tt := range tests {
		if got := tt.kind.HTTPStatus(); got != tt.want {
			t.Errorf("%v.HTTPStatus() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestKindString(t *testing.T) {
	if BadRequest.String() != "bad_request" {
		t.Errorf("BadRequest.String() = %q", BadRequest.String())
	}
	if Kind(999).String() != "unknown" {
		t.Errorf("unknown Kind.String() = %q", Kind(999).String())
	}
}
