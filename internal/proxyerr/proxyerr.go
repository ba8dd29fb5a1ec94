// Package proxyerr defines the typed error kinds from spec section 7 and
// the HTTP status mapping that the proxy and admin handlers apply when
// converting them into responses.
package proxyerr

import "fmt"

// Kind classifies an error by the failure category spec section 7
// enumerates, independent of any particular transport surface.
type Kind int

const (
	// UpstreamTransport covers DNS/connect/TLS/read failures talking to
	// the configured upstream.
	UpstreamTransport Kind = iota
	// UpstreamProtocol covers a response that isn't valid HTTP framing.
	UpstreamProtocol
	// BadRequest covers malformed admin plane input.
	BadRequest
	// NotFound covers an unknown interaction or intercept id.
	NotFound
	// Timeout covers intercept rendezvous expiry — internal only, never
	// returned to an admin caller directly.
	Timeout
	// IOFailure covers cassette write failures.
	IOFailure
	// PredicateError covers a predicate compile or runtime failure. Per
	// spec this is always collapsed to a false match by the predicate
	// package itself — this Kind exists for completeness and logging,
	// not for propagation.
	PredicateError
	// Config covers CLI parse or listener bind failures, fatal at
	// startup.
	Config
)

func (k Kind) String() string {
	switch k {
	case UpstreamTransport:
		return "upstream_transport"
	case UpstreamProtocol:
		return "upstream_protocol"
	case BadRequest:
		return "bad_request"
	case NotFound:
		return "not_found"
	case Timeout:
		return "timeout"
	case IOFailure:
		return "io_failure"
	case PredicateError:
		return "predicate_error"
	case Config:
		return "config"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so handlers can map it to
// the right HTTP status without string-matching messages.
type Error struct {
	Kind  Kind
	Cause error
}

func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus maps a Kind to the status code the propagation policy in
// spec section 7 assigns it on the admin surface. The proxy data path
// does not use this mapping: it writes 502 for upstream failures itself.
// Through this mapping UpstreamTransport and UpstreamProtocol fall to the
// default 500, which is what the admin replay endpoint reports.
func (k Kind) HTTPStatus() int {
	switch k {
	case BadRequest:
		return 400
	case NotFound:
		return 404
	case IOFailure:
		return 400
	default:
		return 500
	}
}
