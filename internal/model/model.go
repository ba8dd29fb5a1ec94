// Package model defines the Interaction data model captured by the proxy
// data path and consumed by the ring, bus, intercept registry, and cassette
// writer.
package model

import "time"

// StoredRequest is the captured shape of the inbound client request,
// edited and transformed the way it was actually forwarded upstream.
type StoredRequest struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"` // includes query string when present
	Headers map[string]string `json:"headers"`
	Body    JsonOrString      `json:"body"`
}

// Chunk is one piece of a streamed response, in arrival order.
type Chunk struct {
	DelayMS int64  `json:"delay_ms"`
	Data    string `json:"data"`
}

// StoredResponse is the captured shape of the upstream response as it was
// relayed to the client. Exactly one of Chunks (Streaming=true) or Body
// (Streaming=false) carries payload.
type StoredResponse struct {
	Status    int               `json:"status"`
	Headers   map[string]string `json:"headers"`
	Streaming bool              `json:"streaming"`
	Chunks    []Chunk           `json:"chunks,omitempty"`
	// Body is a pointer so omitempty actually omits it for streaming
	// interactions — encoding/json's omitempty never treats a struct
	// value as empty, pointer or slice/map/string/zero-number only.
	Body *JsonOrString `json:"body,omitempty"`
}

// Metadata holds derived facts about an interaction: provider/model
// detection and token usage, plus timing.
type Metadata struct {
	Provider               string `json:"provider,omitempty"`
	Model                  string `json:"model,omitempty"`
	InputTokens            *int   `json:"input_tokens,omitempty"`
	OutputTokens           *int   `json:"output_tokens,omitempty"`
	TotalTokens            *int   `json:"total_tokens,omitempty"`
	LatencyMS              int64  `json:"latency_ms"`
	LatencyToFirstChunkMS  *int64 `json:"latency_to_first_chunk_ms,omitempty"`
}

// Interaction is the unit of capture: one request/response pair plus
// derived metadata. Once stored in the ring, an Interaction is never
// mutated — egress paths (admin, broadcast, cassette) always work from
// redacted copies.
type Interaction struct {
	ID         string         `json:"id"`
	RecordedAt time.Time      `json:"recorded_at"`
	Request    StoredRequest  `json:"request"`
	Response   StoredResponse `json:"response"`
	Metadata   Metadata       `json:"metadata"`
}

// IntPtr is a small convenience for building Metadata literals in tests
// and call sites without repeating `v := n; &v`.
func IntPtr(v int) *int { return &v }

// Int64Ptr mirrors IntPtr for the int64 latency field.
func Int64Ptr(v int64) *int64 { return &v }
