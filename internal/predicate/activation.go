package predicate

import "github.com/sagikazarmark/replayr/internal/model"

// activation builds the CEL variable bindings for an interaction: three
// dynamic maps named request, response, and metadata, matching the shape
// documented in spec section 4.1. Pointer fields that are unset are
// omitted from the map entirely rather than bound to a Go nil, so CEL's
// has() macro reports them as absent instead of present-but-null.
func activation(i model.Interaction) map[string]any {
	return map[string]any{
		"request":  requestMap(i.Request),
		"response": responseMap(i.Response),
		"metadata": metadataMap(i.Metadata),
	}
}

func requestMap(r model.StoredRequest) map[string]any {
	return map[string]any{
		"method":  r.Method,
		"path":    r.Path,
		"headers": headersMap(r.Headers),
		"body":    r.Body.Value,
	}
}

func responseMap(r model.StoredResponse) map[string]any {
	chunks := make([]any, len(r.Chunks))
	for i, c := range r.Chunks {
		chunks[i] = map[string]any{"delay_ms": c.DelayMS, "data": c.Data}
	}
	m := map[string]any{
		"status":    int64(r.Status),
		"headers":   headersMap(r.Headers),
		"streaming": r.Streaming,
		"chunks":    chunks,
	}
	if r.Body != nil {
		m["body"] = r.Body.Value
	}
	return m
}

func metadataMap(md model.Metadata) map[string]any {
	m := map[string]any{
		"provider":    md.Provider,
		"model":       md.Model,
		"latency_ms":  md.LatencyMS,
	}
	if md.InputTokens != nil {
		m["input_tokens"] = int64(*md.InputTokens)
	}
	if md.OutputTokens != nil {
		m["output_tokens"] = int64(*md.OutputTokens)
	}
	if md.TotalTokens != nil {
		m["total_tokens"] = int64(*md.TotalTokens)
	}
	if md.LatencyToFirstChunkMS != nil {
		m["latency_to_first_chunk_ms"] = *md.LatencyToFirstChunkMS
	}
	return m
}

func headersMap(h map[string]string) map[string]any {
	out := make(map[string]any, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
