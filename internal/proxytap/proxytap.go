// Package proxytap implements the Proxy Data Path (spec section 4.9):
// the single HTTP handler that receives client traffic, edits and
// transforms it, consults the Intercept Registry, forwards to the
// configured upstream, relays the response (buffered or streaming) back
// to the client, and emits one Interaction into the Ring Buffer,
// Broadcast Bus, and — when recording — the Record Sink.
//
// Header/body editing and the overall ServeHTTP shape are grounded on
// the teacher's internal/proxy/proxy.go and forwarder.go (hop-by-hop
// header stripping, copyHeaders/copyResponseHeaders). Buffered-mode
// handling follows the teacher's handleNonStreaming read-whole-body
// shape. Streaming mode is grounded instead on the air-blackbox-gateway
// example's handleStreamingResponse — a true read-loop-and-forward over
// resp.Body, since the teacher's own streaming path buffers the entire
// SSE stream before replaying it (to allow tool-call stripping), which
// cannot deliver the spec's per-chunk delay_ms timing without adding
// artificial latency.
package proxytap

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sagikazarmark/replayr/internal/bus"
	"github.com/sagikazarmark/replayr/internal/cassette"
	"github.com/sagikazarmark/replayr/internal/intercept"
	"github.com/sagikazarmark/replayr/internal/model"
	"github.com/sagikazarmark/replayr/internal/predicate"
	"github.com/sagikazarmark/replayr/internal/redact"
	"github.com/sagikazarmark/replayr/internal/ring"
	"github.com/sagikazarmark/replayr/internal/transform"
	"github.com/sagikazarmark/replayr/internal/usage"
)

// hopByHopHeaders are stripped only when constructing an actual HTTP
// request/response on the wire (the outbound upstream request, and the
// response written back to the client) — never from the captured
// StoredRequest/StoredResponse header maps, which keep everything the
// client or upstream actually sent (spec section 4.9).
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailers":            true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"Host":                true,
	"Content-Length":      true,
}

// Config holds the static, rarely-changing edit rules the data path
// applies to every request, set once from CLI flags at startup.
type Config struct {
	UpstreamBase  string
	ModifyHeaders map[string]string // lowercased name -> value upsert
	DeleteHeaders []string          // lowercased names
	BodyTransform *transform.Transformer
	LogLevel      LogLevel
	LogFilter     *predicate.Predicate
}

// Deps are the shared, independently-locked components the data path
// reads and writes on every request.
type Deps struct {
	Client    *http.Client
	Ring      *ring.Ring
	Bus       *bus.Bus
	Intercept *intercept.Registry
	Record    *cassette.State
	Tracer    trace.Tracer
	Logger    *slog.Logger
}

// Handler is the http.Handler mounted on the proxy listener.
type Handler struct {
	cfg  Config
	deps Deps
}

func New(cfg Config, deps Deps) *Handler {
	return &Handler{cfg: cfg, deps: deps}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var span trace.Span
	if h.deps.Tracer != nil {
		ctx, span = h.deps.Tracer.Start(ctx, "replayr.proxy_request",
			trace.WithAttributes(attribute.String("http.method", r.Method), attribute.String("http.path", r.URL.Path)))
		defer span.End()
	}

	headers := editedHeaders(r.Header, h.cfg.ModifyHeaders, h.cfg.DeleteHeaders)

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	r.Body.Close()

	body := model.ParseBody(rawBody)
	if h.cfg.BodyTransform != nil {
		body = h.cfg.BodyTransform.Apply(body)
	}

	stored := model.StoredRequest{
		Method:  r.Method,
		Path:    r.URL.RequestURI(),
		Headers: headers,
		Body:    body,
	}

	synthetic := model.Interaction{Request: stored}
	redactedRequest := stored
	redactedRequest.Headers = redact.Headers(stored.Headers)

	if action, intercepted := h.deps.Intercept.Check(synthetic, redactedRequest); intercepted {
		if action.Drop {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if action.Headers != nil {
			stored.Headers = action.Headers
		}
		if action.Body != nil {
			stored.Body = model.ParseBody([]byte(*action.Body))
		}
	}

	if span != nil {
		span.SetAttributes(
			attribute.String("gen_ai.system", usage.DetectProvider(stored)),
			attribute.String("gen_ai.request.model", usage.DetectModel(stored.Body)),
		)
	}

	upstreamURL := strings.TrimRight(h.cfg.UpstreamBase, "/") + stored.Path

	outboundBody := stored.Body.Serialize()
	upstreamReq, err := http.NewRequestWithContext(ctx, stored.Method, upstreamURL, strings.NewReader(outboundBody))
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	copyHeaders(upstreamReq.Header, stored.Headers)
	upstreamReq.ContentLength = int64(len(outboundBody))

	resp, err := h.deps.Client.Do(upstreamReq)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	defer resp.Body.Close()

	if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		h.handleStreaming(ctx, w, resp, stored, start, span)
		return
	}
	h.handleBuffered(ctx, w, resp, stored, start, span)
}

func (h *Handler) handleBuffered(ctx context.Context, w http.ResponseWriter, resp *http.Response, req model.StoredRequest, start time.Time, span trace.Span) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	text := string(raw)
	if h.cfg.BodyTransform != nil {
		text = h.cfg.BodyTransform.ApplyText(text)
	}

	latencyMS := time.Since(start).Milliseconds()
	md := usage.Extract(text)
	md.Provider = usage.DetectProvider(req)
	md.Model = usage.DetectModel(req.Body)
	md.LatencyMS = latencyMS

	respHeaders := copyResponseHeaderMap(resp.Header)
	body := model.ParseBody([]byte(text))
	interaction := model.Interaction{
		ID:         uuid.NewString(),
		RecordedAt: time.Now(),
		Request:    req,
		Response: model.StoredResponse{
			Status:    resp.StatusCode,
			Headers:   respHeaders,
			Streaming: false,
			Body:      &body,
		},
		Metadata: md,
	}

	h.store(interaction)
	h.logInteraction(interaction)
	if span != nil {
		annotateSpan(span, md, latencyMS)
	}

	for k, v := range respHeaders {
		if !hopByHopHeaders[http.CanonicalHeaderKey(k)] {
			w.Header().Set(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	w.Write([]byte(text))
}

func (h *Handler) handleStreaming(ctx context.Context, w http.ResponseWriter, resp *http.Response, req model.StoredRequest, start time.Time, span trace.Span) {
	respHeaders := copyResponseHeaderMap(resp.Header)
	for k, v := range respHeaders {
		if !hopByHopHeaders[http.CanonicalHeaderKey(k)] {
			w.Header().Set(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	flusher, canFlush := w.(http.Flusher)

	var chunks []model.Chunk
	var transformedTexts []string
	prev := start
	var firstChunkMS *int64

	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			now := time.Now()
			delay := now.Sub(prev).Milliseconds()
			prev = now

			text := string(buf[:n])
			if h.cfg.BodyTransform != nil {
				text = h.cfg.BodyTransform.ApplyText(text)
			}

			chunks = append(chunks, model.Chunk{DelayMS: delay, Data: text})
			transformedTexts = append(transformedTexts, text)

			if firstChunkMS == nil {
				ms := time.Since(start).Milliseconds()
				firstChunkMS = &ms
			}

			if _, werr := w.Write([]byte(text)); werr == nil && canFlush {
				flusher.Flush()
			}
		}
		if readErr != nil {
			break
		}
	}

	full := strings.Join(transformedTexts, "")
	latencyMS := time.Since(start).Milliseconds()
	md := usage.Extract(full)
	md.Provider = usage.DetectProvider(req)
	md.Model = usage.DetectModel(req.Body)
	md.LatencyMS = latencyMS
	md.LatencyToFirstChunkMS = firstChunkMS

	interaction := model.Interaction{
		ID:         uuid.NewString(),
		RecordedAt: time.Now(),
		Request:    req,
		Response: model.StoredResponse{
			Status:    resp.StatusCode,
			Headers:   respHeaders,
			Streaming: true,
			Chunks:    chunks,
		},
		Metadata: md,
	}

	h.store(interaction)
	h.logInteraction(interaction)
	if span != nil {
		span.SetAttributes(attribute.Bool("gen_ai.stream", true))
		annotateSpan(span, md, latencyMS)
	}
}

// store implements the ordering guarantee from spec section 5: ring
// insert happens before the bus publish, and record-on-store runs last.
func (h *Handler) store(interaction model.Interaction) {
	h.deps.Ring.Push(interaction)
	h.deps.Bus.Publish(interaction)
	if h.deps.Record != nil {
		cassette.RecordOnStore(h.deps.Record, h.deps.Ring, h.cfg.UpstreamBase, h.deps.Logger)
	}
}

func annotateSpan(span trace.Span, md model.Metadata, latencyMS int64) {
	attrs := []attribute.KeyValue{
		attribute.Int64("gen_ai.duration_ms", latencyMS),
	}
	if md.InputTokens != nil {
		attrs = append(attrs, attribute.Int("gen_ai.usage.input_tokens", *md.InputTokens))
	}
	if md.OutputTokens != nil {
		attrs = append(attrs, attribute.Int("gen_ai.usage.output_tokens", *md.OutputTokens))
	}
	span.SetAttributes(attrs...)
}

func writeUpstreamError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	w.Write(payload)
}

// editedHeaders copies src into a lowercase-keyed map and applies
// modify/delete edits.
// editedHeaders captures the full inbound header set (minus only the
// explicit --modify-header/--delete-header edits) — this is what ends up
// in StoredRequest.Headers, visible to predicates, admin, and the
// cassette. Hop-by-hop headers like Connection/Upgrade are NOT stripped
// here; they're only excluded later, when building the literal outbound
// http.Request to the upstream.
func editedHeaders(src http.Header, modify map[string]string, deleteNames []string) map[string]string {
	out := make(map[string]string, len(src)+len(modify))
	for k, v := range src {
		if len(v) == 0 {
			continue
		}
		out[strings.ToLower(k)] = v[0]
	}
	for name, value := range modify {
		out[strings.ToLower(name)] = value
	}
	for _, name := range deleteNames {
		delete(out, strings.ToLower(name))
	}
	return out
}

// copyHeaders sets headers on the outbound upstream request, excluding
// hop-by-hop headers — this is the one point where that broader strip
// applies, not at capture time.
func copyHeaders(dst http.Header, headers map[string]string) {
	for k, v := range headers {
		if hopByHopHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		dst.Set(k, v)
	}
}

// copyResponseHeaderMap captures the full upstream response header set
// for StoredResponse.Headers, unfiltered — mirrors editedHeaders above.
func copyResponseHeaderMap(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) == 0 {
			continue
		}
		out[strings.ToLower(k)] = v[0]
	}
	return out
}
