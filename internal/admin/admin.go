// Package admin implements the Admin Plane (spec section 4.10): the
// query/control HTTP surface over the ring, record state, and intercept
// registry, plus the server-push WebSocket feed.
//
// Routing and JSON-response shape are grounded on the teacher's
// internal/dashboard/dashboard.go (mux.HandleFunc per path, a writeJSON
// helper that always sets Content-Type, per-handler method checks). The
// admin plane never holds a lock across a handler body beyond a single
// snapshot/read/write call, per spec section 4.10.
package admin

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sagikazarmark/replayr/internal/cassette"
	"github.com/sagikazarmark/replayr/internal/model"
	"github.com/sagikazarmark/replayr/internal/predicate"
	"github.com/sagikazarmark/replayr/internal/proxyerr"
	"github.com/sagikazarmark/replayr/internal/redact"
	"github.com/sagikazarmark/replayr/internal/state"
)

// writeTypedError maps a proxyerr.Kind to its HTTP status per spec
// section 7's admin-surface propagation policy.
func writeTypedError(w http.ResponseWriter, kind proxyerr.Kind, cause error) {
	writeError(w, kind.HTTPStatus(), proxyerr.New(kind, cause).Error())
}

// Options holds the dependencies injected into the admin plane.
type Options struct {
	State  *state.AppState
	Client *http.Client
	UI     bool
	Logger *slog.Logger
}

// Admin serves the admin REST API and WebSocket feed.
type Admin struct {
	state  *state.AppState
	client *http.Client
	ui     bool
	logger *slog.Logger
}

// New creates an Admin plane.
func New(opts Options) *Admin {
	return &Admin{
		state:  opts.State,
		client: opts.Client,
		ui:     opts.UI,
		logger: opts.Logger,
	}
}

// Handler returns the http.Handler to mount on the admin listener. CORS
// is permissive, matching spec section 6's "CORS is permissive on the
// admin listener".
func (a *Admin) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", a.handleHealth)
	mux.HandleFunc("/api/v1/requests", a.handleRequests)
	mux.HandleFunc("/api/v1/requests/save", a.handleSave)
	mux.HandleFunc("/api/v1/record", a.handleRecord)
	mux.HandleFunc("/api/v1/intercept", a.handleInterceptPattern)
	mux.HandleFunc("/api/v1/intercept/queue", a.handleInterceptQueue)
	mux.HandleFunc("/api/v1/ws", a.handleWebSocket)
	mux.HandleFunc("/api/v1/requests/", a.handleRequestByID) // :id, :id/replay, :id/curl
	mux.HandleFunc("/api/v1/intercept/", a.handleInterceptByID) // :id/release, :id/drop

	if a.ui {
		mux.HandleFunc("/", a.handleUI)
	}

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON sends a JSON response, always setting Content-Type per spec
// section 6's "All admin responses include Content-Type: application/json".
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleHealth — GET /api/v1/health
func (a *Admin) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRequests — GET /api/v1/requests?filter=<expr>, DELETE /api/v1/requests
func (a *Admin) handleRequests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snapshot := a.state.Ring.Snapshot()

		filterExpr := r.URL.Query().Get("filter")
		if filterExpr != "" {
			// A compile failure collapses to "matches nothing", same as
			// any other predicate evaluation failure (spec section 4.5):
			// never surfaced as an error to the admin caller.
			pred, err := predicate.CompileCached(filterExpr)
			filtered := make([]model.Interaction, 0, len(snapshot))
			if err == nil {
				for _, i := range snapshot {
					if pred.Eval(i) {
						filtered = append(filtered, i)
					}
				}
			}
			snapshot = filtered
		}

		redacted := make([]model.Interaction, len(snapshot))
		for i, entry := range snapshot {
			redacted[i] = redact.Interaction(entry)
		}
		writeJSON(w, http.StatusOK, redacted)

	case http.MethodDelete:
		a.state.Ring.Clear()
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or DELETE only")
	}
}

// handleRequestByID dispatches /api/v1/requests/:id, :id/replay, :id/curl.
func (a *Admin) handleRequestByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/requests/")
	if rest == "" {
		writeTypedError(w, proxyerr.NotFound, fmt.Errorf("missing id"))
		return
	}

	switch {
	case strings.HasSuffix(rest, "/replay"):
		a.handleReplay(w, r, strings.TrimSuffix(rest, "/replay"))
	case strings.HasSuffix(rest, "/curl"):
		a.handleCurl(w, r, strings.TrimSuffix(rest, "/curl"))
	default:
		a.handleGetByID(w, r, rest)
	}
}

// handleGetByID — GET /api/v1/requests/:id
func (a *Admin) handleGetByID(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	interaction, ok := a.state.Ring.FindByID(id)
	if !ok {
		writeTypedError(w, proxyerr.NotFound, fmt.Errorf("unknown id"))
		return
	}
	writeJSON(w, http.StatusOK, redact.Interaction(interaction))
}

// handleSave — POST /api/v1/requests/save {path, ids?}
func (a *Admin) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var req struct {
		Path string   `json:"path"`
		IDs  []string `json:"ids,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTypedError(w, proxyerr.BadRequest, fmt.Errorf("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeTypedError(w, proxyerr.BadRequest, fmt.Errorf("path field required"))
		return
	}

	interactions := cassette.Filter(a.state.Ring.Snapshot(), req.IDs)
	n, err := cassette.WriteSnapshot(req.Path, a.state.Upstream, interactions)
	if err != nil {
		writeTypedError(w, proxyerr.IOFailure, err)
		return
	}
	if a.logger != nil {
		a.logger.Info(cassette.LogLine(req.Path, n, len(interactions)))
	}
	writeJSON(w, http.StatusOK, map[string]int{"saved": len(interactions)})
}

// handleReplay — POST /api/v1/requests/:id/replay
func (a *Admin) handleReplay(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	interaction, ok := a.state.Ring.FindByID(id)
	if !ok {
		writeTypedError(w, proxyerr.NotFound, fmt.Errorf("unknown id"))
		return
	}

	url := strings.TrimRight(a.state.Upstream, "/") + interaction.Request.Path
	body := interaction.Request.Body.Serialize()
	upstreamReq, err := http.NewRequestWithContext(r.Context(), interaction.Request.Method, url, strings.NewReader(body))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for k, v := range interaction.Request.Headers {
		upstreamReq.Header.Set(k, v)
	}

	resp, err := a.client.Do(upstreamReq)
	if err != nil {
		writeTypedError(w, proxyerr.UpstreamTransport, err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	writeJSON(w, http.StatusOK, map[string]int{"status": resp.StatusCode})
}

// handleCurl — POST /api/v1/requests/:id/curl
func (a *Admin) handleCurl(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	interaction, ok := a.state.Ring.FindByID(id)
	if !ok {
		writeTypedError(w, proxyerr.NotFound, fmt.Errorf("unknown id"))
		return
	}

	url := strings.TrimRight(a.state.Upstream, "/") + interaction.Request.Path
	var b strings.Builder
	fmt.Fprintf(&b, "curl -X %s %q", interaction.Request.Method, url)
	for k, v := range redact.Headers(interaction.Request.Headers) {
		fmt.Fprintf(&b, " -H %q", k+": "+v)
	}
	if body := interaction.Request.Body.Serialize(); body != "" && body != "null" {
		fmt.Fprintf(&b, " -d %q", body)
	}

	writeJSON(w, http.StatusOK, map[string]string{"curl": b.String()})
}

// handleRecord — GET/PUT /api/v1/record
func (a *Admin) handleRecord(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		enabled, output, count := a.state.Record.Get()
		writeJSON(w, http.StatusOK, map[string]any{"enabled": enabled, "output": output, "count": count})

	case http.MethodPut:
		var req struct {
			Enabled bool   `json:"enabled"`
			Output  string `json:"output,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeTypedError(w, proxyerr.BadRequest, fmt.Errorf("invalid JSON body"))
			return
		}
		a.state.Record.Set(req.Enabled, req.Output)
		enabled, output, count := a.state.Record.Get()
		writeJSON(w, http.StatusOK, map[string]any{"enabled": enabled, "output": output, "count": count})

	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or PUT only")
	}
}

// handleInterceptPattern — PUT /api/v1/intercept {pattern?}
func (a *Admin) handleInterceptPattern(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "PUT only")
		return
	}
	var req struct {
		Pattern string `json:"pattern,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeTypedError(w, proxyerr.BadRequest, fmt.Errorf("invalid JSON body"))
		return
	}
	if err := a.state.Intercept.SetPattern(req.Pattern); err != nil {
		writeTypedError(w, proxyerr.BadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pattern": a.state.Intercept.Pattern()})
}

// handleInterceptQueue — GET /api/v1/intercept/queue
func (a *Admin) handleInterceptQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	queue := a.state.Intercept.Queue()
	type redactedEntry struct {
		ID       string              `json:"id"`
		Request  model.StoredRequest `json:"request"`
		QueuedAt string              `json:"queued_at"`
	}
	out := make([]redactedEntry, len(queue))
	for i, entry := range queue {
		req := entry.Request
		req.Headers = redact.Headers(req.Headers)
		out[i] = redactedEntry{ID: entry.ID, Request: req, QueuedAt: entry.QueuedAt.Format(time.RFC3339Nano)}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleInterceptByID dispatches /api/v1/intercept/:id/release, :id/drop.
func (a *Admin) handleInterceptByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/intercept/")

	switch {
	case strings.HasSuffix(rest, "/release"):
		a.handleRelease(w, r, strings.TrimSuffix(rest, "/release"))
	case strings.HasSuffix(rest, "/drop"):
		a.handleDrop(w, r, strings.TrimSuffix(rest, "/drop"))
	default:
		writeTypedError(w, proxyerr.NotFound, fmt.Errorf("unknown intercept route"))
	}
}

// handleRelease — POST /api/v1/intercept/:id/release {headers?, body?}
func (a *Admin) handleRelease(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var req struct {
		Headers map[string]string `json:"headers,omitempty"`
		Body    *string            `json:"body,omitempty"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeTypedError(w, proxyerr.BadRequest, fmt.Errorf("invalid JSON body"))
			return
		}
	}
	if !a.state.Intercept.Release(id, req.Headers, req.Body) {
		writeTypedError(w, proxyerr.NotFound, fmt.Errorf("unknown or already-resolved id"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

// handleDrop — POST /api/v1/intercept/:id/drop
func (a *Admin) handleDrop(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	if !a.state.Intercept.Drop(id) {
		writeTypedError(w, proxyerr.NotFound, fmt.Errorf("unknown or already-resolved id"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "dropped"})
}

// handleUI serves the bundled minimal UI when --ui is set.
func (a *Admin) handleUI(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(uiHTML))
}
