package proxytap

import (
	"github.com/sagikazarmark/replayr/internal/model"
)

// LogLevel controls how much detail the data path writes to stdout per
// request, gated by --log (spec section 6).
type LogLevel string

const (
	LogNone    LogLevel = "none"
	LogSummary LogLevel = "summary"
	LogHeaders LogLevel = "headers"
	LogFull    LogLevel = "full"
)

// logInteraction writes a summary-logging line per --log/--filter, in
// the teacher's slog key-value style (internal/proxy/proxy.go logs every
// step the same way). --filter gates logging on the predicate language,
// so a non-matching interaction produces no log line at all.
func (h *Handler) logInteraction(i model.Interaction) {
	if h.deps.Logger == nil || h.cfg.LogLevel == "" || h.cfg.LogLevel == LogNone {
		return
	}
	if h.cfg.LogFilter != nil && !h.cfg.LogFilter.Eval(i) {
		return
	}

	args := []any{
		"id", i.ID,
		"method", i.Request.Method,
		"path", i.Request.Path,
		"status", i.Response.Status,
		"provider", i.Metadata.Provider,
		"model", i.Metadata.Model,
		"latency_ms", i.Metadata.LatencyMS,
	}

	switch h.cfg.LogLevel {
	case LogHeaders, LogFull:
		args = append(args, "request_headers", i.Request.Headers, "response_headers", i.Response.Headers)
	}
	if h.cfg.LogLevel == LogFull {
		args = append(args, "request_body", i.Request.Body.Serialize())
	}

	h.deps.Logger.Info("interaction", args...)
}
