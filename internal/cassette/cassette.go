// Package cassette implements the on-disk cassette format and the
// Record Sink (spec sections 4.8 and 6): a pretty-printed JSON snapshot
// of captured interactions, rewritten atomically on every store when
// recording is enabled.
//
// The write-then-rename idiom is not something the teacher repo does
// (internal/config/config.go and internal/engine/rules.go both write
// their YAML files directly with os.WriteFile), but the spec's "atomic
// rewrite" requirement needs it — a crash mid-write must never leave a
// half-written cassette on disk. It is kept in the teacher's plain,
// no-abstraction style: one function, explicit error wrapping, no
// intermediate io.Writer abstraction layered on top.
package cassette

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/sagikazarmark/replayr/internal/model"
	"github.com/sagikazarmark/replayr/internal/redact"
)

// FormatVersion is the "replayr_version" field written into every
// cassette, carried over from the original implementation's wire
// constant (original_source/src/main.rs).
const FormatVersion = "1"

// Header is the "cassette" object nested in the document.
type Header struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Upstream  string    `json:"upstream"`
}

// Document is the full on-disk shape.
type Document struct {
	ReplayrVersion string              `json:"replayr_version"`
	Cassette       Header              `json:"cassette"`
	Interactions   []model.Interaction `json:"interactions"`
}

// WriteSnapshot redacts and writes interactions to path as a pretty-
// printed cassette document, atomically: the document is written to a
// sibling temp file and renamed over the destination, so a reader never
// observes a partial write. Returns the number of bytes written, for
// callers that want to log a humanize.Bytes summary via LogLine.
func WriteSnapshot(path, upstream string, interactions []model.Interaction) (int, error) {
	redacted := make([]model.Interaction, len(interactions))
	for i, it := range interactions {
		redacted[i] = redact.Interaction(it)
	}

	doc := Document{
		ReplayrVersion: FormatVersion,
		Cassette: Header{
			ID:        uuid.NewString(),
			Name:      "session",
			CreatedAt: time.Now(),
			Upstream:  upstream,
		},
		Interactions: redacted,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("cassette: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cassette-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("cassette: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("cassette: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("cassette: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("cassette: rename into place: %w", err)
	}

	return len(data), nil
}

// LogLine formats a human-readable summary of a completed write, in the
// humanize.Bytes style the teacher's pack uses for size reporting.
func LogLine(path string, bytesWritten int, count int) string {
	return fmt.Sprintf("wrote cassette %s (%s, %d interactions)", path, humanize.Bytes(uint64(bytesWritten)), count)
}

// idSet builds a lookup set from an optional allow-list; a nil/empty ids
// list means "no filtering".
func idSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Filter returns the subset of interactions whose ID appears in ids. A
// nil/empty ids returns all of interactions unchanged.
func Filter(interactions []model.Interaction, ids []string) []model.Interaction {
	set := idSet(ids)
	if set == nil {
		return interactions
	}
	out := make([]model.Interaction, 0, len(ids))
	for _, it := range interactions {
		if set[it.ID] {
			out = append(out, it)
		}
	}
	return out
}
