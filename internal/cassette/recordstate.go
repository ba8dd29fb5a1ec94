package cassette

import (
	"log/slog"
	"sync"

	"github.com/sagikazarmark/replayr/internal/ring"
)

// State is the record-on-store toggle from spec sections 4.8 and 6: an
// enabled flag, an output path, and a monotonically increasing count of
// successful writes. It is independently locked from the ring, per the
// locking discipline in spec section 5 — RecordOnStore releases this
// lock before invoking the Record Sink and re-acquires it only to bump
// count.
type State struct {
	mu      sync.Mutex
	enabled bool
	output  string
	count   int
}

// NewState builds a State with recording initially enabled/disabled and
// targeting output, per the --record/--output CLI flags.
func NewState(enabled bool, output string) *State {
	return &State{enabled: enabled, output: output}
}

// Get returns the current enabled flag, output path, and write count.
func (s *State) Get() (enabled bool, output string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled, s.output, s.count
}

// Set updates the enabled flag and, when output is non-empty, the
// output path.
func (s *State) Set(enabled bool, output string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
	if output != "" {
		s.output = output
	}
}

// RecordOnStore implements the record-on-store sequence: if recording is
// enabled, it rewrites the cassette at the configured output path from
// the current ring snapshot and, only on success, bumps count. The
// record lock is never held across the write/I-O, matching the
// "release before calling the Record Sink, then re-acquire" rule.
func RecordOnStore(state *State, r *ring.Ring, upstream string, logger *slog.Logger) {
	state.mu.Lock()
	enabled := state.enabled
	output := state.output
	state.mu.Unlock()

	if !enabled {
		return
	}

	n, err := WriteSnapshot(output, upstream, r.Snapshot())
	if err != nil {
		if logger != nil {
			logger.Warn("cassette write failed", "path", output, "error", err)
		}
		return
	}

	state.mu.Lock()
	state.count++
	count := state.count
	state.mu.Unlock()

	if logger != nil {
		logger.Info(LogLine(output, n, count))
	}
}
