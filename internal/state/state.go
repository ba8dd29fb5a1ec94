// Package state defines AppState, the single value shared across the
// proxy data path and the admin plane as a set of independently-locked
// cells (spec section 5 and section 9). It owns no behavior of its own —
// each cell already locks itself (ring.Ring, bus.Bus, intercept.Registry,
// cassette.State) — AppState only bundles references to them so main can
// wire one copy into both listeners.
//
// Grounded on the teacher's cmd/ctrlai/main.go, which builds its
// KillSwitch, ProviderRegistry, and dashboard hub once at startup and
// passes pointers to both the proxy handler and the dashboard API.
package state

import (
	"github.com/sagikazarmark/replayr/internal/bus"
	"github.com/sagikazarmark/replayr/internal/cassette"
	"github.com/sagikazarmark/replayr/internal/intercept"
	"github.com/sagikazarmark/replayr/internal/ring"
)

// AppState bundles the long-lived, independently-locked components
// shared between the proxy data path and the admin API.
type AppState struct {
	Ring      *ring.Ring
	Bus       *bus.Bus
	Intercept *intercept.Registry
	Record    *cassette.State
	Upstream  string
}

// New builds an AppState with a fresh Ring of the given size and an
// empty Intercept registry. Record starts enabled or disabled per
// recordEnabled (the --record flag) and targets recordOutput.
func New(ringSize int, upstream string, recordEnabled bool, recordOutput string) *AppState {
	return &AppState{
		Ring:      ring.New(ringSize),
		Bus:       bus.New(),
		Intercept: intercept.New(),
		Record:    cassette.NewState(recordEnabled, recordOutput),
		Upstream:  upstream,
	}
}

// Close releases resources owned by AppState. Currently this only closes
// the Bus hub goroutine; Ring and Intercept hold no background
// goroutines or file handles.
func (s *AppState) Close() {
	s.Bus.Close()
}
