// Package intercept implements the Intercept Registry (spec section 4.7):
// a rendezvous point between the proxy data path and an operator driving
// the admin plane. At most one pattern is active at a time; a request
// whose synthetic interaction matches it is queued and the data path
// blocks on a one-shot resolver until the operator releases or drops it,
// or 300 seconds elapse.
//
// Grounded on the teacher's internal/agent/killswitch.go for the "single
// mutex-protected piece of shared state, read by every request" shape,
// and on internal/dashboard/websocket.go for the one-shot-channel
// rendezvous idiom (the teacher's wsHub registers/deregisters connections
// under a lock the same way this registry registers/deregisters pending
// entries).
package intercept

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sagikazarmark/replayr/internal/model"
	"github.com/sagikazarmark/replayr/internal/predicate"
)

// Timeout is the maximum time the data path blocks on a pending intercept
// before it is treated as a drop, per spec section 4.7.
const Timeout = 300 * time.Second

// Action is the operator's decision on a pending intercept.
type Action struct {
	Drop bool

	// Headers and Body are only meaningful when Drop is false. A nil
	// Headers/Body means "leave as captured" — only a non-nil value is a
	// replacement.
	Headers map[string]string
	Body    *string
}

// QueueEntry is the read-only view of a pending intercept exposed to the
// admin plane.
type QueueEntry struct {
	ID       string              `json:"id"`
	Request  model.StoredRequest `json:"request"`
	QueuedAt time.Time           `json:"queued_at"`
}

type pending struct {
	request  model.StoredRequest
	queuedAt time.Time
	resolved chan Action // buffered 1; exactly one send, ever
}

// Registry holds the optional active pattern and the set of pending
// entries. Pattern and the entry map are independently locked, matching
// the no-two-locks-at-once discipline the teacher's killswitch/dashboard
// code follows.
type Registry struct {
	patternMu sync.Mutex
	pattern   *predicate.Predicate
	patternRaw string

	entriesMu sync.Mutex
	entries   map[string]*pending
}

// New creates an empty Registry with no active pattern.
func New() *Registry {
	return &Registry{entries: make(map[string]*pending)}
}

// SetPattern installs the global intercept pattern. An empty expression
// clears it (no requests will be intercepted).
func (r *Registry) SetPattern(expr string) error {
	r.patternMu.Lock()
	defer r.patternMu.Unlock()

	if expr == "" {
		r.pattern = nil
		r.patternRaw = ""
		return nil
	}

	p, err := predicate.CompileCached(expr)
	if err != nil {
		return err
	}
	r.pattern = p
	r.patternRaw = expr
	return nil
}

// Pattern returns the raw expression text currently active, or "" if none.
func (r *Registry) Pattern() string {
	r.patternMu.Lock()
	defer r.patternMu.Unlock()
	return r.patternRaw
}

func (r *Registry) activePattern() *predicate.Predicate {
	r.patternMu.Lock()
	defer r.patternMu.Unlock()
	return r.pattern
}

// Check evaluates the active pattern against a synthetic interaction
// (real request, empty response, per spec section 4.7). If there is no
// active pattern or it doesn't match, Check returns (Action{}, false) and
// the data path proceeds without interception. Otherwise it queues the
// redacted request and blocks until release, drop, or the 300-second
// timeout, returning (action, true).
func (r *Registry) Check(synthetic model.Interaction, redactedRequest model.StoredRequest) (Action, bool) {
	p := r.activePattern()
	if p == nil || !p.Eval(synthetic) {
		return Action{}, false
	}

	id := uuid.NewString()
	entry := &pending{
		request:  redactedRequest,
		queuedAt: time.Now(),
		resolved: make(chan Action, 1),
	}

	r.entriesMu.Lock()
	r.entries[id] = entry
	r.entriesMu.Unlock()

	select {
	case action := <-entry.resolved:
		return action, true
	case <-time.After(Timeout):
		// Remove ourselves — if the operator raced a release/drop in
		// between, take whichever outcome actually fired instead of
		// overriding it with a synthetic timeout-drop.
		r.entriesMu.Lock()
		_, stillPending := r.entries[id]
		if stillPending {
			delete(r.entries, id)
		}
		r.entriesMu.Unlock()

		if !stillPending {
			return <-entry.resolved, true
		}
		return Action{Drop: true}, true
	}
}

// Release resolves a pending intercept with replacement headers/body. A
// nil map or nil body pointer leaves that part of the request as
// captured. Reports false if id is not pending.
func (r *Registry) Release(id string, headers map[string]string, body *string) bool {
	return r.resolve(id, Action{Headers: headers, Body: body})
}

// Drop resolves a pending intercept with a drop decision. Reports false
// if id is not pending.
func (r *Registry) Drop(id string) bool {
	return r.resolve(id, Action{Drop: true})
}

func (r *Registry) resolve(id string, action Action) bool {
	r.entriesMu.Lock()
	entry, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.entriesMu.Unlock()

	if !ok {
		return false
	}
	entry.resolved <- action
	return true
}

// Queue returns a snapshot of pending entries, ordered oldest-first.
func (r *Registry) Queue() []QueueEntry {
	r.entriesMu.Lock()
	defer r.entriesMu.Unlock()

	out := make([]QueueEntry, 0, len(r.entries))
	for id, entry := range r.entries {
		out = append(out, QueueEntry{ID: id, Request: entry.request, QueuedAt: entry.queuedAt})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].QueuedAt.Before(out[j-1].QueuedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
