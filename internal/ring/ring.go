// Package ring implements the bounded, newest-first Interaction buffer
// (spec section 4.5). It is the single source of truth the admin plane
// reads from and the cassette writer snapshots from.
package ring

import (
	"sync"

	"github.com/sagikazarmark/replayr/internal/model"
)

// Ring is a bounded FIFO of Interactions, ordered newest-first, safe for
// concurrent use. The zero value is not usable — construct with New.
type Ring struct {
	mu   sync.Mutex
	buf  []model.Interaction // buf[0] is oldest, buf[len-1] is newest
	size int
}

// New creates a Ring bounded to size entries. A size below 1 is raised
// to 1.
func New(size int) *Ring {
	if size < 1 {
		size = 1
	}
	return &Ring{size: size}
}

// Push inserts an interaction as the newest entry, evicting the oldest
// if the ring is already at capacity.
func (r *Ring) Push(i model.Interaction) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf = append(r.buf, i)
	if len(r.buf) > r.size {
		r.buf = r.buf[len(r.buf)-r.size:]
	}
}

// Clear empties the ring.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = nil
}

// Snapshot returns all interactions currently in the ring, newest-first.
// The returned slice is a copy — safe to use without holding any lock.
func (r *Ring) Snapshot() []model.Interaction {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]model.Interaction, len(r.buf))
	for i, entry := range r.buf {
		out[len(r.buf)-1-i] = entry
	}
	return out
}

// FindByID returns the interaction with the given ID, if present.
func (r *Ring) FindByID(id string) (model.Interaction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range r.buf {
		if entry.ID == id {
			return entry, true
		}
	}
	return model.Interaction{}, false
}

// Len returns the current number of entries in the ring.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}
