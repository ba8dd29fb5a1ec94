// Package bus implements the broadcast bus (spec section 4.6): a
// publish/subscribe fan-out of newly captured interactions to admin
// subscribers, typically WebSocket peers. It is a generalization of the
// teacher's wsHub (internal/dashboard/websocket.go) from a hub that
// writes straight to WebSocket connections to one that hands subscribers
// a plain Go channel — the admin package's WebSocket handler is then a
// thin adapter on top, so the hub logic itself has one home instead of
// two copies.
//
// Delivery is best-effort: a subscriber whose channel is full is dropped
// rather than allowed to block publishers. There is no durability or
// replay — historical interactions are read from the ring, not the bus.
package bus

import (
	"sync"

	"github.com/sagikazarmark/replayr/internal/model"
)

// backlog is the minimum bounded backlog per subscriber required by spec
// section 4.6.
const backlog = 1024

// Bus runs a single goroutine that owns the subscriber set, so adding,
// removing, and publishing never need a lock of their own.
type Bus struct {
	publishCh    chan model.Interaction
	subscribeCh  chan chan model.Interaction
	unsubscribeCh chan chan model.Interaction

	closeOnce sync.Once
	doneCh    chan struct{}
}

// New creates a Bus and starts its broadcast loop in a background
// goroutine.
func New() *Bus {
	b := &Bus{
		publishCh:     make(chan model.Interaction),
		subscribeCh:   make(chan chan model.Interaction),
		unsubscribeCh: make(chan chan model.Interaction),
		doneCh:        make(chan struct{}),
	}
	go b.run()
	return b
}

// Publish delivers an interaction to every currently-subscribed reader.
// Non-blocking from the caller's perspective beyond handing the value to
// the hub goroutine.
func (b *Bus) Publish(i model.Interaction) {
	select {
	case b.publishCh <- i:
	case <-b.doneCh:
	}
}

// Subscribe registers a new reader and returns its channel plus a cancel
// function. Cancel is idempotent and safe to call from a defer.
func (b *Bus) Subscribe() (<-chan model.Interaction, func()) {
	ch := make(chan model.Interaction, backlog)

	select {
	case b.subscribeCh <- ch:
	case <-b.doneCh:
		close(ch)
		return ch, func() {}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			select {
			case b.unsubscribeCh <- ch:
			case <-b.doneCh:
			}
		})
	}
	return ch, cancel
}

// Close stops the hub goroutine. Subsequent Publish/Subscribe calls are
// no-ops.
func (b *Bus) Close() {
	b.closeOnce.Do(func() { close(b.doneCh) })
}

func (b *Bus) run() {
	subscribers := make(map[chan model.Interaction]bool)

	for {
		select {
		case ch := <-b.subscribeCh:
			subscribers[ch] = true

		case ch := <-b.unsubscribeCh:
			if subscribers[ch] {
				delete(subscribers, ch)
				close(ch)
			}

		case i := <-b.publishCh:
			for ch := range subscribers {
				select {
				case ch <- i:
				default:
					// Slow reader — drop it rather than block the bus.
					delete(subscribers, ch)
					close(ch)
				}
			}

		case <-b.doneCh:
			for ch := range subscribers {
				delete(subscribers, ch)
				close(ch)
			}
			return
		}
	}
}
