package stream

import (
	"sync"

	"github.com/sky/skytrack/internal/engine"
)

// subscriberBuffer is the per-client channel depth. A client that falls
// this far behind starts losing snapshots rather than blocking the tick
// loop; the next delivered snapshot is always the freshest.
const subscriberBuffer = 4

// Hub fans engine snapshots out to connected stream clients. The engine
// publishes from its tick loop, so Publish must never block.
type Hub struct {
	mu   sync.Mutex
	subs map[chan *engine.Snapshot]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan *engine.Snapshot]struct{})}
}

// Publish delivers a snapshot to every subscriber. Slow subscribers are
// skipped; they catch up on the next snapshot.
func (h *Hub) Publish(s *engine.Snapshot) {
	if s == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its channel plus a
// cancel function that must be called when the client disconnects.
func (h *Hub) Subscribe() (<-chan *engine.Snapshot, func()) {
	ch := make(chan *engine.Snapshot, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
