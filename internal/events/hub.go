package events

import (
	"log/slog"
	"sync"

	"clipforge/internal/logging"
)

const defaultSubscriberBuffer = 64

// Hub fans job events out from running workers to any number of live
// observers. Delivery is fire-and-forget: a subscriber whose buffer is full
// is dropped and its channel closed rather than ever blocking a publisher.
// Events published from a single goroutine arrive at each surviving
// subscriber in publish order.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscriber]struct{}
	buffer int
	closed bool
	logger *slog.Logger
}

// Subscriber is one live observer handle.
type Subscriber struct {
	ch chan Event
}

// Events returns the receive side of the subscription. The channel is
// closed when the subscriber is dropped, unsubscribes, or the hub shuts
// down.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// NewHub constructs a hub whose subscribers buffer up to bufferSize events.
func NewHub(bufferSize int, logger *slog.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultSubscriberBuffer
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		subs:   make(map[*Subscriber]struct{}),
		buffer: bufferSize,
		logger: logger.With(slog.String(logging.FieldComponent, "events")),
	}
}

// Subscribe registers a new observer.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{ch: make(chan Event, h.buffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes an observer and closes its channel. Safe to call more
// than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(sub)
}

// Publish delivers evt to every current subscriber without blocking.
func (h *Hub) Publish(evt Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for sub := range h.subs {
		select {
		case sub.ch <- evt:
		default:
			// Slow consumer: favor publisher forward-progress.
			h.logger.Warn("dropping slow event subscriber",
				logging.String(logging.FieldJobID, evt.JobID),
				logging.String("event_type", string(evt.Type)))
			h.dropLocked(sub)
		}
	}
}

// SubscriberCount reports the number of live observers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscriber and rejects future publishes.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		h.dropLocked(sub)
	}
}

func (h *Hub) dropLocked(sub *Subscriber) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
}
