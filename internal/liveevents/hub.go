package liveevents

import (
	"errors"
	"sync"
)

const (
	DefaultBufferSize       = 50
	DefaultSubscriberBuffer = 16
)

// OrderEvent is the lightweight "data changed" hint pushed to observers.
// It is a liveness signal, not a data channel; clients re-fetch on receipt.
type OrderEvent struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number,omitempty"`
	ReceivedAt  string `json:"received_at"`
}

// Hub fans order events out to currently-connected subscribers. Delivery is
// best-effort and at-most-once: a subscriber whose buffer is full misses the
// event, and never blocks the publisher or other subscribers.
type Hub struct {
	mu               sync.Mutex
	buffer           []OrderEvent
	subs             map[uint64]chan OrderEvent
	nextID           uint64
	bufferSize       int
	subscriberBuffer int
}

type Subscription struct {
	hub  *Hub
	id   uint64
	ch   chan OrderEvent
	once sync.Once
}

func NewHub() *Hub {
	return &Hub{
		subs:             make(map[uint64]chan OrderEvent),
		bufferSize:       DefaultBufferSize,
		subscriberBuffer: DefaultSubscriberBuffer,
	}
}

func (h *Hub) Publish(event OrderEvent) {
	if h == nil {
		return
	}

	h.mu.Lock()
	h.buffer = append(h.buffer, event)
	if len(h.buffer) > h.bufferSize {
		h.buffer = h.buffer[len(h.buffer)-h.bufferSize:]
	}
	subs := make([]chan OrderEvent, 0, len(h.subs))
	for _, ch := range h.subs {
		subs = append(subs, ch)
	}
	h.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers an observer and returns the recent backlog so a client
// connecting just after a burst still sees it.
func (h *Hub) Subscribe() (*Subscription, []OrderEvent, error) {
	if h == nil {
		return nil, nil, errors.New("hub_unavailable")
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	ch := make(chan OrderEvent, h.subscriberBuffer)
	h.subs[id] = ch
	backlog := append([]OrderEvent(nil), h.buffer...)
	h.mu.Unlock()

	return &Subscription{hub: h, id: id, ch: ch}, backlog, nil
}

func (h *Hub) unsubscribe(id uint64) {
	if h == nil {
		return
	}
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (h *Hub) subscriberCount() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (s *Subscription) Events() <-chan OrderEvent {
	if s == nil {
		return nil
	}
	return s.ch
}

func (s *Subscription) Close() {
	if s == nil || s.hub == nil {
		return
	}
	s.once.Do(func() {
		s.hub.unsubscribe(s.id)
	})
}
