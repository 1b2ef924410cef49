package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/loaderhub/order-engine/internal/api/metrics"
	"github.com/loaderhub/order-engine/internal/core/domain"
)

const (
	hubBuffer        = 256
	subscriberBuffer = 64
)

// Subscription is a live change-feed registration. Events arrive on C in
// the order they were committed to the store; per-order causal order is
// preserved because publication happens inside the per-order arbitration
// section. Release with Hub.Unsubscribe; consumers stop by selecting on
// Done rather than waiting for C to close.
type Subscription struct {
	id   uint64
	C    <-chan domain.OrderEvent
	ch   chan domain.OrderEvent
	done chan struct{}
}

// Done is closed when the subscription has been released.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Hub fans committed order events out to all current subscribers. A single
// forwarding goroutine delivers events to every subscriber sequentially, so
// each subscriber observes the global commit sequence; delivery order
// across subscribers is unspecified.
type Hub struct {
	log    zerolog.Logger
	events chan domain.OrderEvent
	seq    atomic.Uint64

	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
}

// NewHub creates a Hub. Call Run to start delivery.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:    log,
		events: make(chan domain.OrderEvent, hubBuffer),
		subs:   make(map[uint64]*Subscription),
	}
}

// Publish stamps the event with the next sequence number and queues it for
// delivery. Callers invoke Publish while still holding the order's
// arbitration section, which is what guarantees per-order event ordering.
func (h *Hub) Publish(action string, order *domain.Order, actorID string) {
	snapshot := order.Clone()
	h.events <- domain.OrderEvent{
		Seq:        h.seq.Add(1),
		Action:     action,
		Order:      *snapshot,
		ActorID:    actorID,
		OccurredAt: snapshot.UpdatedAt,
	}
}

// Subscribe registers a new observer and returns its subscription handle.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:   h.nextID,
		ch:   make(chan domain.OrderEvent, subscriberBuffer),
		done: make(chan struct{}),
	}
	sub.C = sub.ch
	h.subs[sub.id] = sub
	metrics.FeedSubscribers.Set(float64(len(h.subs)))
	return sub
}

// Unsubscribe removes the subscription and signals Done. The event channel
// is left open so an in-flight delivery can never write to a closed channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	close(sub.done)
	metrics.FeedSubscribers.Set(float64(len(h.subs)))
}

// Run delivers events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-h.events:
			if !ok {
				return
			}
			h.deliver(event)
		}
	}
}

// deliver forwards one event to every current subscriber. The send blocks
// when a subscriber's buffer is full rather than dropping: every subscriber
// must eventually observe every transition. Unsubscribing releases a
// blocked send through done.
func (h *Hub) deliver(event domain.OrderEvent) {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- event:
		case <-s.done:
		}
	}
	h.log.Debug().
		Uint64("seq", event.Seq).
		Str("action", event.Action).
		Str("order", event.Order.Number).
		Int("subscribers", len(subs)).
		Msg("event delivered")
}
