package memory

import (
	"context"
	"sync"

	"github.com/loaderhub/order-engine/internal/core/domain"
)

// EventRepository keeps the transition audit trail in memory.
type EventRepository struct {
	mu     sync.Mutex
	events []domain.OrderEvent
}

func NewEventRepository() *EventRepository {
	return &EventRepository{}
}

func (r *EventRepository) Insert(_ context.Context, event *domain.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, *event)
	return nil
}

// ByOrder returns the recorded events for one order, oldest first.
func (r *EventRepository) ByOrder(number string) []domain.OrderEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.OrderEvent, 0)
	for _, e := range r.events {
		if e.Order.Number == number {
			out = append(out, e)
		}
	}
	return out
}
