package ports

import (
	"context"

	"github.com/loaderhub/order-engine/internal/core/domain"
)

// EventRepository persists the transition audit trail. Inserts are
// best-effort: a failed audit write never rolls back a committed transition.
type EventRepository interface {
	Insert(ctx context.Context, event *domain.OrderEvent) error
}
