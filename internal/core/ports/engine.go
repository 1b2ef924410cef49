package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/loaderhub/order-engine/internal/core/domain"
)

// CreateOrderInput carries all data needed to post a new order.
type CreateOrderInput struct {
	DispatcherID   string
	Address        string
	ScheduledAt    time.Time
	Cargo          string
	PricePerHour   decimal.Decimal
	EstimatedHours int
	Comment        string
	// IdempotencyKey, when non-empty, makes the create replay-safe: a
	// second call with the same key returns the originally created order.
	IdempotencyKey string
}

// CreateOrderResult is returned by CreateOrder.
type CreateOrderResult struct {
	Order *domain.Order
	// AlreadyExisted is true when the idempotency key matched an existing order.
	AlreadyExisted bool
}

// DispatcherBoard partitions a dispatcher's postings into the two tabs the
// dispatcher view renders: unclaimed orders and claimed-or-done orders.
type DispatcherBoard struct {
	Available  []*domain.Order
	InProgress []*domain.Order
}

// Stats are derived metrics for one actor, computed as a pure function of
// the order set touching that actor.
type Stats struct {
	CompletedCount int
	ActiveCount    int
	TotalEarnings  decimal.Decimal
	// AverageRating is nil when no completed order has been rated.
	AverageRating *decimal.Decimal
}

// Engine is the full surface the engine exposes to presentation layers:
// session bootstrap, role-checked commands, projections, and stats. The
// change feed is exposed separately by the subscription hub.
type Engine interface {
	// Session bootstrap.
	CreateUser(ctx context.Context, name, role string) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// Commands. All order mutation funnels through these; operations on
	// the same order number are mutually exclusive in time.
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error)
	Take(ctx context.Context, number, workerID string) (*domain.Order, error)
	Start(ctx context.Context, number, workerID string) (*domain.Order, error)
	Complete(ctx context.Context, number, workerID string) (*domain.Order, error)
	Cancel(ctx context.Context, number, actorID string) (*domain.Order, error)
	Rate(ctx context.Context, number, dispatcherID string, score int) (*domain.Order, error)

	// Projections: read-only derivations over the current store snapshot.
	GetOrder(ctx context.Context, number string) (*domain.Order, error)
	AvailableOrders(ctx context.Context, query string) ([]*domain.Order, error)
	MyOrders(ctx context.Context, workerID, query string) ([]*domain.Order, error)
	DispatcherOrders(ctx context.Context, dispatcherID string) (*DispatcherBoard, error)
	History(ctx context.Context, actorID string) ([]*domain.Order, error)
	Stats(ctx context.Context, actorID string) (*Stats, error)
}
