package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/loaderhub/order-engine/internal/core/domain"
)

// OrderSort selects the ordering applied by List.
type OrderSort int

const (
	// SortScheduledAsc orders by scheduled time, soonest first; creation
	// time breaks ties.
	SortScheduledAsc OrderSort = iota
	// SortUpdatedDesc orders by last update, newest first.
	SortUpdatedDesc
)

// OrderFilter carries all query parameters for listing orders.
type OrderFilter struct {
	Statuses         []domain.OrderStatus // empty = any status
	WorkerID         string               // non-empty = assigned worker equals
	InvolvedWorkerID string               // non-empty = current or former worker equals
	DispatcherID     string               // non-empty = posting dispatcher equals
	Search           string               // case-insensitive substring over address and cargo
	Sort             OrderSort
}

// WorkerRef identifies the worker being assigned by a transition.
type WorkerRef struct {
	ID   string
	Name string
}

// TransitionPatch carries the field updates applied together with a status
// change. The repository applies patch, status, and the history entry as
// one atomic write: either all of it is observed, or none.
type TransitionPatch struct {
	Worker       *WorkerRef // assign this worker (take)
	ClearWorker  bool       // detach the worker (cancel)
	FormerWorker *WorkerRef // record the detached worker for attribution
	Note         string     // stored on the history entry
	At           time.Time
}

// OrderRepository is the order store: the single owner of canonical order
// state. Transition and SetRating are compare-and-swap writes: they fail
// with a conflict-class error when the precondition no longer holds, and
// leave the order untouched on any failure.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	FindByNumber(ctx context.Context, number string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)

	// Transition moves the order from status `from` to status `to`,
	// applying patch and appending a history entry. Fails with
	// domain.ErrConflict when the current status is not `from`.
	Transition(ctx context.Context, number string, from, to domain.OrderStatus, patch TransitionPatch) (*domain.Order, error)

	// SetRating stores the worker rating on a completed, unrated order.
	// Fails with domain.ErrAlreadyRated when a rating is already present.
	SetRating(ctx context.Context, number string, rating decimal.Decimal, note string, at time.Time) (*domain.Order, error)
}
