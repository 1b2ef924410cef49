// Package memory implements the persistence ports on plain maps guarded by
// mutexes. It backs STORE_BACKEND=memory and the test suite; the contracts
// are identical to the Mongo implementations, including compare-and-swap
// semantics on Transition and SetRating.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/loaderhub/order-engine/internal/core/domain"
	"github.com/loaderhub/order-engine/internal/core/ports"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]*domain.Order)}
}

func (r *OrderRepository) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[o.Number]; ok {
		return fmt.Errorf("create %s: %w", o.Number, domain.ErrConflict)
	}
	r.orders[o.Number] = o.Clone()
	return nil
}

func (r *OrderRepository) FindByNumber(_ context.Context, number string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[number]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) List(_ context.Context, filter ports.OrderFilter) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*domain.Order, 0)
	for _, o := range r.orders {
		if !matches(o, filter) {
			continue
		}
		matched = append(matched, o.Clone())
	}

	switch filter.Sort {
	case ports.SortUpdatedDesc:
		sort.Slice(matched, func(i, j int) bool {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		})
	default: // SortScheduledAsc, creation time breaks ties
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].ScheduledAt.Equal(matched[j].ScheduledAt) {
				return matched[i].ScheduledAt.Before(matched[j].ScheduledAt)
			}
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		})
	}
	return matched, nil
}

// Transition applies the status change as a compare-and-swap: the order
// must still be in status `from`, or the write is rejected and the order
// left exactly as it was.
func (r *OrderRepository) Transition(_ context.Context, number string, from, to domain.OrderStatus, patch ports.TransitionPatch) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[number]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if o.Status != from {
		return nil, fmt.Errorf("transition from %s: %w", o.Status, domain.ErrConflict)
	}

	o.Status = to
	if patch.Worker != nil {
		o.WorkerID = patch.Worker.ID
		o.WorkerName = patch.Worker.Name
	}
	if patch.ClearWorker {
		o.WorkerID = ""
		o.WorkerName = ""
	}
	if patch.FormerWorker != nil {
		o.FormerWorkerID = patch.FormerWorker.ID
		o.FormerWorkerName = patch.FormerWorker.Name
	}
	o.UpdatedAt = patch.At
	o.StatusHistory = append(o.StatusHistory, domain.StatusHistoryEntry{
		Status:    to,
		Timestamp: patch.At,
		Notes:     patch.Note,
	})
	return o.Clone(), nil
}

func (r *OrderRepository) SetRating(_ context.Context, number string, rating decimal.Decimal, note string, at time.Time) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[number]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if o.Status != domain.StatusCompleted {
		return nil, fmt.Errorf("rate from %s: %w", o.Status, domain.ErrConflict)
	}
	if o.WorkerRating != nil {
		return nil, domain.ErrAlreadyRated
	}

	o.WorkerRating = &rating
	o.UpdatedAt = at
	o.StatusHistory = append(o.StatusHistory, domain.StatusHistoryEntry{
		Status:    o.Status,
		Timestamp: at,
		Notes:     note,
	})
	return o.Clone(), nil
}

func matches(o *domain.Order, f ports.OrderFilter) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if o.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.WorkerID != "" && o.WorkerID != f.WorkerID {
		return false
	}
	if f.InvolvedWorkerID != "" && o.WorkerID != f.InvolvedWorkerID && o.FormerWorkerID != f.InvolvedWorkerID {
		return false
	}
	if f.DispatcherID != "" && o.DispatcherID != f.DispatcherID {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(o.Address), q) &&
			!strings.Contains(strings.ToLower(o.Cargo), q) {
			return false
		}
	}
	return true
}
