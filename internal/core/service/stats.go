package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/loaderhub/order-engine/internal/core/domain"
	"github.com/loaderhub/order-engine/internal/core/ports"
)

// Stats computes derived metrics for the actor from a single store read.
// Workers aggregate over their claims, dispatchers over their postings.
func (e *Engine) Stats(ctx context.Context, actorID string) (*ports.Stats, error) {
	if actorID == "" {
		return nil, domain.ErrUserNotFound
	}
	actor, err := e.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	filter := ports.OrderFilter{}
	if actor.Role == domain.RoleDispatcher {
		filter.DispatcherID = actor.ID
	} else {
		filter.WorkerID = actor.ID
	}
	orders, err := e.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return computeStats(orders), nil
}

// computeStats is a pure function over an order set: completed and active
// counts, total earnings over completed orders, and the mean rating over
// rated completed orders. AverageRating stays nil when nothing is rated.
func computeStats(orders []*domain.Order) *ports.Stats {
	stats := &ports.Stats{TotalEarnings: decimal.Zero}

	ratingSum := decimal.Zero
	rated := 0
	for _, o := range orders {
		switch o.Status {
		case domain.StatusCompleted:
			stats.CompletedCount++
			stats.TotalEarnings = stats.TotalEarnings.Add(o.TotalPrice())
			if o.WorkerRating != nil {
				ratingSum = ratingSum.Add(*o.WorkerRating)
				rated++
			}
		case domain.StatusTaken, domain.StatusInProgress:
			stats.ActiveCount++
		}
	}

	if rated > 0 {
		avg := ratingSum.Div(decimal.NewFromInt(int64(rated))).Round(2)
		stats.AverageRating = &avg
	}
	return stats
}
