package service

import (
	"context"
	"strings"

	"github.com/loaderhub/order-engine/internal/core/domain"
	"github.com/loaderhub/order-engine/internal/core/ports"
)

// Projections are pure, read-only derivations over the current store
// snapshot. None of them holds state: each call recomputes from a fresh
// repository read, so a projection observed concurrently with a write sees
// either the pre- or the post-transition snapshot.

// AvailableOrders lists the claimable pool, soonest scheduled first. A
// non-empty query narrows the pool by case-insensitive substring match on
// address and cargo description.
func (e *Engine) AvailableOrders(ctx context.Context, query string) ([]*domain.Order, error) {
	return e.orders.List(ctx, ports.OrderFilter{
		Statuses: []domain.OrderStatus{domain.StatusAvailable},
		Search:   strings.TrimSpace(query),
		Sort:     ports.SortScheduledAsc,
	})
}

// MyOrders lists every order assigned to the worker, any status, newest
// activity first.
func (e *Engine) MyOrders(ctx context.Context, workerID, query string) ([]*domain.Order, error) {
	if _, err := e.requireUser(ctx, workerID, domain.RoleLoader); err != nil {
		return nil, err
	}
	return e.orders.List(ctx, ports.OrderFilter{
		WorkerID: workerID,
		Search:   strings.TrimSpace(query),
		Sort:     ports.SortUpdatedDesc,
	})
}

// DispatcherOrders partitions the dispatcher's postings into the unclaimed
// pool and the claimed-or-done pool.
func (e *Engine) DispatcherOrders(ctx context.Context, dispatcherID string) (*ports.DispatcherBoard, error) {
	if _, err := e.requireUser(ctx, dispatcherID, domain.RoleDispatcher); err != nil {
		return nil, err
	}

	available, err := e.orders.List(ctx, ports.OrderFilter{
		DispatcherID: dispatcherID,
		Statuses:     []domain.OrderStatus{domain.StatusAvailable},
		Sort:         ports.SortScheduledAsc,
	})
	if err != nil {
		return nil, err
	}
	inProgress, err := e.orders.List(ctx, ports.OrderFilter{
		DispatcherID: dispatcherID,
		Statuses:     []domain.OrderStatus{domain.StatusTaken, domain.StatusInProgress, domain.StatusCompleted},
		Sort:         ports.SortUpdatedDesc,
	})
	if err != nil {
		return nil, err
	}

	return &ports.DispatcherBoard{Available: available, InProgress: inProgress}, nil
}

// History lists all completed and cancelled orders touching the actor,
// newest first. Dispatchers see their postings; workers see their claims,
// including cancelled ones where the assignment was detached.
func (e *Engine) History(ctx context.Context, actorID string) ([]*domain.Order, error) {
	if actorID == "" {
		return nil, domain.ErrUserNotFound
	}
	actor, err := e.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	filter := ports.OrderFilter{
		Statuses: []domain.OrderStatus{domain.StatusCompleted, domain.StatusCancelled},
		Sort:     ports.SortUpdatedDesc,
	}
	if actor.Role == domain.RoleDispatcher {
		filter.DispatcherID = actor.ID
	} else {
		filter.InvolvedWorkerID = actor.ID
	}
	return e.orders.List(ctx, filter)
}
