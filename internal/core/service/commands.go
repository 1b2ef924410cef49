package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loaderhub/order-engine/internal/api/metrics"
	"github.com/loaderhub/order-engine/internal/core/domain"
	"github.com/loaderhub/order-engine/internal/core/ports"
)

// Take claims an available order for a worker. Exactly one of any set of
// concurrent claims on the same order succeeds; the rest observe a
// conflict and must refresh their view rather than retry blindly.
func (e *Engine) Take(ctx context.Context, number, workerID string) (*domain.Order, error) {
	timer := prometheus.NewTimer(metrics.CommandDuration.WithLabelValues(domain.ActionTaken))
	defer timer.ObserveDuration()

	worker, err := e.requireUser(ctx, workerID, domain.RoleLoader)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(number)
	defer unlock()

	order, err := e.orders.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusAvailable {
		metrics.TransitionConflictsTotal.WithLabelValues("not_available").Inc()
		return nil, fmt.Errorf("take %s: %w", number, domain.ErrOrderNotAvailable)
	}

	updated, err := e.orders.Transition(ctx, number, domain.StatusAvailable, domain.StatusTaken, ports.TransitionPatch{
		Worker: &ports.WorkerRef{ID: worker.ID, Name: worker.Name},
		Note:   "taken by " + worker.Name,
		At:     time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("take %s: %w", number, err)
	}

	metrics.TransitionsTotal.WithLabelValues(domain.ActionTaken).Inc()
	e.commit(ctx, domain.ActionTaken, updated, worker.ID)
	e.log.Info().Str("number", number).Str("worker_id", worker.ID).Msg("order taken")
	return updated, nil
}

// Start moves a taken order into in_progress. Only the assigned worker may start.
func (e *Engine) Start(ctx context.Context, number, workerID string) (*domain.Order, error) {
	timer := prometheus.NewTimer(metrics.CommandDuration.WithLabelValues(domain.ActionStarted))
	defer timer.ObserveDuration()

	worker, err := e.requireUser(ctx, workerID, domain.RoleLoader)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(number)
	defer unlock()

	order, err := e.orders.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if order.WorkerID != worker.ID {
		metrics.TransitionConflictsTotal.WithLabelValues("forbidden").Inc()
		return nil, fmt.Errorf("start %s: %w", number, domain.ErrForbidden)
	}
	if order.Status != domain.StatusTaken {
		metrics.TransitionConflictsTotal.WithLabelValues("invalid_transition").Inc()
		return nil, fmt.Errorf("start %s: %w (from %s)", number, domain.ErrInvalidTransition, order.Status)
	}

	updated, err := e.orders.Transition(ctx, number, domain.StatusTaken, domain.StatusInProgress, ports.TransitionPatch{
		Note: "started by " + worker.Name,
		At:   time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", number, err)
	}

	metrics.TransitionsTotal.WithLabelValues(domain.ActionStarted).Inc()
	e.commit(ctx, domain.ActionStarted, updated, worker.ID)
	e.log.Info().Str("number", number).Str("worker_id", worker.ID).Msg("order started")
	return updated, nil
}

// Complete finishes a claimed order. Only the assigned worker may complete,
// from taken or in_progress.
func (e *Engine) Complete(ctx context.Context, number, workerID string) (*domain.Order, error) {
	timer := prometheus.NewTimer(metrics.CommandDuration.WithLabelValues(domain.ActionCompleted))
	defer timer.ObserveDuration()

	worker, err := e.requireUser(ctx, workerID, domain.RoleLoader)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(number)
	defer unlock()

	order, err := e.orders.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if order.WorkerID != worker.ID {
		metrics.TransitionConflictsTotal.WithLabelValues("forbidden").Inc()
		return nil, fmt.Errorf("complete %s: %w", number, domain.ErrForbidden)
	}
	if !order.Status.CanTransitionTo(domain.StatusCompleted) {
		metrics.TransitionConflictsTotal.WithLabelValues("invalid_transition").Inc()
		return nil, fmt.Errorf("complete %s: %w (from %s)", number, domain.ErrInvalidTransition, order.Status)
	}

	updated, err := e.orders.Transition(ctx, number, order.Status, domain.StatusCompleted, ports.TransitionPatch{
		Note: "completed by " + worker.Name,
		At:   time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("complete %s: %w", number, err)
	}

	metrics.TransitionsTotal.WithLabelValues(domain.ActionCompleted).Inc()
	e.commit(ctx, domain.ActionCompleted, updated, worker.ID)
	e.log.Info().Str("number", number).Str("worker_id", worker.ID).Msg("order completed")
	return updated, nil
}

// Cancel terminates an order from available or taken. The posting
// dispatcher may cancel any of their own postings; a worker may cancel only
// their own claim. Cancelling detaches the assigned worker.
func (e *Engine) Cancel(ctx context.Context, number, actorID string) (*domain.Order, error) {
	timer := prometheus.NewTimer(metrics.CommandDuration.WithLabelValues(domain.ActionCancelled))
	defer timer.ObserveDuration()

	if actorID == "" {
		return nil, fmt.Errorf("%w: actor is required", domain.ErrValidation)
	}
	actor, err := e.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(number)
	defer unlock()

	order, err := e.orders.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	ownPosting := actor.Role == domain.RoleDispatcher && order.DispatcherID == actor.ID
	ownClaim := actor.Role == domain.RoleLoader && order.Assigned() && order.WorkerID == actor.ID
	if !ownPosting && !ownClaim {
		metrics.TransitionConflictsTotal.WithLabelValues("forbidden").Inc()
		return nil, fmt.Errorf("cancel %s: %w", number, domain.ErrForbidden)
	}
	if !order.Status.CanTransitionTo(domain.StatusCancelled) {
		metrics.TransitionConflictsTotal.WithLabelValues("invalid_transition").Inc()
		return nil, fmt.Errorf("cancel %s: %w (from %s)", number, domain.ErrInvalidTransition, order.Status)
	}

	patch := ports.TransitionPatch{
		ClearWorker: true,
		Note:        "cancelled by " + actor.Name,
		At:          time.Now().UTC(),
	}
	if order.Assigned() {
		// Keep the detached claim attributable: history, stats, and the
		// change feed still need to reach the worker who held it.
		patch.FormerWorker = &ports.WorkerRef{ID: order.WorkerID, Name: order.WorkerName}
	}
	updated, err := e.orders.Transition(ctx, number, order.Status, domain.StatusCancelled, patch)
	if err != nil {
		return nil, fmt.Errorf("cancel %s: %w", number, err)
	}

	metrics.TransitionsTotal.WithLabelValues(domain.ActionCancelled).Inc()
	e.commit(ctx, domain.ActionCancelled, updated, actor.ID)
	e.log.Info().Str("number", number).Str("actor_id", actor.ID).Msg("order cancelled")
	return updated, nil
}

// Rate records a 1–5 worker rating on a completed order. Only the posting
// dispatcher may rate, and only once.
func (e *Engine) Rate(ctx context.Context, number, dispatcherID string, score int) (*domain.Order, error) {
	timer := prometheus.NewTimer(metrics.CommandDuration.WithLabelValues(domain.ActionRated))
	defer timer.ObserveDuration()

	dispatcher, err := e.requireUser(ctx, dispatcherID, domain.RoleDispatcher)
	if err != nil {
		return nil, err
	}
	if score < 1 || score > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrValidation)
	}

	unlock := e.locks.Lock(number)
	defer unlock()

	order, err := e.orders.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if order.DispatcherID != dispatcher.ID {
		metrics.TransitionConflictsTotal.WithLabelValues("forbidden").Inc()
		return nil, fmt.Errorf("rate %s: %w", number, domain.ErrForbidden)
	}
	if order.Status != domain.StatusCompleted {
		metrics.TransitionConflictsTotal.WithLabelValues("invalid_transition").Inc()
		return nil, fmt.Errorf("rate %s: %w (status %s)", number, domain.ErrInvalidTransition, order.Status)
	}
	if order.WorkerRating != nil {
		metrics.TransitionConflictsTotal.WithLabelValues("already_rated").Inc()
		return nil, fmt.Errorf("rate %s: %w", number, domain.ErrAlreadyRated)
	}

	updated, err := e.orders.SetRating(ctx, number, scoreToRating(score), "rated by "+dispatcher.Name, time.Now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyRated) {
			metrics.TransitionConflictsTotal.WithLabelValues("already_rated").Inc()
		}
		return nil, fmt.Errorf("rate %s: %w", number, err)
	}

	metrics.TransitionsTotal.WithLabelValues(domain.ActionRated).Inc()
	e.commit(ctx, domain.ActionRated, updated, dispatcher.ID)
	e.log.Info().Str("number", number).Int("score", score).Msg("worker rated")
	return updated, nil
}
