package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/loaderhub/order-engine/internal/api/metrics"
	"github.com/loaderhub/order-engine/internal/core/domain"
	"github.com/loaderhub/order-engine/internal/core/ports"
)

// Engine implements ports.Engine. All order mutation funnels through it:
// commands acquire the order's arbitration section, validate against the
// store, apply the transition as one atomic write, then signal the hub.
type Engine struct {
	orders ports.OrderRepository
	users  ports.UserRepository
	events ports.EventRepository
	idem   ports.IdempotencyStore
	hub    *Hub
	locks  *keyedLocks
	log    zerolog.Logger
}

// Options configures optional Engine collaborators.
type Options struct {
	// Idempotency enables Idempotency-Key replay on CreateOrder.
	Idempotency ports.IdempotencyStore
	// Audit receives a best-effort record of every committed transition.
	Audit ports.EventRepository
	// LockShards sets the arbitration shard count (defaults when <= 0).
	LockShards int
}

func NewEngine(orders ports.OrderRepository, users ports.UserRepository, hub *Hub, opts Options, log zerolog.Logger) *Engine {
	return &Engine{
		orders: orders,
		users:  users,
		events: opts.Audit,
		idem:   opts.Idempotency,
		hub:    hub,
		locks:  newKeyedLocks(opts.LockShards),
		log:    log,
	}
}

// CreateOrder validates and posts a new order with status available. When
// an idempotency key is provided and already seen, the previously created
// order is returned without side effects.
func (e *Engine) CreateOrder(ctx context.Context, input ports.CreateOrderInput) (*ports.CreateOrderResult, error) {
	dispatcher, err := e.requireUser(ctx, input.DispatcherID, domain.RoleDispatcher)
	if err != nil {
		return nil, err
	}
	if err := validateOrderInput(input); err != nil {
		return nil, err
	}

	if e.idem != nil && input.IdempotencyKey != "" {
		number, err := e.idem.Lookup(ctx, input.IdempotencyKey)
		if err != nil {
			e.log.Warn().Err(err).Msg("idempotency lookup failed, creating anyway")
		} else if number != "" {
			existing, err := e.orders.FindByNumber(ctx, number)
			if err == nil {
				e.log.Info().Str("idempotency_key", input.IdempotencyKey).Str("number", number).Msg("idempotent replay")
				return &ports.CreateOrderResult{Order: existing, AlreadyExisted: true}, nil
			}
		}
	}

	now := time.Now().UTC()
	order := &domain.Order{
		Number:         generateOrderNumber(),
		DispatcherID:   dispatcher.ID,
		DispatcherName: dispatcher.Name,
		Address:        strings.TrimSpace(input.Address),
		ScheduledAt:    input.ScheduledAt.UTC(),
		Cargo:          strings.TrimSpace(input.Cargo),
		PricePerHour:   input.PricePerHour,
		EstimatedHours: input.EstimatedHours,
		Comment:        strings.TrimSpace(input.Comment),
		Status:         domain.StatusAvailable,
		CreatedAt:      now,
		UpdatedAt:      now,
		StatusHistory: []domain.StatusHistoryEntry{
			{Status: domain.StatusAvailable, Timestamp: now, Notes: "posted by " + dispatcher.Name},
		},
	}

	// Hold the order's arbitration section across insert and publication,
	// so a claim racing the fresh posting cannot publish its event ahead
	// of the created one.
	unlock := e.locks.Lock(order.Number)
	defer unlock()

	if err := e.orders.Create(ctx, order); err != nil {
		e.log.Error().Err(err).Msg("failed to create order")
		return nil, err
	}

	if e.idem != nil && input.IdempotencyKey != "" {
		if err := e.idem.Mark(ctx, input.IdempotencyKey, order.Number); err != nil {
			e.log.Warn().Err(err).Str("number", order.Number).Msg("failed to mark idempotency key")
		}
	}

	metrics.OrdersCreatedTotal.Inc()
	e.commit(ctx, domain.ActionCreated, order, dispatcher.ID)
	e.log.Info().Str("number", order.Number).Str("dispatcher_id", dispatcher.ID).Msg("order created")

	return &ports.CreateOrderResult{Order: order}, nil
}

// GetOrder retrieves a single order by number.
func (e *Engine) GetOrder(ctx context.Context, number string) (*domain.Order, error) {
	return e.orders.FindByNumber(ctx, number)
}

// validateOrderInput enforces the create-time field rules: address and
// cargo non-blank, price strictly positive, at least one estimated hour,
// schedule set.
func validateOrderInput(input ports.CreateOrderInput) error {
	if strings.TrimSpace(input.Address) == "" {
		return fmt.Errorf("%w: address must not be blank", domain.ErrValidation)
	}
	if strings.TrimSpace(input.Cargo) == "" {
		return fmt.Errorf("%w: cargo description must not be blank", domain.ErrValidation)
	}
	if !input.PricePerHour.IsPositive() {
		return fmt.Errorf("%w: price per hour must be positive", domain.ErrValidation)
	}
	if input.EstimatedHours < 1 {
		return fmt.Errorf("%w: estimated hours must be at least 1", domain.ErrValidation)
	}
	if input.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduled time is required", domain.ErrValidation)
	}
	return nil
}

// requireUser loads the actor and checks its role.
func (e *Engine) requireUser(ctx context.Context, id, role string) (*domain.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: actor is required", domain.ErrValidation)
	}
	user, err := e.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		return nil, fmt.Errorf("%w: operation requires role %s", domain.ErrForbidden, role)
	}
	return user, nil
}

// commit records a committed transition on the audit trail and the change
// feed. The audit insert is best-effort; publication carries a detached
// snapshot so observers never see mutable store state.
func (e *Engine) commit(ctx context.Context, action string, order *domain.Order, actorID string) {
	if e.events != nil {
		event := &domain.OrderEvent{
			Action:     action,
			Order:      *order.Clone(),
			ActorID:    actorID,
			OccurredAt: order.UpdatedAt,
		}
		if err := e.events.Insert(ctx, event); err != nil {
			e.log.Warn().Err(err).Str("number", order.Number).Msg("failed to insert audit event")
		}
	}
	if e.hub != nil {
		e.hub.Publish(action, order, actorID)
	}
}

// generateOrderNumber returns a unique order number in the format ORD-XXXXXXXX.
func generateOrderNumber() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// fallback: use current nanoseconds
		return fmt.Sprintf("ORD-%08X", time.Now().UnixNano()&0xFFFFFFFF)
	}
	return fmt.Sprintf("ORD-%08X", b)
}

// scoreToRating converts a 1–5 integer score into the stored decimal rating.
func scoreToRating(score int) decimal.Decimal {
	return decimal.NewFromInt(int64(score))
}
