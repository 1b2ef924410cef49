package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusAvailable  OrderStatus = "available"
	StatusTaken      OrderStatus = "taken"
	StatusInProgress OrderStatus = "in_progress"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// validTransitions defines the allowed state machine transitions.
// Completed and cancelled are terminal.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusAvailable:  {StatusTaken, StatusCancelled},
	StatusTaken:      {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

var (
	ErrValidation        = errors.New("invalid input")
	ErrOrderNotFound     = errors.New("order not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrOrderNotAvailable = errors.New("order no longer available")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyRated      = errors.New("order already rated")
	ErrConflict          = errors.New("conflicting update")
	ErrForbidden         = errors.New("access forbidden")
)

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s OrderStatus) Terminal() bool {
	return len(validTransitions[s]) == 0
}

// StatusHistoryEntry records a single status transition on an order.
type StatusHistoryEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Notes     string      `json:"notes,omitempty"`
}

// Order is the core aggregate root. Canonical order state lives in the
// order store; every other component derives its view from a read of it.
//
// Invariants held after every committed operation:
//   - WorkerID is non-empty iff Status is taken, in_progress or completed.
//   - FormerWorkerID records the detached assignment after a cancellation,
//     so the claim stays attributable once WorkerID is cleared.
//   - WorkerRating is non-nil only when Status is completed.
type Order struct {
	Number           string           `json:"number"`
	DispatcherID     string           `json:"dispatcher_id"`
	DispatcherName   string           `json:"dispatcher_name"`
	Address          string           `json:"address"`
	ScheduledAt      time.Time        `json:"scheduled_at"`
	Cargo            string           `json:"cargo"`
	PricePerHour     decimal.Decimal  `json:"price_per_hour"`
	EstimatedHours   int              `json:"estimated_hours"`
	Comment          string           `json:"comment,omitempty"`
	Status           OrderStatus      `json:"status"`
	WorkerID         string           `json:"worker_id,omitempty"`
	WorkerName       string           `json:"worker_name,omitempty"`
	FormerWorkerID   string           `json:"former_worker_id,omitempty"`
	FormerWorkerName string           `json:"former_worker_name,omitempty"`
	WorkerRating     *decimal.Decimal `json:"worker_rating,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`

	StatusHistory []StatusHistoryEntry `json:"status_history,omitempty"`
}

// TotalPrice returns PricePerHour × EstimatedHours.
func (o *Order) TotalPrice() decimal.Decimal {
	return o.PricePerHour.Mul(decimal.NewFromInt(int64(o.EstimatedHours)))
}

// Assigned reports whether a worker currently holds the order.
func (o *Order) Assigned() bool {
	return o.WorkerID != ""
}

// Clone returns a deep copy, so callers can hand out snapshots without
// exposing mutable references into the store.
func (o *Order) Clone() *Order {
	c := *o
	if o.WorkerRating != nil {
		r := *o.WorkerRating
		c.WorkerRating = &r
	}
	if o.StatusHistory != nil {
		c.StatusHistory = make([]StatusHistoryEntry, len(o.StatusHistory))
		copy(c.StatusHistory, o.StatusHistory)
	}
	return &c
}
