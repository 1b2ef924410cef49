package handler

import (
	"time"

	"github.com/shopspring/decimal"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type createUserRequest struct {
	Name string `json:"name" validate:"required"`
	Role string `json:"role" validate:"required,oneof=dispatcher loader"`
}

type createOrderRequest struct {
	Address        string          `json:"address"         validate:"required"`
	ScheduledAt    time.Time       `json:"scheduled_at"    validate:"required"`
	Cargo          string          `json:"cargo"           validate:"required"`
	PricePerHour   decimal.Decimal `json:"price_per_hour"  validate:"required"`
	EstimatedHours int             `json:"estimated_hours" validate:"required,min=1"`
	Comment        string          `json:"comment"`
}

type rateOrderRequest struct {
	Score int `json:"score" validate:"required,min=1,max=5"`
}

// --- Response types ---
// Owned by the transport layer, intentionally separate from domain types so
// the JSON contract is not coupled to internal changes.

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type userRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type statusHistoryItemResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

type orderResponse struct {
	Number         string          `json:"number"`
	Address        string          `json:"address"`
	ScheduledAt    time.Time       `json:"scheduled_at"`
	Cargo          string          `json:"cargo"`
	PricePerHour   decimal.Decimal `json:"price_per_hour"`
	EstimatedHours int             `json:"estimated_hours"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Comment        string          `json:"comment,omitempty"`
	Status         string          `json:"status"`
	Dispatcher     userRef         `json:"dispatcher"`
	Worker         *userRef        `json:"worker,omitempty"`
	FormerWorker   *userRef        `json:"former_worker,omitempty"`
	Rating         *string         `json:"rating,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	// StatusHistory is included on the single-order view only.
	StatusHistory []statusHistoryItemResponse `json:"status_history,omitempty"`
}

type createOrderResponse struct {
	orderResponse
	// AlreadyExisted is true when the Idempotency-Key matched an existing order.
	AlreadyExisted bool `json:"already_existed,omitempty"`
}

type orderListResponse struct {
	Data  []orderResponse `json:"data"`
	Count int             `json:"count"`
}

type dispatcherBoardResponse struct {
	Available  []orderResponse `json:"available"`
	InProgress []orderResponse `json:"in_progress"`
}

type statsResponse struct {
	CompletedCount int             `json:"completed_count"`
	ActiveCount    int             `json:"active_count"`
	TotalEarnings  decimal.Decimal `json:"total_earnings"`
	AverageRating  *string         `json:"average_rating,omitempty"`
}
