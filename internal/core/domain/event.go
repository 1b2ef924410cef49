package domain

import "time"

// Event actions, one per committed engine operation.
const (
	ActionCreated   = "created"
	ActionTaken     = "taken"
	ActionStarted   = "started"
	ActionCompleted = "completed"
	ActionCancelled = "cancelled"
	ActionRated     = "rated"
)

// OrderEvent describes one committed transition. Seq is assigned in commit
// order while the per-order arbitration section is still held, so events
// for the same order number are always observed in the order they were
// applied to the store. Order is a detached snapshot, never a live pointer.
type OrderEvent struct {
	Seq        uint64    `json:"seq"`
	Action     string    `json:"action"`
	Order      Order     `json:"order"`
	ActorID    string    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
