package ports

import "context"

// IdempotencyStore maps client-supplied idempotency keys to the order
// number created under that key, so a replayed create returns the original
// order instead of posting a duplicate.
type IdempotencyStore interface {
	// Lookup returns the order number recorded for key, or "" when unseen.
	Lookup(ctx context.Context, key string) (string, error)
	// Mark records that key produced the given order number.
	Mark(ctx context.Context, key, number string) error
}
