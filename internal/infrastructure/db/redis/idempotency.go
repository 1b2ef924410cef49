package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyTTL = 24 * time.Hour

// IdempotencyStore maps Idempotency-Key values to the order number created
// under that key. Key format: idem:<key>. Entries expire after
// idempotencyTTL: a replay beyond the window creates a fresh order.
type IdempotencyStore struct {
	client *redis.Client
}

// NewIdempotencyStore creates an IdempotencyStore wrapping the given Redis client.
func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Lookup returns the order number recorded for key, or "" when unseen.
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (string, error) {
	number, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("idempotency lookup: %w", err)
	}
	return number, nil
}

// Mark records that key produced the given order number (expires after idempotencyTTL).
func (s *IdempotencyStore) Mark(ctx context.Context, key, number string) error {
	return s.client.Set(ctx, s.key(key), number, idempotencyTTL).Err()
}

func (s *IdempotencyStore) key(key string) string {
	return "idem:" + key
}
