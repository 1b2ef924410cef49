package memory

import (
	"context"
	"sync"
)

// IdempotencyStore maps idempotency keys to order numbers. Entries live for
// the process lifetime; the Redis implementation applies a TTL instead.
type IdempotencyStore struct {
	mu   sync.RWMutex
	keys map[string]string
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{keys: make(map[string]string)}
}

func (s *IdempotencyStore) Lookup(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[key], nil
}

func (s *IdempotencyStore) Mark(_ context.Context, key, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = number
	return nil
}
