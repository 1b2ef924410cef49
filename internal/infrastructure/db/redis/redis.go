// Package redis establishes the connection backing the order-create
// idempotency store.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 5 * time.Second

// Config captures the connection settings for the idempotency backend.
type Config struct {
	Addr    string
	DB      int
	Timeout time.Duration
}

// Connect opens a Redis client and pings it before handing it out, so a
// misconfigured address fails at startup rather than on the first
// Idempotency-Key lookup. Timeout bounds the ping only; zero means the
// default.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}
