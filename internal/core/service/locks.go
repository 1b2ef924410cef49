package service

import (
	"hash/fnv"
	"sync"
)

const defaultLockShards = 64

// keyedLocks serializes operations per order number without a global lock:
// the order number hashes consistently onto a fixed set of mutexes, so two
// operations against the same order are mutually exclusive while operations
// against orders on different shards proceed concurrently.
type keyedLocks struct {
	shards []sync.Mutex
}

// newKeyedLocks creates a lock set with n shards.
// If n <= 0, defaultLockShards is used.
func newKeyedLocks(n int) *keyedLocks {
	if n <= 0 {
		n = defaultLockShards
	}
	return &keyedLocks{shards: make([]sync.Mutex, n)}
}

// Lock acquires the shard owning key and returns the unlock function.
func (l *keyedLocks) Lock(key string) func() {
	m := &l.shards[l.shardIndex(key)]
	m.Lock()
	return m.Unlock
}

// shardIndex maps an order number deterministically to a shard index.
func (l *keyedLocks) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()) % len(l.shards)
}
