package repo

import (
	"context"
	"sync"
	"time"

	"github.com/miradorstack/flake-triage/internal/cache"
)

// recordingCache wraps an in-memory provider and remembers the TTL of each write.
type recordingCache struct {
	*cache.MemoryProvider

	mu   sync.Mutex
	ttls map[string]time.Duration
}

func newRecordingCache() *recordingCache {
	return &recordingCache{MemoryProvider: cache.NewMemoryProvider(), ttls: make(map[string]time.Duration)}
}

func (c *recordingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.ttls[key] = ttl
	c.mu.Unlock()
	return c.MemoryProvider.Set(ctx, key, value, ttl)
}

func (c *recordingCache) ttl(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttls[key]
}
