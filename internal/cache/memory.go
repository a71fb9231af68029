package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryProvider is an in-process Provider used when Valkey is not configured.
type MemoryProvider struct {
	mu   sync.Mutex
	data map[string]item
	now  func() time.Time
}

type item struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryProvider creates an empty in-memory cache.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{data: make(map[string]item), now: time.Now}
}

// Get returns a copy of the stored value, or ErrCacheMiss when absent or expired.
func (m *MemoryProvider) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.lookup(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return append([]byte(nil), it.value...), nil
}

// Set stores value with an optional TTL.
func (m *MemoryProvider) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(key, value, ttl)
	return nil
}

// Close drops all entries.
func (m *MemoryProvider) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]item)
	return nil
}

func (m *MemoryProvider) lookup(key string) (item, bool) {
	it, ok := m.data[key]
	if !ok {
		return item{}, false
	}
	if !it.expiresAt.IsZero() && m.now().After(it.expiresAt) {
		delete(m.data, key)
		return item{}, false
	}
	return it, true
}

func (m *MemoryProvider) store(key string, value []byte, ttl time.Duration) {
	var expires time.Time
	if ttl > 0 {
		expires = m.now().Add(ttl)
	}
	m.data[key] = item{value: append([]byte(nil), value...), expiresAt: expires}
}
