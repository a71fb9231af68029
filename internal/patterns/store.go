package patterns

import (
	"context"
	"errors"
	"fmt"

	"github.com/miradorstack/flake-triage/internal/cache"
	"github.com/miradorstack/flake-triage/internal/models"
)

// CacheStore persists execution histories as JSON documents in a cache.Provider.
type CacheStore struct {
	cache cache.Provider
}

// NewCacheStore returns a Store backed by provider. Histories never expire.
func NewCacheStore(provider cache.Provider) *CacheStore {
	return &CacheStore{cache: provider}
}

// LoadHistory returns an empty history when none has been stored yet.
func (s *CacheStore) LoadHistory(ctx context.Context, project string) (models.ExecutionHistory, error) {
	var history models.ExecutionHistory
	err := cache.GetJSON(ctx, s.cache, cache.Key("history", project), &history)
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
		return models.ExecutionHistory{Tests: map[string]*models.TestHistory{}}, nil
	case err != nil:
		return models.ExecutionHistory{}, fmt.Errorf("load history: %w", err)
	}
	return history, nil
}

// SaveHistory overwrites the stored history of project.
func (s *CacheStore) SaveHistory(ctx context.Context, project string, history models.ExecutionHistory) error {
	return cache.SetJSON(ctx, s.cache, cache.Key("history", project), history, 0)
}

// StoreFunc adapts a pair of functions to the Store interface.
type StoreFunc struct {
	Load func(ctx context.Context, project string) (models.ExecutionHistory, error)
	Save func(ctx context.Context, project string, history models.ExecutionHistory) error
}

// LoadHistory implements Store.
func (f StoreFunc) LoadHistory(ctx context.Context, project string) (models.ExecutionHistory, error) {
	return f.Load(ctx, project)
}

// SaveHistory implements Store.
func (f StoreFunc) SaveHistory(ctx context.Context, project string, history models.ExecutionHistory) error {
	return f.Save(ctx, project, history)
}
