package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrCacheMiss signals that a cache key was not found.
var ErrCacheMiss = errors.New("cache miss")

// keyPrefix namespaces every key written by flake-triage.
const keyPrefix = "flake-triage"

// Provider stores opaque values for registry snapshots, reports and failure history.
// A zero ttl keeps the value until it is overwritten.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Key joins parts into a namespaced cache key, e.g. "flake-triage:report:<id>".
func Key(parts ...string) string {
	return strings.Join(append([]string{keyPrefix}, parts...), ":")
}

// GetJSON decodes the value stored under key into out. Misses are returned as ErrCacheMiss.
func GetJSON(ctx context.Context, p Provider, key string, out any) error {
	data, err := p.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, p Provider, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return p.Set(ctx, key, data, ttl)
}

// NoopProvider never stores anything; every Get misses.
type NoopProvider struct{}

func (NoopProvider) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

func (NoopProvider) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NoopProvider) Close() error { return nil }
