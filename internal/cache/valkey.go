package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gomodule/redigo/redis"
)

// ValkeyProvider implements Provider backed by a Valkey/Redis-compatible server.
type ValkeyProvider struct {
	cfg  ValkeyConfig
	pool *redis.Pool
}

// ValkeyConfig holds connection parameters for the Valkey cluster.
type ValkeyConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxRetries   int
	MaxIdle      int
	IdleTimeout  time.Duration
	TLS          bool
}

// NewValkeyProvider creates a Provider using the supplied configuration. It performs a ping
// against the target to fail fast when credentials or connectivity are incorrect.
func NewValkeyProvider(cfg ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}

	normaliseConfig(&cfg)
	provider := &ValkeyProvider{cfg: cfg}
	provider.pool = &redis.Pool{
		MaxIdle:     cfg.MaxIdle,
		IdleTimeout: cfg.IdleTimeout,
		DialContext: provider.dial,
		TestOnBorrow: func(c redis.Conn, idleSince time.Time) error {
			if time.Since(idleSince) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := provider.ping(ctx); err != nil {
		_ = provider.pool.Close()
		return nil, fmt.Errorf("valkey ping: %w", err)
	}

	return provider, nil
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := p.withConn(ctx, func(conn redis.Conn) error {
		value, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", key))
		if errors.Is(err, redis.ErrNil) {
			return ErrCacheMiss
		}
		payload = value
		return err
	})
	return payload, err
}

// Set stores bytes with the provided TTL.
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return p.withConn(ctx, func(conn redis.Conn) error {
		args := redis.Args{key, value}
		if ttl > 0 {
			args = args.Add("PX", ttl.Milliseconds())
		}
		reply, err := redis.String(redis.DoContext(conn, ctx, "SET", args...))
		if err != nil {
			return err
		}
		if reply != "OK" {
			return fmt.Errorf("unexpected SET response: %s", reply)
		}
		return nil
	})
}

// Close releases pooled connections.
func (p *ValkeyProvider) Close() error {
	if p.pool == nil {
		return nil
	}
	return p.pool.Close()
}

func (p *ValkeyProvider) ping(ctx context.Context) error {
	return p.withConn(ctx, func(conn redis.Conn) error {
		reply, err := redis.String(redis.DoContext(conn, ctx, "PING"))
		if err != nil {
			return err
		}
		if reply != "PONG" {
			return fmt.Errorf("unexpected PING response: %s", reply)
		}
		return nil
	})
}

func (p *ValkeyProvider) withConn(ctx context.Context, fn func(redis.Conn) error) error {
	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := p.pool.GetContext(ctx)
		if err == nil {
			err = fn(conn)
			_ = conn.Close()
		}
		if err == nil || errors.Is(err, ErrCacheMiss) {
			return err
		}

		lastErr = err
		if !shouldRetry(err) || attempt == p.cfg.MaxRetries-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
	return lastErr
}

func (p *ValkeyProvider) dial(ctx context.Context) (redis.Conn, error) {
	opts := []redis.DialOption{
		redis.DialConnectTimeout(p.cfg.DialTimeout),
		redis.DialReadTimeout(p.cfg.ReadTimeout),
		redis.DialWriteTimeout(p.cfg.WriteTimeout),
	}
	if p.cfg.Password != "" {
		opts = append(opts, redis.DialPassword(p.cfg.Password))
		if p.cfg.Username != "" {
			opts = append(opts, redis.DialUsername(p.cfg.Username))
		}
	}
	if p.cfg.DB > 0 {
		opts = append(opts, redis.DialDatabase(p.cfg.DB))
	}
	if p.cfg.TLS {
		opts = append(opts,
			redis.DialUseTLS(true),
			redis.DialTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12, ServerName: hostForTLS(p.cfg.Addr)}),
		)
	}
	return redis.DialContext(ctx, "tcp", p.cfg.Addr, opts...)
}

func normaliseConfig(cfg *ValkeyConfig) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 500 * time.Millisecond
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = 4
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
}

func backoff(attempt int) time.Duration {
	base := 25 * time.Millisecond
	return time.Duration(1<<attempt) * base
}

func shouldRetry(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func hostForTLS(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
