// Package redis connects the mock backend to an optional Redis instance
// holding the last consent seen per tenant and footprint.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"esbilla/internal/platform/config"
)

// DefaultConnectWait bounds how long New keeps pinging a server that is
// still starting.
const DefaultConnectWait = 10 * time.Second

type Client struct {
	*redis.Client
}

type connectSettings struct {
	wait time.Duration
}

type Option func(*connectSettings)

// WithConnectWait overrides DefaultConnectWait. Zero pings once.
func WithConnectWait(d time.Duration) Option {
	return func(s *connectSettings) { s.wait = d }
}

// New returns (nil, nil) when no URL is configured; callers then keep the
// in-memory store. Unset pool and timeout fields keep go-redis defaults.
func New(ctx context.Context, cfg config.RedisConfig, opts ...Option) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	settings := connectSettings{wait: DefaultConnectWait}
	for _, opt := range opts {
		opt(&settings)
	}

	ro, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	applyPool(ro, cfg)

	rdb := redis.NewClient(ro)
	if err := ping(ctx, rdb, settings.wait); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis unreachable at %s: %w", ro.Addr, err)
	}
	return &Client{Client: rdb}, nil
}

func applyPool(ro *redis.Options, cfg config.RedisConfig) {
	if cfg.PoolSize > 0 {
		ro.PoolSize = cfg.PoolSize
	}
	ro.MinIdleConns = cfg.MinIdleConns
	for dst, src := range map[*time.Duration]time.Duration{
		&ro.DialTimeout:  cfg.DialTimeout,
		&ro.ReadTimeout:  cfg.ReadTimeout,
		&ro.WriteTimeout: cfg.WriteTimeout,
	} {
		if src > 0 {
			*dst = src
		}
	}
}

func ping(ctx context.Context, rdb *redis.Client, wait time.Duration) error {
	if wait <= 0 {
		return rdb.Ping(ctx).Err()
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = wait
	return backoff.Retry(func() error {
		return rdb.Ping(ctx).Err()
	}, backoff.WithContext(b, ctx))
}

// Health pings the server once.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
