// Package redis dials the Redis instance backing the verification rate
// limiter. Redis is optional: without it the gateway falls back to the
// in-memory limiter, which does not survive restarts or span replicas.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"bdivp/internal/platform/config"
)

// Client wraps go-redis with a health check for the readiness endpoint.
type Client struct {
	*redis.Client
}

// New connects using the configured URL. An empty URL returns (nil, nil);
// callers treat that as "rate limit in memory".
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	// Sliding-window checks sit on the hot verification path, so pool and
	// timeout settings come from config rather than go-redis defaults.
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)

	// Fail startup rather than serving with a limiter that cannot count.
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health reports whether the connection still answers.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.Client.Close()
}
