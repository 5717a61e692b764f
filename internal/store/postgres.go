// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store opens the PostgreSQL pool and manages the account schema.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

const (
	defaultConnectRetries = 5
	defaultConnectBackoff = 250 * time.Millisecond
	maxConnectBackoff     = 5 * time.Second
)

type connectConfig struct {
	retries  uint64
	backoff  time.Duration
	maxConns int32
}

// ConnectOption tunes Connect.
type ConnectOption func(*connectConfig)

// WithConnectRetries sets how many times a failed ping is retried.
func WithConnectRetries(n uint64) ConnectOption {
	return func(c *connectConfig) { c.retries = n }
}

// WithConnectBackoff sets the first retry delay. Later delays grow
// exponentially up to five seconds.
func WithConnectBackoff(d time.Duration) ConnectOption {
	return func(c *connectConfig) { c.backoff = d }
}

// WithMaxConns caps the pool size. Zero keeps the pgxpool default.
func WithMaxConns(n int32) ConnectOption {
	return func(c *connectConfig) { c.maxConns = n }
}

// Connect builds a pool for dsn and waits until the server answers a ping,
// retrying with exponential backoff. The pool is closed on failure.
func Connect(ctx context.Context, dsn string, opts ...ConnectOption) (*pgxpool.Pool, error) {
	cfg := connectConfig{retries: defaultConnectRetries, backoff: defaultConnectBackoff}
	for _, opt := range opts {
		opt(&cfg)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("STORE_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if cfg.maxConns > 0 {
		poolCfg.MaxConns = cfg.maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("STORE_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.WithCappedDuration(maxConnectBackoff, retry.NewExponential(cfg.backoff))
	attempts := 0
	err = retry.Do(ctx, retry.WithMaxRetries(cfg.retries, backoff), func(ctx context.Context) error {
		attempts++
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("STORE_CONNECT_FAILED").
			With("operation", "ping database").
			With("host", poolCfg.ConnConfig.Host).
			With("attempts", attempts).
			Wrap(err)
	}
	return pool, nil
}
