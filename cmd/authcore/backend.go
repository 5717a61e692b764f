// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/auth/memory"
	"github.com/holomush/authcore/internal/auth/postgres"
	"github.com/holomush/authcore/internal/config"
	"github.com/holomush/authcore/internal/observability"
	"github.com/holomush/authcore/internal/store"
)

// backend holds the repositories the services run on.
type backend struct {
	accounts auth.AccountRepository
	roles    *auth.CachedRoleRepository
	ready    observability.ReadinessChecker
	close    func()
}

// openBackend builds the repositories selected by cfg.Store.Driver.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if cfg.Store.Driver == config.DriverMemory {
		return &backend{
			accounts: memory.NewAccountStore(),
			roles:    auth.NewCachedRoleRepository(memory.NewSeededRoleStore(), cfg.RoleCache.Size, cfg.RoleCache.TTL),
			close:    func() {},
		}, nil
	}

	pool, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &backend{
		accounts: postgres.NewAccountRepository(pool),
		roles:    auth.NewCachedRoleRepository(postgres.NewRoleRepository(pool), cfg.RoleCache.Size, cfg.RoleCache.TTL),
		ready:    pool.Ping,
		close:    pool.Close,
	}, nil
}

// bootstrapAdmin creates the administrator on an open backend. The ADMIN
// role must already exist, which holds for the seeded memory store and for
// a migrated database.
func bootstrapAdmin(ctx context.Context, out io.Writer, be *backend, hasher auth.PasswordHasher, admin adminParams) error {
	role, err := be.roles.GetByName(ctx, auth.RoleAdmin)
	if err != nil {
		return oops.With("operation", "load admin role").Wrap(err)
	}
	return seedAdmin(ctx, out, be.accounts, hasher, *role, admin)
}

func connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	return store.Connect(ctx, cfg.Database.URL,
		store.WithConnectRetries(cfg.Database.ConnectRetries),
		store.WithMaxConns(cfg.Database.MaxConns),
	)
}
