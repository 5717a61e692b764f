// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/auth/postgres"
	"github.com/holomush/authcore/internal/store"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

const minAdminPasswordLength = 8

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout time.Duration
	admin   adminParams
}

// adminParams describes the optional initial administrator.
type adminParams struct {
	email     string
	password  string
	firstName string
	lastName  string
}

func (a adminParams) requested() bool {
	return a.email != ""
}

func (a adminParams) validate() error {
	if err := auth.ValidateEmail(a.email); err != nil {
		return err
	}
	if len(a.password) < minAdminPasswordLength {
		return oops.Code("CONFIG_INVALID").
			With("key", "admin-password").
			Errorf("--admin-password must be at least %d characters", minAdminPasswordLength)
	}
	return nil
}

// roleEnsurer creates catalog roles that do not exist yet.
type roleEnsurer interface {
	Ensure(ctx context.Context, name auth.RoleName) (*auth.Role, error)
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the role catalog and an optional administrator",
		Long: `Applies pending migrations, ensures the ADMIN and DEFAULT roles exist and,
when --admin-email is given, creates an administrator holding only ADMIN.
This command is idempotent - it will not create duplicates if run multiple times.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	registerAdminFlags(cmd.Flags(), &cfg.admin)

	return cmd
}

func registerAdminFlags(fs *pflag.FlagSet, admin *adminParams) {
	fs.StringVar(&admin.email, "admin-email", "", "email of the initial administrator")
	fs.StringVar(&admin.password, "admin-password", "", "password of the initial administrator")
	fs.StringVar(&admin.firstName, "admin-first-name", "Admin", "first name of the initial administrator")
	fs.StringVar(&admin.lastName, "admin-last-name", "User", "last name of the initial administrator")
}

func runSeed(cmd *cobra.Command, cfg *seedConfig) error {
	if cfg.admin.requested() {
		if err := cfg.admin.validate(); err != nil {
			return err
		}
	}

	url, err := databaseURL()
	if err != nil {
		return err
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Running migrations...")
	if err := migrateUp(url); err != nil {
		return err
	}

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer pool.Close()

	return seedDirectory(ctx, cmd.OutOrStdout(),
		postgres.NewRoleRepository(pool),
		postgres.NewAccountRepository(pool),
		auth.NewArgon2idHasher(),
		cfg.admin,
	)
}

func migrateUp(url string) (err error) {
	m, err := newMigrator(url)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return m.Up()
}

// seedDirectory ensures every catalog role and, if requested, the initial
// administrator.
func seedDirectory(
	ctx context.Context,
	out io.Writer,
	roles roleEnsurer,
	accounts auth.AccountRepository,
	hasher auth.PasswordHasher,
	admin adminParams,
) error {
	var adminRole *auth.Role
	for _, name := range auth.AllRoleNames() {
		role, err := roles.Ensure(ctx, name)
		if err != nil {
			return oops.With("operation", "seed roles").Wrap(err)
		}
		if name == auth.RoleAdmin {
			adminRole = role
		}
		//nolint:errcheck // progress output
		fmt.Fprintf(out, "Role %s ready (%s)\n", role.Name, role.ID)
	}

	if !admin.requested() {
		return nil
	}
	return seedAdmin(ctx, out, accounts, hasher, *adminRole, admin)
}

func seedAdmin(
	ctx context.Context,
	out io.Writer,
	accounts auth.AccountRepository,
	hasher auth.PasswordHasher,
	role auth.Role,
	admin adminParams,
) error {
	email := auth.NormalizeEmail(admin.email)
	exists, err := accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return oops.With("operation", "check admin email").Wrap(err)
	}
	if exists {
		//nolint:errcheck // progress output
		fmt.Fprintf(out, "Admin %s already exists, skipping\n", email)
		return nil
	}

	hash, err := hasher.Hash(admin.password)
	if err != nil {
		return oops.With("operation", "hash admin password").Wrap(err)
	}
	account, err := auth.NewAccount(email, hash, admin.firstName, admin.lastName, role)
	if err != nil {
		return err
	}
	if err := accounts.Create(ctx, account); err != nil {
		if auth.HasCode(err, auth.CodeEmailAlreadyExists) {
			//nolint:errcheck // progress output
			fmt.Fprintf(out, "Admin %s already exists, skipping\n", email)
			return nil
		}
		return oops.With("operation", "create admin").Wrap(err)
	}

	//nolint:errcheck // progress output
	fmt.Fprintf(out, "Created admin %s (%s)\n", email, account.ID)
	return nil
}
