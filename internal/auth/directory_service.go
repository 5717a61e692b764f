// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DirectoryService reads accounts and changes their role memberships.
type DirectoryService struct {
	accounts AccountRepository
	roles    RoleRepository
	logger   *slog.Logger
}

// NewDirectoryService creates a DirectoryService that logs to slog.Default.
func NewDirectoryService(accounts AccountRepository, roles RoleRepository) (*DirectoryService, error) {
	return NewDirectoryServiceWithLogger(accounts, roles, slog.Default())
}

// NewDirectoryServiceWithLogger creates a DirectoryService with the provided logger.
func NewDirectoryServiceWithLogger(accounts AccountRepository, roles RoleRepository, logger *slog.Logger) (*DirectoryService, error) {
	if accounts == nil {
		return nil, oops.Errorf("accounts repository is required")
	}
	if roles == nil {
		return nil, oops.Errorf("roles repository is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &DirectoryService{accounts: accounts, roles: roles, logger: logger}, nil
}

// ListAll returns every account in creation order.
func (d *DirectoryService) ListAll(ctx context.Context) ([]Summary, error) {
	accounts, err := d.accounts.ListWithRoles(ctx)
	if err != nil {
		return nil, oops.Code("DIRECTORY_LIST_FAILED").Wrap(err)
	}
	out := make([]Summary, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, Summarize(a))
	}
	return out, nil
}

// GetByID returns the account with the given ID.
func (d *DirectoryService) GetByID(ctx context.Context, id ulid.ULID) (*Summary, error) {
	account, err := d.load(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := Summarize(account)
	return &summary, nil
}

// GetByEmail returns the account registered under email (case-insensitive).
func (d *DirectoryService) GetByEmail(ctx context.Context, email string) (*Summary, error) {
	account, err := d.accounts.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code(CodeAccountNotFound).
			With("email", email).
			Errorf("account not found")
	}
	if err != nil {
		return nil, oops.Code("DIRECTORY_LOOKUP_FAILED").
			With("email", email).
			Wrap(err)
	}
	summary := Summarize(account)
	return &summary, nil
}

// AddRoles grants every named role to the account. If any of them is already
// held nothing is granted.
func (d *DirectoryService) AddRoles(ctx context.Context, id ulid.ULID, names []string) (*Summary, error) {
	return d.mutateRoles(ctx, id, names, "add", (*Account).GrantRoles)
}

// RemoveRoles revokes every named role from the account. If any of them is
// not held, or the account would end up with no role, nothing is revoked.
func (d *DirectoryService) RemoveRoles(ctx context.Context, id ulid.ULID, names []string) (*Summary, error) {
	return d.mutateRoles(ctx, id, names, "remove", (*Account).RevokeRoles)
}

func (d *DirectoryService) mutateRoles(
	ctx context.Context,
	id ulid.ULID,
	names []string,
	op string,
	apply func(*Account, []Role) error,
) (*Summary, error) {
	account, err := d.load(ctx, id)
	if err != nil {
		return nil, err
	}

	roles, err := d.resolveRoles(ctx, names)
	if err != nil {
		return nil, err
	}

	updated := account.Clone()
	if err := apply(updated, roles); err != nil {
		return nil, err
	}

	if err := d.accounts.UpdateRoles(ctx, updated); err != nil {
		if HasCode(err, CodeConcurrentModification) || errors.Is(err, ErrNotFound) {
			return nil, d.translateUpdateErr(id, err)
		}
		return nil, oops.Code("DIRECTORY_UPDATE_FAILED").
			With("account_id", id.String()).
			With("operation", op).
			Wrap(err)
	}

	d.logger.InfoContext(ctx, "account roles changed",
		"account_id", id.String(),
		"operation", op,
		"roles", updated.RoleNames(),
	)
	summary := Summarize(updated)
	return &summary, nil
}

// resolveRoles parses names as a set and resolves every member from the
// catalog. An empty set or any unresolved name is CodeRoleNotFound.
func (d *DirectoryService) resolveRoles(ctx context.Context, names []string) ([]Role, error) {
	parsed, err := ParseRoleNames(names)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, oops.Code(CodeRoleNotFound).Errorf("no roles requested")
	}

	found, err := d.roles.FindByNames(ctx, parsed)
	if err != nil {
		return nil, oops.Code("DIRECTORY_ROLE_LOOKUP_FAILED").Wrap(err)
	}
	if len(found) != len(parsed) {
		return nil, oops.Code(CodeRoleNotFound).
			With("requested", parsed).
			Errorf("one or more roles not found")
	}

	roles := make([]Role, len(found))
	for i, r := range found {
		roles[i] = *r
	}
	return roles, nil
}

func (d *DirectoryService) load(ctx context.Context, id ulid.ULID) (*Account, error) {
	account, err := d.accounts.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, accountNotFound(id)
	}
	if err != nil {
		return nil, oops.Code("DIRECTORY_LOOKUP_FAILED").
			With("account_id", id.String()).
			Wrap(err)
	}
	return account, nil
}

func (d *DirectoryService) translateUpdateErr(id ulid.ULID, err error) error {
	if errors.Is(err, ErrNotFound) {
		return accountNotFound(id)
	}
	return oops.Code(CodeConcurrentModification).
		With("account_id", id.String()).
		Errorf("account was modified concurrently, retry the request")
}

func accountNotFound(id ulid.ULID) error {
	return oops.Code(CodeAccountNotFound).
		With("account_id", id.String()).
		Errorf("account %s not found", id)
}
