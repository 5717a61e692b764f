// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
)

// RoleRepository implements auth.RoleRepository using PostgreSQL.
type RoleRepository struct {
	pool poolIface
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(pool poolIface) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// GetByName retrieves a role by name.
func (r *RoleRepository) GetByName(ctx context.Context, name auth.RoleName) (*auth.Role, error) {
	var id, stored string
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM roles WHERE name = $1`, string(name)).Scan(&id, &stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(auth.CodeRoleNotFound).
			With("role", name.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ROLE_GET_FAILED").
			With("operation", "get role by name").
			With("role", name.String()).
			Wrap(err)
	}
	return makeRole(id, stored)
}

// FindByNames returns the roles matching names, ordered by name. Names with
// no matching role are left out.
func (r *RoleRepository) FindByNames(ctx context.Context, names []auth.RoleName) ([]*auth.Role, error) {
	wanted := make([]string, len(names))
	for i, n := range names {
		wanted[i] = string(n)
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM roles WHERE name = ANY($1) ORDER BY name`, wanted)
	if err != nil {
		return nil, oops.Code("ROLE_FIND_FAILED").
			With("operation", "find roles by name").
			Wrap(err)
	}
	return collectRoles(rows)
}

// List returns the whole catalog ordered by name.
func (r *RoleRepository) List(ctx context.Context) ([]*auth.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM roles ORDER BY name`)
	if err != nil {
		return nil, oops.Code("ROLE_LIST_FAILED").
			With("operation", "list roles").
			Wrap(err)
	}
	return collectRoles(rows)
}

// Ensure inserts the role if the catalog lacks it and returns the stored
// record. It is safe to call repeatedly.
func (r *RoleRepository) Ensure(ctx context.Context, name auth.RoleName) (*auth.Role, error) {
	role, err := auth.NewRole(name)
	if err != nil {
		return nil, err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO roles (id, name) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		role.ID.String(), string(role.Name),
	)
	if err != nil {
		return nil, oops.Code("ROLE_ENSURE_FAILED").
			With("operation", "insert role").
			With("role", name.String()).
			Wrap(err)
	}
	return r.GetByName(ctx, name)
}

func collectRoles(rows pgx.Rows) ([]*auth.Role, error) {
	defer rows.Close()

	var roles []*auth.Role
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, oops.Code("ROLE_SCAN_FAILED").
				With("operation", "scan role").
				Wrap(err)
		}
		role, err := makeRole(id, name)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ROLE_SCAN_FAILED").
			With("operation", "iterate roles").
			Wrap(err)
	}
	return roles, nil
}

func makeRole(idStr, name string) (*auth.Role, error) {
	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ROLE_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	roleName := auth.RoleName(name)
	if !roleName.Valid() {
		return nil, oops.Code("ROLE_UNKNOWN_NAME").
			With("role", name).
			Errorf("stored role %q is not in the catalog", name)
	}
	return &auth.Role{ID: id, Name: roleName}, nil
}

// Compile-time interface check.
var _ auth.RoleRepository = (*RoleRepository)(nil)
