// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"slices"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// RoleName is a member of the closed role catalog.
type RoleName string

// Catalog role names.
const (
	RoleAdmin   RoleName = "ADMIN"
	RoleDefault RoleName = "DEFAULT"
)

// AllRoleNames returns every role name in the catalog, sorted.
func AllRoleNames() []RoleName {
	return []RoleName{RoleAdmin, RoleDefault}
}

// String implements fmt.Stringer.
func (n RoleName) String() string {
	return string(n)
}

// Valid reports whether n is a member of the catalog.
func (n RoleName) Valid() bool {
	return slices.Contains(AllRoleNames(), n)
}

// ParseRoleName maps an external string to a catalog role name.
// Matching is case-insensitive after trimming surrounding whitespace.
func ParseRoleName(s string) (RoleName, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return "", oops.Code(CodeInvalidRoleName).Errorf("role name cannot be empty")
	}
	name := RoleName(strings.ToUpper(trimmed))
	if !name.Valid() {
		return "", oops.Code(CodeInvalidRoleName).
			With("role", s).
			Errorf("invalid role name: %s", s)
	}
	return name, nil
}

// ParseRoleNames parses every name and returns the distinct results in
// catalog order. A single invalid entry fails the whole set.
func ParseRoleNames(names []string) ([]RoleName, error) {
	seen := make(map[RoleName]struct{}, len(names))
	for _, s := range names {
		name, err := ParseRoleName(s)
		if err != nil {
			return nil, err
		}
		seen[name] = struct{}{}
	}

	parsed := make([]RoleName, 0, len(seen))
	for _, name := range AllRoleNames() {
		if _, ok := seen[name]; ok {
			parsed = append(parsed, name)
		}
	}
	return parsed, nil
}

// Role is a catalog entry. Roles are reference data shared by many accounts.
type Role struct {
	ID   ulid.ULID
	Name RoleName
}

// NewRole creates a Role with a fresh ID.
func NewRole(name RoleName) (*Role, error) {
	if !name.Valid() {
		return nil, oops.Code(CodeInvalidRoleName).
			With("role", string(name)).
			Errorf("invalid role name: %s", name)
	}
	return &Role{ID: ulid.Make(), Name: name}, nil
}

// RoleRepository resolves catalog roles.
type RoleRepository interface {
	// GetByName retrieves a role by name.
	// Returns ErrNotFound if the catalog has no such role.
	GetByName(ctx context.Context, name RoleName) (*Role, error)

	// FindByNames returns the roles that exist for the given names.
	// Unknown names are silently omitted; callers compare cardinality.
	FindByNames(ctx context.Context, names []RoleName) ([]*Role, error)

	// List returns the full catalog ordered by name.
	List(ctx context.Context) ([]*Role, error)
}
