// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
)

// RoleStore keeps the role catalog in memory.
type RoleStore struct {
	mu    sync.RWMutex
	roles map[auth.RoleName]auth.Role
}

// NewRoleStore creates a RoleStore holding the given roles.
func NewRoleStore(roles ...auth.Role) *RoleStore {
	s := &RoleStore{roles: make(map[auth.RoleName]auth.Role, len(roles))}
	for _, r := range roles {
		s.roles[r.Name] = r
	}
	return s
}

// NewSeededRoleStore creates a RoleStore holding the whole catalog.
func NewSeededRoleStore() *RoleStore {
	s := NewRoleStore()
	for _, name := range auth.AllRoleNames() {
		s.Ensure(name)
	}
	return s
}

// Ensure adds the named role if it is missing and returns it.
func (s *RoleStore) Ensure(name auth.RoleName) auth.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.roles[name]; ok {
		return r
	}
	role, err := auth.NewRole(name)
	if err != nil {
		panic(err) // only catalog names reach here
	}
	s.roles[name] = *role
	return *role
}

// GetByName implements auth.RoleRepository.
func (s *RoleStore) GetByName(_ context.Context, name auth.RoleName) (*auth.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[name]
	if !ok {
		return nil, oops.Code(auth.CodeRoleNotFound).With("role", name.String()).Wrap(auth.ErrNotFound)
	}
	return &r, nil
}

// FindByNames implements auth.RoleRepository.
func (s *RoleStore) FindByNames(_ context.Context, names []auth.RoleName) ([]*auth.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*auth.Role, 0, len(names))
	for _, name := range names {
		if r, ok := s.roles[name]; ok {
			out = append(out, &r)
		}
	}
	return out, nil
}

// List implements auth.RoleRepository.
func (s *RoleStore) List(_ context.Context) ([]*auth.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*auth.Role, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, &r)
	}
	slices.SortFunc(out, func(a, b *auth.Role) int { return strings.Compare(string(a.Name), string(b.Name)) })
	return out, nil
}

var _ auth.RoleRepository = (*RoleStore)(nil)
