// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/authcore/internal/auth"
)

// MockRoleRepository is a mock of auth.RoleRepository.
type MockRoleRepository struct {
	mock.Mock
}

// NewMockRoleRepository creates a MockRoleRepository whose expectations are
// asserted when the test ends.
func NewMockRoleRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockRoleRepository {
	m := &MockRoleRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// GetByName provides a mock function.
func (m *MockRoleRepository) GetByName(ctx context.Context, name auth.RoleName) (*auth.Role, error) {
	ret := m.Called(ctx, name)
	var role *auth.Role
	if v := ret.Get(0); v != nil {
		role = v.(*auth.Role)
	}
	return role, ret.Error(1)
}

// FindByNames provides a mock function.
func (m *MockRoleRepository) FindByNames(ctx context.Context, names []auth.RoleName) ([]*auth.Role, error) {
	ret := m.Called(ctx, names)
	return rolesAt(ret, 0), ret.Error(1)
}

// List provides a mock function.
func (m *MockRoleRepository) List(ctx context.Context) ([]*auth.Role, error) {
	ret := m.Called(ctx)
	return rolesAt(ret, 0), ret.Error(1)
}

func rolesAt(ret mock.Arguments, i int) []*auth.Role {
	if v := ret.Get(i); v != nil {
		return v.([]*auth.Role)
	}
	return nil
}

var _ auth.RoleRepository = (*MockRoleRepository)(nil)
