// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks holds testify mocks for the auth interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/holomush/authcore/internal/auth"
)

// MockAccountRepository is a mock of auth.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

// NewMockAccountRepository creates a MockAccountRepository whose expectations
// are asserted when the test ends.
func NewMockAccountRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// ExistsByEmail provides a mock function.
func (m *MockAccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ret := m.Called(ctx, email)
	return ret.Bool(0), ret.Error(1)
}

// GetByEmail provides a mock function.
func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	ret := m.Called(ctx, email)
	return accountAt(ret, 0), ret.Error(1)
}

// GetByID provides a mock function.
func (m *MockAccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	ret := m.Called(ctx, id)
	return accountAt(ret, 0), ret.Error(1)
}

// Create provides a mock function.
func (m *MockAccountRepository) Create(ctx context.Context, account *auth.Account) error {
	ret := m.Called(ctx, account)
	return ret.Error(0)
}

// UpdateRoles provides a mock function.
func (m *MockAccountRepository) UpdateRoles(ctx context.Context, account *auth.Account) error {
	ret := m.Called(ctx, account)
	return ret.Error(0)
}

// ListWithRoles provides a mock function.
func (m *MockAccountRepository) ListWithRoles(ctx context.Context) ([]*auth.Account, error) {
	ret := m.Called(ctx)
	var accounts []*auth.Account
	if v := ret.Get(0); v != nil {
		accounts = v.([]*auth.Account)
	}
	return accounts, ret.Error(1)
}

func accountAt(ret mock.Arguments, i int) *auth.Account {
	if v := ret.Get(i); v != nil {
		return v.(*auth.Account)
	}
	return nil
}

var _ auth.AccountRepository = (*MockAccountRepository)(nil)
