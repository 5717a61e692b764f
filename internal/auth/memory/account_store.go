// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides in-process implementations of the auth stores for
// development servers and tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
)

// AccountStore keeps accounts in memory. It hands out copies, so callers
// never share state with the store.
type AccountStore struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]*auth.Account
	byEmail map[string]ulid.ULID
	order   []ulid.ULID
}

// NewAccountStore creates an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		byID:    make(map[ulid.ULID]*auth.Account),
		byEmail: make(map[string]ulid.ULID),
	}
}

// ExistsByEmail implements auth.AccountRepository.
func (s *AccountStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[auth.NormalizeEmail(email)]
	return ok, nil
}

// GetByEmail implements auth.AccountRepository.
func (s *AccountStore) GetByEmail(_ context.Context, email string) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return nil, oops.Code(auth.CodeAccountNotFound).With("email", email).Wrap(auth.ErrNotFound)
	}
	return s.byID[id].Clone(), nil
}

// GetByID implements auth.AccountRepository.
func (s *AccountStore) GetByID(_ context.Context, id ulid.ULID) (*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.byID[id]
	if !ok {
		return nil, oops.Code(auth.CodeAccountNotFound).With("account_id", id.String()).Wrap(auth.ErrNotFound)
	}
	return account.Clone(), nil
}

// Create implements auth.AccountRepository.
func (s *AccountStore) Create(_ context.Context, account *auth.Account) error {
	email := auth.NormalizeEmail(account.Email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return oops.Code(auth.CodeEmailAlreadyExists).
			With("email", email).
			Errorf("email %s is already registered", email)
	}
	if _, dup := s.byID[account.ID]; dup {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("account_id", account.ID.String()).
			Errorf("account id already exists")
	}

	stored := account.Clone()
	stored.Email = email
	s.byID[stored.ID] = stored
	s.byEmail[email] = stored.ID
	s.order = append(s.order, stored.ID)
	return nil
}

// UpdateRoles implements auth.AccountRepository using the account version as
// a compare-and-swap token.
func (s *AccountStore) UpdateRoles(_ context.Context, account *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.byID[account.ID]
	if !ok {
		return oops.Code(auth.CodeAccountNotFound).
			With("account_id", account.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	if stored.Version != account.Version {
		return oops.Code(auth.CodeConcurrentModification).
			With("account_id", account.ID.String()).
			With("expected_version", account.Version).
			With("actual_version", stored.Version).
			Errorf("account version mismatch")
	}

	account.Version++
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = time.Now().UTC()
	}
	stored.Roles = slices.Clone(account.Roles)
	stored.Version = account.Version
	stored.UpdatedAt = account.UpdatedAt
	return nil
}

// ListWithRoles implements auth.AccountRepository.
func (s *AccountStore) ListWithRoles(_ context.Context) ([]*auth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*auth.Account, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].Clone())
	}
	return out, nil
}

var _ auth.AccountRepository = (*AccountStore)(nil)
