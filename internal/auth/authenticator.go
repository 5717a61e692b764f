// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// invalidCredentialsMessage is shared by every credential failure so callers
// cannot tell an unknown email from a wrong password.
const invalidCredentialsMessage = "invalid email or password"

// dummyPasswordHash is verified when no account matches, keeping the response
// time close to that of a real verification. It matches no password.
//
//nolint:gosec // G101: intentionally fake hash, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Authenticator checks credentials and resolves the matching principal.
type Authenticator interface {
	// Authenticate returns the principal owning the credentials.
	// Any credential failure is CodeInvalidCredentials.
	Authenticate(ctx context.Context, email, password string) (Principal, error)
}

// PasswordAuthenticator authenticates against stored password hashes.
type PasswordAuthenticator struct {
	accounts AccountRepository
	hasher   PasswordHasher
}

// NewPasswordAuthenticator creates a PasswordAuthenticator.
func NewPasswordAuthenticator(accounts AccountRepository, hasher PasswordHasher) (*PasswordAuthenticator, error) {
	if accounts == nil {
		return nil, oops.Errorf("accounts repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &PasswordAuthenticator{accounts: accounts, hasher: hasher}, nil
}

// Authenticate looks the account up by email and verifies the password.
// A hash is always verified, even when the account does not exist.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (Principal, error) {
	account, err := a.accounts.GetByEmail(ctx, NormalizeEmail(email))
	target := dummyPasswordHash
	switch {
	case err == nil:
		target = account.PasswordHash
	case errors.Is(err, ErrNotFound):
		account = nil
	default:
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	valid, verifyErr := a.hasher.Verify(password, target)
	if account == nil || verifyErr != nil || !valid || password == "" {
		return nil, invalidCredentials()
	}
	return account, nil
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Errorf(invalidCredentialsMessage)
}

var _ Authenticator = (*PasswordAuthenticator)(nil)
