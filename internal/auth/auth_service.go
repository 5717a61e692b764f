// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// TokenTypeBearer is the token type reported with every issued token.
const TokenTypeBearer = "Bearer"

// RegisterRequest carries the fields needed to open an account.
type RegisterRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthResult is returned by a successful registration or login.
type AuthResult struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
	Account   Summary
}

// Service registers accounts and logs them in.
type Service struct {
	accounts AccountRepository
	roles    RoleRepository
	hasher   PasswordHasher
	tokens   *TokenService
	authn    Authenticator
	logger   *slog.Logger
}

// NewService creates a Service that logs to slog.Default.
func NewService(accounts AccountRepository, roles RoleRepository, hasher PasswordHasher, tokens *TokenService) (*Service, error) {
	return NewServiceWithLogger(accounts, roles, hasher, tokens, slog.Default())
}

// NewServiceWithLogger creates a Service with the provided logger.
func NewServiceWithLogger(
	accounts AccountRepository,
	roles RoleRepository,
	hasher PasswordHasher,
	tokens *TokenService,
	logger *slog.Logger,
) (*Service, error) {
	if roles == nil {
		return nil, oops.Errorf("roles repository is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token service is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	authn, err := NewPasswordAuthenticator(accounts, hasher)
	if err != nil {
		return nil, err
	}
	return &Service{
		accounts: accounts,
		roles:    roles,
		hasher:   hasher,
		tokens:   tokens,
		authn:    authn,
		logger:   logger,
	}, nil
}

// Register creates an account holding the DEFAULT role and issues a token
// for it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if err := ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	email := NormalizeEmail(req.Email)

	exists, err := s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "check email").
			Wrap(err)
	}
	if exists {
		return nil, emailTaken(email)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	role, err := s.roles.GetByName(ctx, RoleDefault)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeRoleNotFound).
				With(faultKey, faultConfiguration).
				With("role", RoleDefault.String()).
				Errorf("role %s is missing from the catalog", RoleDefault)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "resolve default role").
			Wrap(err)
	}

	account, err := NewAccount(email, hash, req.FirstName, req.LastName, *role)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if HasCode(err, CodeEmailAlreadyExists) {
			return nil, emailTaken(email)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "account registered", "account_id", account.ID.String())
	return s.issue(account)
}

// Login verifies credentials and issues a token. Every credential failure
// yields the same CodeInvalidCredentials error.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	principal, err := s.authn.Authenticate(ctx, email, password)
	if err != nil {
		if HasCode(err, CodeInvalidCredentials) {
			s.logger.DebugContext(ctx, "login rejected")
		}
		return nil, err
	}

	account, ok := principal.(*Account)
	if !ok {
		account, err = s.accounts.GetByID(ctx, principal.PrincipalID())
		if errors.Is(err, ErrNotFound) {
			return nil, invalidCredentials()
		}
		if err != nil {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "load account").
				Wrap(err)
		}
	}

	s.logger.InfoContext(ctx, "account logged in", "account_id", account.ID.String())
	return s.issue(account)
}

// CurrentAccount returns the account whose verified subject is on ctx, or
// nil when the caller is anonymous or the account no longer exists.
func (s *Service) CurrentAccount(ctx context.Context) (*Account, error) {
	subject, ok := SubjectFromContext(ctx)
	if !ok {
		return nil, nil
	}
	id, err := ulid.Parse(subject)
	if err != nil {
		return nil, nil //nolint:nilerr // a foreign subject resolves to no account
	}
	account, err := s.accounts.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("AUTH_CURRENT_ACCOUNT_FAILED").
			With("account_id", subject).
			Wrap(err)
	}
	return account, nil
}

// Tokens returns the token service used to sign tokens.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

func (s *Service) issue(account *Account) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(account.ID.String(), map[string]any{
		ClaimEmail: account.Email,
		ClaimRoles: account.RoleNames(),
	})
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:     token,
		TokenType: TokenTypeBearer,
		ExpiresAt: expiresAt,
		Account:   Summarize(account),
	}, nil
}

func emailTaken(email string) error {
	return oops.Code(CodeEmailAlreadyExists).
		With("email", email).
		Errorf("email %s is already registered", email)
}
