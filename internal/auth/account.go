// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"net/mail"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MaxNameLength bounds first and last names.
const MaxNameLength = 100

// Account is a registered identity with credentials and role memberships.
type Account struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Roles        []Role // sorted by name, no duplicates
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the narrow view of an account that authentication needs.
type Principal interface {
	PrincipalID() ulid.ULID
	PrincipalEmail() string
	PrincipalPasswordHash() string
	RoleNames() []RoleName
}

// NormalizeEmail trims and lower-cases an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is a bare address such as "a@b.com".
func ValidateEmail(email string) error {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return oops.Code(CodeInvalidEmail).Errorf("email cannot be empty")
	}
	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized {
		return oops.Code(CodeInvalidEmail).
			With("email", email).
			Errorf("email is not a valid address")
	}
	return nil
}

func validateName(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return oops.Code(CodeInvalidName).
			With("field", field).
			Errorf("%s cannot be empty", field)
	}
	if utf8.RuneCountInString(value) > MaxNameLength {
		return oops.Code(CodeInvalidName).
			With("field", field).
			With("max", MaxNameLength).
			Errorf("%s must be at most %d characters", field, MaxNameLength)
	}
	return nil
}

// NewAccount creates a validated Account holding the given roles.
// The email is normalized and a fresh ID is assigned.
func NewAccount(email, passwordHash, firstName, lastName string, roles ...Role) (*Account, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeInvalidPasswordHash).Errorf("password hash cannot be empty")
	}
	if err := validateName("first name", firstName); err != nil {
		return nil, err
	}
	if err := validateName("last name", lastName); err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, oops.Code(CodeInvalidRoles).Errorf("account must hold at least one role")
	}

	now := time.Now().UTC()
	account := &Account{
		ID:           ulid.Make(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	account.setRoles(roles)
	return account, nil
}

// PrincipalID implements Principal.
func (a *Account) PrincipalID() ulid.ULID { return a.ID }

// PrincipalEmail implements Principal.
func (a *Account) PrincipalEmail() string { return a.Email }

// PrincipalPasswordHash implements Principal.
func (a *Account) PrincipalPasswordHash() string { return a.PasswordHash }

// RoleNames returns the names of the roles held, sorted.
func (a *Account) RoleNames() []RoleName {
	names := make([]RoleName, len(a.Roles))
	for i, r := range a.Roles {
		names[i] = r.Name
	}
	return names
}

// HasRole reports whether the account holds the named role.
func (a *Account) HasRole(name RoleName) bool {
	return slices.ContainsFunc(a.Roles, func(r Role) bool { return r.Name == name })
}

// Clone returns a deep copy, so callers can mutate roles without touching
// the original.
func (a *Account) Clone() *Account {
	c := *a
	c.Roles = slices.Clone(a.Roles)
	return &c
}

// GrantRoles adds every role to the account. If any of them is already held
// nothing is changed.
func (a *Account) GrantRoles(roles []Role) error {
	for _, r := range roles {
		if a.HasRole(r.Name) {
			return oops.Code(CodeRoleAlreadyAssigned).
				With("account_id", a.ID.String()).
				With("role", r.Name.String()).
				Errorf("account already holds role %s", r.Name)
		}
	}
	a.setRoles(append(slices.Clone(a.Roles), roles...))
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// RevokeRoles removes every role from the account. If any of them is not
// held, or the account would be left without roles, nothing is changed.
func (a *Account) RevokeRoles(roles []Role) error {
	drop := make(map[RoleName]struct{}, len(roles))
	for _, r := range roles {
		if !a.HasRole(r.Name) {
			return oops.Code(CodeRoleNotAssigned).
				With("account_id", a.ID.String()).
				With("role", r.Name.String()).
				Errorf("account does not hold role %s", r.Name)
		}
		drop[r.Name] = struct{}{}
	}
	if len(a.Roles)-len(drop) < 1 {
		return oops.Code(CodeMinimumRoleViolation).
			With("account_id", a.ID.String()).
			Errorf("account must keep at least one role")
	}

	kept := slices.DeleteFunc(slices.Clone(a.Roles), func(r Role) bool {
		_, ok := drop[r.Name]
		return ok
	})
	a.setRoles(kept)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// setRoles stores roles de-duplicated by name and sorted.
func (a *Account) setRoles(roles []Role) {
	sorted := slices.Clone(roles)
	slices.SortFunc(sorted, func(x, y Role) int { return strings.Compare(string(x.Name), string(y.Name)) })
	a.Roles = slices.CompactFunc(sorted, func(x, y Role) bool { return x.Name == y.Name })
}

// Summary is the externally visible view of an account. It never carries
// the password hash.
type Summary struct {
	ID        ulid.ULID
	Email     string
	FirstName string
	LastName  string
	Roles     []RoleName
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summarize builds the Summary for an account.
func Summarize(a *Account) Summary {
	return Summary{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Roles:     a.RoleNames(),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// AccountRepository manages account persistence.
type AccountRepository interface {
	// ExistsByEmail reports whether an account uses the email (case-insensitive).
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// GetByEmail retrieves an account with its roles (case-insensitive).
	// Returns ErrNotFound if no account has the email.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByID retrieves an account with its roles.
	// Returns ErrNotFound if the ID is unknown.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// Create stores a new account and its roles.
	// A duplicate email fails with CodeEmailAlreadyExists.
	Create(ctx context.Context, account *Account) error

	// UpdateRoles replaces the stored role set when the stored version still
	// equals account.Version, then increments account.Version.
	// A stale version fails with CodeConcurrentModification.
	UpdateRoles(ctx context.Context, account *Account) error

	// ListWithRoles returns every account with its roles in creation order.
	ListWithRoles(ctx context.Context) ([]*Account, error)
}
