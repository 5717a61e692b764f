// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
)

// selectAccounts loads accounts with their roles aggregated into parallel
// arrays ordered by role name.
const selectAccounts = `
	SELECT a.id, a.email, a.password_hash, a.first_name, a.last_name,
	       a.version, a.created_at, a.updated_at,
	       COALESCE(array_agg(r.id ORDER BY r.name) FILTER (WHERE r.id IS NOT NULL), '{}') AS role_ids,
	       COALESCE(array_agg(r.name ORDER BY r.name) FILTER (WHERE r.id IS NOT NULL), '{}') AS role_names
	FROM accounts a
	LEFT JOIN account_roles ar ON ar.account_id = a.id
	LEFT JOIN roles r ON r.id = ar.role_id`

const insertAccountRoles = `
	INSERT INTO account_roles (account_id, role_id)
	SELECT $1, unnest($2::text[])`

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool poolIface
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool poolIface) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// ExistsByEmail reports whether an account uses email, ignoring case.
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM accounts WHERE lower(email) = lower($1))`,
		email,
	).Scan(&exists)
	if err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_CHECK_FAILED").
			With("operation", "check email").
			With("email", email).
			Wrap(err)
	}
	return exists, nil
}

// GetByEmail retrieves an account by email, ignoring case.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, selectAccounts+`
	WHERE lower(a.email) = lower($1)
	GROUP BY a.id`, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(auth.CodeAccountNotFound).
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			With("email", email).
			Wrap(err)
	}
	return account, nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, selectAccounts+`
	WHERE a.id = $1
	GROUP BY a.id`, id.String())

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(auth.CodeAccountNotFound).
			With("account_id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("account_id", id.String()).
			Wrap(err)
	}
	return account, nil
}

// Create inserts the account and its role memberships in one transaction.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO accounts (
			id, email, password_hash, first_name, last_name,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		account.ID.String(),
		account.Email,
		account.PasswordHash,
		account.FirstName,
		account.LastName,
		account.Version,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		_ = tx.Rollback(ctx) //nolint:errcheck // insert error takes precedence
		if isUniqueViolation(err) {
			return oops.Code(auth.CodeEmailAlreadyExists).
				With("email", account.Email).
				Errorf("email %s is already registered", account.Email)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	if _, err := tx.Exec(ctx, insertAccountRoles, account.ID.String(), roleIDs(account)); err != nil {
		_ = tx.Rollback(ctx) //nolint:errcheck // insert error takes precedence
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account roles").
			With("account_id", account.ID.String()).
			Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return oops.Code(auth.CodeEmailAlreadyExists).
				With("email", account.Email).
				Errorf("email %s is already registered", account.Email)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "commit").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	return nil
}

// UpdateRoles replaces the stored role set if the stored version still equals
// account.Version. On success account.Version is incremented.
func (r *AccountRepository) UpdateRoles(ctx context.Context, account *auth.Account) error {
	id := account.ID.String()
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = time.Now().UTC()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_ROLES_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE accounts SET version = version + 1, updated_at = $3
		WHERE id = $1 AND version = $2
	`, id, account.Version, account.UpdatedAt)
	if err != nil {
		_ = tx.Rollback(ctx) //nolint:errcheck // update error takes precedence
		return oops.Code("ACCOUNT_UPDATE_ROLES_FAILED").
			With("operation", "bump version").
			With("account_id", id).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		err := r.versionConflict(ctx, tx, account)
		_ = tx.Rollback(ctx) //nolint:errcheck // nothing was written
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM account_roles WHERE account_id = $1`, id); err != nil {
		_ = tx.Rollback(ctx) //nolint:errcheck // delete error takes precedence
		return oops.Code("ACCOUNT_UPDATE_ROLES_FAILED").
			With("operation", "clear roles").
			With("account_id", id).
			Wrap(err)
	}
	if _, err := tx.Exec(ctx, insertAccountRoles, id, roleIDs(account)); err != nil {
		_ = tx.Rollback(ctx) //nolint:errcheck // insert error takes precedence
		return oops.Code("ACCOUNT_UPDATE_ROLES_FAILED").
			With("operation", "insert roles").
			With("account_id", id).
			Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("ACCOUNT_UPDATE_ROLES_FAILED").
			With("operation", "commit").
			With("account_id", id).
			Wrap(err)
	}
	account.Version++
	return nil
}

// versionConflict tells a missing account apart from a stale version.
func (r *AccountRepository) versionConflict(ctx context.Context, tx pgx.Tx, account *auth.Account) error {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, account.ID.String()).Scan(&exists)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_ROLES_FAILED").
			With("operation", "check account").
			With("account_id", account.ID.String()).
			Wrap(err)
	}
	if !exists {
		return oops.Code(auth.CodeAccountNotFound).
			With("account_id", account.ID.String()).
			Wrap(auth.ErrNotFound)
	}
	return oops.Code(auth.CodeConcurrentModification).
		With("account_id", account.ID.String()).
		With("expected_version", account.Version).
		Errorf("account version mismatch")
}

// ListWithRoles returns every account in creation order.
func (r *AccountRepository) ListWithRoles(ctx context.Context) ([]*auth.Account, error) {
	rows, err := r.pool.Query(ctx, selectAccounts+`
	GROUP BY a.id
	ORDER BY a.created_at, a.id`)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "list accounts").
			Wrap(err)
	}
	defer rows.Close()

	var accounts []*auth.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, oops.Code("ACCOUNT_LIST_FAILED").
				With("operation", "scan account").
				Wrap(err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "iterate accounts").
			Wrap(err)
	}
	return accounts, nil
}

// scanAccount scans one selectAccounts row.
// Callers are responsible for handling pgx.ErrNoRows.
func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		idStr     string
		account   auth.Account
		roleIDs   []string
		roleNames []string
	)
	err := row.Scan(
		&idStr,
		&account.Email,
		&account.PasswordHash,
		&account.FirstName,
		&account.LastName,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
		&roleIDs,
		&roleNames,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with lookup context
		}
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "scan account").
			Wrap(err)
	}

	account.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ACCOUNT_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	roles, err := buildRoles(roleIDs, roleNames)
	if err != nil {
		return nil, oops.With("account_id", idStr).Wrap(err)
	}
	account.Roles = roles
	return &account, nil
}

func buildRoles(ids, names []string) ([]auth.Role, error) {
	if len(ids) != len(names) {
		return nil, oops.Code("ROLE_SCAN_FAILED").Errorf("role id and name counts differ")
	}
	roles := make([]auth.Role, 0, len(ids))
	for i := range ids {
		role, err := makeRole(ids[i], names[i])
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	return roles, nil
}

func roleIDs(account *auth.Account) []string {
	ids := make([]string, len(account.Roles))
	for i, role := range account.Roles {
		ids[i] = role.ID.String()
	}
	return ids
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
