// Package postgres is an authgate.CredentialRepository on PostgreSQL through
// the pgx database/sql driver. Schema migrations are embedded; run Migrate
// before first use.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/authgate/authgate"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	codeUniqueViolation  = "23505"
	codeCheckViolation   = "23514"
	codeInvalidTextValue = "22P02"

	mfaConstraint = "accounts_mfa_secret_check"
)

// Open opens and pings a connection pool for dsn.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Repository implements authgate.CredentialRepository.
type Repository struct {
	db *sql.DB
}

var _ authgate.CredentialRepository = (*Repository)(nil)

// New wraps db. The caller owns db and closes it.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const accountColumns = `a.id, a.email, a.phone, a.password_hash, a.status, a.mfa_enabled, a.mfa_secret, a.created_at, a.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*authgate.Account, error) {
	var (
		acct   authgate.Account
		status int16
	)
	err := row.Scan(&acct.ID, &acct.Email, &acct.Phone, &acct.PasswordHash, &status,
		&acct.MFAEnabled, &acct.MFASecret, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return nil, err
	}
	acct.Status = authgate.AccountStatus(status)
	return &acct, nil
}

// FindByBinding implements authgate.CredentialRepository.
func (r *Repository) FindByBinding(ctx context.Context, provider authgate.Provider, key string) (*authgate.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+`
		 FROM identity_bindings b
		 JOIN accounts a ON a.id = b.account_id
		 WHERE b.provider = $1 AND b.provider_key = $2`,
		string(provider), key,
	)
	acct, err := scanAccount(row)
	if err != nil {
		return nil, mapError("find by binding", err)
	}
	return acct, nil
}

// FindByID implements authgate.CredentialRepository.
func (r *Repository) FindByID(ctx context.Context, accountID string) (*authgate.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts a WHERE a.id = $1`,
		accountID,
	)
	acct, err := scanAccount(row)
	if err != nil {
		return nil, mapError("find by id", err)
	}
	return acct, nil
}

// CreateWithBinding inserts the account and its binding in one transaction.
func (r *Repository) CreateWithBinding(ctx context.Context, account authgate.Account, binding authgate.IdentityBinding) (*authgate.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapError("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	row := tx.QueryRowContext(ctx,
		`INSERT INTO accounts AS a (id, email, phone, password_hash, status, mfa_enabled, mfa_secret, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 RETURNING `+accountColumns,
		account.ID, account.Email, account.Phone, account.PasswordHash, int16(account.Status),
		account.MFAEnabled, account.MFASecret, now,
	)
	created, err := scanAccount(row)
	if err != nil {
		return nil, mapError("insert account", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identity_bindings (provider, provider_key, account_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		string(binding.Provider), binding.ProviderKey, created.ID, now,
	)
	if err != nil {
		return nil, mapError("insert binding", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapError("commit", err)
	}
	return created, nil
}

// UpdatePasswordHash implements authgate.CredentialRepository.
func (r *Repository) UpdatePasswordHash(ctx context.Context, accountID, hash string) error {
	return r.exec(ctx, "update password",
		`UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`,
		accountID, hash)
}

// StageTOTPSecret implements authgate.CredentialRepository.
func (r *Repository) StageTOTPSecret(ctx context.Context, accountID, secret string) error {
	return r.exec(ctx, "stage totp",
		`UPDATE accounts SET mfa_secret = $2, mfa_enabled = FALSE, updated_at = now() WHERE id = $1`,
		accountID, secret)
}

// EnableTOTP relies on accounts_mfa_secret_check to refuse enabling without a
// staged secret.
func (r *Repository) EnableTOTP(ctx context.Context, accountID string) error {
	return r.exec(ctx, "enable totp",
		`UPDATE accounts SET mfa_enabled = TRUE, updated_at = now() WHERE id = $1`,
		accountID)
}

// DisableTOTP implements authgate.CredentialRepository.
func (r *Repository) DisableTOTP(ctx context.Context, accountID string) error {
	return r.exec(ctx, "disable totp",
		`UPDATE accounts SET mfa_enabled = FALSE, mfa_secret = '', updated_at = now() WHERE id = $1`,
		accountID)
}

// UpdateStatus implements authgate.CredentialRepository.
func (r *Repository) UpdateStatus(ctx context.Context, accountID string, status authgate.AccountStatus) error {
	return r.exec(ctx, "update status",
		`UPDATE accounts SET status = $2, updated_at = now() WHERE id = $1`,
		accountID, int16(status))
}

func (r *Repository) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, err)
	}
	if n == 0 {
		return authgate.ErrAccountNotFound
	}
	return nil
}

func mapError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return authgate.ErrAccountNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return authgate.ErrBindingExists
		case codeCheckViolation:
			if pgErr.ConstraintName == mfaConstraint {
				return authgate.ErrTOTPNotStaged
			}
		case codeInvalidTextValue:
			// Malformed UUIDs cannot match any row.
			return authgate.ErrAccountNotFound
		}
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}
