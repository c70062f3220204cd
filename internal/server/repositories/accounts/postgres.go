// Package accounts provides the PostgreSQL-backed account repository. All
// methods are bound to a dbx.DBTX, so the same code runs on *sql.DB or inside
// a transaction.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edustack/identity/internal/common"
	"github.com/edustack/identity/internal/dbx"
	"github.com/edustack/identity/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Constraint names from the accounts migration; they pick the duplicate kind
// on insert.
const (
	emailConstraint      = "accounts_email_key"
	externalIDConstraint = "accounts_external_id_key"
)

const accountColumns = `id, email, password_hash, external_id, email_verified, is_active,
		verification_token, verification_expires, reset_token, reset_requested_at,
		first_name, last_name, avatar_url, created_at`

type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account, assigning an id when none is set.
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	query := `
		INSERT INTO accounts (id, email, password_hash, external_id, email_verified, is_active,
			verification_token, verification_expires, reset_token, reset_requested_at,
			first_name, last_name, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.Email, account.PasswordHash, account.ExternalID,
		account.EmailVerified, account.IsActive,
		account.VerificationToken, account.VerificationExpires,
		account.ResetToken, account.ResetRequestedAt,
		account.FirstName, account.LastName, account.AvatarURL,
	).Scan(&account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case externalIDConstraint:
				return nil, common.ErrorDuplicateExternalID
			case emailConstraint:
				return nil, common.ErrorDuplicateEmail
			}
			return nil, common.ErrorDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, args ...any) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where

	account := &models.Account{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&account.ID, &account.Email, &account.PasswordHash, &account.ExternalID,
		&account.EmailVerified, &account.IsActive,
		&account.VerificationToken, &account.VerificationExpires,
		&account.ResetToken, &account.ResetRequestedAt,
		&account.FirstName, &account.LastName, &account.AvatarURL,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return account, nil
}

// GetByID returns the account with the given id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetByEmail matches the email case-folded, per the store's uniqueness rule.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, `lower(email) = lower($1)`, email)
}

// GetByExternalID returns the account holding the given provider subject id.
func (r *PostgresRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	return r.getOne(ctx, `external_id = $1`, externalID)
}

// GetByEmailOrExternalID resolves the federated-signin disjunction in a single
// query. Email match wins when both keys resolve to different rows.
func (r *PostgresRepository) GetByEmailOrExternalID(ctx context.Context, email, externalID string) (*models.Account, error) {
	return r.getOne(ctx,
		`lower(email) = lower($1) OR external_id = $2 ORDER BY lower(email) = lower($1) DESC LIMIT 1`,
		email, externalID)
}

// GetByVerificationToken returns the account holding the given verification
// challenge.
func (r *PostgresRepository) GetByVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	return r.getOne(ctx, `verification_token = $1`, token)
}

// GetByResetToken returns the account holding the given reset challenge.
func (r *PostgresRepository) GetByResetToken(ctx context.Context, token string) (*models.Account, error) {
	return r.getOne(ctx, `reset_token = $1`, token)
}

// Update rewrites the mutable columns of an account row. Callers run it inside
// a transaction together with the read that produced the new state.
func (r *PostgresRepository) Update(ctx context.Context, account *models.Account) error {
	query := `
		UPDATE accounts
		SET email = $2, password_hash = $3, external_id = $4, email_verified = $5, is_active = $6,
			verification_token = $7, verification_expires = $8, reset_token = $9, reset_requested_at = $10,
			first_name = $11, last_name = $12, avatar_url = $13
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		account.ID, account.Email, account.PasswordHash, account.ExternalID,
		account.EmailVerified, account.IsActive,
		account.VerificationToken, account.VerificationExpires,
		account.ResetToken, account.ResetRequestedAt,
		account.FirstName, account.LastName, account.AvatarURL,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}
