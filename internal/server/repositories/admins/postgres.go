// Package admins provides the PostgreSQL-backed admin repository.
package admins

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edustack/identity/internal/common"
	"github.com/edustack/identity/internal/dbx"
	"github.com/edustack/identity/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new admin, assigning an id when none is set.
func (r *PostgresRepository) Create(ctx context.Context, admin *models.Admin) (*models.Admin, error) {
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}

	query := `
		INSERT INTO admins (id, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	if err := r.db.QueryRowContext(ctx, query, admin.ID, admin.Username, admin.PasswordHash).Scan(&admin.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return admin, nil
}

// GetByID returns the admin with the given id.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM admins
		WHERE id = $1
	`
	admin := &models.Admin{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&admin.ID, &admin.Username, &admin.PasswordHash, &admin.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return admin, nil
}

// GetByUsername returns the admin with the given username.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM admins
		WHERE username = $1
	`
	admin := &models.Admin{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(&admin.ID, &admin.Username, &admin.PasswordHash, &admin.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return admin, nil
}

// Any reports whether at least one admin exists.
func (r *PostgresRepository) Any(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM admins)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}
