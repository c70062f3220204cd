// Package revocations provides the PostgreSQL-backed revocation set.
package revocations

import (
	"context"
	"fmt"
	"time"

	"github.com/edustack/identity/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert records a revoked jti. Re-inserting the same jti is a no-op.
func (r *PostgresRepository) Insert(ctx context.Context, jti string, now time.Time) error {
	query := `
		INSERT INTO revocations (jti, revoked_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, jti, now); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti is present in the revocation set.
func (r *PostgresRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	query := `SELECT EXISTS (SELECT 1 FROM revocations WHERE jti = $1)`
	if err := r.db.QueryRowContext(ctx, query, jti).Scan(&revoked); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return revoked, nil
}

// PurgeOlderThan deletes entries revoked before cutoff and returns the number
// removed. Entries older than the refresh-token lifetime can no longer match a
// live token.
func (r *PostgresRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM revocations WHERE revoked_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
