// Package repomanager vends repository implementations bound to a DBTX and
// owns the schema-migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/edustack/identity/internal/dbx"
	"github.com/edustack/identity/internal/server/repositories/accounts"
	"github.com/edustack/identity/internal/server/repositories/admins"
	"github.com/edustack/identity/internal/server/repositories/revocations"
)

// RepositoryManager hands out repositories bound to the provided DBTX, so the
// coordinator can run the same repository code inside or outside a
// transaction.
type RepositoryManager interface {
	Accounts(db dbx.DBTX) accounts.Repository
	Admins(db dbx.DBTX) admins.Repository
	Revocations(db dbx.DBTX) revocations.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
