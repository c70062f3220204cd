package models

import (
	"database/sql"
	"time"
)

// Account is a user-facing identity record. Nullable columns use sql.Null
// types: PasswordHash is absent for federated-only accounts, ExternalID is
// absent for local-only accounts, and the challenge columns are populated only
// while a challenge is outstanding.
type Account struct {
	ID                  string
	Email               string
	PasswordHash        sql.NullString
	ExternalID          sql.NullString
	EmailVerified       bool
	IsActive            bool
	VerificationToken   sql.NullString
	VerificationExpires sql.NullTime
	ResetToken          sql.NullString
	ResetRequestedAt    sql.NullTime
	FirstName           sql.NullString
	LastName            sql.NullString
	AvatarURL           sql.NullString
	CreatedAt           time.Time
}

// HasPassword reports whether the account holds a locally usable password
// hash. Federated-only accounts carry a placeholder seeded from the provider
// subject id, which still counts: only a NULL hash means "no password".
func (a *Account) HasPassword() bool {
	return a.PasswordHash.Valid && a.PasswordHash.String != ""
}

// Profile bundles the opaque pass-through fields delivered by the external
// identity provider. The core stores them verbatim and never interprets them.
type Profile struct {
	FirstName string
	LastName  string
	AvatarURL string
}
