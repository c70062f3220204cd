package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/edustack/identity/internal/common"
	"github.com/edustack/identity/internal/dbx"
	"github.com/edustack/identity/internal/server/models"
)

// FederatedSignIn admits an identity asserted by the external provider. The
// caller has already verified the assertion; the core trusts email and
// externalID as facts. The account is matched by external id or email (email
// match wins when both hit different rows), created on first contact, and in
// every case left verified and active with the provider's profile fields
// overwritten. Accounts without a local password get a placeholder hash
// seeded from the provider subject id, which is unguessable and never
// disclosed, so the row always satisfies the password-or-external-id
// invariant.
func (s *AccountService) FederatedSignIn(ctx context.Context, email, externalID string, profile models.Profile) (*Result, error) {
	email = strings.TrimSpace(email)
	if !validEmail(email) || externalID == "" {
		return fail(StatusUnauthorized, MsgFederatedFailed), nil
	}

	// Hashed up front: the seed is only used when the matched account has no
	// hash, but computing it inside the transaction would hold locks for the
	// full bcrypt run.
	seedHash, err := s.hasher.Hash(externalID)
	if err != nil {
		s.logger.Error(ctx, "password hash failed", "error", err.Error())
		return nil, err
	}

	var accountID string
	upsert := func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Accounts(tx)

		acc, err := repo.GetByEmailOrExternalID(ctx, email, externalID)
		switch {
		case err == nil:
			acc.ExternalID = nullString(externalID)
			acc.EmailVerified = true
			acc.IsActive = true
			// The provider's assertion settles the account state, so any
			// outstanding emailed challenge is void: a verified account holds
			// no verification challenge, and a stale reset link must not keep
			// working against the now-federated row.
			acc.VerificationToken = sql.NullString{}
			acc.VerificationExpires = sql.NullTime{}
			acc.ResetToken = sql.NullString{}
			acc.ResetRequestedAt = sql.NullTime{}
			if !acc.HasPassword() {
				acc.PasswordHash = nullString(seedHash)
			}
			applyProfile(acc, profile)
			if err := repo.Update(ctx, acc); err != nil {
				return err
			}
			accountID = acc.ID
			return nil

		case errors.Is(err, common.ErrorNotFound):
			acc := &models.Account{
				Email:         email,
				PasswordHash:  nullString(seedHash),
				ExternalID:    nullString(externalID),
				EmailVerified: true,
				IsActive:      true,
			}
			applyProfile(acc, profile)
			created, err := repo.Create(ctx, acc)
			if err != nil {
				return err
			}
			accountID = created.ID
			return nil

		default:
			return err
		}
	}

	err = dbx.WithSerializableTx(ctx, s.db, upsert)
	if errors.Is(err, common.ErrorDuplicateEmail) || errors.Is(err, common.ErrorDuplicateExternalID) {
		// Lost a create race; the rerun observes the committed row.
		err = dbx.WithSerializableTx(ctx, s.db, upsert)
	}
	if err != nil {
		s.logger.Error(ctx, "federated signin failed", "external_id", externalID, "error", err.Error())
		return nil, err
	}

	access, refresh, err := s.issuePair(accountID)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "account_id", accountID, "error", err.Error())
		return nil, err
	}

	res := ok(MsgFederatedOK)
	res.AccessToken = access
	res.RefreshToken = refresh
	res.AccountID = accountID
	return res, nil
}

// applyProfile overwrites the pass-through profile fields from the provider.
// Empty provider values clear the stored ones: the provider is authoritative.
func applyProfile(acc *models.Account, p models.Profile) {
	acc.FirstName = nullIfEmpty(p.FirstName)
	acc.LastName = nullIfEmpty(p.LastName)
	acc.AvatarURL = nullIfEmpty(p.AvatarURL)
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return nullString(s)
}
