package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/edustack/identity/internal/common"
	"github.com/edustack/identity/internal/dbx"
	"github.com/edustack/identity/internal/server/challenge"
	"github.com/edustack/identity/internal/server/mail"
	"github.com/edustack/identity/internal/server/models"
)

// resetExpired reports whether the account's reset challenge has aged out.
// A zero configured TTL means reset tokens stay valid until consumed or
// replaced.
func (s *AccountService) resetExpired(acc *models.Account) bool {
	ttl := s.cfg.ResetTokenValidityDuration
	if ttl <= 0 {
		return false
	}
	if !acc.ResetRequestedAt.Valid {
		return true
	}
	return challenge.Expired(acc.ResetRequestedAt.Time.Add(ttl), s.now())
}

// resetRejection returns the rejection Result for an account that holds a
// reset token, or nil when the reset may proceed.
func (s *AccountService) resetRejection(acc *models.Account) *Result {
	if s.resetExpired(acc) {
		return fail(StatusUnauthorized, MsgInvalidOrExpired)
	}
	if !acc.HasPassword() {
		return fail(StatusBadRequest, MsgFederatedNotResettable)
	}
	if !acc.IsActive {
		return fail(StatusForbidden, MsgDisabled)
	}
	return nil
}

// RequestPasswordReset issues a reset challenge for a local account and mails
// the link. A repeated request replaces the outstanding token, so only the
// newest link works.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) (*Result, error) {
	var res *Result
	var queued *mail.Message

	err := dbx.WithSerializableTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Accounts(tx)

		acc, err := repo.GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				res = fail(StatusNotFound, MsgNotFound)
				return nil
			}
			return err
		}
		if !acc.HasPassword() {
			res = fail(StatusBadRequest, MsgFederatedNotResettable)
			return nil
		}
		if !acc.IsActive {
			res = fail(StatusForbidden, MsgDisabled)
			return nil
		}

		token, err := challenge.NewToken()
		if err != nil {
			return err
		}
		acc.ResetToken = nullString(token)
		acc.ResetRequestedAt = nullTime(s.now())
		if err := repo.Update(ctx, acc); err != nil {
			return err
		}
		queued = &mail.Message{To: acc.Email, Kind: mail.KindPasswordReset, Token: token}
		res = ok(MsgResetSent)
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "password reset request failed", "email", email, "error", err.Error())
		return nil, err
	}
	if queued != nil {
		s.enqueueMail(ctx, *queued)
	}
	return res, nil
}

// ValidateResetToken checks a reset token without consuming it, so the
// frontend can reject a dead link before asking for a new password.
func (s *AccountService) ValidateResetToken(ctx context.Context, token string) (*Result, error) {
	acc, err := s.repos.Accounts(s.db).GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fail(StatusUnauthorized, MsgInvalidOrExpired), nil
		}
		s.logger.Error(ctx, "reset token lookup failed", "error", err.Error())
		return nil, err
	}
	if res := s.resetRejection(acc); res != nil {
		return res, nil
	}
	return ok(MsgResetTokenValid), nil
}

// ResetPassword consumes a reset token and installs a new password. The new
// password is compared and hashed against a plain read first, keeping bcrypt
// work outside the transaction; the consuming transaction then re-reads by
// token and repeats the eligibility checks, so a token consumed or an account
// disabled in between is rejected rather than acted on from a stale row.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPass string) (*Result, error) {
	repo := s.repos.Accounts(s.db)

	acc, err := repo.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fail(StatusUnauthorized, MsgInvalidOrExpired), nil
		}
		s.logger.Error(ctx, "reset token lookup failed", "error", err.Error())
		return nil, err
	}
	if res := s.resetRejection(acc); res != nil {
		return res, nil
	}
	if s.hasher.Verify(newPass, acc.PasswordHash.String) {
		// State unchanged; the token stays outstanding.
		return fail(StatusConflict, MsgSameAsOld), nil
	}

	hash, err := s.hasher.Hash(newPass)
	if err != nil {
		s.logger.Error(ctx, "password hash failed", "error", err.Error())
		return nil, err
	}

	var txReject *Result
	err = dbx.WithSerializableTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Accounts(tx)

		acc, err := repo.GetByResetToken(ctx, token)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				txReject = fail(StatusUnauthorized, MsgInvalidOrExpired)
				return nil
			}
			return err
		}
		// Eligibility is judged again on the row as read under the
		// transaction: an account disabled (or defederated) since the earlier
		// unlocked read must not get its password replaced.
		if r := s.resetRejection(acc); r != nil {
			txReject = r
			return nil
		}

		acc.PasswordHash = nullString(hash)
		acc.ResetToken = sql.NullString{}
		acc.ResetRequestedAt = sql.NullTime{}
		return repo.Update(ctx, acc)
	})
	if err != nil {
		s.logger.Error(ctx, "password reset failed", "error", err.Error())
		return nil, err
	}
	if txReject != nil {
		return txReject, nil
	}
	return ok(MsgResetOK), nil
}

// ChangePassword rotates the password of a signed-in account after verifying
// the current one.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, oldPass, newPass string) (*Result, error) {
	repo := s.repos.Accounts(s.db)

	acc, err := repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fail(StatusNotFound, MsgNotFound), nil
		}
		s.logger.Error(ctx, "account lookup failed", "account_id", accountID, "error", err.Error())
		return nil, err
	}
	if !acc.HasPassword() {
		return fail(StatusBadRequest, MsgFederatedNotChangeable), nil
	}
	if !s.hasher.Verify(oldPass, acc.PasswordHash.String) {
		return fail(StatusUnauthorized, MsgBadCredentials), nil
	}

	hash, err := s.hasher.Hash(newPass)
	if err != nil {
		s.logger.Error(ctx, "password hash failed", "error", err.Error())
		return nil, err
	}

	err = dbx.WithSerializableTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Accounts(tx)

		acc, err := repo.GetByID(ctx, accountID)
		if err != nil {
			return err
		}
		acc.PasswordHash = nullString(hash)
		return repo.Update(ctx, acc)
	})
	if err != nil {
		s.logger.Error(ctx, "password change failed", "account_id", accountID, "error", err.Error())
		return nil, err
	}
	return ok(MsgPasswordChanged), nil
}
