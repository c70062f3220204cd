// Package services implements the account coordinator: the operation layer
// the transport edge calls into. Every operation returns a *Result from the
// closed outcome set in result.go, leaving a Go error only for conditions the
// caller cannot act on (store or crypto failure).
//
// Two disciplines hold throughout:
//   - password hashing never runs inside an open transaction; and
//   - emails are enqueued only after the owning transaction has committed.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/edustack/identity/internal/common"
	"github.com/edustack/identity/internal/dbx"
	"github.com/edustack/identity/internal/logging"
	"github.com/edustack/identity/internal/server/auth"
	"github.com/edustack/identity/internal/server/challenge"
	"github.com/edustack/identity/internal/server/config"
	"github.com/edustack/identity/internal/server/mail"
	"github.com/edustack/identity/internal/server/models"
	"github.com/edustack/identity/internal/server/repositories/repomanager"
)

// Hasher is the coordinator's view of the secret hasher. password.Hasher
// implements it; VerifyDummy is the timing defence burned on lookups that
// found no usable credential.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	VerifyDummy(plaintext string)
}

// AccountService coordinates the account lifecycle: signup, challenges,
// signin/signout, password recovery, federated assertions and token
// validation.
type AccountService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	tokens *auth.TokenService
	hasher Hasher
	mailer mail.Enqueuer
	logger logging.Logger
	cfg    *config.Config
	now    func() time.Time
}

func NewAccountService(db *sql.DB, repos repomanager.RepositoryManager, tokens *auth.TokenService,
	hasher Hasher, mailer mail.Enqueuer, logger logging.Logger, cfg *config.Config) *AccountService {
	return &AccountService{
		db:     db,
		repos:  repos,
		tokens: tokens,
		hasher: hasher,
		mailer: mailer,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

// validEmail applies the only email check the core owns: the address must
// contain an "@". Anything stricter belongs to the caller.
func validEmail(email string) bool {
	return strings.Contains(email, "@")
}

// issuePair mints an access/refresh token pair for the subject.
func (s *AccountService) issuePair(subject string) (access, refresh string, err error) {
	access, err = s.tokens.Issue(auth.KindAccess, subject, "")
	if err != nil {
		return "", "", err
	}
	refresh, err = s.tokens.Issue(auth.KindRefresh, subject, "")
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// enqueueMail hands a message to the dispatcher. Delivery is best-effort;
// a full queue is logged and swallowed so the committed state change still
// reports success.
func (s *AccountService) enqueueMail(ctx context.Context, msg mail.Message) {
	if err := s.mailer.Enqueue(msg); err != nil {
		s.logger.Warn(ctx, "mail enqueue failed", "to", msg.To, "kind", string(msg.Kind), "error", err.Error())
	}
}

// SignUp registers a local account for email. The password is hashed up
// front, then a single serializable transaction decides between the four
// signup branches. A concurrent-create collision on the email unique index is
// retried once: the rerun observes the committed row and lands on the
// re-verification branch.
func (s *AccountService) SignUp(ctx context.Context, email, pass string) (*Result, error) {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return fail(StatusBadRequest, MsgInvalidEmail), nil
	}

	hash, err := s.hasher.Hash(pass)
	if err != nil {
		s.logger.Error(ctx, "password hash failed", "error", err.Error())
		return nil, err
	}

	res, queued, err := s.signUpTx(ctx, email, hash)
	if errors.Is(err, common.ErrorDuplicateEmail) {
		res, queued, err = s.signUpTx(ctx, email, hash)
	}
	if err != nil {
		s.logger.Error(ctx, "signup failed", "email", email, "error", err.Error())
		return nil, err
	}
	if queued != nil {
		s.enqueueMail(ctx, *queued)
	}
	return res, nil
}

func (s *AccountService) signUpTx(ctx context.Context, email, hash string) (*Result, *mail.Message, error) {
	var res *Result
	var queued *mail.Message

	err := dbx.WithSerializableTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Accounts(tx)

		acc, err := repo.GetByEmail(ctx, email)
		switch {
		case err == nil:
			if acc.EmailVerified {
				res = fail(StatusBadRequest, MsgEmailTakenVerified)
				return nil
			}
			if !acc.HasPassword() {
				res = fail(StatusBadRequest, MsgEmailTakenFederated)
				return nil
			}

			// Unverified local account: replace credentials and rotate the
			// challenge, invalidating any previously mailed link.
			token, expiry, err := challenge.NewVerification(s.now(), s.cfg.VerificationTokenValidityDuration)
			if err != nil {
				return err
			}
			acc.PasswordHash = nullString(hash)
			acc.VerificationToken = nullString(token)
			acc.VerificationExpires = nullTime(expiry)
			if err := repo.Update(ctx, acc); err != nil {
				return err
			}
			queued = &mail.Message{To: acc.Email, Kind: mail.KindVerification, Token: token}
			res = ok(MsgReverificationSent)
			return nil

		case errors.Is(err, common.ErrorNotFound):
			token, expiry, err := challenge.NewVerification(s.now(), s.cfg.VerificationTokenValidityDuration)
			if err != nil {
				return err
			}
			acc := &models.Account{
				Email:               email,
				PasswordHash:        nullString(hash),
				IsActive:            true,
				VerificationToken:   nullString(token),
				VerificationExpires: nullTime(expiry),
			}
			if _, err := repo.Create(ctx, acc); err != nil {
				return err
			}
			queued = &mail.Message{To: acc.Email, Kind: mail.KindVerification, Token: token}
			res = ok(MsgVerificationSent)
			return nil

		default:
			return err
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return res, queued, nil
}

// VerifyEmail consumes a verification challenge. The lookup, expiry check and
// consumption run in one serializable transaction, so of two racing calls with
// the same token exactly one succeeds. On success the account becomes verified
// and a token pair is issued.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) (*Result, error) {
	var accountID string
	rejected := false

	err := dbx.WithSerializableTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Accounts(tx)

		acc, err := repo.GetByVerificationToken(ctx, token)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				rejected = true
				return nil
			}
			return err
		}
		if !acc.VerificationExpires.Valid || challenge.Expired(acc.VerificationExpires.Time, s.now()) {
			rejected = true
			return nil
		}

		acc.EmailVerified = true
		acc.VerificationToken = sql.NullString{}
		acc.VerificationExpires = sql.NullTime{}
		if err := repo.Update(ctx, acc); err != nil {
			return err
		}
		accountID = acc.ID
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "email verification failed", "error", err.Error())
		return nil, err
	}
	if rejected {
		return fail(StatusUnauthorized, MsgInvalidOrExpired), nil
	}

	access, refresh, err := s.issuePair(accountID)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "account_id", accountID, "error", err.Error())
		return nil, err
	}

	res := ok("")
	res.AccessToken = access
	res.RefreshToken = refresh
	res.AccountID = accountID
	return res, nil
}

// ResendVerification rotates the verification challenge for an unverified
// account and mails the fresh link. The previous link stops working.
func (s *AccountService) ResendVerification(ctx context.Context, email string) (*Result, error) {
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
		if acc.EmailVerified {
			res = fail(StatusBadRequest, MsgAlreadyVerified)
			return nil
		}

		token, expiry, err := challenge.NewVerification(s.now(), s.cfg.VerificationTokenValidityDuration)
		if err != nil {
			return err
		}
		acc.VerificationToken = nullString(token)
		acc.VerificationExpires = nullTime(expiry)
		if err := repo.Update(ctx, acc); err != nil {
			return err
		}
		queued = &mail.Message{To: acc.Email, Kind: mail.KindVerification, Token: token}
		res = ok(MsgResent)
		return nil
	})
	if err != nil {
		s.logger.Error(ctx, "resend verification failed", "email", email, "error", err.Error())
		return nil, err
	}
	if queued != nil {
		s.enqueueMail(ctx, *queued)
	}
	return res, nil
}
