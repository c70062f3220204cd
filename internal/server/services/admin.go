package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/edustack/identity/internal/common"
	"github.com/edustack/identity/internal/logging"
	"github.com/edustack/identity/internal/server/auth"
	"github.com/edustack/identity/internal/server/models"
	"github.com/edustack/identity/internal/server/repositories/repomanager"
)

// AdminService handles the operator-facing half of authentication. Admins
// live in their own table, are provisioned out-of-band (plus one optional
// seed at first start), and their tokens carry the admin role claim.
type AdminService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	tokens *auth.TokenService
	hasher Hasher
	logger logging.Logger
	now    func() time.Time
}

func NewAdminService(db *sql.DB, repos repomanager.RepositoryManager, tokens *auth.TokenService,
	hasher Hasher, logger logging.Logger) *AdminService {
	return &AdminService{
		db:     db,
		repos:  repos,
		tokens: tokens,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
	}
}

// issuePair mints an access/refresh token pair carrying the admin role.
func (s *AdminService) issuePair(subject string) (access, refresh string, err error) {
	access, err = s.tokens.Issue(auth.KindAccess, subject, auth.RoleAdmin)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.tokens.Issue(auth.KindRefresh, subject, auth.RoleAdmin)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// SignIn authenticates an admin by username and password and mints a token
// pair carrying the admin role. Unknown usernames burn a dummy verification,
// same as the account path.
func (s *AdminService) SignIn(ctx context.Context, username, pass string) (*Result, error) {
	admin, err := s.repos.Admins(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.VerifyDummy(pass)
			return fail(StatusUnauthorized, MsgBadCredentials), nil
		}
		s.logger.Error(ctx, "admin lookup failed", "error", err.Error())
		return nil, err
	}
	if !s.hasher.Verify(pass, admin.PasswordHash) {
		return fail(StatusUnauthorized, MsgBadCredentials), nil
	}

	access, refresh, err := s.issuePair(admin.ID)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "admin_id", admin.ID, "error", err.Error())
		return nil, err
	}

	res := ok("")
	res.AccessToken = access
	res.RefreshToken = refresh
	res.AccountID = admin.ID
	return res, nil
}

// Refresh exchanges a valid admin refresh token for a fresh pair, revoking
// the presented token. The role claim must be present: an account refresh
// token never mints an admin pair.
func (s *AdminService) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.KindRefresh)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return fail(StatusUnauthorized, MsgTokenExpired), nil
		}
		return fail(StatusUnauthorized, MsgInvalidToken), nil
	}
	if claims.Role != auth.RoleAdmin {
		return fail(StatusForbidden, MsgAdminRequired), nil
	}

	revoked, err := s.repos.Revocations(s.db).IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error(ctx, "revocation check failed", "jti", claims.ID, "error", err.Error())
		return nil, err
	}
	if revoked {
		return fail(StatusUnauthorized, MsgRevoked), nil
	}

	if _, err := s.repos.Admins(s.db).GetByID(ctx, claims.Subject); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fail(StatusUnauthorized, MsgNotFound), nil
		}
		s.logger.Error(ctx, "admin lookup failed", "admin_id", claims.Subject, "error", err.Error())
		return nil, err
	}

	if err := s.repos.Revocations(s.db).Insert(ctx, claims.ID, s.now()); err != nil {
		s.logger.Error(ctx, "revocation insert failed", "jti", claims.ID, "error", err.Error())
		return nil, err
	}

	access, refresh, err := s.issuePair(claims.Subject)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "admin_id", claims.Subject, "error", err.Error())
		return nil, err
	}

	res := ok("")
	res.AccessToken = access
	res.RefreshToken = refresh
	res.AccountID = claims.Subject
	return res, nil
}

// Authenticate validates an access token for an admin surface: on top of the
// usual signature, expiry and revocation checks it requires the admin role
// claim and a live admin row behind the subject.
func (s *AdminService) Authenticate(ctx context.Context, tokenString string) (*Result, error) {
	claims, err := s.tokens.Parse(tokenString, auth.KindAccess)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return fail(StatusUnauthorized, MsgTokenExpired), nil
		}
		return fail(StatusUnauthorized, MsgInvalidToken), nil
	}
	if claims.Role != auth.RoleAdmin {
		return fail(StatusForbidden, MsgAdminRequired), nil
	}

	revoked, err := s.repos.Revocations(s.db).IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error(ctx, "revocation check failed", "jti", claims.ID, "error", err.Error())
		return nil, err
	}
	if revoked {
		return fail(StatusUnauthorized, MsgRevoked), nil
	}

	if _, err := s.repos.Admins(s.db).GetByID(ctx, claims.Subject); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fail(StatusUnauthorized, MsgNotFound), nil
		}
		s.logger.Error(ctx, "admin lookup failed", "admin_id", claims.Subject, "error", err.Error())
		return nil, err
	}

	res := &Result{Status: StatusOK}
	res.AccountID = claims.Subject
	return res, nil
}

// Seed creates the initial admin from configuration when the admins table is
// empty. It is a no-op when credentials are not configured or any admin
// already exists, so restarting the server never duplicates or overwrites
// operators.
func (s *AdminService) Seed(ctx context.Context, username, pass string) error {
	if username == "" || pass == "" {
		return nil
	}

	exists, err := s.repos.Admins(s.db).Any(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return err
	}
	if _, err := s.repos.Admins(s.db).Create(ctx, &models.Admin{Username: username, PasswordHash: hash}); err != nil {
		return err
	}
	s.logger.Info(ctx, "seeded initial admin", "username", username)
	return nil
}
