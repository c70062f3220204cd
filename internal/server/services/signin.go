package services

import (
	"context"
	"errors"

	"github.com/edustack/identity/internal/common"
	"github.com/edustack/identity/internal/server/auth"
)

// SignIn authenticates a local account by email and password and mints a
// token pair. Missing accounts and federated-only accounts burn a dummy
// bcrypt verification so the response time does not reveal whether the email
// is registered.
func (s *AccountService) SignIn(ctx context.Context, email, pass string) (*Result, error) {
	repo := s.repos.Accounts(s.db)

	acc, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.VerifyDummy(pass)
			return fail(StatusUnauthorized, MsgBadCredentials), nil
		}
		s.logger.Error(ctx, "signin lookup failed", "error", err.Error())
		return nil, err
	}
	if !acc.HasPassword() {
		s.hasher.VerifyDummy(pass)
		return fail(StatusUnauthorized, MsgBadCredentials), nil
	}
	if !s.hasher.Verify(pass, acc.PasswordHash.String) {
		return fail(StatusUnauthorized, MsgBadCredentials), nil
	}
	if !acc.EmailVerified {
		return fail(StatusUnauthorized, MsgUnverified), nil
	}
	if !acc.IsActive {
		return fail(StatusForbidden, MsgDisabled), nil
	}

	access, refresh, err := s.issuePair(acc.ID)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "account_id", acc.ID, "error", err.Error())
		return nil, err
	}

	res := ok("")
	res.AccessToken = access
	res.RefreshToken = refresh
	res.AccountID = acc.ID
	return res, nil
}

// SignOut revokes the presented access token by jti. Unparseable or expired
// tokens still report success: there is nothing left to revoke. Only a store
// failure while recording the revocation is surfaced.
func (s *AccountService) SignOut(ctx context.Context, tokenString string) (*Result, error) {
	claims, err := s.tokens.Parse(tokenString, auth.KindAccess)
	if err != nil {
		return ok(MsgSignedOut), nil
	}

	if err := s.repos.Revocations(s.db).Insert(ctx, claims.ID, s.now()); err != nil {
		s.logger.Error(ctx, "revocation insert failed", "jti", claims.ID, "error", err.Error())
		return nil, err
	}
	return ok(MsgSignedOut), nil
}

// Refresh exchanges a valid refresh token for a fresh pair, revoking the
// presented token so each refresh token is good for one exchange.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.KindRefresh)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return fail(StatusUnauthorized, MsgTokenExpired), nil
		}
		return fail(StatusUnauthorized, MsgInvalidToken), nil
	}

	revoked, err := s.repos.Revocations(s.db).IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error(ctx, "revocation check failed", "jti", claims.ID, "error", err.Error())
		return nil, err
	}
	if revoked {
		return fail(StatusUnauthorized, MsgRevoked), nil
	}

	if res, err := s.resolveAccount(ctx, claims.Subject); res != nil || err != nil {
		return res, err
	}

	if err := s.repos.Revocations(s.db).Insert(ctx, claims.ID, s.now()); err != nil {
		s.logger.Error(ctx, "revocation insert failed", "jti", claims.ID, "error", err.Error())
		return nil, err
	}

	access, refresh, err := s.issuePair(claims.Subject)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "account_id", claims.Subject, "error", err.Error())
		return nil, err
	}

	res := ok("")
	res.AccessToken = access
	res.RefreshToken = refresh
	res.AccountID = claims.Subject
	return res, nil
}

// Authenticate validates an access token for resource access: signature and
// expiry, then the revocation set, then the live account state. A token is
// only as good as the account behind it.
func (s *AccountService) Authenticate(ctx context.Context, tokenString string) (*Result, error) {
	claims, err := s.tokens.Parse(tokenString, auth.KindAccess)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return fail(StatusUnauthorized, MsgTokenExpired), nil
		}
		return fail(StatusUnauthorized, MsgInvalidToken), nil
	}

	revoked, err := s.repos.Revocations(s.db).IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error(ctx, "revocation check failed", "jti", claims.ID, "error", err.Error())
		return nil, err
	}
	if revoked {
		return fail(StatusUnauthorized, MsgRevoked), nil
	}

	if res, err := s.resolveAccount(ctx, claims.Subject); res != nil || err != nil {
		return res, err
	}

	res := &Result{Status: StatusOK}
	res.AccountID = claims.Subject
	return res, nil
}

// resolveAccount checks that the token subject still maps to a verified,
// active account. It returns a non-nil Result describing the rejection, or
// (nil, nil) when the account is in good standing.
func (s *AccountService) resolveAccount(ctx context.Context, accountID string) (*Result, error) {
	acc, err := s.repos.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fail(StatusUnauthorized, MsgNotFound), nil
		}
		s.logger.Error(ctx, "account lookup failed", "account_id", accountID, "error", err.Error())
		return nil, err
	}
	if !acc.EmailVerified {
		return fail(StatusUnauthorized, MsgUnverified), nil
	}
	if !acc.IsActive {
		return fail(StatusForbidden, MsgDisabled), nil
	}
	return nil, nil
}
