// Package auth issues and parses the signed bearer tokens that other services
// of the platform validate offline. Two token kinds exist, each signed with
// its own HMAC key: short-lived access tokens and longer-lived refresh tokens.
package auth

import (
	"errors"
	"time"

	"github.com/edustack/identity/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// RoleAdmin is the role claim value carried by admin tokens.
const RoleAdmin = "admin"

// Claims is the claim set embedded in every issued token: subject, kind,
// issued-at, expiry, and a unique id (jti) used as the revocation-set key.
// Admin tokens additionally carry Role.
type Claims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
	Role string `json:"role,omitempty"`
}

// TokenService mints and validates bearer tokens. Keys are read-only after
// construction; rotation is out of scope.
type TokenService struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(accessKey, refreshKey []byte, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(accessKey) == 0 || len(refreshKey) == 0 {
		return nil, errors.New("auth: signing keys must be non-empty")
	}
	if string(accessKey) == string(refreshKey) {
		return nil, errors.New("auth: access and refresh keys must differ")
	}
	return &TokenService{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

func (s *TokenService) key(kind Kind) []byte {
	if kind == KindRefresh {
		return s.refreshKey
	}
	return s.accessKey
}

func (s *TokenService) lifetime(kind Kind) time.Duration {
	if kind == KindRefresh {
		return s.refreshTTL
	}
	return s.accessTTL
}

// Issue signs a new token of the given kind for subject. role is empty for
// user tokens and RoleAdmin for admin tokens. The jti is freshly generated per
// call.
func (s *TokenService) Issue(kind Kind, subject, role string) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime(kind))),
			ID:        uuid.NewString(),
		},
		Kind: string(kind),
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key(kind))
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Parse verifies signature and expiry under the key of the expected kind and
// returns the embedded claims. Failures map to common.ErrTokenExpired,
// common.ErrWrongTokenKind, or common.ErrInvalidToken (signature or malformed).
// A token signed with the other kind's key never validates here: the keys are
// distinct, so its signature check fails.
func (s *TokenService) Parse(tokenString string, expect Kind) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.key(expect), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		default:
			return nil, common.ErrInvalidToken
		}
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	if claims.Kind != string(expect) {
		return nil, common.ErrWrongTokenKind
	}
	return claims, nil
}
