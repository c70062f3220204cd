// Package challenge mints the single-use tokens delivered out-of-band (email)
// for account verification and password reset. Tokens are URL-safe so they
// survive transport as a link parameter.
package challenge

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// TokenBytes is the raw entropy per token: 256 bits, above the 192-bit floor
// required for challenge tokens.
const TokenBytes = 32

// NewToken returns a fresh base64url token (43 characters).
func NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewVerification returns a verification token together with its expiry,
// now + ttl.
func NewVerification(now time.Time, ttl time.Duration) (string, time.Time, error) {
	token, err := NewToken()
	if err != nil {
		return "", time.Time{}, err
	}
	return token, now.Add(ttl), nil
}

// Expired reports whether a challenge issued to expire at expiry is no longer
// consumable at now. Consumption at exactly the expiry instant fails.
func Expired(expiry, now time.Time) bool {
	return !now.Before(expiry)
}
