package revocations

import (
	"context"
	"time"
)

// Repository is the revocation set of the credential store, keyed by jti.
// Presence of a jti is authoritative: the matching token must be refused
// regardless of signature and expiry.
type Repository interface {
	Insert(ctx context.Context, jti string, now time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
