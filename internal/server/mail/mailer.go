// Package mail owns outbound email for the identity service: the message
// model, a courier speaking a JSON sending API, and an asynchronous dispatcher
// that retries delivery with exponential backoff. Delivery is best-effort by
// contract: a committed account transition is never rolled back because its
// email failed.
package mail

import (
	"context"
	"net/url"
	"strings"
)

type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
)

// Message is one outbound email: who it goes to and which challenge token the
// embedded link carries.
type Message struct {
	To    string
	Kind  Kind
	Token string
}

// Enqueuer is the coordinator's view of the mail subsystem. Implementations
// must not block the caller on delivery.
type Enqueuer interface {
	Enqueue(msg Message) error
}

// Courier performs one delivery attempt.
type Courier interface {
	Send(ctx context.Context, msg Message) error
}

// NormalizeBaseURL validates that raw is an absolute http/https origin and
// falls back to fallback otherwise. A trailing slash is trimmed so link paths
// can be appended directly.
func NormalizeBaseURL(raw, fallback string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return strings.TrimRight(fallback, "/")
	}
	return strings.TrimRight(raw, "/")
}
