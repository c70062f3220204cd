// Package password implements the adaptive secret hasher used for account and
// admin credentials. Hashing is bcrypt: the produced string embeds algorithm,
// cost, and a random salt, so two hashes of the same plaintext differ.
package password

import "golang.org/x/crypto/bcrypt"

// DefaultCost keeps a single verification in the tens-of-milliseconds class on
// current server hardware.
const DefaultCost = 12

type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher returns a Hasher with the given bcrypt cost. Costs outside the
// algorithm's valid range fall back to DefaultCost. The constructor also
// prepares a throwaway digest so missing-account signins can burn the same
// CPU as a real verification.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("identity-dummy-credential"), cost)
	if err != nil {
		// Only reachable with a broken cost, which the range check excludes.
		panic(err)
	}
	return &Hasher{cost: cost, dummy: dummy}
}

// Hash produces a self-describing digest of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plaintext matches the stored digest. Structurally
// malformed digests report false rather than an error.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// VerifyDummy performs a full-cost comparison against the throwaway digest.
// Callers use it when no stored hash exists so that absent and wrong-password
// failures are indistinguishable in external timing.
func (h *Hasher) VerifyDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
}
