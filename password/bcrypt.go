// Package password provides credential hashing for account passwords.
//
// Hashes are produced with bcrypt and embed their own salt and cost, so a
// stored hash is self-describing and remains verifiable after the configured
// cost changes.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// Config holds hasher tuning parameters.
type Config struct {
	Cost int
}

// Hasher hashes and verifies account passwords.
type Hasher struct {
	cost int
}

// NewHasher validates the configuration and returns a [Hasher].
func NewHasher(cfg Config) (*Hasher, error) {
	cost := cfg.Cost
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, errors.New("invalid bcrypt cost")
	}
	return &Hasher{cost: cost}, nil
}

// Hash returns the bcrypt hash of the given plaintext password.
func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("empty password")
	}
	// bcrypt truncates silently beyond 72 bytes; reject instead.
	if len(plain) > 72 {
		return "", errors.New("password too long")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plain matches the stored hash. Malformed or empty
// hashes verify as false; verification never returns an error to callers so
// the login path cannot distinguish a bad hash from a bad password.
func (h *Hasher) Verify(plain, encoded string) bool {
	if plain == "" || encoded == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain)) == nil
}

// NeedsUpgrade reports whether the stored hash was produced with a lower
// cost than currently configured and should be re-hashed on next login.
func (h *Hasher) NeedsUpgrade(encoded string) bool {
	cost, err := bcrypt.Cost([]byte(encoded))
	if err != nil {
		return false
	}
	return cost < h.cost
}
