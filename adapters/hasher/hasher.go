// Package hasher hashes and verifies admin API tokens.
package hasher

import (
	"crypto/sha256"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/artpar/apphost/ports"
)

// Bcrypt uses bcrypt for hashing. Successful comparisons are remembered
// per (hash, token) pair, so a token presented on every admin request pays
// the bcrypt cost once.
type Bcrypt struct {
	cost int

	mu       sync.RWMutex
	verified map[[sha256.Size]byte]struct{}
}

// NewBcrypt creates a bcrypt hasher with the given cost.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost, verified: make(map[[sha256.Size]byte]struct{})}
}

// Hash generates a bcrypt hash from plaintext.
func (h *Bcrypt) Hash(plaintext string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
}

// Compare checks if plaintext matches hash.
func (h *Bcrypt) Compare(hash []byte, plaintext string) bool {
	if len(hash) == 0 || plaintext == "" {
		return false
	}

	key := cacheKey(hash, plaintext)
	h.mu.RLock()
	_, ok := h.verified[key]
	h.mu.RUnlock()
	if ok {
		return true
	}

	if bcrypt.CompareHashAndPassword(hash, []byte(plaintext)) != nil {
		return false
	}

	h.mu.Lock()
	h.verified[key] = struct{}{}
	h.mu.Unlock()
	return true
}

func cacheKey(hash []byte, plaintext string) [sha256.Size]byte {
	d := sha256.New()
	d.Write(hash)
	d.Write([]byte{0})
	d.Write([]byte(plaintext))

	var key [sha256.Size]byte
	copy(key[:], d.Sum(nil))
	return key
}

// Ensure interface compliance.
var _ ports.Hasher = (*Bcrypt)(nil)

// Fake provides a no-op hasher for testing (NOT FOR PRODUCTION).
type Fake struct{}

// Hash returns the plaintext as bytes (no actual hashing).
func (Fake) Hash(plaintext string) ([]byte, error) {
	return []byte(plaintext), nil
}

// Compare does simple equality check.
func (Fake) Compare(hash []byte, plaintext string) bool {
	return plaintext != "" && string(hash) == plaintext
}

// Ensure interface compliance.
var _ ports.Hasher = Fake{}
