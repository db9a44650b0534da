// Package password hashes and verifies account passwords with bcrypt.
//
// bcrypt only looks at the first 72 bytes of its input, so longer passwords
// are first reduced to the base64 encoding of their SHA-256 digest. Both Hash
// and Verify apply the same reduction.
package password

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCost = 12
	maxInputLen = 72
)

type Hasher struct {
	Cost int
}

var std = Hasher{Cost: DefaultCost}

func Hash(plain string) (string, error) {
	return std.Hash(plain)
}

func Verify(plain, hash string) bool {
	return std.Verify(plain, hash)
}

func (h Hasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = DefaultCost
	}

	hashed, err := bcrypt.GenerateFromPassword(normalize(plain), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify never fails loudly: a malformed hash is simply a mismatch.
func (h Hasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), normalize(plain)) == nil
}

func normalize(plain string) []byte {
	b := []byte(plain)
	if len(b) <= maxInputLen {
		return b
	}
	sum := sha256.Sum256(b)
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
