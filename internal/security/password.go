package security

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the work factor used when none is configured.
const DefaultCost = 10

// bcrypt only accepts up to 72 bytes of input.
const maxBcryptInput = 72

var (
	ErrHashing = errors.New("error hashing")
	ErrCompare = errors.New("error comparing password")
)

// HashPassword hashes a plain text password with bcrypt at the given cost.
func HashPassword(plain string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword(bcryptInput(plain), cost)

	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}

	return string(hash), nil
}

// ComparePassword reports whether plain matches hash. A mismatch is (false, nil);
// only a broken hash or primitive failure yields an error.
func ComparePassword(plain, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(plain))

	if err == nil {
		return true, nil
	}

	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}

	return false, fmt.Errorf("%w: %v", ErrCompare, err)
}

// bcryptInput passes short passwords through unchanged. Longer ones are reduced to the
// base64 of their SHA-256 digest (44 bytes), so every byte still counts.
func bcryptInput(plain string) []byte {
	if len(plain) <= maxBcryptInput {
		return []byte(plain)
	}

	sum := sha256.Sum256([]byte(plain))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
