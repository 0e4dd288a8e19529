// Package credential hashes and verifies user passwords with bcrypt.
package credential

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
)

// MinPasswordLength is counted in characters, not bytes.
const MinPasswordLength = 6

// bcrypt ignores input past 72 bytes; such passwords are rejected instead.
const maxPasswordBytes = 72

// Hasher hashes passwords at a fixed bcrypt cost.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher. A cost outside bcrypt's range falls back to
// bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// ValidatePassword enforces the length policy on a raw password.
func ValidatePassword(plaintext string) error {
	if utf8.RuneCountInString(plaintext) < MinPasswordLength {
		return core.Invalid(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if len(plaintext) > maxPasswordBytes {
		return core.Invalid(fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}

// Hash returns a salted bcrypt hash. Two calls on the same input differ.
func (h *Hasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", core.Invalid(fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes))
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether plaintext matches hash. Malformed or empty hashes
// never match.
func (h *Hasher) Verify(plaintext, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
