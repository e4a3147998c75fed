// Package crypto provides cryptographic utilities for Candela.
package crypto

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password with bcrypt at the default cost.
// The returned digest embeds its own salt and cost parameter, so hashing
// the same password twice yields different digests.
func HashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// CheckPassword verifies a password against a bcrypt digest.
// bcrypt recomputes using the parameters embedded in the digest and compares
// in constant time. A malformed digest is reported as a plain mismatch,
// never as an error the caller has to handle separately.
func CheckPassword(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
