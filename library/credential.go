package library

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

const minSecretLen = 4

// HashSecret derives the stored credential verifier from a plaintext
// secret. The digest is deterministic: equal secrets always yield
// equal verifiers.
func HashSecret(secret string) string {
	sum := sha3.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// VerifySecret checks a plaintext secret against a stored verifier.
// An empty verifier never matches.
func VerifySecret(secret, verifier string) bool {
	return verifier != "" && HashSecret(secret) == verifier
}

// ValidateNewSecret applies the registration rules: minimum length,
// then a matching confirmation entry.
func ValidateNewSecret(secret, confirm string) error {
	if len(secret) < minSecretLen {
		return ErrSecretTooShort
	}
	if secret != confirm {
		return ErrSecretMismatch
	}
	return nil
}
