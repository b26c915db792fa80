package containerfs

import (
	"fmt"
	"unicode"
)

// Input validation helpers

// ValidateKey checks if a key has the correct size
func ValidateKey(key []byte, expectedSize int) error {
	if key == nil {
		return &ValidationError{
			Field:   "key",
			Message: "key cannot be nil",
			Err:     ErrInvalidKey,
		}
	}
	if len(key) != expectedSize {
		return &ValidationError{
			Field:   "key",
			Value:   len(key),
			Message: fmt.Sprintf("invalid key size: got %d bytes, expected %d bytes", len(key), expectedSize),
			Err:     ErrInvalidKey,
		}
	}
	return nil
}

// ValidateNonce checks if a nonce has the required AEAD nonce size
func ValidateNonce(nonce []byte) error {
	if nonce == nil {
		return &ValidationError{
			Field:   "nonce",
			Message: "nonce cannot be nil",
		}
	}
	if len(nonce) != NonceSize {
		return &ValidationError{
			Field:   "nonce",
			Value:   len(nonce),
			Message: fmt.Sprintf("invalid nonce size: got %d bytes, expected %d bytes", len(nonce), NonceSize),
		}
	}
	return nil
}

// ValidateSalt checks if a salt has the required size
func ValidateSalt(salt []byte) error {
	if salt == nil {
		return &ValidationError{
			Field:   "salt",
			Message: "salt cannot be nil",
		}
	}
	if len(salt) != SaltSize {
		return &ValidationError{
			Field:   "salt",
			Value:   len(salt),
			Message: fmt.Sprintf("invalid salt size: got %d bytes, expected %d bytes", len(salt), SaltSize),
		}
	}
	return nil
}

// MinPasswordLength is the minimum accepted password length
const MinPasswordLength = 8

// IsValidPassword reports whether a password meets the strength policy.
// It is a pure predicate for callers to apply before encrypting; Encrypt
// and Decrypt do not enforce it.
func IsValidPassword(password string) bool {
	return PasswordValidationError(password) == ""
}

// PasswordValidationError returns a human-readable reason a password fails
// the strength policy, or an empty string when it is acceptable.
func PasswordValidationError(password string) string {
	if len(password) < MinPasswordLength {
		return fmt.Sprintf("password must be at least %d characters", MinPasswordLength)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		return "password must contain at least one letter"
	}
	if !hasDigit {
		return "password must contain at least one digit"
	}
	return ""
}
