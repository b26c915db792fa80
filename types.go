package containerfs

import (
	"crypto/rand"
	"errors"
	"io"
)

// CipherSuite represents the AEAD algorithm used for container content.
type CipherSuite uint8

const (
	// CipherAuto selects the default cipher suite (currently AES-256-GCM)
	CipherAuto CipherSuite = iota
	// CipherAES256GCM uses AES-256 with Galois/Counter Mode
	CipherAES256GCM
	// CipherChaCha20Poly1305 uses ChaCha20 stream cipher with Poly1305 MAC
	CipherChaCha20Poly1305
)

// String returns the string representation of the cipher suite
func (c CipherSuite) String() string {
	switch c {
	case CipherAuto:
		return "auto"
	case CipherAES256GCM:
		return "aes-256-gcm"
	case CipherChaCha20Poly1305:
		return "chacha20-poly1305"
	default:
		return "unknown"
	}
}

// HashFunc represents hash function types for PBKDF2
type HashFunc uint8

const (
	// SHA256 hash function
	SHA256 HashFunc = iota
	// SHA512 hash function
	SHA512
)

// PBKDF2Params contains parameters for PBKDF2 key derivation
type PBKDF2Params struct {
	Iterations int      // Number of iterations (minimum 100,000 recommended)
	HashFunc   HashFunc // Hash function to use
}

// Argon2idParams contains parameters for Argon2id key derivation
type Argon2idParams struct {
	Memory      uint32 // Memory in KiB (e.g., 64*1024 for 64MB)
	Iterations  uint32 // Number of iterations (time parameter)
	Parallelism uint8  // Degree of parallelism
}

// KeyDeriver turns a password and salt into a symmetric key, and into a
// separate password hash used to authenticate the password without
// revealing the key.
type KeyDeriver interface {
	// DeriveKey derives a KeySize-byte encryption key from password and salt.
	// The same (password, salt) pair always yields the same key.
	DeriveKey(password, salt []byte) ([]byte, error)

	// HashPassword computes a verification hash of the password. The hash is
	// safe to persist: it does not reveal the encryption key.
	HashPassword(password, salt []byte) ([]byte, error)

	// VerifyPassword reports whether password matches a stored hash.
	// The comparison is constant-time.
	VerifyPassword(password, hash, salt []byte) bool
}

// Encryptor is the capability set required to protect container content.
// The production implementation is AEADEncryptor; tests substitute a
// deterministic fake.
type Encryptor interface {
	// Encrypt encrypts data, returning ciphertext with the authentication
	// tag appended.
	Encrypt(data, password, salt, nonce []byte) ([]byte, error)

	// Decrypt authenticates and decrypts data produced by Encrypt. No
	// plaintext is returned when authentication fails.
	Decrypt(data, password, salt, nonce []byte) ([]byte, error)

	// DeriveKey exposes the underlying key derivation.
	DeriveKey(password, salt []byte) ([]byte, error)
}

// Config contains configuration for a container session
type Config struct {
	// Cipher suite used when saving with a password
	Cipher CipherSuite

	// KDF derives keys and password hashes. Defaults to PBKDF2 with
	// standard parameters.
	KDF KeyDeriver

	// Encryptor overrides the content encryption backend. Defaults to an
	// AEADEncryptor built from Cipher and KDF.
	Encryptor Encryptor

	// Collections are the logical document collections seeded by Create,
	// one JSON file each.
	Collections []string

	// Accountants are collaborator names recorded in the footer.
	Accountants []string

	// BiometricEnabled is recorded in the footer as an application-level
	// feature flag.
	BiometricEnabled bool

	// Rand is the random source for salts, nonces and scratch names.
	// Defaults to crypto/rand.Reader.
	Rand io.Reader
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	switch c.Cipher {
	case CipherAuto, CipherAES256GCM, CipherChaCha20Poly1305:
	default:
		return ErrUnsupportedCipher
	}
	return nil
}

// withDefaults returns a copy of the config with zero fields filled in.
func (c *Config) withDefaults() *Config {
	out := *c
	if out.Cipher == CipherAuto {
		out.Cipher = CipherAES256GCM
	}
	if out.KDF == nil {
		out.KDF = NewPBKDF2KeyDeriver(PBKDF2Params{})
	}
	if out.Rand == nil {
		out.Rand = rand.Reader
	}
	if len(out.Collections) == 0 {
		out.Collections = []string{"documents"}
	}
	return &out
}
