package containerfs

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"errors"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltSize is the size of key derivation salts in bytes
	SaltSize = 32

	// NonceSize is the AEAD nonce size in bytes. Both supported cipher
	// suites use 12-byte nonces.
	NonceSize = 12

	// TagSize is the AEAD authentication tag size in bytes, appended to
	// the ciphertext.
	TagSize = 16

	// KeySize is the derived encryption key size in bytes (AES-256 /
	// ChaCha20 key size).
	KeySize = 32

	// passwordHashSize is the size of stored password hashes. Deliberately
	// distinct from KeySize so the hash and the key are unrelated outputs.
	passwordHashSize = 64
)

// GenerateSalt generates a new random salt using crypto/rand
func GenerateSalt() ([]byte, error) {
	return generateSalt(rand.Reader)
}

// GenerateNonce generates a new random AEAD nonce using crypto/rand
func GenerateNonce() ([]byte, error) {
	return generateNonce(rand.Reader)
}

func generateSalt(r io.Reader) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

func generateNonce(r io.Reader) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

// PBKDF2KeyDeriver implements KeyDeriver using PBKDF2
type PBKDF2KeyDeriver struct {
	params PBKDF2Params
}

// NewPBKDF2KeyDeriver creates a new PBKDF2-based key deriver
func NewPBKDF2KeyDeriver(params PBKDF2Params) *PBKDF2KeyDeriver {
	// Set defaults
	if params.Iterations == 0 {
		params.Iterations = 100000
	}

	return &PBKDF2KeyDeriver{params: params}
}

// DeriveKey derives a KeySize-byte encryption key from the password and salt
func (d *PBKDF2KeyDeriver) DeriveKey(password, salt []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	if len(salt) == 0 {
		return nil, errors.New("salt cannot be empty")
	}

	var hashFunc func() hash.Hash
	switch d.params.HashFunc {
	case SHA256:
		hashFunc = sha256.New
	case SHA512:
		hashFunc = sha512.New
	default:
		return nil, fmt.Errorf("unsupported hash function: %v", d.params.HashFunc)
	}

	return pbkdf2.Key(password, salt, d.params.Iterations, KeySize, hashFunc), nil
}

// HashPassword computes a verification hash for the password. The hash uses
// SHA-512 and a different output length than DeriveKey, so it never reveals
// the encryption key.
func (d *PBKDF2KeyDeriver) HashPassword(password, salt []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	if len(salt) == 0 {
		return nil, errors.New("salt cannot be empty")
	}

	return pbkdf2.Key(password, salt, d.params.Iterations, passwordHashSize, sha512.New), nil
}

// VerifyPassword reports whether password matches the stored hash in
// constant time.
func (d *PBKDF2KeyDeriver) VerifyPassword(password, hash, salt []byte) bool {
	computed, err := d.HashPassword(password, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(computed, hash) == 1
}

// Argon2idKeyDeriver implements KeyDeriver using Argon2id (memory-hard,
// resistant to GPU attacks)
type Argon2idKeyDeriver struct {
	params Argon2idParams
}

// NewArgon2idKeyDeriver creates a new Argon2id-based key deriver
func NewArgon2idKeyDeriver(params Argon2idParams) *Argon2idKeyDeriver {
	// Set defaults
	if params.Memory == 0 {
		params.Memory = 64 * 1024 // 64 MB
	}
	if params.Iterations == 0 {
		params.Iterations = 3
	}
	if params.Parallelism == 0 {
		params.Parallelism = 4
	}

	return &Argon2idKeyDeriver{params: params}
}

// DeriveKey derives a KeySize-byte encryption key from the password and salt
func (d *Argon2idKeyDeriver) DeriveKey(password, salt []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	if len(salt) == 0 {
		return nil, errors.New("salt cannot be empty")
	}

	key := argon2.IDKey(
		password,
		salt,
		d.params.Iterations,
		d.params.Memory,
		d.params.Parallelism,
		KeySize,
	)
	return key, nil
}

// HashPassword computes a verification hash for the password. Argon2id
// outputs of different lengths are unrelated, so the hash never reveals
// the encryption key.
func (d *Argon2idKeyDeriver) HashPassword(password, salt []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	if len(salt) == 0 {
		return nil, errors.New("salt cannot be empty")
	}

	h := argon2.IDKey(
		password,
		salt,
		d.params.Iterations,
		d.params.Memory,
		d.params.Parallelism,
		passwordHashSize,
	)
	return h, nil
}

// VerifyPassword reports whether password matches the stored hash in
// constant time.
func (d *Argon2idKeyDeriver) VerifyPassword(password, hash, salt []byte) bool {
	computed, err := d.HashPassword(password, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(computed, hash) == 1
}
