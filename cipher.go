package containerfs

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// newAEAD constructs the AEAD primitive for the given cipher suite and key.
// Both suites use NonceSize-byte nonces and TagSize-byte tags.
func newAEAD(suite CipherSuite, key []byte) (cipher.AEAD, error) {
	if err := ValidateKey(key, KeySize); err != nil {
		return nil, err
	}

	switch suite {
	case CipherAES256GCM, CipherAuto:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create AES cipher: %w", err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCM: %w", err)
		}
		return aead, nil

	case CipherChaCha20Poly1305:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 cipher: %w", err)
		}
		return aead, nil

	default:
		return nil, ErrUnsupportedCipher
	}
}
