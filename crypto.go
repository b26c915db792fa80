package containerfs

import (
	"bytes"
	"fmt"
	"io"
)

// AEADEncryptor is the production Encryptor. It derives a key from the
// password via its KeyDeriver and applies authenticated encryption; the
// output is ciphertext with the TagSize-byte authentication tag appended.
type AEADEncryptor struct {
	suite CipherSuite
	kdf   KeyDeriver
}

// NewAEADEncryptor creates an Encryptor for the given cipher suite and key
// deriver. A nil kdf defaults to PBKDF2 with standard parameters.
func NewAEADEncryptor(suite CipherSuite, kdf KeyDeriver) (*AEADEncryptor, error) {
	switch suite {
	case CipherAuto:
		suite = CipherAES256GCM
	case CipherAES256GCM, CipherChaCha20Poly1305:
	default:
		return nil, ErrUnsupportedCipher
	}

	if kdf == nil {
		kdf = NewPBKDF2KeyDeriver(PBKDF2Params{})
	}

	return &AEADEncryptor{suite: suite, kdf: kdf}, nil
}

// DeriveKey derives the encryption key for the given password and salt
func (e *AEADEncryptor) DeriveKey(password, salt []byte) ([]byte, error) {
	return e.kdf.DeriveKey(password, salt)
}

// Encrypt encrypts data with a key derived from password and salt. The
// returned buffer is ciphertext||tag.
func (e *AEADEncryptor) Encrypt(data, password, salt, nonce []byte) ([]byte, error) {
	if err := ValidateNonce(nonce); err != nil {
		return nil, err
	}

	key, err := e.kdf.DeriveKey(password, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	aead, err := newAEAD(e.suite, key)
	if err != nil {
		return nil, err
	}

	return aead.Seal(nil, nonce, data, nil), nil
}

// Decrypt authenticates and decrypts data produced by Encrypt. It fails
// with an AuthenticationError when the input is shorter than the tag or
// when tag verification fails (tampering, wrong password, wrong salt or
// nonce). No plaintext is returned on failure.
func (e *AEADEncryptor) Decrypt(data, password, salt, nonce []byte) ([]byte, error) {
	if err := ValidateNonce(nonce); err != nil {
		return nil, err
	}
	if len(data) < TagSize {
		return nil, NewAuthenticationError("", ErrAuthFailed)
	}

	key, err := e.kdf.DeriveKey(password, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	aead, err := newAEAD(e.suite, key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, data, nil)
	if err != nil {
		return nil, NewAuthenticationError("", ErrAuthFailed)
	}

	return plaintext, nil
}

// EncryptStream reads all of src, encrypts it, and writes the result to
// dst. The full plaintext is materialized in memory before encryption.
func (e *AEADEncryptor) EncryptStream(dst io.Writer, src io.Reader, password, salt, nonce []byte) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("failed to read plaintext stream: %w", err)
	}

	ciphertext, err := e.Encrypt(data, password, salt, nonce)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, bytes.NewReader(ciphertext)); err != nil {
		return fmt.Errorf("failed to write ciphertext stream: %w", err)
	}
	return nil
}

// DecryptStream reads all of src, decrypts it, and writes the result to
// dst. Nothing is written to dst when authentication fails.
func (e *AEADEncryptor) DecryptStream(dst io.Writer, src io.Reader, password, salt, nonce []byte) error {
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("failed to read ciphertext stream: %w", err)
	}

	plaintext, err := e.Decrypt(data, password, salt, nonce)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, bytes.NewReader(plaintext)); err != nil {
		return fmt.Errorf("failed to write plaintext stream: %w", err)
	}
	return nil
}
