package containerfs

import (
	"bytes"
	mathrand "math/rand"
	"testing"

	"github.com/seehuhn/mt19937"
)

// fastKDF returns a PBKDF2 deriver with a low iteration count so tests stay
// fast. Production defaults are exercised separately.
func fastKDF() KeyDeriver {
	return NewPBKDF2KeyDeriver(PBKDF2Params{Iterations: 16})
}

// deterministicRand returns a seeded Mersenne Twister random source so
// salt/nonce generation is reproducible in tests.
func deterministicRand(seed int64) *mathrand.Rand {
	src := mt19937.New()
	src.Seed(seed)
	return mathrand.New(src)
}

func TestGenerateSalt_SizeAndUniqueness(t *testing.T) {
	a, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}
	b, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}

	if len(a) != SaltSize {
		t.Errorf("salt size: got %d, want %d", len(a), SaltSize)
	}
	if bytes.Equal(a, b) {
		t.Error("two generated salts are identical")
	}
}

func TestGenerateNonce_SizeAndUniqueness(t *testing.T) {
	a, err := GenerateNonce()
	if err != nil {
		t.Fatalf("GenerateNonce failed: %v", err)
	}
	b, err := GenerateNonce()
	if err != nil {
		t.Fatalf("GenerateNonce failed: %v", err)
	}

	if len(a) != NonceSize {
		t.Errorf("nonce size: got %d, want %d", len(a), NonceSize)
	}
	if bytes.Equal(a, b) {
		t.Error("two generated nonces are identical")
	}
}

func TestGenerate_DeterministicSource(t *testing.T) {
	s1, err := generateSalt(deterministicRand(42))
	if err != nil {
		t.Fatalf("generateSalt failed: %v", err)
	}
	s2, err := generateSalt(deterministicRand(42))
	if err != nil {
		t.Fatalf("generateSalt failed: %v", err)
	}

	if !bytes.Equal(s1, s2) {
		t.Error("same seed should yield the same salt")
	}
}

func TestPBKDF2KeyDeriver_DeriveKey(t *testing.T) {
	kdf := fastKDF()
	password := []byte("test-password")
	salt := bytes.Repeat([]byte{0x5a}, SaltSize)

	key1, err := kdf.DeriveKey(password, salt)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if len(key1) != KeySize {
		t.Fatalf("key size: got %d, want %d", len(key1), KeySize)
	}

	// Same inputs, same key.
	key2, err := kdf.DeriveKey(password, salt)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if !bytes.Equal(key1, key2) {
		t.Error("same (password, salt) should yield the same key")
	}

	// Different salt, different key.
	otherSalt := bytes.Repeat([]byte{0xa5}, SaltSize)
	key3, err := kdf.DeriveKey(password, otherSalt)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if bytes.Equal(key1, key3) {
		t.Error("different salts should yield different keys")
	}
}

func TestPBKDF2KeyDeriver_EmptyInputs(t *testing.T) {
	kdf := fastKDF()
	salt := bytes.Repeat([]byte{1}, SaltSize)

	if _, err := kdf.DeriveKey(nil, salt); err == nil {
		t.Error("DeriveKey with empty password should fail")
	}
	if _, err := kdf.DeriveKey([]byte("pw"), nil); err == nil {
		t.Error("DeriveKey with empty salt should fail")
	}
	if _, err := kdf.HashPassword(nil, salt); err == nil {
		t.Error("HashPassword with empty password should fail")
	}
}

func TestKeyDeriver_HashDoesNotRevealKey(t *testing.T) {
	for name, kdf := range map[string]KeyDeriver{
		"pbkdf2":   fastKDF(),
		"argon2id": NewArgon2idKeyDeriver(Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1}),
	} {
		password := []byte("hunter42hunter")
		salt := bytes.Repeat([]byte{7}, SaltSize)

		key, err := kdf.DeriveKey(password, salt)
		if err != nil {
			t.Fatalf("%s: DeriveKey failed: %v", name, err)
		}
		hash, err := kdf.HashPassword(password, salt)
		if err != nil {
			t.Fatalf("%s: HashPassword failed: %v", name, err)
		}

		if len(hash) == len(key) {
			t.Errorf("%s: hash and key have the same length", name)
		}
		if bytes.Equal(hash[:KeySize], key) {
			t.Errorf("%s: password hash prefix equals the encryption key", name)
		}
	}
}

func TestKeyDeriver_VerifyPassword(t *testing.T) {
	for name, kdf := range map[string]KeyDeriver{
		"pbkdf2":   fastKDF(),
		"argon2id": NewArgon2idKeyDeriver(Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1}),
	} {
		password := []byte("correct-horse")
		salt := bytes.Repeat([]byte{3}, SaltSize)

		hash, err := kdf.HashPassword(password, salt)
		if err != nil {
			t.Fatalf("%s: HashPassword failed: %v", name, err)
		}

		if !kdf.VerifyPassword(password, hash, salt) {
			t.Errorf("%s: correct password should verify", name)
		}
		if kdf.VerifyPassword([]byte("wrong"), hash, salt) {
			t.Errorf("%s: wrong password should not verify", name)
		}
		if kdf.VerifyPassword(password, hash, bytes.Repeat([]byte{4}, SaltSize)) {
			t.Errorf("%s: wrong salt should not verify", name)
		}
		if kdf.VerifyPassword(password, hash[:len(hash)-1], salt) {
			t.Errorf("%s: truncated hash should not verify", name)
		}
	}
}

func TestArgon2idKeyDeriver_Deterministic(t *testing.T) {
	kdf := NewArgon2idKeyDeriver(Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1})
	password := []byte("some password")
	salt := bytes.Repeat([]byte{9}, SaltSize)

	key1, err := kdf.DeriveKey(password, salt)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	key2, err := kdf.DeriveKey(password, salt)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}

	if len(key1) != KeySize {
		t.Errorf("key size: got %d, want %d", len(key1), KeySize)
	}
	if !bytes.Equal(key1, key2) {
		t.Error("same (password, salt) should yield the same key")
	}
}
