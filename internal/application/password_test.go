package application

import (
	"errors"
	"strings"
	"testing"
)

func TestCreatePasswordHash_RoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := CreatePasswordHash("correct horse battery staple", DefaultArgon2idParams)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	if err := VerifyPassword(hash, "correct horse battery staple"); err != nil {
		t.Fatalf("expected the password to verify, got %v", err)
	}
	if err := VerifyPassword(hash, "wrong password"); err == nil {
		t.Fatal("expected a wrong password to be rejected")
	}
}

func TestVerifyPassword_RejectsMalformedHash(t *testing.T) {
	t.Parallel()

	for _, hash := range []string{
		"",
		"plain",
		"$argon2id$v=19$broken",
		"$scrypt$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$version=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$not base64!$aGFzaA",
	} {
		if err := VerifyPassword(hash, "whatever"); !errors.Is(err, ErrInvalidPasswordHash) {
			t.Fatalf("expected ErrInvalidPasswordHash for %q, got %v", hash, err)
		}
	}
}

func TestCreatePasswordHash_SaltsDiffer(t *testing.T) {
	t.Parallel()

	first, err := CreatePasswordHash("same password", DefaultArgon2idParams)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	second, err := CreatePasswordHash("same password", DefaultArgon2idParams)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if first == second {
		t.Fatal("expected distinct salts to produce distinct hashes")
	}
}
