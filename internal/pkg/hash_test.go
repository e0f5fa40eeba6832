package pkg

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "correct horse" {
		t.Fatalf("password must not be stored in the clear")
	}

	if !VerifyPassword("correct horse", hash) {
		t.Fatalf("correct password must verify")
	}
	if VerifyPassword("wrong", hash) {
		t.Fatalf("wrong password must not verify")
	}
	if VerifyPassword("", hash) || VerifyPassword("correct horse", "") {
		t.Fatalf("empty inputs must not verify")
	}

	if _, err := HashPassword(""); err == nil {
		t.Fatalf("empty password must be rejected")
	}
}

func TestHashPasswordSaltsEachCall(t *testing.T) {
	a, _ := HashPassword("same input")
	b, _ := HashPassword("same input")
	if a == b {
		t.Fatalf("bcrypt must salt every hash")
	}
}

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken(16)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if len(token) != 32 {
		t.Fatalf("expected 32 hex chars for 16 bytes, got %d", len(token))
	}

	other, _ := GenerateSecureToken(16)
	if token == other {
		t.Fatalf("tokens must not repeat")
	}

	if _, err := GenerateSecureToken(0); err == nil {
		t.Fatalf("non-positive length must be rejected")
	}
}

func TestChecksumSHA256(t *testing.T) {
	sum, err := ChecksumSHA256(strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("checksum failed: %v", err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if sum != want {
		t.Fatalf("checksum mismatch: got %s", sum)
	}
}
