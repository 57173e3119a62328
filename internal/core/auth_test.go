package core

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPlainSecret(t *testing.T) {
	s := PlainSecret("hunter2")
	if !s.Configured() {
		t.Fatal("expected configured")
	}
	if !s.Matches("hunter2") || s.Matches("hunter3") || s.Matches("") {
		t.Fatal("plain secret comparison mismatch")
	}
	if s.String() != "(secret)" {
		t.Fatalf("String leaked %q", s.String())
	}
}

func TestHashedSecret(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	s := HashedSecret(string(hash))
	if !s.Configured() || !s.Matches("hunter2") || s.Matches("wrong") {
		t.Fatal("hashed secret comparison mismatch")
	}
}

func TestZeroSecretNeverMatches(t *testing.T) {
	var s Secret
	if s.Configured() || s.Matches("") || s.Matches("anything") {
		t.Fatal("zero secret must never match")
	}
	if HashedSecret("  ").Configured() {
		t.Fatal("blank hash must not configure a secret")
	}
	if s.String() != "(none)" {
		t.Fatalf("String = %q", s.String())
	}
}
