package auth

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Error("expected correct password to verify")
	}
	if VerifyPassword(hash, "wrong password") {
		t.Error("expected wrong password to fail verification")
	}
}

func TestVerifyPassword_BadHash(t *testing.T) {
	if VerifyPassword("not a bcrypt hash", "anything") {
		t.Error("expected malformed hash to fail verification")
	}
}
