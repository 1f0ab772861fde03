package security

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("q8#Vx2!pLm9Z")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := VerifyPassword("q8#Vx2!pLm9Z", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatal("expected match")
	}

	ok, err = VerifyPassword("wrong", hash)
	if err != nil {
		t.Fatalf("VerifyPassword mismatch: %v", err)
	}
	if ok {
		t.Fatal("expected mismatch")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	if _, err := VerifyPassword("whatever", "not-a-bcrypt-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestPasswordPolicy(t *testing.T) {
	policy := NewPasswordPolicy()

	if err := policy.Validate("short"); err == nil {
		t.Fatal("expected length rejection")
	}
	if err := policy.Validate("password"); err == nil {
		t.Fatal("expected weakness rejection")
	}
	if err := policy.Validate("q8#Vx2!pLm9Zw4Ry"); err != nil {
		t.Fatalf("strong password rejected: %v", err)
	}

	// Passwords derived from the username score lower.
	if err := policy.Validate("alicealice1", "alice", "alice@example.com"); err == nil {
		t.Fatal("expected rejection of username-derived password")
	}
}
