package auth

import (
	"strings"
	"testing"
)

func TestHashPassword_Deterministic(t *testing.T) {
	t.Parallel()

	// golden value pins the fixed-salt scheme existing user files
	// depend on
	const want = "669ba1ff3afeb6b0fe5b3e6151c5a98a04e5887adba1c4386f6b50c1d39c38f9"

	if got := HashPassword("password123"); got != want {
		t.Fatalf("hash mismatch: got %s want %s", got, want)
	}
	if HashPassword("password123") != HashPassword("password123") {
		t.Fatal("same password must hash identically")
	}
}

func TestCheckPassword(t *testing.T) {
	t.Parallel()

	hash := HashPassword("password123")

	if !CheckPassword("password123", hash) {
		t.Fatal("correct password rejected")
	}
	if CheckPassword("password124", hash) {
		t.Fatal("wrong password accepted")
	}
}

func TestNewUserID_Format(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id, err := NewUserID()
		if err != nil {
			t.Fatalf("NewUserID error: %v", err)
		}
		if !strings.HasPrefix(id, "user_") || len(id) != len("user_")+8 {
			t.Fatalf("unexpected id format: %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id generated: %q", id)
		}
		seen[id] = true
	}
}
