package auth

import (
	"testing"
	"time"
)

func TestIssuePair_RoundTrip(t *testing.T) {
	t.Parallel()

	mgr := NewManager("super-secret", time.Hour, 7*24*time.Hour)

	access, refresh, err := mgr.IssuePair("user_1a2b3c4d")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	claims, err := mgr.Verify(access)
	if err != nil {
		t.Fatalf("Verify(access) error: %v", err)
	}
	if claims.UserID != "user_1a2b3c4d" {
		t.Fatalf("user id mismatch: got %q", claims.UserID)
	}
	if claims.Type != TypeAccess {
		t.Fatalf("type mismatch: got %q want %q", claims.Type, TypeAccess)
	}

	claims, err = mgr.Verify(refresh)
	if err != nil {
		t.Fatalf("Verify(refresh) error: %v", err)
	}
	if claims.Type != TypeRefresh {
		t.Fatalf("type mismatch: got %q want %q", claims.Type, TypeRefresh)
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	mgr := NewManager("secret", -time.Second, -time.Second)

	access, _, err := mgr.IssuePair("u1")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	if _, err := mgr.Verify(access); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	access, _, err := NewManager("right-secret", time.Hour, time.Hour).IssuePair("u2")
	if err != nil {
		t.Fatalf("IssuePair error: %v", err)
	}

	if _, err := NewManager("wrong-secret", time.Hour, time.Hour).Verify(access); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	mgr := NewManager("k", time.Hour, time.Hour)

	for _, tok := range []string{"", "not.a.jwt", "garbage"} {
		if _, err := mgr.Verify(tok); err != ErrInvalidToken {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", tok, err)
		}
	}
}
