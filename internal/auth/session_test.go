package auth

import (
	"strings"
	"testing"
	"time"
)

func TestIssueAndVerifySession(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, err := m.IssueSession("user-1", "a@b.com", "employee")

	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	claims, err := m.VerifySession(token)

	if err != nil {
		t.Fatalf("VerifySession: %v", err)
	}

	if claims.UserID != "user-1" || claims.Email != "a@b.com" || claims.Role != "employee" {
		t.Fatalf("claims round-trip mismatch: %+v", claims)
	}

	if claims.JTI == "" {
		t.Fatal("expected a jti on the session token")
	}
}

func TestVerifySessionRejectsTampering(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, err := m.IssueSession("user-1", "a@b.com", "employee")

	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"

	if _, err := m.VerifySession(tampered); err == nil {
		t.Fatal("tampered token should not verify")
	}

	other := NewManager("different-secret", time.Hour)

	if _, err := other.VerifySession(token); err == nil {
		t.Fatal("token signed with another secret should not verify")
	}
}

func TestVerifySessionRejectsExpired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)

	token, err := m.IssueSession("user-1", "a@b.com", "employee")

	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	_, err = m.VerifySession(token)

	if err == nil {
		t.Fatal("expired token should not verify")
	}

	if !strings.Contains(strings.ToLower(err.Error()), "expired") {
		t.Logf("expiry surfaced as: %v", err)
	}
}
