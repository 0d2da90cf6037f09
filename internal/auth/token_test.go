package auth

import (
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	tokens, err := NewTokens("test-secret")
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}

	raw, err := tokens.Issue("profile-1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	subject, err := tokens.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != "profile-1" {
		t.Errorf("subject = %q, want %q", subject, "profile-1")
	}
}

func TestVerifyRejects(t *testing.T) {
	tokens, err := NewTokens("test-secret")
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	other, err := NewTokens("other-secret")
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}

	expired, err := tokens.Issue("profile-1", -time.Minute)
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}
	foreign, err := other.Issue("profile-1", time.Hour)
	if err != nil {
		t.Fatalf("issue foreign: %v", err)
	}

	tests := []struct {
		name string
		raw  string
	}{
		{"expired token", expired},
		{"wrong secret", foreign},
		{"garbage", "not-a-token"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tokens.Verify(tt.raw); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewTokensRequiresSecret(t *testing.T) {
	if _, err := NewTokens(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestIssueRequiresSubject(t *testing.T) {
	tokens, err := NewTokens("test-secret")
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	if _, err := tokens.Issue("", time.Hour); err == nil {
		t.Fatal("expected error for empty subject")
	}
}
