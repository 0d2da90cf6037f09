package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/evcraddock/estate-bids/internal/db"
	"github.com/evcraddock/estate-bids/internal/profile"
)

func testAuthenticator(t *testing.T) (*Authenticator, *Tokens, *profile.Profile) {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	profiles := profile.NewRepository(d)
	p, err := profiles.Insert(context.Background(), &profile.Profile{Email: "mgr@example.com", Role: profile.RoleManager})
	if err != nil {
		t.Fatalf("insert profile: %v", err)
	}

	tokens, err := NewTokens("test-secret")
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	return NewAuthenticator(tokens, profiles), tokens, p
}

func TestRequireResolvesIdentity(t *testing.T) {
	a, tokens, p := testAuthenticator(t)

	raw, err := tokens.Issue(p.ID, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var got Identity
	handler := a.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/bids", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got.UserID != p.ID || got.Role != profile.RoleManager {
		t.Errorf("identity = %+v, want %s/manager", got, p.ID)
	}
	if !got.CanManage() {
		t.Error("manager identity should be able to manage")
	}
}

func TestRequireRejects(t *testing.T) {
	a, tokens, _ := testAuthenticator(t)

	unknown, err := tokens.Issue("no-such-profile", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"invalid token", "Bearer nope"},
		{"unknown profile", "Bearer " + unknown},
	}

	handler := a.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/bids", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestRequireSkipsHealth(t *testing.T) {
	a, _, _ := testAuthenticator(t)

	called := false
	handler := a.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))
	if !called {
		t.Error("expected /health to bypass auth")
	}
}

func TestRequireRateLimitsFailures(t *testing.T) {
	a, _, _ := testAuthenticator(t)
	handler := a.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	var last int
	for i := 0; i < failureBurst+1; i++ {
		req := httptest.NewRequest("GET", "/api/bids", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		req.Header.Set("Authorization", "Bearer bad")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		last = rec.Code
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("status after %d failures = %d, want %d", failureBurst, last, http.StatusTooManyRequests)
	}

	// Other clients are unaffected.
	req := httptest.NewRequest("GET", "/api/bids", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("other client status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
