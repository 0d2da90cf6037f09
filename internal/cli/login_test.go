package cli

import (
	"strings"
	"testing"
)

func TestValidateToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"valid jwt", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiJwMSJ9.c2ln", false},
		{"empty", "", true},
		{"one segment", "abc123", true},
		{"two segments", "abc.def", true},
		{"four segments", "a.b.c.d", true},
		{"empty signature", "abc.def.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateToken(tt.token)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateToken(%q) err = %v, wantErr = %v", tt.token, err, tt.wantErr)
			}
		})
	}
}

func TestLoginFromStdin(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := runLogin(strings.NewReader("  aaa.bbb.ccc \n"), "http://api:8080", ""); err != nil {
		t.Fatalf("login: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Token != "aaa.bbb.ccc" {
		t.Errorf("token = %q, want trimmed token", cfg.Token)
	}
	if cfg.ServerURL != "http://api:8080" {
		t.Errorf("server_url = %q", cfg.ServerURL)
	}
}

func TestLoginFlagKeepsServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	if err := saveConfig(CLIConfig{ServerURL: "http://myhost:9090"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := runLogin(strings.NewReader(""), "", "aaa.bbb.ccc"); err != nil {
		t.Fatalf("login: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerURL != "http://myhost:9090" {
		t.Errorf("server_url = %q, want preserved", cfg.ServerURL)
	}
}

func TestLoginRejectsMalformedToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := runLogin(strings.NewReader("not-a-token\n"), "", ""); err == nil {
		t.Fatal("expected error for malformed token")
	}
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Token != "" {
		t.Errorf("token = %q, want nothing saved", cfg.Token)
	}
}
