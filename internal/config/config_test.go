package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"EB_PORT", "EB_BID_TTL", "EB_CLIENT_TIMEOUT", "EB_SMTP_PORT", "EB_REDIS_ADDR", "EB_DEV_MODE"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.BidTTL != 72*time.Hour {
		t.Errorf("BidTTL = %s, want 72h", cfg.BidTTL)
	}
	if cfg.ClientTimeout != 30*time.Second {
		t.Errorf("ClientTimeout = %s, want 30s", cfg.ClientTimeout)
	}
	if cfg.SMTPPort != "587" {
		t.Errorf("SMTPPort = %q, want 587", cfg.SMTPPort)
	}
	if cfg.QueueEnabled() {
		t.Error("queue should be off without EB_REDIS_ADDR")
	}
	if cfg.DevMode {
		t.Error("dev mode should default off")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("EB_PORT", "9090")
	t.Setenv("EB_BID_TTL", "1h")
	t.Setenv("EB_REDIS_ADDR", "localhost:6379")
	t.Setenv("EB_DEV_MODE", "true")
	t.Setenv("EB_SMTP_HOST", "smtp.example.com")
	t.Setenv("EB_SMTP_FROM", "bids@example.com")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != 9090 || cfg.BidTTL != time.Hour {
		t.Errorf("Port=%d BidTTL=%s", cfg.Port, cfg.BidTTL)
	}
	if !cfg.QueueEnabled() || !cfg.SMTPEnabled() || !cfg.DevMode {
		t.Errorf("expected queue, smtp and dev mode on: %+v", cfg)
	}
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"EB_PORT", "eighty"},
		{"EB_BID_TTL", "soon"},
		{"EB_CLIENT_TIMEOUT", "-5s"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := FromEnv(); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("EB_TEST_FROM_FILE=hello\nEB_TEST_PRESET=file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("EB_TEST_FROM_FILE", "")
	os.Unsetenv("EB_TEST_FROM_FILE")
	t.Setenv("EB_TEST_PRESET", "env")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("EB_TEST_FROM_FILE"); got != "hello" {
		t.Errorf("EB_TEST_FROM_FILE = %q, want hello", got)
	}
	if got := os.Getenv("EB_TEST_PRESET"); got != "env" {
		t.Errorf("EB_TEST_PRESET = %q, existing env should win", got)
	}

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing file should be ignored: %v", err)
	}
}
