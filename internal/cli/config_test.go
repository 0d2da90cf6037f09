package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigSaveAndLoad(t *testing.T) {
	// Use a temp dir as home
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfg := CLIConfig{
		ServerURL: "http://myhost:9090",
		Token:     "aaa.bbb.ccc",
	}

	if err := saveConfig(cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	path := filepath.Join(tmp, ".config", "eb", "config.yaml")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not found: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config mode = %o, want 600", perm)
	}

	loaded, err := loadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ServerURL != cfg.ServerURL {
		t.Errorf("server_url = %q, want %q", loaded.ServerURL, cfg.ServerURL)
	}
	if loaded.Token != cfg.Token {
		t.Errorf("token = %q, want %q", loaded.Token, cfg.Token)
	}
}

func TestConfigLoadMissing(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if cfg.ServerURL != "" || cfg.Token != "" {
		t.Error("expected zero-value config for missing file")
	}
}

func TestConfigLoadMalformed(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	path := filepath.Join(tmp, ".config", "eb", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("server_url: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := loadConfig(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestGetServerURLFromEnv(t *testing.T) {
	t.Setenv("EB_SERVER_URL", "http://custom:1234")
	t.Setenv("HOME", t.TempDir())

	url := getServerURL()
	if url != "http://custom:1234" {
		t.Errorf("url = %q, want %q", url, "http://custom:1234")
	}
}

func TestGetServerURLDefault(t *testing.T) {
	t.Setenv("EB_SERVER_URL", "")
	t.Setenv("HOME", t.TempDir())

	url := getServerURL()
	if url != "http://localhost:8080" {
		t.Errorf("url = %q, want %q", url, "http://localhost:8080")
	}
}

func TestGetTokenFromEnv(t *testing.T) {
	t.Setenv("EB_TOKEN", "env.token.value")
	t.Setenv("HOME", t.TempDir())

	if got := getToken(); got != "env.token.value" {
		t.Errorf("token = %q, want %q", got, "env.token.value")
	}
}

func TestGetTokenFromConfig(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("EB_TOKEN", "")

	if err := saveConfig(CLIConfig{Token: "config.token.value"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if got := getToken(); got != "config.token.value" {
		t.Errorf("token = %q, want %q", got, "config.token.value")
	}
}

func TestGetTokenEmpty(t *testing.T) {
	t.Setenv("EB_TOKEN", "")
	t.Setenv("HOME", t.TempDir())

	if got := getToken(); got != "" {
		t.Errorf("token = %q, want empty", got)
	}
}
