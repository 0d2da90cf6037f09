package cli

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestCommandsRejectBadArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"serve extra", []string{"serve", "extra"}, "unknown command"},
		{"worker extra", []string{"worker", "extra"}, "unknown command"},
		{"profile add no email", []string{"profile", "add"}, "accepts 1 arg"},
		{"profile add bad role", []string{"profile", "add", "a@example.com", "--role", "wizard"}, "invalid role"},
		{"token issue no id", []string{"token", "issue"}, "accepts 1 arg"},
		{"property show no id", []string{"property", "show"}, "accepts 1 arg"},
		{"property add no owner", []string{"property", "add", "Loft"}, "owner"},
		{"property add bad min", []string{"property", "add", "Loft", "--owner", "o1", "--min", "lots"}, "invalid --min"},
		{"property update min and clear", []string{"property", "update", "p1", "--min", "10", "--clear-min"}, "clear-min"},
		{"property transfer one arg", []string{"property", "transfer", "p1"}, "accepts 2 arg"},
		{"bid submit no property", []string{"bid", "submit"}, "accepts 1 arg"},
		{"bid submit no amount", []string{"bid", "submit", "p1"}, "amount"},
		{"bid submit bad amount", []string{"bid", "submit", "p1", "--amount", "abc"}, "invalid --amount"},
		{"bid submit bad deposit", []string{"bid", "submit", "p1", "--type", "rental", "--amount", "1500", "--months", "12", "--deposit", "x"}, "invalid --deposit"},
		{"bid submit bad move-in", []string{"bid", "submit", "p1", "--type", "rental", "--amount", "1500", "--months", "12", "--move-in", "next week"}, "invalid --move-in"},
		{"bid approve no id", []string{"bid", "approve"}, "accepts 1 arg"},
		{"bid withdraw two ids", []string{"bid", "withdraw", "b1", "b2"}, "accepts 1 arg"},
		{"notifications read no id", []string{"notifications", "read"}, "requires at least 1 arg"},
		{"login extra", []string{"login", "extra"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeCommand(tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestProfileAddAndList(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "estate.db")

	if _, err := executeCommand("profile", "add", "admin@example.com", "--role", "admin", "--name", "Admin", "--db", dbPath); err != nil {
		t.Fatalf("profile add: %v", err)
	}
	if _, err := executeCommand("profile", "add", "admin@example.com", "--role", "admin", "--db", dbPath); err == nil {
		t.Fatal("expected duplicate email to fail")
	}
	if _, err := executeCommand("profile", "list", "--role", "admin", "--db", dbPath, "--format", "json"); err != nil {
		t.Fatalf("profile list: %v", err)
	}
}

func TestTokenIssueRequiresSecret(t *testing.T) {
	t.Setenv("EB_JWT_SECRET", "")
	dbPath := filepath.Join(t.TempDir(), "estate.db")

	_, err := executeCommand("token", "issue", "p1", "--db", dbPath)
	if err == nil || !strings.Contains(err.Error(), "EB_JWT_SECRET") {
		t.Fatalf("err = %v, want missing secret", err)
	}
}

func TestTokenIssueUnknownProfile(t *testing.T) {
	t.Setenv("EB_JWT_SECRET", "test-secret")
	dbPath := filepath.Join(t.TempDir(), "estate.db")

	if _, err := executeCommand("token", "issue", "nobody", "--db", dbPath); err == nil {
		t.Fatal("expected error for unknown profile")
	}
}
