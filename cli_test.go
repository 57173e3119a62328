package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chatrelay/server/internal/settings"
	"chatrelay/server/internal/store"
)

// cliDBSetup creates a temp directory with an initialized store and returns
// the database path. The directory is cleaned up when the test finishes.
func cliDBSetup(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "chatrelay.db")
	st, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	st.Close()
	return dbPath
}

// captureCLI runs RunCLI with its output captured.
func captureCLI(t *testing.T, args []string, dbPath string) (bool, string) {
	t.Helper()
	var buf bytes.Buffer
	prev := cliOut
	cliOut = &buf
	defer func() { cliOut = prev }()
	handled := RunCLI(args, dbPath)
	return handled, buf.String()
}

func TestRunCLIVersion(t *testing.T) {
	handled, out := captureCLI(t, []string{"version"}, "not-used.db")
	if !handled {
		t.Fatal("RunCLI(version) should return true")
	}
	if !strings.Contains(out, Version) {
		t.Errorf("expected version in output, got %q", out)
	}
}

func TestRunCLIUnknownSubcommandReturnsFalse(t *testing.T) {
	if RunCLI([]string{"nonexistent-cmd"}, "not-used.db") {
		t.Error("RunCLI(unknown) should return false")
	}
}

func TestRunCLIEmptyArgsReturnsFalse(t *testing.T) {
	if RunCLI(nil, "not-used.db") {
		t.Error("RunCLI(nil) should return false")
	}
}

func TestCLIStatus(t *testing.T) {
	dbPath := cliDBSetup(t)
	handled, out := captureCLI(t, []string{"status"}, dbPath)
	if !handled {
		t.Fatal("RunCLI(status) should return true")
	}
	if !strings.Contains(out, "Family friendly: false") || !strings.Contains(out, "Audit entries: 0") {
		t.Errorf("unexpected status output: %q", out)
	}
}

func TestCLIConfigSetAndShow(t *testing.T) {
	dbPath := cliDBSetup(t)

	if handled, _ := captureCLI(t, []string{"config", "family-friendly", "true"}, dbPath); !handled {
		t.Fatal("config family-friendly should be handled")
	}
	if handled, _ := captureCLI(t, []string{"config", "terms", "darn, heck ,darn"}, dbPath); !handled {
		t.Fatal("config terms should be handled")
	}

	st, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	cfg, err := settings.NewStore(st).Load()
	st.Close()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.FamilyFriendly {
		t.Error("expected familyFriendly=true")
	}
	if len(cfg.FilteredTerms) != 2 || cfg.FilteredTerms[0] != "darn" || cfg.FilteredTerms[1] != "heck" {
		t.Errorf("unexpected terms: %v", cfg.FilteredTerms)
	}

	_, out := captureCLI(t, []string{"config"}, dbPath)
	if !strings.Contains(out, `"familyFriendly": true`) {
		t.Errorf("unexpected config output: %q", out)
	}
}

func TestCLIConfigRaw(t *testing.T) {
	dbPath := cliDBSetup(t)

	_, out := captureCLI(t, []string{"config", "raw"}, dbPath)
	if !strings.Contains(out, "No settings stored.") {
		t.Errorf("expected empty notice, got %q", out)
	}

	captureCLI(t, []string{"config", "family-friendly", "true"}, dbPath)
	handled, out := captureCLI(t, []string{"config", "raw"}, dbPath)
	if !handled {
		t.Fatal("config raw should be handled")
	}
	if !strings.Contains(out, settings.Key+" = ") || !strings.Contains(out, `"familyFriendly":true`) {
		t.Errorf("unexpected raw settings output: %q", out)
	}
}

func TestCLIAudit(t *testing.T) {
	dbPath := cliDBSetup(t)

	_, out := captureCLI(t, []string{"audit"}, dbPath)
	if !strings.Contains(out, "No audit entries") {
		t.Errorf("expected empty notice, got %q", out)
	}

	st, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	st.InsertAuditLog("a1", "root", "kick", "bob", `{"ok":true}`)
	st.InsertAuditLog("a1", "root", "ban", "carol", `{"ok":true}`)
	st.Close()

	_, out = captureCLI(t, []string{"audit", "kick"}, dbPath)
	if !strings.Contains(out, "kick") || strings.Contains(out, "carol") {
		t.Errorf("unexpected filtered audit output: %q", out)
	}
	_, out = captureCLI(t, []string{"audit", "all", "1"}, dbPath)
	if strings.Count(out, "\n") != 1 || !strings.Contains(out, "ban") {
		t.Errorf("expected newest entry only, got %q", out)
	}
}

func TestCLIBackup(t *testing.T) {
	dbPath := cliDBSetup(t)
	dest := filepath.Join(t.TempDir(), "copy.db")

	handled, out := captureCLI(t, []string{"backup", dest}, dbPath)
	if !handled {
		t.Fatal("RunCLI(backup) should return true")
	}
	if !strings.Contains(out, dest) {
		t.Errorf("unexpected backup output: %q", out)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("backup file missing: %v", err)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" alice, ,bob,")
	if len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Fatalf("splitList = %#v", got)
	}
	if splitList("") != nil {
		t.Fatal("empty input should yield nil")
	}
}

func TestEnvIntFallback(t *testing.T) {
	t.Setenv("HISTORY_PER_CHANNEL", "50")
	if n := envInt("HISTORY_PER_CHANNEL", 200); n != 50 {
		t.Fatalf("envInt = %d, want 50", n)
	}
	t.Setenv("HISTORY_PER_CHANNEL", "nope")
	if n := envInt("HISTORY_PER_CHANNEL", 200); n != 200 {
		t.Fatalf("envInt = %d, want fallback 200", n)
	}
}

func TestLoadSecret(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD", "plain")
	t.Setenv("ADMIN_PASSWORD_HASH", "")
	if s := loadSecret(); !s.Configured() || !s.Matches("plain") {
		t.Fatal("plain secret should be configured")
	}
	t.Setenv("ADMIN_PASSWORD", "")
	if s := loadSecret(); s.Configured() {
		t.Fatal("no secret expected")
	}
}
