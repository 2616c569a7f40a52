package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ferro-labs/dockerhub-mcp/internal/journal"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestValidate(t *testing.T) {
	path := writeFile(t, "config.yaml", `
github:
  enabled: false
cache:
  info_ttl: 1m
server:
  transport: http
  addr: ":9090"
`)
	out, err := runCmd(t, "validate", path)
	if err != nil {
		t.Fatalf("validate error: %v\n%s", err, out)
	}
	for _, want := range []string{"Config is valid", "GitHub:     disabled", "info=1m0s", "Transport:  http"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidate_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "cache:\n  ttl_forever: true\n"},
		{"bad transport", "server:\n  transport: grpc\n"},
		{"bad duration", "retry:\n  base_delay: soon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "config.yaml", tt.content)
			if _, err := runCmd(t, "validate", path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_RequiresPath(t *testing.T) {
	if _, err := runCmd(t, "validate"); err == nil {
		t.Error("expected an argument error")
	}
}

func TestVersion(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.Contains(out, "dockerhub-mcp version: ") || !strings.Contains(out, "go version: go") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestHistory(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "journal.db")
	store, err := journal.NewSQLiteStore(dsn)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	entries := []journal.Entry{
		{Tool: "get_readme", Arguments: `{"package_name":"nginx"}`, Outcome: "success", DurationMS: 12, CreatedAt: base},
		{Tool: "search", Arguments: `{"query":"redis"}`, Outcome: "success", DurationMS: 40, CreatedAt: base.Add(time.Hour)},
		{Tool: "get_info", Arguments: `{"package_name":"acme/ghost"}`, Outcome: "not_found", DurationMS: 7, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, e := range entries {
		if err := store.Write(context.Background(), e); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	_ = store.Close()

	t.Setenv("HUBMCP_CONFIG", "")
	t.Setenv("HUBMCP_JOURNAL_DSN", dsn)

	out, err := runCmd(t, "history", "--limit", "2")
	if err != nil {
		t.Fatalf("history error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 of 3 entries") {
		t.Errorf("missing summary:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 || !strings.Contains(lines[1], "get_info") || !strings.Contains(lines[2], "search") {
		t.Errorf("expected newest first:\n%s", out)
	}

	out, err = runCmd(t, "history", "--tool", "get_readme")
	if err != nil {
		t.Fatalf("history error: %v", err)
	}
	if !strings.Contains(out, "nginx") || strings.Contains(out, "redis") {
		t.Errorf("tool filter not applied:\n%s", out)
	}
}

func TestHistory_JournalDisabled(t *testing.T) {
	t.Setenv("HUBMCP_CONFIG", "")
	t.Setenv("HUBMCP_JOURNAL_DRIVER", "")
	t.Setenv("HUBMCP_JOURNAL_DSN", "")
	_, err := runCmd(t, "history")
	if err == nil || !strings.Contains(err.Error(), "journal is disabled") {
		t.Errorf("err = %v, want journal disabled", err)
	}
}
