package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	return dir
}

func TestLoad_SortsByVersion(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"010_audit.sql":       "CREATE TABLE audit_event (id UUID PRIMARY KEY);",
		"001_core.sql":        "CREATE TABLE app_user (id UUID PRIMARY KEY);",
		"003_assignments.sql": "CREATE TABLE nurse_assignment (id UUID PRIMARY KEY);",
	})

	migrations, err := NewMigrator(nil, dir).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}

	wantOrder := []int{1, 3, 10}
	for i, mig := range migrations {
		if mig.Version != wantOrder[i] {
			t.Errorf("position %d: version %d, want %d", i, mig.Version, wantOrder[i])
		}
		if mig.SQL == "" {
			t.Errorf("position %d: empty SQL", i)
		}
	}
	if migrations[0].Name != "001_core.sql" {
		t.Errorf("first migration name = %q, want 001_core.sql", migrations[0].Name)
	}
}

func TestLoad_IgnoresForeignFiles(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"001_core.sql": "CREATE TABLE app_user (id UUID PRIMARY KEY);",
		"README.md":    "how to write migrations",
		"notes.sql":    "-- no version prefix",
		"draft_2.sql":  "-- prefix is not numeric",
	})
	if err := os.Mkdir(filepath.Join(dir, "archive"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	migrations, err := NewMigrator(nil, dir).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(migrations) != 1 {
		t.Fatalf("expected only the versioned file, got %d migrations", len(migrations))
	}
	if migrations[0].Version != 1 {
		t.Errorf("version = %d, want 1", migrations[0].Version)
	}
}

func TestLoad_EmptyDir(t *testing.T) {
	migrations, err := NewMigrator(nil, t.TempDir()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(migrations) != 0 {
		t.Errorf("expected no migrations, got %d", len(migrations))
	}
}

func TestLoad_MissingDir(t *testing.T) {
	_, err := NewMigrator(nil, filepath.Join(t.TempDir(), "absent")).Load()
	if err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		filename string
		version  int
		ok       bool
	}{
		{"001_core.sql", 1, true},
		{"002_audit.sql", 2, true},
		{"10_big_rename.sql", 10, true},
		{"core.sql", 0, false},
		{"x_core.sql", 0, false},
		{"001_core.txt", 0, false},
		{"001.sql", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			v, ok := parseVersion(tt.filename)
			if ok != tt.ok || v != tt.version {
				t.Errorf("parseVersion(%q) = (%d, %v), want (%d, %v)",
					tt.filename, v, ok, tt.version, tt.ok)
			}
		})
	}
}
