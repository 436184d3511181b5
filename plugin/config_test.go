package plugin

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{"database_path": "/tmp/x.db", "batch_size": 50}`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg["database_path"] != "/tmp/x.db" {
		t.Fatalf("database_path = %v", cfg["database_path"])
	}
	if cfg["batch_size"] != float64(50) {
		t.Fatalf("batch_size = %v (%T)", cfg["batch_size"], cfg["batch_size"])
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "database_path: /tmp/y.db\nstreams:\n  - users\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg["database_path"] != "/tmp/y.db" {
		t.Fatalf("database_path = %v", cfg["database_path"])
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	path := writeFile(t, "config.toml", "a = 1")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
	bad := writeFile(t, "bad.json", "{not json")
	if _, err := LoadConfig(bad); err == nil {
		t.Fatalf("expected parse error")
	}
}
