package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("port = %d, want 8090", cfg.Server.Port)
	}
	if o := cfg.Origin(); o.X != 72 || o.Y != 72 {
		t.Errorf("origin = %+v, want (72,72)", o)
	}
	if !cfg.Storage.WatchPaths {
		t.Error("path watching disabled by default")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	content := `
server:
  port: 9000
field:
  originX: 0
  originY: 0
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if o := cfg.Origin(); o.X != 0 || o.Y != 0 {
		t.Errorf("origin = %+v, want (0,0)", o)
	}
	// Untouched sections keep their defaults.
	if cfg.Storage.PathsDirectory != "./data/paths" {
		t.Errorf("paths directory = %q", cfg.Storage.PathsDirectory)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte("server: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed config accepted")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Storage.DataDirectory = filepath.Join(base, "data")
	cfg.Storage.PathsDirectory = filepath.Join(base, "data", "paths")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if _, err := os.Stat(cfg.Storage.PathsDirectory); err != nil {
		t.Errorf("paths directory not created: %v", err)
	}
}
