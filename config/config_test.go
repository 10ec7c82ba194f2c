package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	writeFile(t, path, `
[log]
verbosity = 2
file = "koto.log"

[debug]
print_code = true
trace_execution = true

[cache]
enabled = true
path = "build/chunks.db"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.Verbosity != 2 {
		t.Errorf("expected verbosity 2, got %d", cfg.Log.Verbosity)
	}
	if !cfg.Debug.PrintCode || !cfg.Debug.TraceExecution {
		t.Errorf("expected debug flags set, got %+v", cfg.Debug)
	}
	if !cfg.Cache.Enabled {
		t.Errorf("expected cache enabled")
	}
	if want := filepath.Join(dir, "build", "chunks.db"); cfg.CachePath() != want {
		t.Errorf("expected cache path %s, got %s", want, cfg.CachePath())
	}
	logFile := cfg.LogFile()
	if logFile == nil || *logFile != filepath.Join(dir, "koto.log") {
		t.Errorf("unexpected log file %v", logFile)
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	writeFile(t, path, "[cache]\nenabled = true\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(dir, ".koto", "cache.db"); cfg.CachePath() != want {
		t.Errorf("expected default cache path %s, got %s", want, cfg.CachePath())
	}
	if cfg.LogFile() != nil {
		t.Errorf("expected stderr logging, got %s", *cfg.LogFile())
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.toml")); err == nil {
		t.Errorf("expected error for missing file")
	}

	bad := filepath.Join(dir, FileName)
	writeFile(t, bad, "[log\nverbosity = ")
	if _, err := Load(bad); err == nil {
		t.Errorf("expected parse error")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), "[log]\nverbosity = 1\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	cfg, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Log.Verbosity != 1 {
		t.Errorf("expected the parent koto.toml to be used, got %+v", cfg)
	}
	if cfg.Dir != root {
		t.Errorf("expected dir %s, got %s", root, cfg.Dir)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Cache.Enabled {
		t.Errorf("cache should be off by default")
	}
	if cfg.CachePath() != filepath.Join(".koto", "cache.db") {
		t.Errorf("unexpected default cache path %s", cfg.CachePath())
	}
	if cfg.LogFile() != nil {
		t.Errorf("default logging goes to stderr")
	}
}
