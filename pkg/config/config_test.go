package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
environment: test
server:
  port: 8080
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.Workers != 12 {
		t.Fatalf("workers = %d, want 12", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.ProgressEvery != 30 {
		t.Fatalf("progress_every = %d, want 30", cfg.Pipeline.ProgressEvery)
	}
	if cfg.Archive.Timeout != 90*time.Second {
		t.Fatalf("archive timeout = %v", cfg.Archive.Timeout)
	}
	if cfg.Quotes.SymbolSuffix != "=X" {
		t.Fatalf("symbol suffix = %q", cfg.Quotes.SymbolSuffix)
	}
	if cfg.Quotes.MaxMissingFrac != 0.5 {
		t.Fatalf("max missing frac = %v", cfg.Quotes.MaxMissingFrac)
	}
	if cfg.Storage.Backend != "file" {
		t.Fatalf("backend = %q", cfg.Storage.Backend)
	}
	if cfg.Model.TopN != 5 {
		t.Fatalf("top_n = %d", cfg.Model.TopN)
	}
}

func TestLoadRejectsBadBackend(t *testing.T) {
	body := minimalConfig + `
storage:
  backend: postgres
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected error for unknown storage backend")
	}
}

func TestLoadRejectsKafkaWithoutBrokers(t *testing.T) {
	body := minimalConfig + `
kafka:
  enabled: true
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected error for enabled kafka without brokers")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("PIPELINE_START", "2024-02-01")
	t.Setenv("PIPELINE_WORKERS", "4")
	t.Setenv("STORAGE_BACKEND", "file")

	cfg, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if cfg.Pipeline.Start != "2024-02-01" {
		t.Fatalf("start = %q", cfg.Pipeline.Start)
	}
	if cfg.Pipeline.Workers != 4 {
		t.Fatalf("workers = %d", cfg.Pipeline.Workers)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
