package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.Database.Backend != "sqlite" {
		t.Errorf("Backend = %q, want sqlite", cfg.Database.Backend)
	}
	if cfg.Database.SQLitePath != "radio_stations.db" {
		t.Errorf("SQLitePath = %q, want radio_stations.db", cfg.Database.SQLitePath)
	}
	if cfg.Fetch.Timeout() != 120*time.Second {
		t.Errorf("Fetch.Timeout() = %s, want 120s", cfg.Fetch.Timeout())
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
database:
  backend: postgres
  postgres:
    host: db.internal
    port: 5433
    database: stations
    user: app
    password: secret
fetch:
  timeout_seconds: 30
nats:
  url: nats://queue.internal:4222
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Backend != "postgres" {
		t.Errorf("Backend = %q, want postgres", cfg.Database.Backend)
	}
	if cfg.Database.Postgres.Host != "db.internal" || cfg.Database.Postgres.Port != 5433 {
		t.Errorf("Postgres = %+v, want db.internal:5433", cfg.Database.Postgres)
	}
	if cfg.Fetch.Timeout() != 30*time.Second {
		t.Errorf("Fetch.Timeout() = %s, want 30s", cfg.Fetch.Timeout())
	}
	if cfg.NATS.URL != "nats://queue.internal:4222" {
		t.Errorf("NATS.URL = %q", cfg.NATS.URL)
	}

	// Unset sections keep their defaults.
	if cfg.Database.SQLitePath != "radio_stations.db" {
		t.Errorf("SQLitePath = %q, want default preserved", cfg.Database.SQLitePath)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, "database:\n  backend: oracle\n")
	if _, err := Load(path); err == nil {
		t.Error("Load() = nil error, want rejection of unknown backend")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() = nil error, want failure for missing explicit path")
	}
}

func TestEnvOverridesAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	path := writeConfig(t, "genre:\n  api_key: file-key\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Genre.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key (env wins over file)", cfg.Genre.APIKey)
	}
}

func TestStorageConfigConversion(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	sc := cfg.StorageConfig()
	if sc.Backend != cfg.Database.Backend || sc.SQLitePath != cfg.Database.SQLitePath {
		t.Errorf("StorageConfig() = %+v, mismatch with %+v", sc, cfg.Database)
	}
	if sc.Postgres.Host != cfg.Database.Postgres.Host {
		t.Errorf("Postgres.Host = %q, want %q", sc.Postgres.Host, cfg.Database.Postgres.Host)
	}
}
