package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Backend != BackendPostgres {
		t.Fatalf("expected postgres backend, got %q", cfg.Backend)
	}
	if cfg.Query.DefaultPerPage != 15 || cfg.Query.MaxPerPage != 500 {
		t.Fatalf("unexpected query defaults %+v", cfg.Query)
	}
	if cfg.Cache.ProfileTTL != 5*time.Minute {
		t.Fatalf("expected 5m profile ttl, got %s", cfg.Cache.ProfileTTL)
	}
	if cfg.File != "" {
		t.Fatalf("expected no config file, got %q", cfg.File)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
server:
  port: 9090
storage:
  backend: memory
query:
  default_per_page: 20
database:
  host: db.internal
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BARIQE_DATABASE_HOST", "env-host")
	t.Setenv("BARIQE_QUERY_STRICT_FILTERS", "true")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port from file, got %d", cfg.Server.Port)
	}
	if cfg.Backend != BackendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.Backend)
	}
	if cfg.Query.DefaultPerPage != 20 {
		t.Fatalf("expected per page from file, got %d", cfg.Query.DefaultPerPage)
	}
	if cfg.Database.Host != "env-host" {
		t.Fatalf("expected env to override file, got %q", cfg.Database.Host)
	}
	if !cfg.Query.StrictFilters {
		t.Fatalf("expected strict filters from env")
	}
	if cfg.File == "" {
		t.Fatalf("expected config file to be reported")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("BARIQE_STORAGE_BACKEND", "redis")
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
