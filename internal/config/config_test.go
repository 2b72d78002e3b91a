package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/perclft/qpilot/internal/config"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr, got %q", cfg.Server.Addr)
	}
	if cfg.Execution.ExecuteAsynchronously {
		t.Error("expected synchronous execution by default")
	}
}

func TestLoadParsesYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := "server:\n  addr: \":9999\"\nqueue:\n  workers: 8\n  buffer_size: 512\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("expected addr from file, got %q", cfg.Server.Addr)
	}
	if cfg.Queue.Workers != 8 {
		t.Errorf("expected workers from file, got %d", cfg.Queue.Workers)
	}
}

func TestEnvOverrideWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  dsn: \"file-dsn\"\n"), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("DATABASE_DSN", "env-dsn")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.DSN != "env-dsn" {
		t.Errorf("expected env override to win, got %q", cfg.Database.DSN)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty server addr")
	}

	cfg = config.Default()
	cfg.Queue.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero workers")
	}

	cfg = config.Default()
	cfg.Queue.BufferSize = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero buffer size")
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := config.Default().Validate(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := config.Default()
	cfg.Server.Addr = ":1234"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Server.Addr != ":1234" {
		t.Errorf("expected round-tripped addr, got %q", loaded.Server.Addr)
	}
}
