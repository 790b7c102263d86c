package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intake.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("got port %d, want default 3000", cfg.Server.Port)
	}
	if cfg.Auth.ParsedSessionTTL() != time.Hour {
		t.Errorf("got ttl %v, want default 1h", cfg.Auth.ParsedSessionTTL())
	}
	if cfg.Auth.Repair.Username != "Fortina" {
		t.Errorf("got repair account %q, want default", cfg.Auth.Repair.Username)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("got driver %q, want sqlite", cfg.Storage.Driver)
	}
}

func TestLoadFileBootstrap(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 8080
auth:
  session_ttl: 30m
  sweep_interval: 5m
  bootstrap:
    - username: Fortina
      password: pw1
      role: Owner
    - username: Alina
      password: pw2
      role: Moderator
storage:
  driver: postgres
  dsn: postgres://localhost/intake
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("got port %d, want 8080", cfg.Server.Port)
	}
	if cfg.Auth.ParsedSessionTTL() != 30*time.Minute {
		t.Errorf("got ttl %v, want 30m", cfg.Auth.ParsedSessionTTL())
	}
	if cfg.Auth.ParsedSweepInterval() != 5*time.Minute {
		t.Errorf("got sweep interval %v, want 5m", cfg.Auth.ParsedSweepInterval())
	}
	if len(cfg.Auth.Bootstrap) != 2 {
		t.Fatalf("got %d bootstrap accounts, want 2", len(cfg.Auth.Bootstrap))
	}
	if cfg.Auth.Bootstrap[0].Username != "Fortina" || cfg.Auth.Bootstrap[0].Role != "Owner" {
		t.Errorf("unexpected first bootstrap entry: %+v", cfg.Auth.Bootstrap[0])
	}
	if cfg.Storage.Driver != "postgres" {
		t.Errorf("got driver %q, want postgres", cfg.Storage.Driver)
	}
}

func TestLoadFileRejectsBadBootstrapRole(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  bootstrap:
    - username: X
      password: pw
      role: Emperor
`)
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for unknown bootstrap role")
	}
}

func TestLoadFileRejectsUnknownDriver(t *testing.T) {
	path := writeConfigFile(t, `
storage:
  driver: oracle
`)
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for unsupported storage driver")
	}
}

func TestParseDurationFallbacks(t *testing.T) {
	auth := AuthConfig{SessionTTL: "not-a-duration"}
	if got := auth.ParsedSessionTTL(); got != time.Hour {
		t.Errorf("got %v for garbage ttl, want 1h fallback", got)
	}
	srv := ServerConfig{}
	if got := srv.ParsedShutdownTimeout(); got != 30*time.Second {
		t.Errorf("got %v for empty timeout, want 30s fallback", got)
	}
}
