package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Env != EnvLocal {
		t.Errorf("Expected env 'local', got '%s'", cfg.Env)
	}
	if cfg.HTTP.Addr != ":8000" {
		t.Errorf("Expected addr ':8000', got '%s'", cfg.HTTP.Addr)
	}
	if cfg.Auth.SessionTTL != 30*time.Minute {
		t.Errorf("Expected 30m session TTL, got %s", cfg.Auth.SessionTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTP.Addr != DefaultConfig().HTTP.Addr {
		t.Errorf("Expected default addr, got '%s'", cfg.HTTP.Addr)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `env: prod
http:
  addr: ":9090"
auth:
  session_ttl: 2h
database:
  path: /tmp/board.db
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Env != EnvProd {
		t.Errorf("Expected env 'prod', got '%s'", cfg.Env)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("Expected addr ':9090', got '%s'", cfg.HTTP.Addr)
	}
	if cfg.Auth.SessionTTL != 2*time.Hour {
		t.Errorf("Expected 2h session TTL, got %s", cfg.Auth.SessionTTL)
	}
	if cfg.Auth.RememberMeTTL != DefaultConfig().Auth.RememberMeTTL {
		t.Errorf("Unset keys should keep defaults, got %s", cfg.Auth.RememberMeTTL)
	}
	if cfg.Database.Path != "/tmp/board.db" {
		t.Errorf("Expected database path override, got '%s'", cfg.Database.Path)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TEAMBOARD_HTTP_ADDR", ":7070")
	t.Setenv("TEAMBOARD_ENV", "dev")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Errorf("Expected env addr ':7070', got '%s'", cfg.HTTP.Addr)
	}
	if cfg.Env != EnvDev {
		t.Errorf("Expected env 'dev', got '%s'", cfg.Env)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("env: staging\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected an error for an unknown env")
	}
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load of written default failed: %v", err)
	}
	want := DefaultConfig()
	if cfg.Auth.RememberMeTTL != want.Auth.RememberMeTTL {
		t.Errorf("RememberMeTTL = %s, want %s", cfg.Auth.RememberMeTTL, want.Auth.RememberMeTTL)
	}
	if cfg.Uploads.MaxBytes != want.Uploads.MaxBytes {
		t.Errorf("MaxBytes = %d, want %d", cfg.Uploads.MaxBytes, want.Uploads.MaxBytes)
	}
}
