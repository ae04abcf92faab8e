package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	dataDir := DataDir()
	return &Config{
		Env: EnvLocal,
		HTTP: HTTPConfig{
			Addr:         ":8000",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(dataDir, "teamboard.db"),
		},
		Auth: AuthConfig{
			SessionTTL:    30 * time.Minute,
			RememberMeTTL: 30 * 24 * time.Hour,
			BcryptCost:    bcrypt.DefaultCost,
		},
		Uploads: UploadsConfig{
			Dir:      filepath.Join(dataDir, "uploads"),
			MaxBytes: 10 << 20,
		},
	}
}

// WriteDefault writes the default configuration to path as YAML
func WriteDefault(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	content := "# teamboard configuration\n" + string(data)
	return os.WriteFile(path, []byte(content), 0644)
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("env must be one of local, dev, prod; got %q", c.Env)
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.SessionTTL <= 0 || c.Auth.RememberMeTTL <= 0 {
		return fmt.Errorf("auth session TTLs must be positive")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("uploads.max_bytes must be positive")
	}
	return nil
}

// DataDir returns the teamboard directory under the XDG data home
func DataDir() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "teamboard")
}

// DefaultPath returns the config file path under the XDG config home
func DefaultPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "teamboard", "config.yaml")
}
