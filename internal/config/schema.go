package config

import "time"

// Config represents the full teamboard configuration
type Config struct {
	// Environment: local, dev or prod
	Env string `yaml:"env" mapstructure:"env"`

	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Uploads  UploadsConfig  `yaml:"uploads" mapstructure:"uploads"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// HTTPConfig configures the API server
type HTTPConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// DatabaseConfig configures the SQLite store
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// AuthConfig configures sessions and password hashing
type AuthConfig struct {
	SessionTTL    time.Duration `yaml:"session_ttl" mapstructure:"session_ttl"`
	RememberMeTTL time.Duration `yaml:"remember_me_ttl" mapstructure:"remember_me_ttl"`
	BcryptCost    int           `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
}

// UploadsConfig configures attachment storage
type UploadsConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	MaxBytes int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// LogConfig configures log output
type LogConfig struct {
	// Path of the log file; empty logs to stdout
	Path string `yaml:"path" mapstructure:"path"`
}
