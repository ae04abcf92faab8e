package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load returns the defaults overlaid with the YAML file at path, when it exists,
// and with TEAMBOARD_* environment variables (TEAMBOARD_HTTP_ADDR, ...)
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix("teamboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("env", cfg.Env)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.read_timeout", cfg.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", cfg.HTTP.WriteTimeout)
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("auth.session_ttl", cfg.Auth.SessionTTL)
	v.SetDefault("auth.remember_me_ttl", cfg.Auth.RememberMeTTL)
	v.SetDefault("auth.bcrypt_cost", cfg.Auth.BcryptCost)
	v.SetDefault("uploads.dir", cfg.Uploads.Dir)
	v.SetDefault("uploads.max_bytes", cfg.Uploads.MaxBytes)
	v.SetDefault("log.path", cfg.Log.Path)
}
