package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. NUTRI_SERVER_PORT or NUTRI_COMPUTE_BASE_URL.
const EnvPrefix = "NUTRI"

// defaults are applied before the config file and environment are consulted.
var defaults = map[string]interface{}{
	"server.port":                 8000,
	"server.log_level":            "info",
	"server.cors_allowed_origins": []string{"http://localhost:3000"},
	"server.shutdown_timeout":     "15s",

	"auth.token_lifetime_minutes": 60,

	"compute.base_url":       "http://localhost:5001",
	"compute.start_path":     "/api/meal-plan",
	"compute.submit_timeout": "30s",
	"compute.poll_timeout":   "10s",
	"compute.poll_interval":  "10s",
	"compute.max_attempts":   180,
}

// keys without a default still need an explicit env binding so Unmarshal sees them.
var envOnlyKeys = []string{
	"auth.jwt_secret",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
