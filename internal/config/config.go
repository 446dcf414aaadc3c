package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"  validate:"required"`
	Auth    AuthConfig    `mapstructure:"auth"    validate:"required"`
	Compute ComputeConfig `mapstructure:"compute" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port               int           `mapstructure:"port"                 validate:"required,gt=0,lt=65536"`
	LogLevel           string        `mapstructure:"log_level"            validate:"required,oneof=debug info warn error"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins" validate:"dive,url"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"     validate:"gt=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lte=44640"` // Max 31 days
}

// ComputeConfig describes the external meal-plan compute service and the
// budget for polling deferred jobs on it.
type ComputeConfig struct {
	BaseURL       string        `mapstructure:"base_url"       validate:"required,url"`
	StartPath     string        `mapstructure:"start_path"     validate:"required,startswith=/"`
	SubmitTimeout time.Duration `mapstructure:"submit_timeout" validate:"gt=0"`
	PollTimeout   time.Duration `mapstructure:"poll_timeout"   validate:"gt=0"`
	PollInterval  time.Duration `mapstructure:"poll_interval"  validate:"gte=0"`
	MaxAttempts   int           `mapstructure:"max_attempts"   validate:"required,gt=0"`
}
