package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration, parsed from environment variables.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseURL string `env:"DATABASE_URL"`

	AntiFraud AntiFraudConfig `envPrefix:"ANTIFRAUD_"`
	Session   SessionConfig   `envPrefix:"SESSION_"`
	Tracing   TracingConfig   `envPrefix:"TRACING_"`
}

// AntiFraudConfig configures the external verdict service client.
type AntiFraudConfig struct {
	ValidateURL string        `env:"VALIDATE_URL"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"5s"`
	MaxRetries  int           `env:"MAX_RETRIES" envDefault:"2"`
}

// SessionConfig controls bearer session lifetime and cleanup.
type SessionConfig struct {
	TTL          time.Duration `env:"TTL" envDefault:"24h"`
	CleanupSpec  string        `env:"CLEANUP_SPEC" envDefault:"@every 1h"`
	SigninLimit  int           `env:"SIGNIN_LIMIT" envDefault:"10"`
	SigninWindow time.Duration `env:"SIGNIN_WINDOW" envDefault:"1m"`
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled          bool    `env:"ENABLED" envDefault:"false"`
	ExporterEndpoint string  `env:"EXPORTER_ENDPOINT"`
	SamplingRatio    float64 `env:"SAMPLING_RATIO" envDefault:"1.0"`
}

// Load parses configuration from the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}
