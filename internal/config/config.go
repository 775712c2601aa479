// Package config loads builder settings from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting of a build run. Optional integrations are
// disabled by leaving their variables empty.
type Config struct {
	StratzToken string `env:"STRATZ_TOKEN"`

	BuildDir   string `env:"DOTACONSTANTS_BUILD_DIR" envDefault:"build"`
	StaticDir  string `env:"DOTACONSTANTS_STATIC_DIR" envDefault:"json"`
	IndexPath  string `env:"DOTACONSTANTS_INDEX_PATH" envDefault:"index.js"`
	ArchiveDir string `env:"DOTACONSTANTS_ARCHIVE_DIR"`
	StorePath  string `env:"DOTACONSTANTS_STORE_PATH"`

	Workers           int           `env:"DOTACONSTANTS_WORKERS" envDefault:"6"`
	FetchConcurrency  int           `env:"DOTACONSTANTS_FETCH_CONCURRENCY" envDefault:"8"`
	RequestsPerSecond int           `env:"DOTACONSTANTS_REQUESTS_PER_SECOND" envDefault:"20"`
	HTTPTimeout       time.Duration `env:"DOTACONSTANTS_HTTP_TIMEOUT" envDefault:"30s"`
	MaxRetries        uint          `env:"DOTACONSTANTS_MAX_RETRIES" envDefault:"4"`

	DatabaseURL    string `env:"DATABASE_URL"`
	TursoURL       string `env:"TURSO_DATABASE_URL"`
	TursoAuthToken string `env:"TURSO_AUTH_TOKEN"`

	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL"`
	OTLPEndpoint      string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses a Config and checks its numeric settings.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Workers < 1 {
		return Config{}, fmt.Errorf("DOTACONSTANTS_WORKERS must be positive, got %d", cfg.Workers)
	}
	if cfg.FetchConcurrency < 1 {
		return Config{}, fmt.Errorf("DOTACONSTANTS_FETCH_CONCURRENCY must be positive, got %d", cfg.FetchConcurrency)
	}
	return cfg, nil
}

// Exitf writes a formatted error message to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
