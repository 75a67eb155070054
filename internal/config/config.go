// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string `envconfig:"APP_HOST" default:"0.0.0.0"`
	Port string `envconfig:"APP_PORT" default:"8080"`
	Env  string `envconfig:"APP_ENV" default:"development"` // "development", "production", "testing"

	// PostgreSQL connection
	DBHost     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	DBPort     string `envconfig:"POSTGRES_PORT" default:"5432"`
	DBUser     string `envconfig:"POSTGRES_USER" default:"marketplace"`
	DBPassword string `envconfig:"POSTGRES_PASSWORD" default:"changeme"`
	DBName     string `envconfig:"POSTGRES_DB" default:"marketplace"`

	// Valkey (Redis-compatible cache)
	ValkeyHost     string `envconfig:"VALKEY_HOST" default:"localhost"`
	ValkeyPort     string `envconfig:"VALKEY_PORT" default:"6379"`
	ValkeyPassword string `envconfig:"VALKEY_PASSWORD"`
	ValkeyDB       int    `envconfig:"VALKEY_DB" default:"0"`

	// S3-compatible storage for category icons. Empty endpoint disables uploads.
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3Region    string `envconfig:"S3_REGION" default:"fsn1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"marketplace-public"`
	S3PublicURL string `envconfig:"S3_PUBLIC_URL"`

	// External geocoding provider. Empty key disables the external tier.
	GeocoderAPIKey   string        `envconfig:"GEOCODER_API_KEY"`
	GeocoderBaseURL  string        `envconfig:"GEOCODER_BASE_URL"`
	GeocoderLanguage string        `envconfig:"GEOCODER_LANGUAGE" default:"en"`
	GeocoderTimeout  time.Duration `envconfig:"GEOCODER_TIMEOUT" default:"3s"`

	// Location suggestions
	LocationsFile    string        `envconfig:"LOCATIONS_FILE"`
	LocationCacheTTL time.Duration `envconfig:"LOCATION_CACHE_TTL"` // zero keeps the locations file value

	CategoryTreeTTL    time.Duration `envconfig:"CATEGORY_TREE_TTL" default:"1h"`
	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`

	// Browser origins allowed to call the API, comma separated.
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "" || cfg.DBPassword == "changeme" {
			return nil, errors.New("POSTGRES_PASSWORD must be set in production")
		}
	}
	if cfg.RateLimitPerMinute <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", cfg.RateLimitPerMinute)
	}

	return &cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}
