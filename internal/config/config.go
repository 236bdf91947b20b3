// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxUploadBytes caps an uploaded export at 32 MiB.
const DefaultMaxUploadBytes = 32 << 20

// Config holds all configuration values for the importer.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string `validate:"required,numeric"`

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string `validate:"required"`

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string `validate:"oneof=debug info warn error"`

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to the site itself. Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string `validate:"dive,url"`

	// SiteURL is linked from the import page once an import has finished.
	SiteURL string `validate:"required,url"`

	// MaxUploadBytes caps the size of an uploaded export.
	MaxUploadBytes int64 `validate:"gt=0"`

	// UploadDir holds uploads while they are imported. Empty means the OS temp dir.
	UploadDir string

	// MessagesFile is an optional YAML file overriding user-visible strings.
	MessagesFile string

	// AMQPURL enables publishing ride events when set.
	AMQPURL string `validate:"omitempty,url"`

	// AMQPExchange is the topic exchange ride events are published to.
	AMQPExchange string `validate:"required"`

	// LinkDrivers attaches a person record for each ride's driver.
	LinkDrivers bool
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or the
// first invalid value.
func Load() (Config, error) {
	siteURL := getEnv("SITE_URL", "http://localhost:8080")
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", siteURL)),
		SiteURL:      siteURL,
		UploadDir:    os.Getenv("UPLOAD_DIR"),
		MessagesFile: os.Getenv("MESSAGES_FILE"),
		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "rideshare.events"),
	}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	var err error
	if cfg.MaxUploadBytes, err = strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", strconv.Itoa(DefaultMaxUploadBytes)), 10, 64); err != nil {
		return Config{}, fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
	}
	if cfg.LinkDrivers, err = strconv.ParseBool(getEnv("LINK_DRIVERS", "true")); err != nil {
		return Config{}, fmt.Errorf("LINK_DRIVERS: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
