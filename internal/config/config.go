// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used for links and redirects.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// Database holds connection settings for the backing store.
	Database DatabaseConfig

	// Session holds session lifecycle settings.
	Session SessionConfig

	// MigrationsPath is the directory holding per-dialect migration files.
	MigrationsPath string

	// CORSAllowedOrigins lists origins allowed to call the API cross-origin.
	// Empty means no CORS headers are sent.
	CORSAllowedOrigins []string

	// TrustedProxyCIDRs lists CIDR ranges whose X-Forwarded-For and
	// X-Real-IP headers are trusted for client IP resolution.
	TrustedProxyCIDRs []string
}

// DatabaseConfig holds connection parameters for the backing store. Type
// selects the connector dialect ("postgres" or "mysql"); the rest of the
// fields are dialect-independent so container orchestrators can manage
// each independently.
type DatabaseConfig struct {
	// Type is the connector dialect: "postgres" (default) or "mysql".
	Type string

	// Host is the database host (default: "localhost").
	Host string

	// Port is the database port (default: dialect standard port).
	Port int

	// User is the database username (default: "userbase").
	User string

	// Password is the database password (default: "userbase").
	Password string

	// Name is the database name (default: "userbase").
	Name string

	// SSLMode is the postgres sslmode setting (ignored by mysql).
	SSLMode string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	// TTL is how long sessions last before expiring (default: 7 days).
	TTL time.Duration

	// SweepInterval is how often expired session rows are reclaimed.
	// Sweeping is storage housekeeping only; lookups already filter
	// expired sessions.
	SweepInterval time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if the configuration is unusable.
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		Database: DatabaseConfig{
			Type:            getEnv("DB_TYPE", "postgres"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 0),
			User:            getEnv("DB_USER", "userbase"),
			Password:        getEnv("DB_PASSWORD", "userbase"),
			Name:            getEnv("DB_NAME", "userbase"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Session: SessionConfig{
			TTL:           getEnvDuration("SESSION_TTL", 7*24*time.Hour),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", time.Hour),
		},

		MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),
		TrustedProxyCIDRs:  getEnvList("TRUSTED_PROXY_CIDRS", []string{"127.0.0.1/8"}),
	}

	switch cfg.Database.Type {
	case "postgres", "mysql":
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q (expected postgres or mysql)", cfg.Database.Type)
	}

	// Fill in the dialect's standard port when none was given.
	if cfg.Database.Port == 0 {
		if cfg.Database.Type == "mysql" {
			cfg.Database.Port = 3306
		} else {
			cfg.Database.Port = 5432
		}
	}

	if cfg.Session.TTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true if running in production mode. Controls the
// Secure flag on the session cookie among other hardening.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated env var or returns the default.
func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvDuration reads a duration env var (e.g., "168h") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
