package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hperssn/focusbean/internal/storage"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the complete service configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Session  SessionConfig
	Log      LogConfig

	CatalogFile string
}

type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver string
	URL    string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// TrustedUserHeader names a proxy-set identity header accepted when no
	// bearer token is sent. Empty disables it.
	TrustedUserHeader string
}

type SessionConfig struct {
	TickInterval time.Duration
}

type LogConfig struct {
	Level  slog.Level
	Format string
}

// Load reads .env files (missing ones are skipped), then the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnvOrDefault("ADDR", ":8080"),
			ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Driver: getEnvOrDefault("DATABASE_DRIVER", storage.DriverSQLite),
			URL:    getEnvOrDefault("DATABASE_URL", "focusbean.db"),
		},
		Auth: AuthConfig{
			JWTSecret:         os.Getenv("JWT_SECRET"),
			TokenTTL:          getEnvDurationOrDefault("TOKEN_TTL", 24*time.Hour),
			TrustedUserHeader: os.Getenv("TRUSTED_USER_HEADER"),
		},
		Session: SessionConfig{
			TickInterval: getEnvDurationOrDefault("TICK_INTERVAL", time.Second),
		},
		Log: LogConfig{
			Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),
		},
		CatalogFile: os.Getenv("CATALOG_FILE"),
	}

	if err := cfg.Log.Level.UnmarshalText([]byte(getEnvOrDefault("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("%w: LOG_LEVEL: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case storage.DriverSQLite, storage.DriverPostgres:
	default:
		return fmt.Errorf("%w: unknown DATABASE_DRIVER %q", ErrInvalidConfig, c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("%w: DATABASE_URL is required", ErrInvalidConfig)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: JWT_SECRET is required", ErrInvalidConfig)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("%w: TOKEN_TTL must be positive", ErrInvalidConfig)
	}
	if c.Session.TickInterval <= 0 {
		return fmt.Errorf("%w: TICK_INTERVAL must be positive", ErrInvalidConfig)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("%w: LOG_FORMAT must be json or text", ErrInvalidConfig)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
