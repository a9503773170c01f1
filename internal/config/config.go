// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service configuration. Every field is populated
// from the environment with the given defaults.
type Config struct {
	// ListenAddr is the address the public HTTP server binds.
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`

	// MetricsListenAddr is the address the Prometheus endpoint binds.
	// Kept off the public listener so the metrics surface is not
	// internet-facing.
	MetricsListenAddr string `envconfig:"METRICS_LISTEN_ADDR" default:"localhost:9090"`

	// DatabasePath is the SQLite database file.
	DatabasePath string `envconfig:"DATABASE_PATH" default:"backlog.db"`

	// PublicURL is the externally reachable base URL embedded in
	// notification links.
	PublicURL string `envconfig:"PUBLIC_URL" default:"http://localhost:8080"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// LogFormat is "json" or "text".
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// MaxBodySize limits request body size in bytes.
	MaxBodySize int64 `envconfig:"MAX_BODY_SIZE" default:"1048576"`

	// Token lifetimes. Zero values fall back to the built-in defaults,
	// so they are defaulted explicitly here instead.
	SessionTTL      time.Duration `envconfig:"SESSION_TTL" default:"168h"`
	ConfirmTTL      time.Duration `envconfig:"CONFIRM_TTL" default:"504h"`
	ResetTTL        time.Duration `envconfig:"RESET_TTL" default:"15m"`
	ContentTokenTTL time.Duration `envconfig:"CONTENT_TOKEN_TTL" default:"168h"`

	SMTP SMTPConfig
}

// SMTPConfig configures the outbound mail relay. When Host is empty
// notifications are logged instead of sent.
type SMTPConfig struct {
	Host     string `envconfig:"SMTP_HOST" default:""`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME" default:""`
	Password string `envconfig:"SMTP_PASSWORD" default:""`
	From     string `envconfig:"SMTP_FROM" default:"noreply@backlog.local"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	if c.SessionTTL <= 0 || c.ConfirmTTL <= 0 || c.ResetTTL <= 0 || c.ContentTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	return nil
}
