package config

import (
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Gateway  GatewayConfig  `koanf:"gateway"`
	Retry    RetryConfig    `koanf:"retry"`
	Security SecurityConfig `koanf:"security"`
	Audit    AuditConfig    `koanf:"audit"`
	Logger   LoggerConfig   `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// GatewayConfig holds credentials for the payment gateway. KeyID is
// publishable and handed to clients so they can complete checkout; KeySecret
// signs client confirmations; WebhookSecret signs webhook bodies.
type GatewayConfig struct {
	BaseURL   string        `koanf:"base_url" validate:"required"`
	KeyID     string        `koanf:"key_id" validate:"required"`
	KeySecret string        `koanf:"key_secret" validate:"required"`
	Timeout   time.Duration `koanf:"timeout" validate:"required"`

	// Empty WebhookSecret is only accepted when AllowUnverifiedWebhooks is
	// set; running without webhook verification is a deliberate operational
	// mode, never a default.
	WebhookSecret           string `koanf:"webhook_secret"`
	AllowUnverifiedWebhooks bool   `koanf:"allow_unverified_webhooks"`
}

type RetryConfig struct {
	BaseDelay  int32 `koanf:"base_delay"`
	MaxRetries int32 `koanf:"max_retries"`
}

type SecurityConfig struct {
	// Hex-encoded 256-bit key for field-level encryption at rest.
	FieldKey string `koanf:"field_key" validate:"required"`
}

type AuditConfig struct {
	QueueSize int `koanf:"queue_size" validate:"required"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

func (c LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// FieldKeyBytes decodes the configured field encryption key.
func (c SecurityConfig) FieldKeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.FieldKey)
	if err != nil {
		return nil, errors.New("security field key must be hex encoded")
	}
	if len(key) != 32 {
		return nil, errors.New("security field key must decode to 32 bytes")
	}
	return key, nil
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("DOCBOOK_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "DOCBOOK_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	if mainConfig.Gateway.WebhookSecret == "" && !mainConfig.Gateway.AllowUnverifiedWebhooks {
		logger.Error("gateway webhook secret is empty and unverified webhooks are not allowed")
		return nil, errors.New("gateway webhook secret is required unless allow_unverified_webhooks is set")
	}

	return mainConfig, nil
}
