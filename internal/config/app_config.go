package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/knsuzuki/shopmail/internal/notification"
)

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// Port is the HTTP server port. Defaults to 8990.
	Port int `envconfig:"PORT" default:"8990"`

	// DataDir is the root data directory. Defaults to ~/.shopmail.
	DataDir string `envconfig:"SHOPMAIL_DATA_DIR"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// ShopFile is the shop profile YAML. Defaults to <DataDir>/shop.yaml.
	ShopFile string `envconfig:"SHOPMAIL_SHOP_FILE"`

	// TemplateDir holds body templates that shadow the built-in ones.
	TemplateDir string `envconfig:"SHOPMAIL_TEMPLATE_DIR"`

	// TemplateReload clears cached templates at this interval when positive.
	TemplateReload time.Duration `envconfig:"SHOPMAIL_TEMPLATE_RELOAD" default:"0s"`

	// MailTransport is smtp, ses or log.
	MailTransport string `envconfig:"MAIL_TRANSPORT" default:"log"`

	SMTPHost       string `envconfig:"SMTP_HOST"`
	SMTPPort       int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername   string `envconfig:"SMTP_USERNAME"`
	SMTPPassword   string `envconfig:"SMTP_PASSWORD"`
	SMTPEncryption string `envconfig:"SMTP_ENCRYPTION" default:"starttls"`

	SESRegion           string `envconfig:"SES_REGION"`
	SESAccessKeyID      string `envconfig:"SES_ACCESS_KEY_ID"`
	SESSecretAccessKey  string `envconfig:"SES_SECRET_ACCESS_KEY"`
	SESConfigurationSet string `envconfig:"SES_CONFIGURATION_SET"`

	// HistoryDriver selects where shipping notice history goes: sqlite or postgres.
	HistoryDriver string `envconfig:"HISTORY_DRIVER" default:"sqlite"`
	// HistoryDSN is the Postgres connection string when HistoryDriver is postgres.
	HistoryDSN string `envconfig:"HISTORY_DSN"`

	// OTLPEndpoint enables trace export over OTLP/gRPC when set.
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// JWTSecret protects /api routes with HS256 bearer tokens when set.
	JWTSecret string `envconfig:"SHOPMAIL_JWT_SECRET"`

	// CORSOrigins lists the origins allowed to call the API.
	CORSOrigins []string `envconfig:"SHOPMAIL_CORS_ORIGINS" default:"*"`
}

// Load reads AppConfig from environment variables using envconfig. A .env
// file in the working directory is loaded first when present; variables that
// are already set win.
// DataDir defaults to ~/.shopmail if not set.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".shopmail")
	}
	return &c, nil
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogDir returns the path to the log directory (~/.shopmail/logs).
func (c *AppConfig) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// DBPath returns the path to the SQLite database.
func (c *AppConfig) DBPath() string {
	return filepath.Join(c.DataDir, "shopmail.db")
}

// ShopFilePath returns ShopFile, or shop.yaml under DataDir when unset.
func (c *AppConfig) ShopFilePath() string {
	if c.ShopFile != "" {
		return c.ShopFile
	}
	return filepath.Join(c.DataDir, "shop.yaml")
}

// Transport returns the mail transport configuration.
func (c *AppConfig) Transport() notification.TransportConfig {
	return notification.TransportConfig{
		Provider: c.MailTransport,
		SMTP: notification.SMTPConfig{
			Host:       c.SMTPHost,
			Port:       c.SMTPPort,
			Username:   c.SMTPUsername,
			Password:   c.SMTPPassword,
			Encryption: c.SMTPEncryption,
		},
		SES: notification.SESConfig{
			Region:           c.SESRegion,
			AccessKeyID:      c.SESAccessKeyID,
			SecretAccessKey:  c.SESSecretAccessKey,
			ConfigurationSet: c.SESConfigurationSet,
		},
	}
}
