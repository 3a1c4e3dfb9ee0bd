package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		want     slog.Level
	}{
		{"debug", "debug", slog.LevelDebug},
		{"info", "info", slog.LevelInfo},
		{"warn", "warn", slog.LevelWarn},
		{"error", "error", slog.LevelError},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &AppConfig{LogLevel: tt.logLevel}
			assert.Equal(t, tt.want, c.SlogLevel())
		})
	}
}

func TestAppConfig_Paths(t *testing.T) {
	c := &AppConfig{DataDir: "/data"}

	assert.Equal(t, "/data/logs", c.LogDir())
	assert.Equal(t, "/data/shopmail.db", c.DBPath())
	assert.Equal(t, "/data/shop.yaml", c.ShopFilePath())

	c.ShopFile = "/etc/shopmail/shop.yaml"
	assert.Equal(t, "/etc/shopmail/shop.yaml", c.ShopFilePath())
}

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SHOPMAIL_DATA_DIR", "/tmp/test-shopmail")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MAIL_TRANSPORT", "smtp")
	t.Setenv("SMTP_HOST", "mail.acme.test")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("HISTORY_DRIVER", "")
	t.Setenv("SHOPMAIL_CORS_ORIGINS", "https://admin.acme.test,https://acme.test")
	t.Setenv("SHOPMAIL_TEMPLATE_RELOAD", "5m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test-shopmail", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"https://admin.acme.test", "https://acme.test"}, cfg.CORSOrigins)
	assert.Equal(t, 5*time.Minute, cfg.TemplateReload)

	tc := cfg.Transport()
	assert.Equal(t, "smtp", tc.Provider)
	assert.Equal(t, "mail.acme.test", tc.SMTP.Host)
	assert.Equal(t, 2525, tc.SMTP.Port)
	assert.Equal(t, "starttls", tc.SMTP.Encryption)
}

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "LOG_LEVEL", "MAIL_TRANSPORT", "HISTORY_DRIVER", "SMTP_PORT", "SHOPMAIL_CORS_ORIGINS"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SHOPMAIL_DATA_DIR", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8990, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "log", cfg.MailTransport)
	assert.Equal(t, "sqlite", cfg.HistoryDriver)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, filepath.Join(home, ".shopmail"), cfg.DataDir)
}
