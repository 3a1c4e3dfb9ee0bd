package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knsuzuki/shopmail/internal/logger"
)

func TestNewSystemLogger_WritesJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	log, closer, err := logger.NewSystemLogger(dir, slog.LevelInfo)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("mail send completed", slog.String("kind", "order"))
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "system.log"))
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "mail send completed", rec["msg"])
	assert.Equal(t, "order", rec["kind"])
	assert.Equal(t, "INFO", rec["level"])
}

func TestNew_FansOutToExtraHandlers(t *testing.T) {
	var primary, extra bytes.Buffer
	log := logger.New(&primary, slog.LevelWarn,
		slog.NewTextHandler(&extra, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)

	log.With(slog.String("component", "dispatcher")).WithGroup("mail").Info("only extra", slog.Int("count", 2))
	log.Error("both")

	assert.NotContains(t, primary.String(), "only extra")
	assert.Contains(t, primary.String(), "both")
	assert.Contains(t, extra.String(), "only extra")
	assert.Contains(t, extra.String(), "component=dispatcher")
	assert.Contains(t, extra.String(), "mail.count=2")
	assert.Contains(t, extra.String(), "both")
}
