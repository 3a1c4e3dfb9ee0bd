package telemetry_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/knsuzuki/shopmail/internal/telemetry"
)

func TestSetup_ServesMetrics(t *testing.T) {
	ctx := context.Background()
	tel, err := telemetry.Setup(ctx, telemetry.Config{ServiceName: "shopmail", ServiceVersion: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	assert.Nil(t, tel.LogHandler("shopmail"), "no log bridge without an OTLP endpoint")

	counter, err := otel.Meter("telemetry_test").Int64Counter("shopmail.test.sends")
	require.NoError(t, err)
	counter.Add(ctx, 3, metric.WithAttributes(attribute.String("kind", "order")))

	_, span := otel.Tracer("telemetry_test").Start(ctx, "probe")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	srv := httptest.NewServer(tel.MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "shopmail_test_sends")
	assert.Contains(t, string(body), `kind="order"`)
	assert.Contains(t, string(body), "go_goroutines")
}
