package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, Config{}.Level())
	assert.Equal(t, slog.LevelDebug, Config{Verbose: true}.Level())
	assert.Equal(t, slog.LevelWarn, Config{Quiet: true}.Level())
	assert.Equal(t, slog.LevelDebug, Config{Verbose: true, Quiet: true}.Level())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, Config{Quiet: true})

	log.Info("hidden")
	log.Warn("shown", slog.Int("nodes", 3))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "nodes=3")
}

func TestInitExportsSpans(t *testing.T) {
	prevLogger := slog.Default()
	prevProvider := otel.GetTracerProvider()
	t.Cleanup(func() {
		slog.SetDefault(prevLogger)
		otel.SetTracerProvider(prevProvider)
	})

	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), &buf, Config{TraceStdout: true, Version: "test"})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "deps.BuildGraph")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name": "deps.BuildGraph"`)
	assert.Contains(t, buf.String(), ServiceName)
}

func TestInitWithoutTracing(t *testing.T) {
	prevLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prevLogger) })

	var buf bytes.Buffer
	shutdown, err := Init(context.Background(), &buf, Config{})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	slog.Info("ready")
	assert.Contains(t, buf.String(), "msg=ready")
}
