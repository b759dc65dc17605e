// Package telemetry configures the process-wide logger and tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName identifies this tool in exported spans.
const ServiceName = "rust-grapher"

// Config selects log verbosity and span export.
type Config struct {
	// Verbose enables debug logging.
	Verbose bool
	// Quiet only reports warnings and errors. Verbose wins over Quiet.
	Quiet bool
	// TraceStdout exports spans as JSON to the writer passed to Init.
	TraceStdout bool
	Version     string
}

// Level returns the log level selected by cfg.
func (cfg Config) Level() slog.Level {
	switch {
	case cfg.Verbose:
		return slog.LevelDebug
	case cfg.Quiet:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a text logger writing to w at the level of cfg.
func NewLogger(w io.Writer, cfg Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level()}))
}

// Init installs a logger writing to w as the slog default and, when
// cfg.TraceStdout is set, an SDK tracer provider exporting to w. Without it the
// global no-op provider stays in place. The returned function flushes and
// stops the provider.
func Init(ctx context.Context, w io.Writer, cfg Config) (shutdown func(context.Context) error, err error) {
	slog.SetDefault(NewLogger(w, cfg))

	if !cfg.TraceStdout {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create span exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}
	// A syncer exports each span as it ends; the process is short-lived.
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
