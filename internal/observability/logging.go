// Package observability configures structured logging, metrics, and tracing
// for the orchestration core. Grounded on the teacher's cmd/nexus/main.go
// process-wide slog setup and internal/observability/logging.go.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// LogFormat selects the slog handler shape.
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

// LoggingConfig configures the process-wide logger.
type LoggingConfig struct {
	Level  string    `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// DefaultLoggingConfig returns sensible defaults.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{Level: "info", Format: FormatJSON}
}

func parseLevel(s string) slog.Level {
	switch s {
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

// NewLogger builds the process-wide logger. Components derive their own
// child loggers with .With("component", name) rather than constructing new
// handlers, so every log line shares one output pipeline.
func NewLogger(cfg LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == FormatText {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

type ctxKey struct{}

// WithLogger attaches a logger to a context so deeply nested calls can log
// with execution/session attributes without threading a logger parameter
// through every function signature.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the attached logger, or slog.Default() if none was
// attached.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// ForExecution returns a child logger carrying the execution/session
// attributes, matching the teacher's per-request logger convention.
func ForExecution(logger *slog.Logger, executionID, sessionKey string) *slog.Logger {
	return logger.With("execution_id", executionID, "session_key", sessionKey)
}
