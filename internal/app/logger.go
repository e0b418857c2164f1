package app

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/qj0r9j0vc2/alarm-engine/internal/domain/logger"
)

// NewLogHandler creates the slog handler for the given level and format
// ("json" or "text"). Unknown levels fall back to info.
func NewLogHandler(level, format string, w io.Writer) slog.Handler {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// AtomicLogger is an slog.Handler whose target can be replaced while the
// process runs, so a reloaded logging level or format reaches every logger
// built from it. Handlers derived with WithAttrs or WithGroup keep the
// target that was current when they were derived.
type AtomicLogger struct {
	current atomic.Pointer[slog.Handler]
	logger  *slog.Logger
}

// NewAtomicLogger creates an AtomicLogger writing to h.
func NewAtomicLogger(h slog.Handler) *AtomicLogger {
	a := &AtomicLogger{}
	a.current.Store(&h)
	a.logger = slog.New(a)
	return a
}

// Get returns a logger that always writes through the current handler.
func (a *AtomicLogger) Get() *slog.Logger {
	return a.logger
}

// Swap replaces the handler.
func (a *AtomicLogger) Swap(h slog.Handler) {
	a.current.Store(&h)
}

func (a *AtomicLogger) handler() slog.Handler {
	return *a.current.Load()
}

// Enabled implements slog.Handler.
func (a *AtomicLogger) Enabled(ctx context.Context, level slog.Level) bool {
	return a.handler().Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (a *AtomicLogger) Handle(ctx context.Context, r slog.Record) error {
	return a.handler().Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (a *AtomicLogger) WithAttrs(attrs []slog.Attr) slog.Handler {
	return a.handler().WithAttrs(attrs)
}

// WithGroup implements slog.Handler.
func (a *AtomicLogger) WithGroup(name string) slog.Handler {
	return a.handler().WithGroup(name)
}

// slogAdapter adapts slog.Logger to the logger.Logger interface.
type slogAdapter struct {
	logger *slog.Logger
}

// NewLogAdapter exposes l as a logger.Logger for use cases and infrastructure.
func NewLogAdapter(l *slog.Logger) logger.Logger {
	return &slogAdapter{logger: l}
}

func (a *slogAdapter) Debug(msg string, keysAndValues ...any) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a *slogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Info(msg, keysAndValues...)
}

func (a *slogAdapter) Warn(msg string, keysAndValues ...any) {
	a.logger.Warn(msg, keysAndValues...)
}

func (a *slogAdapter) Error(msg string, keysAndValues ...any) {
	a.logger.Error(msg, keysAndValues...)
}
