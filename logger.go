package tilego

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/tilego/array"
)

// Logger wraps slog.Logger and adds query-scoped helpers.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger from a slog handler.
func NewLogger(handler slog.Handler) *Logger {
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a JSON logger writing to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a text logger writing to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger returns a logger that discards all records.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithLayout returns a logger with the result layout attached.
func (l *Logger) WithLayout(layout array.Layout) *Logger {
	return &Logger{Logger: l.With(slog.String("layout", layout.String()))}
}

// WithAttribute returns a logger with an attribute name attached.
func (l *Logger) WithAttribute(name string) *Logger {
	return &Logger{Logger: l.With(slog.String("attribute", name))}
}

// LogSubmit records the outcome of a query submission.
func (l *Logger) LogSubmit(ctx context.Context, status QueryStatus, dur time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query submit failed",
			slog.Duration("duration", dur),
			slog.String("error", err.Error()))
		return
	}
	l.DebugContext(ctx, "query submit",
		slog.String("status", status.String()),
		slog.Duration("duration", dur))
}
