package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a slog logger configured at the provided level. Format "text"
// selects the human readable handler, anything else JSON. If the level string
// is invalid it defaults to info.
func New(level, format string) *slog.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level, format string) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// Reporter surfaces a failure message to the operator (log) and to the
// person who triggered the action (alert text returned to the caller).
type Reporter interface {
	Report(ctx context.Context, message string)
}

// LogReporter reports failures through the structured logger.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter constructs a reporter writing to logger.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report writes message at error level.
func (r *LogReporter) Report(ctx context.Context, message string) {
	if r == nil || r.logger == nil {
		return
	}
	r.logger.ErrorContext(ctx, "operation failed", slog.String("alert", message))
}

type requestIDKey struct{}

// WithRequestID stores the request identifier in ctx so outbound calls can propagate it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request identifier stored in ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
