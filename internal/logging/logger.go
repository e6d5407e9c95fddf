// Package logging provides structured logging with trace ID propagation.
package logging

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const traceIDKey contextKey = "trace_id"

// Logger wraps zerolog with request-scoped helpers.
type Logger struct {
	zl zerolog.Logger
}

// New creates a logger for the named service. Output is JSON on stderr.
func New(service string) *Logger {
	zl := zerolog.New(os.Stderr).With().
		Timestamp().
		Str("service", service).
		Logger()
	return &Logger{zl: zl}
}

// NewNop returns a logger that discards everything. Used in tests.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Component returns a child logger tagged with a component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{zl: l.zl.With().Str("component", name).Logger()}
}

// NewTraceID generates a new trace identifier.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID stores a trace ID in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID extracts the trace ID from the context, if any.
func TraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

func (l *Logger) event(ctx context.Context, ev *zerolog.Event) *zerolog.Event {
	if traceID := TraceID(ctx); traceID != "" {
		ev = ev.Str("trace_id", traceID)
	}
	return ev
}

// Debug logs a debug message with optional key/value fields.
func (l *Logger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.event(ctx, l.zl.Debug()).Fields(fields).Msg(msg)
}

// Info logs an informational message with optional key/value fields.
func (l *Logger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.event(ctx, l.zl.Info()).Fields(fields).Msg(msg)
}

// Warn logs a warning with optional key/value fields.
func (l *Logger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.event(ctx, l.zl.Warn()).Fields(fields).Msg(msg)
}

// Error logs an error with optional key/value fields.
func (l *Logger) Error(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	l.event(ctx, l.zl.Error()).Err(err).Fields(fields).Msg(msg)
}

// LogRequest writes one access-log line per HTTP request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	ev := l.zl.Info()
	if status >= http.StatusInternalServerError {
		ev = l.zl.Error()
	}
	l.event(ctx, ev).
		Str("method", method).
		Str("path", path).
		Int("status", status).
		Dur("duration", duration).
		Msg("http request")
}

// LogSecurityEvent records security-relevant events such as rate limiting.
func (l *Logger) LogSecurityEvent(ctx context.Context, event string, fields map[string]interface{}) {
	l.event(ctx, l.zl.Warn()).
		Str("event", event).
		Fields(fields).
		Msg("security event")
}
