// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// UserIDKey is the context key for the acting user ID
	UserIDKey contextKey = "user_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger writing to stdout. Development gets a debug-level
// text handler, every other environment gets JSON.
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(env string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithContext returns a logger carrying request_id and user_id from ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	out := l
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		out = &Logger{Logger: out.With(slog.String("request_id", requestID))}
	}
	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		out = &Logger{Logger: out.With(slog.String("user_id", userID))}
	}
	return out
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// StageChanged logs an applied pipeline transition.
func (l *Logger) StageChanged(dealID, from, to, actorID string) {
	l.Info("pipeline_stage_changed",
		slog.String("deal_id", dealID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("actor_id", actorID),
	)
}

// PersistenceError logs a failed flush to the backing store.
func (l *Logger) PersistenceError(collection string, err error) {
	l.Error("persistence_error",
		slog.String("collection", collection),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
