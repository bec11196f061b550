// Package logging builds the service's slog loggers and carries them, with
// the request ID, through request contexts.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	loggerKey    contextKey = "logger"
)

// Service is attached to every record so shared log pipelines can filter
// on it.
const Service = "fountainscan"

// ParseLevel maps LOG_LEVEL to a slog level. Matching ignores case and
// accepts "warning" for warn.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// New creates a logger writing to stdout.
func New(level string, format string) *slog.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter creates a logger writing to w. Unknown levels fall back to
// info; any format other than "json" is text.
func NewWithWriter(w io.Writer, level string, format string) *slog.Logger {
	lvl, _ := ParseLevel(level)

	opts := &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   lvl == slog.LevelDebug,
		ReplaceAttr: redactURL,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("service", Service)
}

// redactURL drops the query and fragment from "url" attributes. Scanned
// links routinely carry session tokens and one-time codes there.
func redactURL(_ []string, a slog.Attr) slog.Attr {
	if a.Key != "url" || a.Value.Kind() != slog.KindString {
		return a
	}
	u, err := url.Parse(a.Value.String())
	if err != nil || (u.RawQuery == "" && u.Fragment == "" && !u.ForceQuery) {
		return a
	}
	u.RawQuery, u.Fragment, u.ForceQuery = "", "", false
	u.RawFragment = ""
	return slog.String(a.Key, u.String()+"?[redacted]")
}

// WithRequestID stores the ID RequestIDMiddleware assigned.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the stored request ID, or "" outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext falls back to slog.Default for contexts built outside the
// HTTP stack, such as the cache sweeper and async audit writes.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// L returns the context's logger tagged with its request ID.
func L(ctx context.Context) *slog.Logger {
	logger := FromContext(ctx)
	if reqID := RequestID(ctx); reqID != "" {
		return logger.With("request_id", reqID)
	}
	return logger
}
