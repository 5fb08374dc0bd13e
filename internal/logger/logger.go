package logger

// logger.go initializes the application logger and provides request-scoped
// loggers via the request context.

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// ParseLogLevel maps a config string to a slog level. Unknown values fall
// back to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// InitLogger creates the application logger and installs it as the slog
// default. Dev and test environments get human-readable colorized output;
// everything else gets JSON for log aggregation.
func InitLogger(level slog.Level, environment string) *slog.Logger {
	var handler slog.Handler

	switch environment {
	case "dev", "test":
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		})
	default:
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	appLogger := slog.New(handler)
	slog.SetDefault(appLogger)
	return appLogger
}

type contextKey int

const (
	loggerKey contextKey = iota
	attrsKey
)

// logAttrs collects attributes added during request handling so they can be
// included in the final request log line.
type logAttrs struct {
	mu    sync.Mutex
	attrs []slog.Attr
}

// ContextWithRequestLogger stores a request-scoped logger (and an empty attr
// bag) in the context. Used by the request logging middleware.
func ContextWithRequestLogger(ctx context.Context, reqLogger *slog.Logger) context.Context {
	ctx = context.WithValue(ctx, loggerKey, reqLogger)
	return context.WithValue(ctx, attrsKey, &logAttrs{})
}

// ContextRequestLogger returns the request-scoped logger, or slog.Default()
// when the context carries none (e.g. in tests).
func ContextRequestLogger(ctx context.Context) *slog.Logger {
	if reqLogger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return reqLogger
	}
	return slog.Default()
}

// ContextWithLogAttrs records attributes to be appended to the final request
// log line. No-op when the context has no attr bag.
func ContextWithLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	bag, ok := ctx.Value(attrsKey).(*logAttrs)
	if !ok {
		return
	}
	bag.mu.Lock()
	defer bag.mu.Unlock()
	bag.attrs = append(bag.attrs, attrs...)
}

// contextLogAttrs returns the attributes recorded during request handling.
func contextLogAttrs(ctx context.Context) []slog.Attr {
	bag, ok := ctx.Value(attrsKey).(*logAttrs)
	if !ok {
		return nil
	}
	bag.mu.Lock()
	defer bag.mu.Unlock()
	return append([]slog.Attr(nil), bag.attrs...)
}
