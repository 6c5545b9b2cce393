// Package logging carries request-scoped slog loggers through contexts, so
// every layer handling a request logs with the same decorated logger.
package logging

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// ContextWithLogger derives a context carrying logger. A nil logger leaves
// the context unchanged.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger carried by ctx, or nil when none was
// attached.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(*slog.Logger)
	return logger
}
