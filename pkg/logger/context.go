package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// With returns a context carrying a request-scoped logger extended with
// fields, so handlers downstream log with the trace id attached.
func With(ctx context.Context, fields ...any) context.Context {
	l := From(ctx).With(fields...)
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the request-scoped logger, falling back to the process logger.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return LoggerWrapper()
}
