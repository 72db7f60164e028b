//go:build notrace

package sgml

import (
	"context"
	"log/slog"
)

// No-op implementations when built with -tags notrace, avoiding the
// context lookup and slog.Attr allocation on the hot parsing path.

func WithTraceLogger(ctx context.Context, tlog *slog.Logger) context.Context {
	return ctx
}

func getTraceLogFromContext(ctx context.Context) *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
