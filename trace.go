//go:build !notrace

package sgml

import (
	"context"
	"log/slog"
	"runtime"
)

type traceLoggerKey struct{}

var nullLogger = slog.New(slog.DiscardHandler)

// WithTraceLogger attaches tlog to ctx for the forgiving document parser to
// log state-machine transitions and tag-inference decisions against. A
// context that already carries a trace logger is returned unchanged.
func WithTraceLogger(ctx context.Context, tlog *slog.Logger) context.Context {
	if _, ok := ctx.Value(traceLoggerKey{}).(*slog.Logger); ok {
		return ctx
	}
	return context.WithValue(ctx, traceLoggerKey{}, tlog)
}

func getTraceLogFromContext(ctx context.Context) *slog.Logger {
	if tlog, ok := ctx.Value(traceLoggerKey{}).(*slog.Logger); ok {
		pc, _, _, ok := runtime.Caller(2)
		if ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				tlog = tlog.With(slog.String("fn", fn.Name()))
			}
		}
		return tlog
	}
	return nullLogger
}
