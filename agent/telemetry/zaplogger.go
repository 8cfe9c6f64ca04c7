package telemetry

import (
	"context"

	"go.uber.org/zap"
)

// ZapLogger adapts a *zap.SugaredLogger to the Logger interface. This is the
// production logger backend: structured, leveled, and safe for concurrent
// use from workflow ticks and step executions alike.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps the given zap logger. Pass zap.NewProduction() (or a
// logger pre-configured with the orchestrator's run_id/session_id fields)
// from the cmd/orchestratord entrypoint.
func NewZapLogger(l *zap.Logger) Logger {
	return &ZapLogger{sugar: l.Sugar()}
}

func (z *ZapLogger) Debug(_ context.Context, msg string, keyvals ...any) {
	z.sugar.Debugw(msg, keyvals...)
}

func (z *ZapLogger) Info(_ context.Context, msg string, keyvals ...any) {
	z.sugar.Infow(msg, keyvals...)
}

func (z *ZapLogger) Warn(_ context.Context, msg string, keyvals ...any) {
	z.sugar.Warnw(msg, keyvals...)
}

func (z *ZapLogger) Error(_ context.Context, msg string, keyvals ...any) {
	z.sugar.Errorw(msg, keyvals...)
}
