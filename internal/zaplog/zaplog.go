// Package zaplog adapts a zap logger to the dodeca/logging.Logger
// interface the rest of the service logs through.
package zaplog

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger adapts a *zap.Logger to dodeca/logging.Logger.
type Logger struct {
	Z *zap.Logger
}

// New builds a production zap logger and wraps it. The returned
// function flushes buffered entries and must be called before exit.
func New(debug bool) (Logger, func()) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		z = zap.NewNop()
	}

	return Logger{Z: z}, func() { _ = z.Sync() }
}

func (l Logger) Log(f string, v ...interface{}) {
	l.LogString(fmt.Sprintf(f, v...))
}

func (l Logger) LogString(s string) {
	l.Z.Info(s)
}

func (l Logger) Debug(f string, v ...interface{}) {
	l.DebugString(fmt.Sprintf(f, v...))
}

func (l Logger) DebugString(s string) {
	l.Z.Debug(s)
}

func (l Logger) IsDebug() bool {
	return l.Z.Core().Enabled(zap.DebugLevel)
}
