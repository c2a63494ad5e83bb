package engine

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

// Logger returns the engine's logger instance.
// It uses a no-op logger until SetLogger installs one.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

// SetLogger installs l as the engine logger. A nil l restores the no-op
// logger.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
