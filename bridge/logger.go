package bridge

import "go.uber.org/zap"

var logger = zap.NewNop()

// SetLogger configures the bridge package's logger.
// Pass nil to disable logging.
func SetLogger(l *zap.Logger) {
	if l == nil {
		logger = zap.NewNop()
		return
	}
	logger = l
}

// Logger returns the current package logger.
func Logger() *zap.Logger {
	return logger
}
