// Package logger wraps the zap logger shared by the server components.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger holds the process-wide structured logger.
type Logger struct {
	// Log is a no-op logger until Init succeeds.
	Log *zap.Logger
}

// New returns a Logger whose Log discards everything.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces Log with a JSON production logger at the given level
// ("debug", "info", "warn", "error", case-insensitive).
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	l.Log = zl
	return nil
}
