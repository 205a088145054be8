// Package log wraps slog with per-component loggers so every line in
// the engine carries its origin.
package log

import (
	"log/slog"
	"os"
)

// Logger is a component-scoped slog.Logger.
type Logger struct {
	*slog.Logger
	component string
}

// New creates a text logger at the given level for a component.
func New(component string, level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return &Logger{
		Logger:    slog.New(handler).With("component", component),
		component: component,
	}
}

// WithComponent derives a logger for a sub-component, keeping the
// handler and level.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("component", component),
		component: component,
	}
}

// With returns a logger with extra attributes attached.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		component: l.component,
	}
}

// Component returns the logger's component name.
func (l *Logger) Component() string { return l.component }

// SetDefault installs the logger as the process default so package
// level slog calls share the same handler.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
