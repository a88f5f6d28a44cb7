// Package log wraps slog with the conventions shared by the server and
// the worker: every record carries a component attribute, and field sets
// for the ledger operations are built through LogFields.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a component-tagged slog.Logger.
type Logger struct {
	*slog.Logger
	component string
}

// Config selects the handler and the component tag for a process.
type Config struct {
	Level     slog.Level
	Component string
	JSON      bool
	Output    io.Writer
}

// New builds a logger whose records all carry the configured component.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	component := cfg.Component
	if component == "" {
		component = "app"
	}

	return &Logger{
		Logger:    slog.New(handler).With("component", component),
		component: component,
	}
}

// With returns a logger carrying the extra attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		component: l.component,
	}
}

// WithComponent returns a logger tagged with a different component,
// keeping the parent's handler.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("component", component),
		component: component,
	}
}

// Component returns the logger's component tag.
func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs the logger as the process-wide slog default, so
// packages logging through slog.InfoContext and friends inherit the
// component tag.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
