// Package logger builds the service's structured logger. Every record passes
// through the event guard before it reaches the output handler.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"rgpdgate/internal/platform/config"
	"rgpdgate/pkg/platform/eventguard"
)

// ViolationCounter receives one increment per rejected log record.
type ViolationCounter interface {
	IncGuardViolation(source string)
}

type options struct {
	out     io.Writer
	guard   eventguard.Guard
	counter ViolationCounter
}

type Option func(*options)

// WithOutput redirects output (default os.Stderr).
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

func WithGuard(g eventguard.Guard) Option {
	return func(o *options) { o.guard = g }
}

func WithViolationCounter(c ViolationCounter) Option {
	return func(o *options) { o.counter = c }
}

// New creates a *slog.Logger from LogConfig.
//
// Format "json" produces JSON output (production), "text" produces
// human-readable output with source info (development). Level is one of
// debug, info, warn, error; unknown values default to info. Record messages
// are event names and are validated as such.
func New(cfg config.LogConfig, opts ...Option) *slog.Logger {
	o := options{out: os.Stderr, guard: eventguard.New()}
	for _, opt := range opts {
		opt(&o)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: strings.EqualFold(cfg.Format, "text"),
	}

	var base slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		base = slog.NewTextHandler(o.out, handlerOpts)
	} else {
		base = slog.NewJSONHandler(o.out, handlerOpts)
	}

	return slog.New(NewGuardHandler(base, o.guard, o.counter))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
