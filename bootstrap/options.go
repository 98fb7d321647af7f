package bootstrap

import (
	"time"

	"github.com/kbukum/orthotile/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	runID           string
	gracefulTimeout *time.Duration
	signals         bool
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{signals: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the application logger instead of initialising the
// global one from the config.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(o *appOptions) { o.runID = id }
}

// WithGracefulTimeout bounds the shutdown of components.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = &d }
}

// WithoutSignals leaves SIGINT and SIGTERM alone. Tests use it.
func WithoutSignals() Option {
	return func(o *appOptions) { o.signals = false }
}
