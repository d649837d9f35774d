package correlator

import (
	"log/slog"
	"time"
)

// DefaultTimeout bounds a correlated request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Option configures a Correlator.
type Option func(*Correlator)

// WithDefaultTimeout sets the timeout used when a call does not set one.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Correlator) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

// WithClock replaces the wall clock used to schedule timeouts.
func WithClock(clock Clock) Option {
	return func(c *Correlator) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithIDGenerator replaces the request id generator.
func WithIDGenerator(gen func() string) Option {
	return func(c *Correlator) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Correlator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// CallOption configures a single Correlate call.
type CallOption func(*callConfig)

type callConfig struct {
	timeout time.Duration
}

// WithTimeout overrides the timeout for one call.
func WithTimeout(d time.Duration) CallOption {
	return func(cfg *callConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}
