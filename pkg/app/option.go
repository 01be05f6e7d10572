package app

import (
	"os"
	"time"
)

// Option configures the environment run by Run().
type Option func(o *opts)

type opts struct {
	signals             <-chan os.Signal
	shutdownGracePeriod time.Duration
}

// WithSignals overrides the channel of OS signals that interrupt the
// application.
func WithSignals(ch <-chan os.Signal) Option {
	return func(o *opts) {
		o.signals = ch
	}
}

// WithShutdownGracePeriod overrides the configured shutdown grace period.
func WithShutdownGracePeriod(d time.Duration) Option {
	return func(o *opts) {
		o.shutdownGracePeriod = d
	}
}
