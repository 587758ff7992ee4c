package worker

import (
	"time"

	"github.com/okian/facepunch/pkg/logger"
)

// Default pool configuration constants.
const (
	defaultWorkers      = 1
	defaultQueueSize    = 64
	defaultErrorBackoff = 10 * time.Millisecond
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithWorkers sets how many frames are run through the detector concurrently.
func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithStride keeps every n-th good frame and drops the rest before detection.
func WithStride(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.stride = n
		}
	}
}

// WithQueueSize bounds the number of detected probes waiting for the session.
func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// WithErrorBackoff sets the pause after a camera error before the next read.
func WithErrorBackoff(d time.Duration) Option {
	return func(p *Pool) {
		if d >= 0 {
			p.errorBackoff = d
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
