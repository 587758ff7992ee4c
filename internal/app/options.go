package service

import (
	"time"

	"github.com/okian/facepunch/internal/adapters/storage"
	"github.com/okian/facepunch/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPersister sets the durable medium. Defaults to storage.NewMemory().
func WithPersister(p storage.Persister) Option {
	return func(s *Service) {
		if p != nil {
			s.persister = p
		}
	}
}

// WithTolerance sets the maximum match distance.
func WithTolerance(t float64) Option {
	return func(s *Service) {
		if t > 0 {
			s.tolerance = t
		}
	}
}

// WithRequiredStreak sets how many consecutive frames confirm an identity.
func WithRequiredStreak(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.requiredStreak = n
		}
	}
}

// WithLookbackWindow sets the duplicate suppression window. Zero disables it.
func WithLookbackWindow(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.lookbackWindow = d
		}
	}
}

// WithHistoryScanLimit caps how many recent records the duplicate check inspects.
func WithHistoryScanLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.historyScanLimit = n
		}
	}
}

// WithMinEnrollmentSamples sets how many single-face samples an enrollment averages.
func WithMinEnrollmentSamples(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minSamples = n
		}
	}
}

// WithEmbeddingDim sets the expected embedding length. Zero accepts any length.
func WithEmbeddingDim(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.embeddingDim = n
		}
	}
}

// WithSessionTimeout bounds how long an identification session may run.
func WithSessionTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sessionTimeout = d
		}
	}
}

// WithEnrollmentTimeout bounds sample capture for one enrollment.
func WithEnrollmentTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.enrollmentTimeout = d
		}
	}
}

// WithCaptureWorkers sets the detector concurrency of the capture pipeline.
func WithCaptureWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.captureWorkers = n
		}
	}
}

// WithFrameQueueSize bounds the probe queue between capture and confirmation.
func WithFrameQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.frameQueueSize = n
		}
	}
}

// WithFrameStride samples every n-th frame during identification sessions.
func WithFrameStride(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.frameStride = n
		}
	}
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
