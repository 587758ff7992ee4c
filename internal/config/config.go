// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New() builds a Config with defaults; Load layers file and env on top.
//   - Durations accept Go duration strings ("60s", "2m") in YAML and env.
//   - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects "text" or "json" log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DataDir holds users.json, embeddings.cbor and attendance.json.
	// Empty keeps everything in memory.
	DataDir string `koanf:"data_dir"`

	// EmbeddingDim is the expected length of every embedding.
	EmbeddingDim int `koanf:"embedding_dim"`

	// Tolerance is the maximum Euclidean distance accepted as a match.
	Tolerance float64 `koanf:"tolerance"`

	// RequiredStreak is the number of consecutive agreeing frames needed to confirm.
	RequiredStreak int `koanf:"required_streak"`

	// LookbackWindow suppresses a repeated action by the same user inside this window.
	LookbackWindow time.Duration `koanf:"lookback_window"`

	// HistoryScanLimit caps how many recent records the guard inspects (0 = window only).
	HistoryScanLimit int `koanf:"history_scan_limit"`

	// MinEnrollmentSamples is the number of single-face samples averaged at enrollment.
	MinEnrollmentSamples int `koanf:"min_enrollment_samples"`

	// SessionTimeout cancels an identification session that has not confirmed.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// EnrollmentTimeout ends sample capture for an enrollment.
	EnrollmentTimeout time.Duration `koanf:"enrollment_timeout"`

	// CaptureWorkers sets how many frames are run through the detector concurrently.
	CaptureWorkers int `koanf:"capture_workers"`

	// FrameQueueSize bounds the ordered probe queue between capture and confirmation.
	FrameQueueSize int `koanf:"frame_queue_size"`

	// FrameStride samples every Nth camera frame (1 = every frame).
	FrameStride int `koanf:"frame_stride"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		DataDir:              "data",
		EmbeddingDim:         128,
		Tolerance:            0.5,
		RequiredStreak:       3,
		LookbackWindow:       60 * time.Second,
		HistoryScanLimit:     0,
		MinEnrollmentSamples: 5,
		SessionTimeout:       30 * time.Second,
		EnrollmentTimeout:    60 * time.Second,
		CaptureWorkers:       max(1, runtime.NumCPU()/2),
		FrameQueueSize:       64,
		FrameStride:          1,
	}
}

// Validate reports the first nonsensical value.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.EmbeddingDim <= 0:
		return fmt.Errorf("%w: embedding_dim must be positive", ErrInvalidConfig)
	case c.Tolerance <= 0:
		return fmt.Errorf("%w: tolerance must be positive", ErrInvalidConfig)
	case c.RequiredStreak < 1:
		return fmt.Errorf("%w: required_streak must be at least 1", ErrInvalidConfig)
	case c.LookbackWindow < 0:
		return fmt.Errorf("%w: lookback_window must not be negative", ErrInvalidConfig)
	case c.HistoryScanLimit < 0:
		return fmt.Errorf("%w: history_scan_limit must not be negative", ErrInvalidConfig)
	case c.MinEnrollmentSamples < 1:
		return fmt.Errorf("%w: min_enrollment_samples must be at least 1", ErrInvalidConfig)
	case c.SessionTimeout <= 0:
		return fmt.Errorf("%w: session_timeout must be positive", ErrInvalidConfig)
	case c.EnrollmentTimeout <= 0:
		return fmt.Errorf("%w: enrollment_timeout must be positive", ErrInvalidConfig)
	case c.CaptureWorkers < 1:
		return fmt.Errorf("%w: capture_workers must be at least 1", ErrInvalidConfig)
	case c.FrameQueueSize < 1:
		return fmt.Errorf("%w: frame_queue_size must be at least 1", ErrInvalidConfig)
	case c.FrameStride < 1:
		return fmt.Errorf("%w: frame_stride must be at least 1", ErrInvalidConfig)
	}
	return nil
}
