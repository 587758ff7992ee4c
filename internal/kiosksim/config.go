package kiosksim

import (
	"runtime"
	"time"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Users        int           // Number of synthetic users to enroll
	Dim          int           // Embedding dimension; must match the server's embedding_dim
	EnrollFrames int           // Frames submitted per enrollment
	PunchFrames  int           // Frames submitted per punch session
	Jitter       float64       // Max per-component noise added to each captured face
	Seed         uint64        // Seed for the synthetic faces; 0 picks one from the clock
	Workers      int           // Concurrent kiosks
	Timeout      time.Duration // HTTP request timeout
	SkipPunchOut bool          // Only exercise punch_in
	Verbose      bool          // Log every request
}

func (c Config) withDefaults() Config {
	if c.Dim <= 0 {
		c.Dim = DefaultDim
	}
	if c.EnrollFrames <= 0 {
		c.EnrollFrames = DefaultEnrollFrames
	}
	if c.PunchFrames <= 0 {
		c.PunchFrames = DefaultPunchFrames
	}
	if c.Jitter <= 0 {
		c.Jitter = DefaultJitter
	}
	if c.Seed == 0 {
		c.Seed = uint64(time.Now().UnixNano())
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Stats holds simulation statistics.
type Stats struct {
	UsersGenerated int
	Enrolled       int
	EnrollFailed   int
	Recorded       int
	Duplicates     int
	Unconfirmed    int
	Failed         int
	ReportRecords  int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
