package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/okian/facepunch/internal/kiosksim"
)

// Default configuration constants.
const (
	defaultUsers       = 20
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		users        = flag.Int("users", defaultUsers, "Number of synthetic users")
		dim          = flag.Int("dim", kiosksim.DefaultDim, "Embedding dimension, must match the server's embedding_dim")
		enrollFrames = flag.Int("enroll-frames", kiosksim.DefaultEnrollFrames, "Frames per enrollment")
		punchFrames  = flag.Int("punch-frames", kiosksim.DefaultPunchFrames, "Frames per punch session")
		jitter       = flag.Float64("jitter", kiosksim.DefaultJitter, "Per-component noise on every capture")
		seed         = flag.Uint64("seed", 0, "Seed for synthetic faces (default: from the clock)")
		workers      = flag.Int("workers", runtime.NumCPU(), "Number of concurrent kiosks")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		noPunchOut   = flag.Bool("no-punch-out", false, "Only exercise punch_in")
		logFile      = flag.String("log", "", "Also write logs to this file")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		kiosksim.ShowHelp()
		return nil
	}

	closer, err := kiosksim.SetupLogging(*logFile, *verbose)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	_, err = kiosksim.Run(ctx, kiosksim.Config{
		BaseURL:      *baseURL,
		Users:        *users,
		Dim:          *dim,
		EnrollFrames: *enrollFrames,
		PunchFrames:  *punchFrames,
		Jitter:       *jitter,
		Seed:         *seed,
		Workers:      *workers,
		Timeout:      *timeout,
		SkipPunchOut: *noPunchOut,
		Verbose:      *verbose,
	})
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	return nil
}
