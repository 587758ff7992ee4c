package kiosksim

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/facepunch/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging initializes the logger to write to stdout and, when logFile
// is set, to that file as well.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	var (
		w      io.Writer = os.Stdout
		closer io.Closer = io.NopCloser(nil)
	)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	if err := logger.Init(logger.WithWriter(w)); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	if logFile != "" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	}
	return closer, nil
}

// ShowHelp prints usage information for the kiosk simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`facepunch kiosk simulator
=========================

Enrolls synthetic users against a running facepunch server, punches each of
them in twice (the second must be rejected as a duplicate) and out once, then
checks the attendance report.

Usage:
  go run ./cmd/kiosk-sim [options]

Options:
  -url string         Base URL of the service (default "http://localhost:9080")
  -users int          Number of synthetic users (default 20)
  -dim int            Embedding dimension, must match embedding_dim (default 128)
  -enroll-frames int  Frames per enrollment (default 8)
  -punch-frames int   Frames per punch session (default 6)
  -jitter float       Per-component noise on every capture (default 0.01)
  -seed uint          Seed for synthetic faces (default: from the clock)
  -workers int        Concurrent kiosks (default CPU cores)
  -timeout duration   HTTP request timeout (default 30s)
  -no-punch-out       Only exercise punch_in
  -log string         Also write logs to this file
  -verbose            Log every request
  -help               Show this help message

Note: the duplicate check only holds while lookback_window on the server is
longer than the run; a zero window turns every repeat into a new record.
`)
}
