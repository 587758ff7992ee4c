// Package kiosksim drives a running attendance service with synthetic kiosks:
// it enrolls generated users, punches them in (twice, to hit the duplicate
// guard) and out, then checks the report against what it submitted.
package kiosksim

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/facepunch/internal/domain/types"
	"github.com/okian/facepunch/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// punchResult classifies one punch response.
type punchResult int

const (
	punchRecorded punchResult = iota
	punchDuplicate
	punchUnconfirmed
	punchFailed
)

// counters are updated by concurrent kiosks.
type counters struct {
	enrolled, enrollFailed                    atomic.Int64
	recorded, duplicates, unconfirmed, failed atomic.Int64
}

func (c *counters) add(r punchResult) {
	switch r {
	case punchRecorded:
		c.recorded.Add(1)
	case punchDuplicate:
		c.duplicates.Add(1)
	case punchUnconfirmed:
		c.unconfirmed.Add(1)
	default:
		c.failed.Add(1)
	}
}

// Run executes the complete simulation and returns its statistics.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	cfg = cfg.withDefaults()
	log := logger.Named("kiosksim")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting kiosk simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("dim", cfg.Dim),
		logger.Int("workers", cfg.Workers),
		logger.Float64("jitter", cfg.Jitter),
		logger.Any("seed", cfg.Seed))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	src := newFaceSource(cfg.Seed, cfg.Jitter)
	personas := generatePersonas(ctx, src, cfg.Users, cfg.Dim)
	stats.UsersGenerated = len(personas)

	var c counters

	// Step 1: enroll everyone.
	err := forEach(ctx, cfg.Workers, personas, func(ctx context.Context, p Persona) {
		status, err := client.Enroll(ctx, p, src.capture(p, cfg.EnrollFrames))
		if err != nil || status != StatusCreated {
			c.enrollFailed.Add(1)
			log.Warn(ctx, "enrollment failed", logger.String("userID", p.UserID), logger.Int("status", status), logger.Error(err))
			return
		}
		c.enrolled.Add(1)
		if cfg.Verbose {
			log.Debug(ctx, "enrolled", logger.String("userID", p.UserID), logger.String("name", p.Name))
		}
	})
	if err != nil {
		return stats, fmt.Errorf("enrollment failed: %w", err)
	}

	// Step 2: punch in, then immediately again. The repeat must be a duplicate.
	punches := []string{"punch_in", "punch_in"}
	if !cfg.SkipPunchOut {
		punches = append(punches, "punch_out")
	}
	for _, action := range punches {
		err := forEach(ctx, cfg.Workers, personas, func(ctx context.Context, p Persona) {
			r := punch(ctx, client, action, src.capture(p, cfg.PunchFrames), p)
			c.add(r)
			if cfg.Verbose {
				log.Debug(ctx, "punch", logger.String("userID", p.UserID), logger.String("action", action), logger.Int("result", int(r)))
			}
		})
		if err != nil {
			return stats, fmt.Errorf("%s failed: %w", action, err)
		}
	}

	stats.Enrolled = int(c.enrolled.Load())
	stats.EnrollFailed = int(c.enrollFailed.Load())
	stats.Recorded = int(c.recorded.Load())
	stats.Duplicates = int(c.duplicates.Load())
	stats.Unconfirmed = int(c.unconfirmed.Load())
	stats.Failed = int(c.failed.Load())

	// Step 3: verify the report.
	records, err := client.Report(ctx, "")
	if err != nil {
		return stats, fmt.Errorf("report retrieval failed: %w", err)
	}
	stats.ReportRecords = len(records)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if err := verifyReport(personas, records, !cfg.SkipPunchOut); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}
	if err := verifyCounts(stats, !cfg.SkipPunchOut); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

// forEach runs fn for every persona with at most workers in flight.
func forEach(ctx context.Context, workers int, personas []Persona, fn func(context.Context, Persona)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range personas {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(gctx, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// punch submits one session and classifies the response.
func punch(ctx context.Context, client *HTTPClient, action string, frames []types.Frame, p Persona) punchResult {
	status, out, err := client.Punch(ctx, action, frames)
	switch {
	case err != nil:
		return punchFailed
	case status == StatusCreated && out.UserID == p.UserID:
		return punchRecorded
	case status == StatusConflict && out.UserID == p.UserID:
		return punchDuplicate
	case status == StatusUnprocessable:
		return punchUnconfirmed
	default:
		// A confirmation of the wrong user counts as a failure.
		return punchFailed
	}
}

// displayFinalStats logs the final simulation statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var enrollRate, punchesPerSecond float64
	if stats.UsersGenerated > 0 {
		enrollRate = float64(stats.Enrolled) / float64(stats.UsersGenerated) * PercentageMultiplier
	}
	punches := stats.Recorded + stats.Duplicates + stats.Unconfirmed + stats.Failed
	if stats.Duration > 0 {
		punchesPerSecond = float64(punches) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("usersGenerated", stats.UsersGenerated),
		logger.Int("enrolled", stats.Enrolled),
		logger.Int("enrollFailed", stats.EnrollFailed),
		logger.Int("recorded", stats.Recorded),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("unconfirmed", stats.Unconfirmed),
		logger.Int("failed", stats.Failed),
		logger.Int("reportRecords", stats.ReportRecords),
		logger.Duration("duration", stats.Duration),
		logger.Float64("enrollRate", enrollRate),
		logger.Float64("punchesPerSecond", punchesPerSecond))
}
