package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/facepunch/internal/adapters/mq/worker"
	"github.com/okian/facepunch/internal/adapters/storage"
	"github.com/okian/facepunch/internal/domain/enrollment"
	"github.com/okian/facepunch/internal/domain/model"
	"github.com/okian/facepunch/pkg/logger"
	"github.com/okian/facepunch/pkg/metrics"
)

// Enroll captures single-face samples from cam until the configured number is
// reached, averages them and stores the result as the reference of p.ID.
// Re-enrolling an existing user replaces their embedding in place.
// Only ID, Name and the optional Department of p are used.
//
// If the camera runs out or the enrollment timeout passes first, nothing is
// stored and the error wraps enrollment.ErrInsufficientSamples.
func (s *Service) Enroll(ctx context.Context, p model.User, cam worker.Camera, det worker.Detector) (model.User, error) {
	if err := enrollment.ValidateUser(p.ID, p.Name); err != nil {
		metrics.RecordEnrollment("invalid")
		return model.User{}, err
	}
	if !s.isStarted() {
		return model.User{}, ErrNotStarted
	}

	mean, skipped, err := s.captureSamples(ctx, cam, det)
	if err != nil {
		metrics.RecordEnrollment("insufficient_samples")
		s.logger.Warn(ctx, "enrollment failed",
			logger.String("userID", p.ID),
			logger.Int("skippedFrames", skipped),
			logger.Error(err),
		)
		return model.User{}, err
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	user := model.User{ID: p.ID, Name: p.Name, Department: p.Department, RegisteredAt: s.now()}
	if err := s.persister.SaveUser(context.WithoutCancel(ctx), user, mean); err != nil {
		if errors.Is(err, storage.ErrMalformed) {
			metrics.RecordEnrollment("rejected")
			s.logger.Warn(ctx, "enrollment rejected by storage", logger.String("userID", p.ID), logger.Error(err))
			return model.User{}, fmt.Errorf("enroll %q: %w", p.ID, err)
		}
		metrics.RecordEnrollment("storage_error")
		if !errors.Is(err, storage.ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %w", storage.ErrStorageUnavailable, err)
		}
		s.logger.Error(ctx, "failed to persist enrollment", logger.String("userID", p.ID), logger.Error(err))
		return model.User{}, fmt.Errorf("enroll %q: %w", p.ID, err)
	}

	replaced, err := s.store.Put(user, mean)
	if err != nil {
		return model.User{}, fmt.Errorf("enroll %q: %w", p.ID, err)
	}

	outcome := "enrolled"
	if replaced {
		outcome = "re_enrolled"
	}
	metrics.RecordEnrollment(outcome)
	s.logger.Info(ctx, "user enrolled",
		logger.String("userID", p.ID),
		logger.String("name", p.Name),
		logger.Bool("replaced", replaced),
		logger.Int("skippedFrames", skipped),
	)
	return user, nil
}

// captureSamples returns the mean embedding and how many frames were skipped.
func (s *Service) captureSamples(ctx context.Context, cam worker.Camera, det worker.Detector) (model.Embedding, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.enrollmentTimeout)
	defer cancel()

	acc := enrollment.NewAccumulator(
		enrollment.WithMinSamples(s.minSamples),
		enrollment.WithDimension(s.embeddingDim),
	)

	run := s.enrollPool.Start(ctx, cam, det)
	probes := run.Probes()
loop:
	for !acc.Done() {
		select {
		case <-ctx.Done():
			break loop
		case pr, ok := <-probes:
			if !ok {
				break loop
			}
			if pr.Err == nil {
				acc.Add(pr.Faces)
			}
		}
	}
	stopErr := run.Stop()

	mean, err := acc.Mean()
	if err == nil {
		return mean, acc.Skipped(), nil
	}
	if cerr := ctx.Err(); cerr != nil {
		return nil, acc.Skipped(), fmt.Errorf("%w: %w", err, cerr)
	}
	if stopErr != nil {
		return nil, acc.Skipped(), fmt.Errorf("%w: %w", err, stopErr)
	}
	return nil, acc.Skipped(), err
}
