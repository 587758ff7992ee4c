package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/okian/facepunch/internal/adapters/mq/queue"
	"github.com/okian/facepunch/internal/adapters/mq/worker"
	"github.com/okian/facepunch/internal/adapters/storage"
	"github.com/okian/facepunch/internal/domain/confirm"
	"github.com/okian/facepunch/internal/domain/dedupe"
	"github.com/okian/facepunch/internal/domain/model"
	"github.com/okian/facepunch/pkg/logger"
	"github.com/okian/facepunch/pkg/metrics"
)

// OutcomeKind classifies how a session ended.
type OutcomeKind int

const (
	// OutcomeFailed - the session could not complete; see the returned error.
	OutcomeFailed OutcomeKind = iota
	// OutcomeRecorded - an identity was confirmed and a record was written.
	OutcomeRecorded
	// OutcomeDuplicate - an identity was confirmed but the same action was recorded recently.
	OutcomeDuplicate
	// OutcomeCancelled - aborted, timed out or out of frames before confirmation.
	OutcomeCancelled
)

// String returns the string representation of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Outcome summarizes one identification session.
type Outcome struct {
	SessionID  string
	Kind       OutcomeKind
	Action     model.Action
	UserID     string // confirmed identity, for Recorded and Duplicate
	Name       string
	Confidence float64
	Record     model.AttendanceRecord // set for Recorded
	Frames     int                    // probes observed
	Progress   float64                // streak/required at the end
	Reason     error                  // set for Cancelled
	Duration   time.Duration
}

// RunSession watches frames from cam until one identity is seen on enough
// consecutive frames, then records action for that user unless the same
// action was recorded within the lookback window.
//
// Cancellation of ctx, the session timeout and an exhausted camera end the
// session as OutcomeCancelled with a nil error. A persistence failure returns
// an error wrapping storage.ErrStorageUnavailable and leaves the ledger as it was.
func (s *Service) RunSession(ctx context.Context, action model.Action, cam worker.Camera, det worker.Detector) (Outcome, error) {
	if !action.Valid() {
		return Outcome{}, fmt.Errorf("%w: %q", model.ErrInvalidAction, action)
	}
	if !s.isStarted() {
		return Outcome{}, ErrNotStarted
	}

	start := time.Now()
	out, err := s.runSession(ctx, Outcome{SessionID: uuid.NewString(), Action: action}, cam, det)
	out.Duration = time.Since(start)
	metrics.RecordSession(action.String(), out.Kind.String(), float64(out.Duration.Milliseconds()))
	return out, err
}

func (s *Service) runSession(ctx context.Context, out Outcome, cam worker.Camera, det worker.Detector) (Outcome, error) {
	log := s.logger.Named("session")

	ctx, cancel := context.WithTimeout(ctx, s.sessionTimeout)
	defer cancel()

	m := confirm.New(confirm.WithRequiredStreak(s.requiredStreak))
	run := s.sessionPool.Start(ctx, cam, det)
	defer func() { _ = run.Stop() }()

	log.Debug(ctx, "session started",
		logger.String("sessionID", out.SessionID),
		logger.String("action", out.Action.String()),
	)

	probes := run.Probes()
	for {
		if err := ctx.Err(); err != nil {
			return s.cancelled(ctx, &out, m, sessionReason(err)), nil
		}

		var pr queue.Probe
		var ok bool
		select {
		case <-ctx.Done():
			return s.cancelled(ctx, &out, m, sessionReason(ctx.Err())), nil
		case pr, ok = <-probes:
		}
		if !ok {
			reason := run.Stop()
			if err := ctx.Err(); err != nil {
				reason = sessionReason(err)
			} else if reason == nil {
				reason = worker.ErrSourceExhausted
			}
			return s.cancelled(ctx, &out, m, reason), nil
		}

		out.Frames++
		state, err := m.Observe(s.probeResult(ctx, pr))
		if err != nil {
			return out, err
		}
		out.Progress = m.Progress()

		if state.Phase == confirm.PhaseConfirmed {
			log.Debug(ctx, "identity confirmed",
				logger.String("sessionID", out.SessionID),
				logger.String("userID", state.Candidate),
				logger.Int("frames", out.Frames),
			)
			return s.commit(ctx, out, state)
		}
	}
}

// probeResult turns a probe into a match result. Capture errors and frames
// with zero or several faces yield an empty result.
func (s *Service) probeResult(ctx context.Context, pr queue.Probe) model.MatchResult { //nolint:gocritic // hugeParam: Probe is passed by value for channel semantics
	switch {
	case pr.Err != nil:
		metrics.RecordFrame(metrics.FrameError)
		s.logger.Debug(ctx, "probe failed", logger.Error(pr.Err))
		return model.MatchResult{}
	case len(pr.Faces) == 0:
		metrics.RecordFrame(metrics.FrameNoFace)
		return model.MatchResult{}
	case len(pr.Faces) > 1:
		metrics.RecordFrame(metrics.FrameMultipleFaces)
		return model.MatchResult{}
	}

	res := s.matcher.Match(pr.Faces[0], s.tolerance)
	if res.Found() {
		metrics.RecordFrame(metrics.FrameMatched)
	} else {
		metrics.RecordFrame(metrics.FrameUnknown)
	}
	return res
}

// commit runs the duplicate check, persists and appends under commitMu.
// The write uses a context detached from the session deadline so a confirmed
// identity is not lost to a timeout racing the commit.
func (s *Service) commit(ctx context.Context, out Outcome, state confirm.State) (Outcome, error) {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	out.UserID = state.Candidate
	out.Confidence = roundConfidence(state.Confidence)
	out.Name = state.Candidate
	if user, _, err := s.store.Get(state.Candidate); err == nil {
		out.Name = user.Name
	}

	now := s.now()
	if s.guard.Admit(out.UserID, out.Action, now, s.ledger.Tail(s.historyScanLimit)) == dedupe.RejectedDuplicate {
		metrics.RecordDuplicate()
		out.Kind = OutcomeDuplicate
		s.logger.Info(ctx, "duplicate attendance suppressed",
			logger.String("sessionID", out.SessionID),
			logger.String("userID", out.UserID),
			logger.String("action", out.Action.String()),
		)
		return out, nil
	}

	rec := model.AttendanceRecord{
		ID:         uuid.NewString(),
		UserID:     out.UserID,
		Name:       out.Name,
		Action:     out.Action,
		Confidence: out.Confidence,
		Timestamp:  now,
	}
	if err := s.persister.AppendRecord(context.WithoutCancel(ctx), rec); err != nil {
		out.Kind = OutcomeFailed
		metrics.RecordErrorByComponent("service", "append_record")
		if !errors.Is(err, storage.ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %w", storage.ErrStorageUnavailable, err)
		}
		s.logger.Error(ctx, "failed to persist attendance record",
			logger.String("sessionID", out.SessionID),
			logger.String("userID", out.UserID),
			logger.Error(err),
		)
		return out, fmt.Errorf("record attendance: %w", err)
	}
	s.ledger.Append(rec)

	out.Kind = OutcomeRecorded
	out.Record = rec
	s.logger.Info(ctx, "attendance recorded",
		logger.String("sessionID", out.SessionID),
		logger.String("userID", rec.UserID),
		logger.String("action", rec.Action.String()),
		logger.Float64("confidence", rec.Confidence),
	)
	return out, nil
}

func (s *Service) cancelled(ctx context.Context, out *Outcome, m *confirm.Machine, reason error) Outcome {
	state := m.Cancel(reason)
	out.Kind = OutcomeCancelled
	out.Reason = state.Reason
	out.Progress = m.Progress()
	s.logger.Info(ctx, "session cancelled",
		logger.String("sessionID", out.SessionID),
		logger.Int("frames", out.Frames),
		logger.Error(out.Reason),
	)
	return *out
}

// sessionReason maps a context error to the reason reported in the outcome.
func sessionReason(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("session timed out: %w", context.DeadlineExceeded)
	}
	return fmt.Errorf("%w: %w", ErrSessionCancelled, err)
}

func roundConfidence(c float64) float64 {
	return math.Round(c*100) / 100
}
