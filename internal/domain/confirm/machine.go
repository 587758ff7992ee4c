package confirm

import (
	"github.com/okian/facepunch/internal/domain/model"
	"github.com/okian/facepunch/pkg/metrics"
)

// Machine is the temporal confirmation state machine for one session.
//
// State transitions:
//
//	IDLE ⇄ ACCUMULATING → CONFIRMED
//	  │          │
//	  └──────────┴── Cancel() ──→ CANCELLED
//
// A Machine is owned by a single session and is not safe for concurrent use.
type Machine struct {
	required int
	state    State
}

// New creates a Machine in the Idle phase.
func New(opts ...Option) *Machine {
	m := &Machine{required: DefaultRequiredStreak}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Observe feeds one frame's match result into the machine.
//
// The streak grows only while consecutive results name the same non-empty
// identity. Any other result restarts it at the new identity, or at zero
// when the frame had no identity.
func (m *Machine) Observe(r model.MatchResult) (State, error) {
	if m.state.Phase.IsTerminal() {
		return m.state, ErrTerminal
	}

	if r.Found() && r.UserID == m.state.Candidate {
		m.state.Streak++
	} else {
		if m.state.Streak > 0 {
			metrics.RecordStreakReset()
		}
		m.state.Candidate = r.UserID
		m.state.Streak = 0
		if r.Found() {
			m.state.Streak = 1
		}
	}

	switch {
	case m.state.Candidate != "" && m.state.Streak >= m.required:
		m.state.Phase = PhaseConfirmed
		m.state.Confidence = r.Confidence
		metrics.RecordConfirmation()
	case m.state.Candidate != "":
		m.state.Phase = PhaseAccumulating
	default:
		m.state.Phase = PhaseIdle
	}
	return m.state, nil
}

// Cancel ends a running machine with reason. Terminal machines are left as they are.
func (m *Machine) Cancel(reason error) State {
	if m.state.Phase.IsTerminal() {
		return m.state
	}
	m.state.Phase = PhaseCancelled
	m.state.Reason = reason
	return m.state
}

// State returns the current snapshot.
func (m *Machine) State() State { return m.state }

// RequiredStreak returns the confirmation threshold.
func (m *Machine) RequiredStreak() int { return m.required }

// Progress is streak/required clamped to [0,1].
func (m *Machine) Progress() float64 {
	p := float64(m.state.Streak) / float64(m.required)
	if p > 1 {
		return 1
	}
	return p
}
