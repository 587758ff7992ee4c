// Package confirm turns a stream of per-frame match results into a single
// confirmed identity once the same person is seen on consecutive frames.
package confirm

import "fmt"

// Phase is the lifecycle position of a Machine.
type Phase int

const (
	// PhaseIdle - no candidate yet, or the last frame had none.
	PhaseIdle Phase = iota
	// PhaseAccumulating - a candidate is building its streak.
	PhaseAccumulating
	// PhaseConfirmed - the streak reached the threshold. Terminal.
	PhaseConfirmed
	// PhaseCancelled - the session ended without confirmation. Terminal.
	PhaseCancelled
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAccumulating:
		return "accumulating"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// IsTerminal returns true for Confirmed and Cancelled.
func (p Phase) IsTerminal() bool {
	return p == PhaseConfirmed || p == PhaseCancelled
}

// State is a snapshot of a Machine.
type State struct {
	Phase     Phase
	Candidate string // empty when no identity is being tracked
	Streak    int
	// Confidence of the frame that confirmed the candidate.
	Confidence float64
	// Reason is set once the machine is cancelled.
	Reason error
}
