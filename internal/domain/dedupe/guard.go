// Package dedupe suppresses repeated attendance actions inside a lookback window.
package dedupe

import (
	"time"

	"github.com/okian/facepunch/internal/domain/model"
)

// Verdict is the outcome of Guard.Admit.
type Verdict int

const (
	// Accepted - no matching record inside the window; the record may be written.
	Accepted Verdict = iota
	// RejectedDuplicate - the same user already performed the same action recently.
	RejectedDuplicate
)

// String returns the string representation of the verdict.
func (v Verdict) String() string {
	if v == RejectedDuplicate {
		return "rejected_duplicate"
	}
	return "accepted"
}

// Guard decides whether a confirmed identity may be recorded.
//
// The window is half-open: a record exactly window old no longer blocks.
// Records stamped after now (clock skew) count as inside the window.
type Guard struct {
	window  time.Duration
	maxScan int
}

// NewGuard creates a Guard with the default 60s window.
func NewGuard(opts ...Option) *Guard {
	g := &Guard{window: DefaultWindow}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Window returns the configured lookback window.
func (g *Guard) Window() time.Duration { return g.window }

// Admit checks history (oldest first, append order) for the same user and
// action within the window ending at now. The scan walks backwards from the
// newest record and stops at the first one that falls outside the window.
func (g *Guard) Admit(userID string, action model.Action, now time.Time, history []model.AttendanceRecord) Verdict {
	if g.window <= 0 {
		return Accepted
	}

	scanned := 0
	for i := len(history) - 1; i >= 0; i-- {
		if g.maxScan > 0 && scanned >= g.maxScan {
			break
		}
		scanned++

		r := history[i]
		if now.Sub(r.Timestamp) >= g.window {
			break
		}
		if r.UserID == userID && r.Action == action {
			return RejectedDuplicate
		}
	}
	return Accepted
}
