// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

// Layouts used for the derived calendar fields of a record.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04:05"
)

// Embedding is a fixed-length face feature vector.
// Stored embeddings are never mutated; callers receive clones.
type Embedding []float64

// Clone returns an independent copy of e.
func (e Embedding) Clone() Embedding {
	if e == nil {
		return nil
	}
	return slices.Clone(e)
}

// Dim returns the vector length.
func (e Embedding) Dim() int { return len(e) }

// Finite reports whether every component is a finite number.
func (e Embedding) Finite() bool {
	for _, v := range e {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// User is an enrolled person. Exactly one embedding is kept per ID.
type User struct {
	ID           string
	Name         string
	Department   string // optional
	RegisteredAt time.Time
}

// Action is the kind of attendance event.
type Action string

const (
	ActionPunchIn  Action = "punch_in"
	ActionPunchOut Action = "punch_out"
)

// ParseAction accepts "punch_in" or "punch_out" (case-insensitive).
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionPunchIn:
		return ActionPunchIn, nil
	case ActionPunchOut:
		return ActionPunchOut, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionPunchIn || a == ActionPunchOut
}

func (a Action) String() string { return string(a) }

// AttendanceRecord is one immutable ledger entry.
type AttendanceRecord struct {
	ID         string // uuid
	UserID     string
	Name       string
	Action     Action
	Confidence float64
	Timestamp  time.Time
}

// Date returns the record's calendar day, e.g. "2025-03-14".
func (r AttendanceRecord) Date() string { return r.Timestamp.Format(DateLayout) }

// Clock returns the record's wall clock time, e.g. "09:01:22".
func (r AttendanceRecord) Clock() string { return r.Timestamp.Format(ClockLayout) }

// MatchResult is the matcher's verdict for one probe.
// An empty UserID means no enrolled user was within tolerance.
type MatchResult struct {
	UserID     string
	Distance   float64
	Confidence float64
}

// Found reports whether the result names an identity.
func (m MatchResult) Found() bool { return m.UserID != "" }

// ConfidenceFromDistance maps a distance to clamp(1-d, 0, 1).
func ConfidenceFromDistance(d float64) float64 {
	c := 1 - d
	switch {
	case c != c: // NaN
		return 0
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// Reference pairs an enrolled user with their stored embedding.
type Reference struct {
	UserID    string
	Embedding Embedding
}
