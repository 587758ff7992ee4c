// Package storage persists enrolled users, their embeddings and the attendance ledger.
//
// Conventions:
//   - Every write is all-or-nothing: a failed write leaves the previous state on disk.
//   - Load validates every entry and fails with ErrMalformed instead of skipping bad data.
//   - Failures of the medium are reported as ErrStorageUnavailable.
package storage

import (
	"context"
	"fmt"
	"slices"

	"github.com/okian/facepunch/internal/domain/model"
)

// Enrolled is a user with their reference embedding.
type Enrolled struct {
	User      model.User
	Embedding model.Embedding
}

// Snapshot is the full persisted state, in enrollment and creation order.
type Snapshot struct {
	Enrolled []Enrolled
	Records  []model.AttendanceRecord
}

// Persister is the durable medium behind the in-memory stores.
type Persister interface {
	// SaveUser writes or replaces the user and their embedding.
	SaveUser(ctx context.Context, user model.User, emb model.Embedding) error
	// AppendRecord appends one attendance record.
	AppendRecord(ctx context.Context, rec model.AttendanceRecord) error
	// Load returns everything persisted so far.
	Load(ctx context.Context) (Snapshot, error)
}

// upsert replaces the entry for user.ID in place or appends it.
func upsert(list []Enrolled, user model.User, emb model.Embedding) []Enrolled {
	next := slices.Clone(list)
	e := Enrolled{User: user, Embedding: emb.Clone()}
	for i := range next {
		if next[i].User.ID == user.ID {
			next[i] = e
			return next
		}
	}
	return append(next, e)
}

// checkEnrolled applies the rules Load enforces, so nothing is written that
// cannot be read back: a user id and name, and one non-empty finite
// embedding per user with a dimension shared by all users.
func checkEnrolled(list []Enrolled) error {
	dim := 0
	for _, e := range list {
		switch {
		case e.User.ID == "" || e.User.Name == "":
			return fmt.Errorf("%w: user %q needs an id and a name", ErrMalformed, e.User.ID)
		case e.Embedding.Dim() == 0:
			return fmt.Errorf("%w: empty embedding for user %q", ErrMalformed, e.User.ID)
		case !e.Embedding.Finite():
			return fmt.Errorf("%w: non-finite embedding for user %q", ErrMalformed, e.User.ID)
		case dim != 0 && e.Embedding.Dim() != dim:
			return fmt.Errorf("%w: embedding for user %q has dimension %d, want %d",
				ErrMalformed, e.User.ID, e.Embedding.Dim(), dim)
		}
		dim = e.Embedding.Dim()
	}
	return nil
}

func cloneSnapshot(enrolled []Enrolled, records []model.AttendanceRecord) Snapshot {
	s := Snapshot{
		Enrolled: make([]Enrolled, len(enrolled)),
		Records:  slices.Clone(records),
	}
	for i, e := range enrolled {
		s.Enrolled[i] = Enrolled{User: e.User, Embedding: e.Embedding.Clone()}
	}
	return s
}
