package kiosksim

import (
	"errors"
	"fmt"

	"github.com/okian/facepunch/internal/domain/types"
)

// verifyReport checks that every persona has exactly one punch_in (and one
// punch_out when withOut) in records, under the right name and in that order.
// Records of users the run did not create are ignored.
func verifyReport(personas []Persona, records []types.Record, withOut bool) error {
	byUser := make(map[string][]types.Record, len(personas))
	for _, r := range records {
		byUser[r.UserID] = append(byUser[r.UserID], r)
	}

	want := []string{"punch_in"}
	if withOut {
		want = append(want, "punch_out")
	}

	var errs []error
	for _, p := range personas {
		got := byUser[p.UserID]
		if len(got) != len(want) {
			errs = append(errs, fmt.Errorf("user %s: %d records, want %d", p.UserID, len(got), len(want)))
			continue
		}
		for i, r := range got {
			if r.Action != want[i] {
				errs = append(errs, fmt.Errorf("user %s: record %d is %s, want %s", p.UserID, i, r.Action, want[i]))
			}
			if r.Name != p.Name {
				errs = append(errs, fmt.Errorf("user %s: record %d has name %q, want %q", p.UserID, i, r.Name, p.Name))
			}
			if r.Confidence <= 0 || r.Confidence > 1 {
				errs = append(errs, fmt.Errorf("user %s: record %d has confidence %.2f", p.UserID, i, r.Confidence))
			}
		}
	}
	return errors.Join(errs...)
}

// verifyCounts checks the per-punch tallies: one record per user and action,
// and one duplicate per user from the repeated punch_in.
func verifyCounts(stats *Stats, withOut bool) error {
	perUser := 1
	if withOut {
		perUser = 2
	}
	var errs []error
	if stats.EnrollFailed > 0 {
		errs = append(errs, fmt.Errorf("%d enrollments failed", stats.EnrollFailed))
	}
	if want := stats.Enrolled * perUser; stats.Recorded != want {
		errs = append(errs, fmt.Errorf("recorded %d punches, want %d", stats.Recorded, want))
	}
	if stats.Duplicates != stats.Enrolled {
		errs = append(errs, fmt.Errorf("saw %d duplicates, want %d", stats.Duplicates, stats.Enrolled))
	}
	if stats.Failed > 0 || stats.Unconfirmed > 0 {
		errs = append(errs, fmt.Errorf("%d punches failed and %d were not confirmed", stats.Failed, stats.Unconfirmed))
	}
	return errors.Join(errs...)
}
