package repository

import (
	"slices"
	"sync"

	"github.com/okian/facepunch/internal/domain/model"
	"github.com/okian/facepunch/pkg/metrics"
)

// Filter selects ledger records. Empty fields match everything.
type Filter struct {
	Date   string // "2006-01-02"
	UserID string
	Action model.Action
}

func (f Filter) match(r model.AttendanceRecord) bool {
	if f.Date != "" && r.Date() != f.Date {
		return false
	}
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.Action != "" && r.Action != f.Action {
		return false
	}
	return true
}

// Ledger is the append-only attendance history in creation order.
type Ledger struct {
	mu      sync.RWMutex
	records []model.AttendanceRecord
}

// NewLedger creates a ledger seeded with records (oldest first).
func NewLedger(records ...model.AttendanceRecord) *Ledger {
	l := &Ledger{records: slices.Clone(records)}
	metrics.UpdateLedgerRecords(len(l.records))
	return l
}

// Append adds r to the end of the history.
func (l *Ledger) Append(r model.AttendanceRecord) {
	l.mu.Lock()
	l.records = append(l.records, r)
	n := len(l.records)
	l.mu.Unlock()
	metrics.UpdateLedgerRecords(n)
}

// Tail returns up to n of the newest records, oldest first.
func (l *Ledger) Tail(n int) []model.AttendanceRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n >= len(l.records) {
		return slices.Clone(l.records)
	}
	return slices.Clone(l.records[len(l.records)-n:])
}

// Query returns the records matching f, oldest first.
func (l *Ledger) Query(f Filter) []model.AttendanceRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.AttendanceRecord
	for _, r := range l.records {
		if f.match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}
