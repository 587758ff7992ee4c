package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/okian/facepunch/internal/domain/model"
)

// Memory is a Persister that keeps everything in process memory.
// Used when no data directory is configured, and in tests.
type Memory struct {
	mu       sync.Mutex
	enrolled []Enrolled
	records  []model.AttendanceRecord
}

// NewMemory creates an empty Memory persister.
func NewMemory() *Memory {
	return &Memory{}
}

// SaveUser writes or replaces the user in place. It refuses the same
// entries FileStore does, with ErrMalformed.
func (m *Memory) SaveUser(ctx context.Context, user model.User, emb model.Embedding) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next := upsert(m.enrolled, user, emb)
	if err := checkEnrolled(next); err != nil {
		return err
	}
	m.enrolled = next
	return nil
}

// AppendRecord appends rec.
func (m *Memory) AppendRecord(ctx context.Context, rec model.AttendanceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(slices.Clip(m.records), rec)
	return nil
}

// Load returns a copy of the stored state.
func (m *Memory) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSnapshot(m.enrolled, m.records), nil
}
