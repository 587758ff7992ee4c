package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/okian/facepunch/internal/domain/model"
	"github.com/okian/facepunch/pkg/logger"
	"github.com/okian/facepunch/pkg/metrics"
)

// File names inside the data directory.
const (
	UsersFile      = "users.json"
	EmbeddingsFile = "embeddings.cbor"
	AttendanceFile = "attendance.json"
)

// FileStore keeps state in three files under a data directory. Each file is
// rewritten through a temp file and rename. An enrollment touches two files;
// if the second write fails the first is restored.
type FileStore struct {
	dir  string
	perm os.FileMode
	log  logger.Logger

	mu       sync.Mutex
	enrolled []Enrolled
	records  []model.AttendanceRecord
}

// OpenFileStore creates dir if needed and loads what it contains.
func OpenFileStore(ctx context.Context, dir string, opts ...Option) (*FileStore, error) {
	s := &FileStore{
		dir:  dir,
		perm: 0o600,
		log:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		metrics.RecordStorageError("open")
		return nil, fmt.Errorf("%w: create %s: %w", ErrStorageUnavailable, dir, err)
	}

	enrolled, err := s.readEnrolled()
	if err != nil {
		return nil, err
	}
	records, err := s.readRecords()
	if err != nil {
		return nil, err
	}
	s.enrolled, s.records = enrolled, records

	s.log.Info(ctx, "file store opened",
		logger.String("dir", dir),
		logger.Int("users", len(enrolled)),
		logger.Int("records", len(records)),
	)
	return s, nil
}

// Dir returns the data directory.
func (s *FileStore) Dir() string { return s.dir }

// Load returns a copy of the persisted state.
func (s *FileStore) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSnapshot(s.enrolled, s.records), nil
}

// SaveUser writes embeddings.cbor then users.json. If users.json cannot be
// written, embeddings.cbor is restored to its previous content. Entries that
// Load would reject fail with ErrMalformed before anything is written.
func (s *FileStore) SaveUser(ctx context.Context, user model.User, emb model.Embedding) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := upsert(s.enrolled, user, emb)
	if err := checkEnrolled(next); err != nil {
		metrics.RecordStorageError("save_user")
		return err
	}

	embData, err := encodeEmbeddings(next)
	if err != nil {
		return fmt.Errorf("%w: encode embeddings: %w", ErrStorageUnavailable, err)
	}
	userData, err := encodeUsers(next)
	if err != nil {
		return fmt.Errorf("%w: encode users: %w", ErrStorageUnavailable, err)
	}

	embPath := filepath.Join(s.dir, EmbeddingsFile)
	prev, prevErr := os.ReadFile(embPath)
	if prevErr != nil && !errors.Is(prevErr, fs.ErrNotExist) {
		metrics.RecordStorageError("save_user")
		return fmt.Errorf("%w: read %s: %w", ErrStorageUnavailable, EmbeddingsFile, prevErr)
	}

	if err := s.writeAtomic(embPath, embData); err != nil {
		metrics.RecordStorageError("save_user")
		return fmt.Errorf("%w: write %s: %w", ErrStorageUnavailable, EmbeddingsFile, err)
	}
	if err := s.writeAtomic(filepath.Join(s.dir, UsersFile), userData); err != nil {
		metrics.RecordStorageError("save_user")
		s.rollback(ctx, embPath, prev, prevErr == nil)
		return fmt.Errorf("%w: write %s: %w", ErrStorageUnavailable, UsersFile, err)
	}

	s.enrolled = next
	return nil
}

// AppendRecord rewrites attendance.json with rec appended.
func (s *FileStore) AppendRecord(ctx context.Context, rec model.AttendanceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(slices.Clone(s.records), rec)
	data, err := encodeRecords(next)
	if err != nil {
		return fmt.Errorf("%w: encode attendance: %w", ErrStorageUnavailable, err)
	}
	if err := s.writeAtomic(filepath.Join(s.dir, AttendanceFile), data); err != nil {
		metrics.RecordStorageError("append_record")
		return fmt.Errorf("%w: write %s: %w", ErrStorageUnavailable, AttendanceFile, err)
	}

	s.records = next
	return nil
}

func (s *FileStore) rollback(ctx context.Context, path string, prev []byte, existed bool) {
	var err error
	if existed {
		err = s.writeAtomic(path, prev)
	} else {
		err = os.Remove(path)
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Error(ctx, "rollback failed", logger.String("path", path), logger.Error(err))
		return
	}
	s.log.Warn(ctx, "rolled back partial enrollment", logger.String("path", path))
}

// writeAtomic replaces path with data via a synced temp file in the same directory.
func (s *FileStore) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	cleanup := func() { _ = os.Remove(name) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(name, s.perm); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(name, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

func (s *FileStore) readFile(name string) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		metrics.RecordStorageError("load")
		return nil, false, fmt.Errorf("%w: read %s: %w", ErrStorageUnavailable, name, err)
	}
	return data, true, nil
}

// readEnrolled joins users.json and embeddings.cbor. Every user must have
// exactly one embedding and vice versa; all embeddings share one dimension.
func (s *FileStore) readEnrolled() ([]Enrolled, error) {
	userData, haveUsers, err := s.readFile(UsersFile)
	if err != nil {
		return nil, err
	}
	embData, haveEmb, err := s.readFile(EmbeddingsFile)
	if err != nil {
		return nil, err
	}

	users := map[string]userJSON{}
	if haveUsers {
		if err := json.Unmarshal(userData, &users); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, UsersFile, err)
		}
	}
	for key, u := range users {
		if key == "" || u.UserID != key || u.Name == "" {
			return nil, fmt.Errorf("%w: %s: bad entry %q", ErrMalformed, UsersFile, key)
		}
	}

	var file embeddingsFile
	if haveEmb {
		if err := decMode.Unmarshal(embData, &file); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, EmbeddingsFile, err)
		}
		if file.Version != embeddingsVersion {
			return nil, fmt.Errorf("%w: %s: unsupported version %d", ErrMalformed, EmbeddingsFile, file.Version)
		}
	}

	out := make([]Enrolled, 0, len(file.Entries))
	seen := make(map[string]bool, len(file.Entries))
	dim := 0
	for _, e := range file.Entries {
		u, ok := users[e.UserID]
		switch {
		case !ok:
			return nil, fmt.Errorf("%w: embedding for unknown user %q", ErrMalformed, e.UserID)
		case seen[e.UserID]:
			return nil, fmt.Errorf("%w: duplicate embedding for user %q", ErrMalformed, e.UserID)
		case len(e.Vector) == 0:
			return nil, fmt.Errorf("%w: empty embedding for user %q", ErrMalformed, e.UserID)
		case dim != 0 && len(e.Vector) != dim:
			return nil, fmt.Errorf("%w: embedding for user %q has dimension %d, want %d",
				ErrMalformed, e.UserID, len(e.Vector), dim)
		}
		if !model.Embedding(e.Vector).Finite() {
			return nil, fmt.Errorf("%w: non-finite embedding for user %q", ErrMalformed, e.UserID)
		}
		dim = len(e.Vector)
		seen[e.UserID] = true
		out = append(out, Enrolled{
			User:      model.User{ID: u.UserID, Name: u.Name, Department: u.Department, RegisteredAt: u.RegisteredAt},
			Embedding: model.Embedding(e.Vector),
		})
	}
	if len(seen) != len(users) {
		return nil, fmt.Errorf("%w: %d users without an embedding", ErrMalformed, len(users)-len(seen))
	}
	return out, nil
}

func (s *FileStore) readRecords() ([]model.AttendanceRecord, error) {
	data, ok, err := s.readFile(AttendanceFile)
	if err != nil || !ok {
		return nil, err
	}

	var raw []recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, AttendanceFile, err)
	}

	out := make([]model.AttendanceRecord, 0, len(raw))
	for i, r := range raw {
		action, err := model.ParseAction(r.Action)
		switch {
		case err != nil:
			return nil, fmt.Errorf("%w: %s[%d]: %w", ErrMalformed, AttendanceFile, i, err)
		case r.UserID == "":
			return nil, fmt.Errorf("%w: %s[%d]: missing user_id", ErrMalformed, AttendanceFile, i)
		case r.Timestamp.IsZero():
			return nil, fmt.Errorf("%w: %s[%d]: missing timestamp", ErrMalformed, AttendanceFile, i)
		case r.Confidence < 0 || r.Confidence > 1:
			return nil, fmt.Errorf("%w: %s[%d]: confidence %v out of range", ErrMalformed, AttendanceFile, i, r.Confidence)
		}
		out = append(out, model.AttendanceRecord{
			ID:         r.ID,
			UserID:     r.UserID,
			Name:       r.Name,
			Action:     action,
			Confidence: r.Confidence,
			Timestamp:  r.Timestamp,
		})
	}
	return out, nil
}

func encodeEmbeddings(list []Enrolled) ([]byte, error) {
	file := embeddingsFile{Version: embeddingsVersion, Entries: make([]embeddingEntry, len(list))}
	for i, e := range list {
		file.Entries[i] = embeddingEntry{UserID: e.User.ID, Vector: e.Embedding}
	}
	return encMode.Marshal(file)
}

func encodeUsers(list []Enrolled) ([]byte, error) {
	users := make(map[string]userJSON, len(list))
	for _, e := range list {
		users[e.User.ID] = userJSON{
			UserID:       e.User.ID,
			Name:         e.User.Name,
			Department:   e.User.Department,
			RegisteredAt: e.User.RegisteredAt,
		}
	}
	return json.MarshalIndent(users, "", "  ")
}

func encodeRecords(list []model.AttendanceRecord) ([]byte, error) {
	raw := make([]recordJSON, len(list))
	for i, r := range list {
		raw[i] = recordJSON{
			ID:         r.ID,
			UserID:     r.UserID,
			Name:       r.Name,
			Action:     r.Action.String(),
			Timestamp:  r.Timestamp,
			Confidence: r.Confidence,
			Date:       r.Date(),
			Time:       r.Clock(),
		}
	}
	return json.MarshalIndent(raw, "", "  ")
}
