// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/facepunch/internal/adapters/mq/worker"
	"github.com/okian/facepunch/internal/adapters/repository"
	"github.com/okian/facepunch/internal/adapters/storage"
	"github.com/okian/facepunch/internal/domain/dedupe"
	"github.com/okian/facepunch/internal/domain/matcher"
	"github.com/okian/facepunch/internal/domain/model"
	"github.com/okian/facepunch/pkg/logger"
	"github.com/okian/facepunch/pkg/metrics"
)

// Service owns the enrolled embeddings and the attendance ledger and runs
// enrollments and identification sessions against them.
type Service struct {
	mu sync.RWMutex

	// commitMu serializes every write: the duplicate check together with its
	// persist and append, and enrollments.
	commitMu sync.Mutex

	// Core components
	persister   storage.Persister
	store       *repository.EmbeddingStore
	ledger      *repository.Ledger
	matcher     *matcher.Matcher
	guard       *dedupe.Guard
	sessionPool *worker.Pool
	enrollPool  *worker.Pool

	// Configuration
	tolerance         float64
	requiredStreak    int
	lookbackWindow    time.Duration
	historyScanLimit  int
	minSamples        int
	embeddingDim      int
	sessionTimeout    time.Duration
	enrollmentTimeout time.Duration
	captureWorkers    int
	frameQueueSize    int
	frameStride       int
	now               func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		tolerance:         matcher.DefaultTolerance,
		requiredStreak:    3,
		lookbackWindow:    dedupe.DefaultWindow,
		minSamples:        5,
		embeddingDim:      128,
		sessionTimeout:    30 * time.Second,
		enrollmentTimeout: 60 * time.Second,
		captureWorkers:    max(1, runtime.NumCPU()/2),
		frameQueueSize:    64,
		frameStride:       1,
		now:               time.Now,
		logger:            nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start loads persisted state and prepares the capture pipelines.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.persister == nil {
		s.persister = storage.NewMemory()
	}

	s.logger.Info(ctx, "starting attendance service...")

	snap, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load persisted state: %w", err)
	}

	s.store = repository.NewEmbeddingStore()
	for _, e := range snap.Enrolled {
		if _, err := s.store.Put(e.User, e.Embedding); err != nil {
			return fmt.Errorf("restore user %q: %w", e.User.ID, err)
		}
	}
	s.ledger = repository.NewLedger(snap.Records...)
	metrics.UpdateEnrolledUsers(s.store.Len())

	s.matcher = matcher.New(s.store)
	s.guard = dedupe.NewGuard(
		dedupe.WithWindow(s.lookbackWindow),
		dedupe.WithMaxScan(s.historyScanLimit),
	)
	s.sessionPool = worker.NewPool(
		worker.WithWorkers(s.captureWorkers),
		worker.WithStride(s.frameStride),
		worker.WithQueueSize(s.frameQueueSize),
		worker.WithLogger(s.logger.Named("capture")),
	)
	// Enrollment keeps every frame.
	s.enrollPool = worker.NewPool(
		worker.WithWorkers(s.captureWorkers),
		worker.WithQueueSize(s.frameQueueSize),
		worker.WithLogger(s.logger.Named("enroll-capture")),
	)

	s.started = true
	s.logger.Info(ctx, "attendance service started",
		logger.Int("users", s.store.Len()),
		logger.Int("records", s.ledger.Len()),
		logger.Float64("tolerance", s.tolerance),
		logger.Int("requiredStreak", s.requiredStreak),
		logger.Duration("lookbackWindow", s.lookbackWindow),
		logger.Int("captureWorkers", s.captureWorkers),
	)

	return nil
}

// Stop marks the service as stopped. Sessions in flight finish on their own contexts.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.started = false
	s.logger.Info(context.Background(), "attendance service stopped")
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Users returns enrolled users in enrollment order.
func (s *Service) Users(_ context.Context) ([]model.User, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	return s.store.Users(), nil
}

// Report returns attendance records for a day ("2006-01-02") and/or a user.
// Empty arguments match everything.
func (s *Service) Report(_ context.Context, date, userID string) ([]model.AttendanceRecord, error) {
	if !s.isStarted() {
		return nil, ErrNotStarted
	}
	if date != "" {
		if _, err := time.Parse(model.DateLayout, date); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
		}
	}
	return s.ledger.Query(repository.Filter{Date: date, UserID: userID}), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"tolerance":        s.tolerance,
		"requiredStreak":   s.requiredStreak,
		"lookbackWindow":   s.lookbackWindow.String(),
		"historyScanLimit": s.historyScanLimit,
		"captureWorkers":   s.captureWorkers,
		"frameStride":      s.frameStride,
	}

	if s.started {
		users := s.store.Len()
		records := s.ledger.Len()
		today := len(s.ledger.Query(repository.Filter{Date: s.now().Format(model.DateLayout)}))

		stats["users"] = users
		stats["records"] = records
		stats["recordsToday"] = today

		metrics.UpdateEnrolledUsers(users)
		metrics.UpdateLedgerRecords(records)
	}

	return stats
}
