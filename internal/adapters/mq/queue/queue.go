// Package queue carries detected probes from the capture pipeline to the
// confirmation loop.
//
// The in-memory implementation is a bounded channel. Put applies backpressure
// until the consumer catches up, so no probe is ever dropped.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/facepunch/internal/domain/model"
	"github.com/okian/facepunch/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 64
)

// Probe is the result of running face detection on one sampled frame.
type Probe struct {
	Seq        uint64            // acquisition order, starting at 1
	Faces      []model.Embedding // one embedding per detected face
	Err        error             // capture or detection failure; Faces is empty
	CapturedAt time.Time
}

// Queue provides enqueue and channel-based dequeue semantics.
type Queue interface {
	// Put adds a probe, waiting for room. Returns ErrClosed or ctx.Err().
	Put(ctx context.Context, p Probe) error

	// Dequeue returns a channel that receives probes in enqueue order.
	// The channel is closed once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Probe

	// Close stops accepting probes. Queued probes are still delivered.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	probes   chan Probe
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.probes = make(chan Probe, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Put adds a probe, blocking while the queue is full.
func (q *InMemoryQueue) Put(ctx context.Context, p Probe) error { //nolint:gocritic // hugeParam: Probe is passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueRejected("closed")
		return ErrClosed
	}

	select {
	case q.probes <- p:
		q.recordSize()
		metrics.RecordQueueEnqueue()
		return nil
	case <-ctx.Done():
		metrics.RecordQueueRejected("context_cancelled")
		return ctx.Err()
	}
}

// Dequeue returns a channel that will receive probes as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Probe {
	out := make(chan Probe)
	go func() {
		defer close(out)
		for p := range q.probes {
			select {
			case out <- p:
				q.recordSize()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Close stops the queue. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.probes)
	q.closed = true
	return nil
}

func (q *InMemoryQueue) recordSize() {
	size := len(q.probes)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}
