// Package worker runs the capture pipeline: one reader pulls frames from a
// camera, a bounded set of detectors extracts face embeddings concurrently,
// and a sequencer hands the results to the session in acquisition order.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/facepunch/internal/adapters/mq/queue"
	"github.com/okian/facepunch/internal/domain/model"
	"github.com/okian/facepunch/pkg/logger"
	"github.com/okian/facepunch/pkg/metrics"
)

// Frame is one captured image. Pixels is opaque to the pipeline. Sources that
// detect upstream may fill Faces directly and pair with Precomputed.
type Frame struct {
	Pixels     []byte
	Faces      []model.Embedding
	CapturedAt time.Time
}

// Camera produces frames. Frame must honor ctx and returns io.EOF once a
// finite source is exhausted. Any other error is treated as transient.
type Camera interface {
	Frame(ctx context.Context) (Frame, error)
}

// Detector extracts one embedding per face found in a frame.
type Detector interface {
	Detect(ctx context.Context, f Frame) ([]model.Embedding, error)
}

type captured struct {
	seq   uint64
	frame Frame
	err   error
}

// Pool runs capture pipelines with a fixed detector concurrency.
type Pool struct {
	workers      int
	stride       int
	queueSize    int
	errorBackoff time.Duration
	logger       logger.Logger
}

// NewPool creates a pool with configuration options.
func NewPool(opts ...Option) *Pool {
	p := &Pool{
		workers:      defaultWorkers,
		stride:       1,
		queueSize:    defaultQueueSize,
		errorBackoff: defaultErrorBackoff,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run is one active pipeline.
type Run struct {
	probes    <-chan queue.Probe
	cancel    context.CancelFunc
	g         *errgroup.Group
	exhausted atomic.Bool

	once sync.Once
	err  error
}

// Probes delivers detection results strictly in acquisition order. The
// channel closes when the camera is exhausted or the run is stopped.
func (r *Run) Probes() <-chan queue.Probe { return r.probes }

// Stop cancels the pipeline and waits for every goroutine to exit. It returns
// ErrSourceExhausted if the camera ran out of frames, nil otherwise.
func (r *Run) Stop() error {
	r.once.Do(func() {
		r.cancel()
		r.err = r.g.Wait()
		if r.err == nil && r.exhausted.Load() {
			r.err = ErrSourceExhausted
		}
	})
	return r.err
}

// Start launches a pipeline reading from cam. Callers must call Stop.
func (p *Pool) Start(ctx context.Context, cam Camera, det Detector) *Run {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	r := &Run{cancel: cancel, g: g}
	q := queue.NewInMemoryQueue(queue.WithCapacity(p.queueSize))
	frames := make(chan captured)
	results := make(chan queue.Probe)

	g.Go(func() error {
		defer close(frames)
		return p.read(gctx, cam, frames, &r.exhausted)
	})

	g.Go(func() error {
		defer close(results)
		dg := new(errgroup.Group)
		dg.SetLimit(p.workers)
		for c := range frames {
			dg.Go(func() error {
				pr := p.detect(gctx, det, c)
				select {
				case results <- pr:
				case <-gctx.Done():
				}
				return nil
			})
		}
		return dg.Wait()
	})

	g.Go(func() error {
		defer func() { _ = q.Close() }()
		return sequence(gctx, results, q)
	})

	r.probes = q.Dequeue(gctx)
	return r
}

// read pulls frames until the camera is exhausted or ctx ends, keeping every
// stride-th good frame. Camera errors are forwarded as error probes.
func (p *Pool) read(ctx context.Context, cam Camera, out chan<- captured, exhausted *atomic.Bool) error {
	var seq uint64
	good := 0
	for {
		f, err := cam.Frame(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, io.EOF) {
			exhausted.Store(true)
			return nil
		}

		c := captured{err: err, frame: f}
		if err == nil {
			good++
			if (good-1)%p.stride != 0 {
				continue
			}
			if c.frame.CapturedAt.IsZero() {
				c.frame.CapturedAt = time.Now()
			}
		} else {
			metrics.RecordErrorByComponent("camera", "frame")
			p.logger.Debug(ctx, "camera frame failed", logger.Error(err))
		}

		seq++
		c.seq = seq
		select {
		case out <- c:
		case <-ctx.Done():
			return nil
		}

		if err != nil && !sleep(ctx, p.errorBackoff) {
			return nil
		}
	}
}

func (p *Pool) detect(ctx context.Context, det Detector, c captured) queue.Probe { //nolint:gocritic // hugeParam: captured is passed by value for channel semantics
	pr := queue.Probe{Seq: c.seq, CapturedAt: c.frame.CapturedAt}
	if c.err != nil {
		pr.Err = fmt.Errorf("capture frame %d: %w", c.seq, c.err)
		return pr
	}

	start := time.Now()
	faces, err := det.Detect(ctx, c.frame)
	metrics.RecordDetectLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordErrorByComponent("detector", "detect")
		pr.Err = fmt.Errorf("detect frame %d: %w", c.seq, err)
		return pr
	}
	pr.Faces = faces
	return pr
}

// sequence reorders results by Seq and releases them into q without gaps.
func sequence(ctx context.Context, results <-chan queue.Probe, q queue.Queue) error {
	next := uint64(1)
	pending := make(map[uint64]queue.Probe)
	for pr := range results {
		pending[pr.Seq] = pr
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			if err := q.Put(ctx, ready); err != nil {
				return nil
			}
			next++
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
