package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if c := cap(q.probes); c != 2 {
		t.Errorf("expected capacity 2, got %d", c)
	}
	if err := q.Put(ctx, Probe{Seq: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l := len(q.probes); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	ch := q.Dequeue(ctx)
	p := <-ch
	if p.Seq != 1 {
		t.Errorf("expected seq 1, got %d", p.Seq)
	}
}

func TestInMemoryQueue_DefaultCapacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(0))
	if c := cap(q.probes); c != defaultQueueCapacity {
		t.Errorf("expected default capacity %d, got %d", defaultQueueCapacity, c)
	}
}

func TestInMemoryQueue_PutBlocksUntilRoom(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx := context.Background()

	if err := q.Put(ctx, Probe{Seq: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := q.Put(short, Probe{Seq: 2}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded while full, got %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- q.Put(ctx, Probe{Seq: 2}) }()

	ch := q.Dequeue(ctx)
	if p := <-ch; p.Seq != 1 {
		t.Errorf("expected seq 1, got %d", p.Seq)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("put did not unblock after dequeue")
	}
	if p := <-ch; p.Seq != 2 {
		t.Errorf("expected seq 2, got %d", p.Seq)
	}
}

func TestInMemoryQueue_CloseDrains(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	for i := uint64(1); i <= 3; i++ {
		if err := q.Put(ctx, Probe{Seq: i}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
	if err := q.Put(ctx, Probe{Seq: 4}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	var got []uint64
	for p := range q.Dequeue(ctx) {
		got = append(got, p.Seq)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("expected queued probes in order after close, got %v", got)
	}
}

func TestInMemoryQueue_DequeueStopsOnCancel(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())

	ch := q.Dequeue(ctx)
	_ = q.Put(context.Background(), Probe{Seq: 1})
	cancel()
	_ = q.Close()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("dequeue channel did not close after cancel")
		}
	}
}
