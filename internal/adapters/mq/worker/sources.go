package worker

import (
	"context"
	"io"
	"sync"

	"github.com/okian/facepunch/internal/domain/model"
)

// SliceCamera replays a fixed list of frames, then reports io.EOF.
type SliceCamera struct {
	mu     sync.Mutex
	frames []Frame
	next   int
}

// NewSliceCamera creates a camera over frames.
func NewSliceCamera(frames ...Frame) *SliceCamera {
	return &SliceCamera{frames: frames}
}

// Frame returns the next frame in order.
func (c *SliceCamera) Frame(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.next >= len(c.frames) {
		return Frame{}, io.EOF
	}
	f := c.frames[c.next]
	c.next++
	return f, nil
}

// FacesFrames wraps per-frame face lists into frames for Precomputed.
func FacesFrames(faces ...[]model.Embedding) []Frame {
	out := make([]Frame, len(faces))
	for i, f := range faces {
		out[i] = Frame{Faces: f}
	}
	return out
}

// CameraFunc adapts a function to Camera.
type CameraFunc func(ctx context.Context) (Frame, error)

// Frame calls f(ctx).
func (f CameraFunc) Frame(ctx context.Context) (Frame, error) { return f(ctx) }

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context, fr Frame) ([]model.Embedding, error)

// Detect calls f(ctx, fr).
func (f DetectorFunc) Detect(ctx context.Context, fr Frame) ([]model.Embedding, error) {
	return f(ctx, fr)
}

// Precomputed is a Detector for frames whose embeddings were computed upstream.
type Precomputed struct{}

// Detect returns the frame's Faces.
func (Precomputed) Detect(_ context.Context, f Frame) ([]model.Embedding, error) {
	return f.Faces, nil
}
