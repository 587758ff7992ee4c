// Package enrollment builds a reference embedding from several captured samples.
package enrollment

import (
	"fmt"
	"strings"

	"github.com/okian/facepunch/internal/domain/model"
)

// Accumulator averages single-face samples into one embedding.
// It is owned by one enrollment and is not safe for concurrent use.
type Accumulator struct {
	required int
	dim      int
	sum      []float64
	n        int
	skipped  int
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator(opts ...Option) *Accumulator {
	a := &Accumulator{required: DefaultMinSamples}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add offers the faces detected in one frame. Only frames with exactly one
// finite face of the expected dimension count; the rest are skipped. Add
// reports whether the frame was counted. Once Done, further frames are ignored.
func (a *Accumulator) Add(faces []model.Embedding) bool {
	if a.Done() {
		return false
	}
	if len(faces) != 1 || faces[0].Dim() == 0 || !faces[0].Finite() {
		a.skipped++
		return false
	}
	face := faces[0]
	if a.dim == 0 {
		a.dim = face.Dim()
	}
	if face.Dim() != a.dim {
		a.skipped++
		return false
	}

	if a.sum == nil {
		a.sum = make([]float64, a.dim)
	}
	for i, v := range face {
		a.sum[i] += v
	}
	a.n++
	return true
}

// Done reports whether enough samples were collected.
func (a *Accumulator) Done() bool { return a.n >= a.required }

// Count returns the number of accepted samples.
func (a *Accumulator) Count() int { return a.n }

// Skipped returns the number of frames rejected for face count, size or non-finite values.
func (a *Accumulator) Skipped() int { return a.skipped }

// Required returns the sample threshold.
func (a *Accumulator) Required() int { return a.required }

// Mean returns the element-wise mean of the accepted samples.
func (a *Accumulator) Mean() (model.Embedding, error) {
	if !a.Done() {
		return nil, fmt.Errorf("%w: got %d of %d", ErrInsufficientSamples, a.n, a.required)
	}
	out := make(model.Embedding, len(a.sum))
	for i, s := range a.sum {
		out[i] = s / float64(a.n)
	}
	return out, nil
}

// ValidateUser checks the identity supplied for enrollment.
func ValidateUser(userID, name string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidUser)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidUser)
	}
	return nil
}
