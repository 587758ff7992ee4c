// Package matcher finds the closest enrolled identity for a probe embedding.
package matcher

import (
	"math"

	"github.com/okian/facepunch/internal/domain/model"
	"github.com/okian/facepunch/pkg/metrics"
)

// DefaultTolerance is the largest distance still accepted as the same person.
const DefaultTolerance = 0.5

// ReferenceSource yields enrolled embeddings in insertion order.
type ReferenceSource interface {
	References() []model.Reference
}

// Matcher performs exhaustive nearest-neighbour search over a ReferenceSource.
type Matcher struct {
	src ReferenceSource
}

// New creates a Matcher over src.
func New(src ReferenceSource) *Matcher {
	return &Matcher{src: src}
}

// Match returns the reference nearest to probe if its distance is within tolerance.
//
// The scan keeps the first reference on equal distances, so ties resolve to
// the earliest enrolled user. References of another dimension never match.
// An empty store yields an empty result.
func (m *Matcher) Match(probe model.Embedding, tolerance float64) model.MatchResult {
	best := model.MatchResult{Distance: math.Inf(1)}
	bestID := ""

	for _, ref := range m.src.References() {
		d := Distance(probe, ref.Embedding)
		if d < best.Distance {
			best.Distance = d
			bestID = ref.UserID
		}
	}

	if !math.IsInf(best.Distance, 1) {
		metrics.RecordMatchDistance(best.Distance)
	}
	if bestID == "" || best.Distance > tolerance {
		return best
	}

	best.UserID = bestID
	best.Confidence = model.ConfidenceFromDistance(best.Distance)
	return best
}

// Distance is the Euclidean distance between a and b, or +Inf when their lengths differ.
func Distance(a, b model.Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
