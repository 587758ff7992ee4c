package kiosksim

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/okian/facepunch/internal/domain/types"
	"github.com/okian/facepunch/pkg/logger"
)

// Persona is a synthetic user with a stable face.
type Persona struct {
	UserID     string
	Name       string
	Department string
	Face       []float64
}

var (
	firstNames  = []string{"Ada", "Grace", "Alan", "Edsger", "Barbara", "Ken", "Radia", "Donald", "Frances", "Niklaus"}
	departments = []string{"Engineering", "Operations", "Finance", ""}
)

// faceSource hands out jittered captures of persona faces. Safe for concurrent use.
type faceSource struct {
	mu     sync.Mutex
	rng    *rand.Rand
	jitter float64
}

func newFaceSource(seed uint64, jitter float64) *faceSource {
	return &faceSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), jitter: jitter}
}

// generatePersonas creates n users with uuid IDs and faces drawn uniformly from [-1, 1]^dim.
// Random faces that far apart never fall within each other's tolerance.
func generatePersonas(ctx context.Context, src *faceSource, n, dim int) []Persona {
	logger.Get().Info(ctx, "generating personas", logger.Int("users", n), logger.Int("dim", dim))

	src.mu.Lock()
	defer src.mu.Unlock()

	out := make([]Persona, n)
	for i := range out {
		face := make([]float64, dim)
		for j := range face {
			face[j] = src.rng.Float64()*2 - 1
		}
		out[i] = Persona{
			UserID:     uuid.New().String(),
			Name:       fmt.Sprintf("%s %03d", firstNames[i%len(firstNames)], i),
			Department: departments[i%len(departments)],
			Face:       face,
		}
	}
	return out
}

// capture returns n single-face frames of p, each with fresh noise.
func (s *faceSource) capture(p Persona, n int) []types.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := make([]types.Frame, n)
	for i := range frames {
		face := make([]float64, len(p.Face))
		for j, v := range p.Face {
			face[j] = v + (s.rng.Float64()*2-1)*s.jitter
		}
		frames[i] = types.Frame{Faces: [][]float64{face}}
	}
	return frames
}
