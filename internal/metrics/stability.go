package metrics

import (
	"math"

	"github.com/san-kum/hadron/internal/model"
)

const DefaultStabilityBound = 1e6

// Stability is the fraction of observations in which every coordinate was
// finite and within the bound.
type Stability struct {
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{threshold: threshold}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(particles []*model.Particle, t float64) {
	s.samples++
	for _, p := range particles {
		if !s.bounded(p.Position) || !s.bounded(p.Velocity) {
			s.violations++
			return
		}
	}
}

func (s *Stability) bounded(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.Abs(x) > s.threshold {
			return false
		}
	}
	return true
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Clone() Metric { return NewStability(s.threshold) }

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
