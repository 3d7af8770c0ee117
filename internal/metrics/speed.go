package metrics

import (
	"math"

	"github.com/san-kum/hadron/internal/model"
)

// MeanSpeed averages |v| over free particles and over observations.
type MeanSpeed struct {
	sum     float64
	samples int
}

func NewMeanSpeed() *MeanSpeed { return &MeanSpeed{} }

func (m *MeanSpeed) Name() string { return "mean_speed" }

func (m *MeanSpeed) Observe(particles []*model.Particle, t float64) {
	var sum float64
	n := 0
	for _, p := range particles {
		if p.Fixed {
			continue
		}
		var v2 float64
		for _, v := range p.Velocity {
			v2 += v * v
		}
		sum += math.Sqrt(v2)
		n++
	}
	if n > 0 {
		m.sum += sum / float64(n)
	}
	m.samples++
}

func (m *MeanSpeed) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanSpeed) Clone() Metric { return NewMeanSpeed() }

func (m *MeanSpeed) Reset() {
	m.sum = 0
	m.samples = 0
}
