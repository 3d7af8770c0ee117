package metrics

import "github.com/san-kum/hadron/internal/model"

// KineticEnergy reports sum(m|v|^2)/2 at the last observation.
type KineticEnergy struct {
	value   float64
	samples int
}

func NewKineticEnergy() *KineticEnergy { return &KineticEnergy{} }

func (e *KineticEnergy) Name() string { return "kinetic_energy" }

func (e *KineticEnergy) Observe(particles []*model.Particle, t float64) {
	e.value = Kinetic(particles)
	e.samples++
}

func (e *KineticEnergy) Value() float64 { return e.value }

func (e *KineticEnergy) Reset() {
	e.value = 0
	e.samples = 0
}

func (e *KineticEnergy) Clone() Metric { return NewKineticEnergy() }

// Kinetic is the total kinetic energy of particles.
func Kinetic(particles []*model.Particle) float64 {
	var sum float64
	for _, p := range particles {
		var v2 float64
		for _, v := range p.Velocity {
			v2 += v * v
		}
		sum += 0.5 * p.Mass * v2
	}
	return sum
}
