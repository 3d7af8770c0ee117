package physics

import (
	"math"

	"github.com/san-kum/hadron/internal/compute"
	"github.com/san-kum/hadron/internal/dynamo"
)

// Coefficients are the force law inputs that can change while a run is in
// progress.
type Coefficients struct {
	Viscosity          float64
	ParticleAttraction float64
	ParticlePower      float64
	LinkAttraction     float64
	LinkPower          float64
	StretchAttraction  float64
	Gravity            float64
}

// Bond is a link between particles A and B by index.
type Bond struct {
	A, B     int
	Strength float64
}

// ForceField is the particle graph as a first order system.
//
// The state holds, per particle, Dim position components followed by Dim
// velocity components. Every pair attracts with ParticleAttraction *
// d^ParticlePower, every bond pulls its ends together with LinkAttraction *
// Strength * d^(2-LinkPower), velocity is damped by Viscosity and Gravity
// and StretchAttraction act along world axis 0. Fixed particles do not
// move.
type ForceField struct {
	Dim    int
	Masses []float64
	Fixed  []bool
	Bonds  []Bond
	Coefficients

	Backend compute.Backend

	pos []float64
	acc []float64
}

func NewForceField(dim int, masses []float64, bonds []Bond) *ForceField {
	n := len(masses)
	return &ForceField{
		Dim:     dim,
		Masses:  masses,
		Fixed:   make([]bool, n),
		Bonds:   bonds,
		Backend: compute.Default(),
		pos:     make([]float64, n*dim),
		acc:     make([]float64, n*dim),
	}
}

func (f *ForceField) StateDim() int { return len(f.Masses) * 2 * f.Dim }

func (f *ForceField) Derive(y, dy dynamo.State) {
	d := f.Dim
	stride := 2 * d
	n := len(f.Masses)

	for i := 0; i < n; i++ {
		copy(f.pos[i*d:i*d+d], y[i*stride:i*stride+d])
	}
	for i := range f.acc {
		f.acc[i] = 0
	}

	f.Backend.PairForces(f.pos, f.Masses, d, f.ParticleAttraction, f.ParticlePower, f.acc)

	for i := 0; i < n; i++ {
		vel := y[i*stride+d : i*stride+stride]
		for k := 0; k < d; k++ {
			f.acc[i*d+k] -= vel[k] * f.Viscosity
		}
		f.acc[i*d] += f.Gravity
	}

	f.bondForces()

	for i := 0; i < n; i++ {
		out := dy[i*stride : i*stride+stride]
		if f.Fixed[i] {
			for k := range out {
				out[k] = 0
			}
			continue
		}
		copy(out[:d], y[i*stride+d:i*stride+stride])
		copy(out[d:], f.acc[i*d:i*d+d])
	}
}

func (f *ForceField) bondForces() {
	d := f.Dim
	var v [3]float64

	for _, b := range f.Bonds {
		pa := f.pos[b.A*d : b.A*d+d]
		pb := f.pos[b.B*d : b.B*d+d]

		d2 := 0.0
		for k := 0; k < d; k++ {
			v[k] = pb[k] - pa[k]
			d2 += v[k] * v[k]
		}
		if d2 > 0 {
			s := f.LinkAttraction * b.Strength / math.Pow(math.Sqrt(d2), f.LinkPower-1)
			for k := 0; k < d; k++ {
				f.acc[b.A*d+k] += v[k] * s * f.Masses[b.B]
				f.acc[b.B*d+k] -= v[k] * s * f.Masses[b.A]
			}
		}

		f.acc[b.A*d] -= f.StretchAttraction
		f.acc[b.B*d] += f.StretchAttraction
	}
}

// KineticEnergy returns the sum of m|v|^2/2 over the state.
func (f *ForceField) KineticEnergy(y dynamo.State) float64 {
	d := f.Dim
	e := 0.0
	for i, m := range f.Masses {
		vel := y[i*2*d+d : i*2*d+2*d]
		v2 := 0.0
		for _, c := range vel {
			v2 += c * c
		}
		e += 0.5 * m * v2
	}
	return e
}
