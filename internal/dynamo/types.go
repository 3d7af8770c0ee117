package dynamo

import (
	"math"
)

// State is a flat vector of float64 components. It is used for particle
// positions and velocities as well as for the whole integration state of
// an engine run.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Dist returns the euclidean distance between s and other over their
// common prefix.
func (s State) Dist(other State) float64 {
	n := len(s)
	if len(other) < n {
		n = len(other)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		d := s[i] - other[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Zero sets every component to 0 in place.
func (s State) Zero() {
	for i := range s {
		s[i] = 0
	}
}

// System is a first order ODE dY/dt = f(Y). Derive writes f(y) into dy,
// which has the same length as y.
type System interface {
	Derive(y, dy State)
	StateDim() int
}

// Integrator advances y in place by at most dt and returns the step it
// actually took. Adaptive integrators shrink the step until the change in
// slope across it is below accuracy.
type Integrator interface {
	Step(sys System, y State, dt, accuracy float64) (float64, error)
	Name() string
}
