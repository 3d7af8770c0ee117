package integrators

import (
	"math"

	"github.com/san-kum/hadron/internal/dynamo"
)

// maxHalvings bounds the step search; 2^-64 of any usable step is below
// float64 resolution of the state.
const maxHalvings = 64

// initialDt seeds the step growth limit of a fresh AdaptiveEuler.
const initialDt = 0.001

// AdaptiveEuler is a predictor-corrector (Heun) stepper. The step may at
// most double from one call to the next and is halved until the slope at
// the predicted point differs from the starting slope by less than the
// accuracy threshold.
type AdaptiveEuler struct {
	fy, y1, fy1 dynamo.State
	lastDt      float64
}

func NewAdaptiveEuler() *AdaptiveEuler {
	return &AdaptiveEuler{lastDt: initialDt}
}

func (e *AdaptiveEuler) Name() string { return "euler" }

func (e *AdaptiveEuler) ensureScratch(n int) {
	if len(e.fy) != n {
		e.fy = make(dynamo.State, n)
		e.y1 = make(dynamo.State, n)
		e.fy1 = make(dynamo.State, n)
	}
}

func (e *AdaptiveEuler) Step(sys dynamo.System, y dynamo.State, dt, accuracy float64) (float64, error) {
	n := len(y)
	e.ensureScratch(n)

	if dt > e.lastDt*2 {
		dt = e.lastDt * 2
	}

	sys.Derive(y, e.fy)

	var err error
	for halvings := 0; ; halvings++ {
		for i := 0; i < n; i++ {
			e.y1[i] = y[i] + e.fy[i]*dt
		}
		sys.Derive(e.y1, e.fy1)

		if distance(e.fy1, e.fy) < accuracy {
			break
		}
		if halvings == maxHalvings {
			err = dynamo.ErrStepTooSmall
			break
		}
		dt /= 2
	}

	if dt > 0 {
		e.lastDt = dt
	}
	for i := 0; i < n; i++ {
		y[i] += (e.fy[i] + e.fy1[i]) / 2 * dt
	}
	return dt, err
}

func distance(a, b dynamo.State) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
