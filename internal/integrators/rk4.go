package integrators

import "github.com/san-kum/hadron/internal/dynamo"

// AdaptiveRK4 chooses its step with the same slope test as AdaptiveEuler
// and then takes a classic fourth order step.
type AdaptiveRK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewAdaptiveRK4() *AdaptiveRK4 {
	return &AdaptiveRK4{}
}

func (r *AdaptiveRK4) Name() string { return "rk4" }

func (r *AdaptiveRK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

func (r *AdaptiveRK4) Step(sys dynamo.System, y dynamo.State, dt, accuracy float64) (float64, error) {
	n := len(y)
	r.ensureScratch(n)

	sys.Derive(y, r.k1)

	var err error
	for halvings := 0; ; halvings++ {
		for i := 0; i < n; i++ {
			r.scratch[i] = y[i] + r.k1[i]*dt
		}
		sys.Derive(r.scratch, r.k2)

		if distance(r.k2, r.k1) < accuracy {
			break
		}
		if halvings == maxHalvings {
			err = dynamo.ErrStepTooSmall
			break
		}
		dt /= 2
	}

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + dt*0.5*r.k1[i]
	}
	sys.Derive(r.scratch, r.k2)

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + dt*0.5*r.k2[i]
	}
	sys.Derive(r.scratch, r.k3)

	for i := 0; i < n; i++ {
		r.scratch[i] = y[i] + dt*r.k3[i]
	}
	sys.Derive(r.scratch, r.k4)

	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		y[i] += dt6 * (r.k1[i] + 2*r.k2[i] + 2*r.k3[i] + r.k4[i])
	}

	return dt, err
}
