package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/hadron/internal/dynamo"
)

type oscillator struct{}

func (oscillator) Derive(y, dy dynamo.State) {
	dy[0] = y[1]
	dy[1] = -y[0]
}

func (oscillator) StateDim() int { return 2 }

type blowup struct{}

func (blowup) Derive(y, dy dynamo.State) {
	for i := range dy {
		dy[i] = math.NaN()
	}
}

func (blowup) StateDim() int { return 1 }

func integrate(t *testing.T, integ dynamo.Integrator, total, dt, accuracy float64) (dynamo.State, float64) {
	t.Helper()
	y := dynamo.State{1, 0}
	elapsed := 0.0
	for elapsed < total {
		step := math.Min(dt, total-elapsed)
		taken, err := integ.Step(oscillator{}, y, step, accuracy)
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
		if taken <= 0 || taken > step {
			t.Fatalf("taken step %v outside (0, %v]", taken, step)
		}
		elapsed += taken
	}
	return y, elapsed
}

func TestAdaptiveRK4Accuracy(t *testing.T) {
	y, elapsed := integrate(t, NewAdaptiveRK4(), 1.0, 0.01, 1)

	if math.Abs(y[0]-math.Cos(elapsed)) > 1e-6 {
		t.Errorf("position error too large: got %.8f, expected %.8f", y[0], math.Cos(elapsed))
	}
	if math.Abs(y[1]+math.Sin(elapsed)) > 1e-6 {
		t.Errorf("velocity error too large: got %.8f, expected %.8f", y[1], -math.Sin(elapsed))
	}
}

func TestAdaptiveEulerAccuracy(t *testing.T) {
	y, elapsed := integrate(t, NewAdaptiveEuler(), 1.0, 0.01, 1)

	if math.Abs(y[0]-math.Cos(elapsed)) > 1e-3 {
		t.Errorf("position error too large: got %.6f, expected %.6f", y[0], math.Cos(elapsed))
	}
}

func TestAdaptiveEuler_GrowthLimited(t *testing.T) {
	e := NewAdaptiveEuler()
	y := dynamo.State{1, 0}

	taken, err := e.Step(oscillator{}, y, 10, 1e9)
	if err != nil {
		t.Fatal(err)
	}
	if taken != 2*initialDt {
		t.Errorf("first step = %v, want %v", taken, 2*initialDt)
	}

	taken, _ = e.Step(oscillator{}, y, 10, 1e9)
	if taken != 4*initialDt {
		t.Errorf("second step = %v, want %v", taken, 4*initialDt)
	}
}

func TestAdaptive_HalvesUntilAccurate(t *testing.T) {
	tests := []struct {
		name  string
		integ dynamo.Integrator
	}{
		{"euler", NewAdaptiveEuler()},
		{"rk4", NewAdaptiveRK4()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y := dynamo.State{1, 0}
			// slope change over dt is |dt| * |(0,-1)| = dt, so dt must drop below 0.001
			taken, err := tt.integ.Step(oscillator{}, y, 0.0016, 0.001)
			if err != nil {
				t.Fatal(err)
			}
			if taken != 0.0008 {
				t.Errorf("taken = %v, want 0.0008", taken)
			}
		})
	}
}

func TestAdaptive_StepTooSmall(t *testing.T) {
	for _, integ := range []dynamo.Integrator{NewAdaptiveEuler(), NewAdaptiveRK4()} {
		y := dynamo.State{1}
		_, err := integ.Step(blowup{}, y, 0.01, 1)
		if !errors.Is(err, dynamo.ErrStepTooSmall) {
			t.Errorf("%s: err = %v, want ErrStepTooSmall", integ.Name(), err)
		}
	}
}

func BenchmarkAdaptiveEuler(b *testing.B) {
	integ := NewAdaptiveEuler()
	y := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		integ.Step(oscillator{}, y, 0.01, 1)
	}
}

func BenchmarkAdaptiveRK4(b *testing.B) {
	integ := NewAdaptiveRK4()
	y := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		integ.Step(oscillator{}, y, 0.01, 1)
	}
}
