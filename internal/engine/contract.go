package engine

import (
	"fmt"

	"github.com/san-kum/hadron/internal/dynamo"
)

// Handle identifies a running engine instance. The zero Handle means no
// instance.
type Handle uintptr

// ParticleInfo is the per-particle record shared with the engine. The
// layout is fixed: 8 byte mass, 1 byte flag, 7 bytes padding.
type ParticleInfo struct {
	Mass  float64
	Fixed bool
}

// Link is the per-link record shared with the engine: two int32 particle
// indices followed by a float64 strength.
type Link struct {
	A, B     int32
	Strength float64
}

// Input holds the parameters the engine reads. Field order is part of the
// engine contract.
type Input struct {
	Viscosity          float64
	ParticleAttraction float64
	ParticlePower      float64
	LinkAttraction     float64
	LinkPower          float64
	StretchAttraction  float64
	Gravity            float64
	Accuracy           float64
	TimeScale          float64
}

// Output holds the statistics the engine reports.
type Output struct {
	StepElapsedTime float64 // milliseconds spent on the last step
	RealTimeScale   float64
	StepCount       int64
}

type Parameters struct {
	In  Input
	Out Output
}

// DefaultParameters returns the engine defaults.
func DefaultParameters() Parameters {
	return Parameters{
		In: Input{
			Viscosity:          10,
			ParticleAttraction: -1,
			ParticlePower:      -2,
			LinkAttraction:     10,
			LinkPower:          -1,
			StretchAttraction:  0,
			Gravity:            0,
			Accuracy:           50,
			TimeScale:          1,
		},
		Out: Output{RealTimeScale: 1},
	}
}

// ParameterNames lists the Input fields in contract order.
var ParameterNames = []string{
	"Viscosity",
	"ParticleAttraction",
	"ParticlePower",
	"LinkAttraction",
	"LinkPower",
	"StretchAttraction",
	"Gravity",
	"Accuracy",
	"TimeScale",
}

// Field returns a pointer to the named input field.
func (in *Input) Field(name string) (*float64, error) {
	switch name {
	case "Viscosity":
		return &in.Viscosity, nil
	case "ParticleAttraction":
		return &in.ParticleAttraction, nil
	case "ParticlePower":
		return &in.ParticlePower, nil
	case "LinkAttraction":
		return &in.LinkAttraction, nil
	case "LinkPower":
		return &in.LinkPower, nil
	case "StretchAttraction":
		return &in.StretchAttraction, nil
	case "Gravity":
		return &in.Gravity, nil
	case "Accuracy":
		return &in.Accuracy, nil
	case "TimeScale":
		return &in.TimeScale, nil
	}
	return nil, fmt.Errorf("parameter %q: %w", name, dynamo.ErrNotFound)
}

// Native is the four operation engine contract.
//
// Start copies the initial buffers and begins simulating; the particle
// buffer holds, per particle, dim position components followed by dim
// velocity components. Sync performs one exchange: for slots flagged Fixed
// the caller's values are taken, for the others the engine's latest state
// is written back into particles; inputs are taken from params and outputs
// written into it. StepCount is a cheap poll of the step counter. Stop
// halts the instance and releases it.
type Native interface {
	Start(params *Parameters, dim int, particles []float64, infos []ParticleInfo, links []Link) (Handle, error)
	Sync(h Handle, params *Parameters, particles []float64, infos []ParticleInfo) error
	StepCount(h Handle) int64
	Stop(h Handle) error
}
