package config

import (
	"fmt"
	"math"

	"github.com/san-kum/hadron/internal/dynamo"
)

// Scale maps a parameter value to a slider position in [0, 1] and back.
type Scale interface {
	ToSlider(d Descriptor, v float64) float64
	FromSlider(d Descriptor, s float64) float64
	String() string
}

// Descriptor describes one tunable engine input.
type Descriptor struct {
	Name    string
	Default float64
	Min     float64
	Max     float64
	Scale   Scale
	// Feedback names the output statistic that reflects this input, if any.
	Feedback string
}

// Descriptors covers every engine input, in contract order.
var Descriptors = []Descriptor{
	{Name: "Viscosity", Default: 10, Min: 0, Max: 1000, Scale: Log{Medium: 10}},
	{Name: "ParticleAttraction", Default: -1, Min: -1e3, Max: 1e3, Scale: BiLog{Medium: 1}},
	{Name: "ParticlePower", Default: -2, Min: -10, Max: 10, Scale: Linear{}},
	{Name: "LinkAttraction", Default: 10, Min: -1e4, Max: 1e4, Scale: BiLog{Medium: 10}},
	{Name: "LinkPower", Default: -1, Min: -10, Max: 10, Scale: Linear{}},
	{Name: "StretchAttraction", Default: 0, Min: -1e4, Max: 1e4, Scale: BiLog{Medium: 1}},
	{Name: "Gravity", Default: 0, Min: -1e3, Max: 1e3, Scale: BiLog{Medium: 1}},
	{Name: "Accuracy", Default: 50, Min: 0.1, Max: 1e5, Scale: Log{Medium: 50}},
	{Name: "TimeScale", Default: 1, Min: 0.01, Max: 1000, Scale: Log{Medium: 1}, Feedback: "RealTimeScale"},
}

func Lookup(name string) (Descriptor, error) {
	for _, d := range Descriptors {
		if d.Name == name {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("parameter %q: %w", name, dynamo.ErrNotFound)
}

func (d Descriptor) Validate(v float64) error {
	if math.IsNaN(v) || v < d.Min || v > d.Max {
		return fmt.Errorf("%s = %v outside [%v, %v]: %w", d.Name, v, d.Min, d.Max, dynamo.ErrParameterBounds)
	}
	return nil
}

func (d Descriptor) Clamp(v float64) float64 {
	return math.Max(d.Min, math.Min(d.Max, v))
}

func (d Descriptor) ToSlider(v float64) float64 {
	return d.Scale.ToSlider(d, d.Clamp(v))
}

func (d Descriptor) FromSlider(s float64) float64 {
	s = math.Max(0, math.Min(1, s))
	return d.Clamp(d.Scale.FromSlider(d, s))
}

type Linear struct{}

func (Linear) ToSlider(d Descriptor, v float64) float64 {
	return (v - d.Min) / (d.Max - d.Min)
}

func (Linear) FromSlider(d Descriptor, s float64) float64 {
	return d.Min + s*(d.Max-d.Min)
}

func (Linear) String() string { return "linear" }

// Log is an exponential slider over [Min, Max] with Medium at the middle.
// Medium must lie below the arithmetic mean of Min and Max.
type Log struct {
	Medium float64
}

// coeffs fits v(s) = a*exp(k*s) + b through v(0) = v0, v(0.5) = medium and
// v(1) = v1.
func coeffs(v0, v1, medium float64) (a, b, k float64) {
	a = (medium - v0) * (medium - v0) / (v0 + v1 - 2*medium)
	b = v0 - a
	k = 2 * math.Log((medium-v0)/a+1)
	return a, b, k
}

func (l Log) ToSlider(d Descriptor, v float64) float64 {
	a, b, k := coeffs(d.Min, d.Max, l.Medium)
	return math.Log((v-b)/a) / k
}

func (l Log) FromSlider(d Descriptor, s float64) float64 {
	a, b, k := coeffs(d.Min, d.Max, l.Medium)
	return a*math.Exp(k*s) + b
}

func (l Log) String() string { return fmt.Sprintf("log(%g)", l.Medium) }

// BiLog mirrors a Log scale around the centre of [Min, Max]; the upper
// half reaches Medium at 3/4 of the slider.
type BiLog struct {
	Medium float64
}

func (l BiLog) ToSlider(d Descriptor, v float64) float64 {
	z := (d.Min + d.Max) / 2
	a, b, k := coeffs(z, d.Max, l.Medium)
	if v >= z {
		return (math.Log((v-b)/a)/k + 1) / 2
	}
	return (-math.Log((2*z-v-b)/a)/k + 1) / 2
}

func (l BiLog) FromSlider(d Descriptor, s float64) float64 {
	z := (d.Min + d.Max) / 2
	a, b, k := coeffs(z, d.Max, l.Medium)
	y := 2*s - 1
	if y >= 0 {
		return a*math.Exp(k*y) + b
	}
	return 2*z - a*math.Exp(-k*y) - b
}

func (l BiLog) String() string { return fmt.Sprintf("bilog(%g)", l.Medium) }
