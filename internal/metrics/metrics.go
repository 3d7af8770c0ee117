// Package metrics observes particle sets over a run and reduces each
// observation series to a single number.
package metrics

import "github.com/san-kum/hadron/internal/model"

type Metric interface {
	Name() string
	Observe(particles []*model.Particle, t float64)
	Value() float64
	Reset()
	// Clone returns an unobserved metric with the same settings.
	Clone() Metric
}

// Default returns the metrics recorded for every headless run.
func Default() []Metric {
	return []Metric{
		NewKineticEnergy(),
		NewStability(DefaultStabilityBound),
		NewMeanSpeed(),
	}
}

// CloneAll gives a concurrent run its own metric instances.
func CloneAll(ms []Metric) []Metric {
	if ms == nil {
		return nil
	}
	out := make([]Metric, len(ms))
	for i, m := range ms {
		out[i] = m.Clone()
	}
	return out
}

// Snapshot collects the current values by name.
func Snapshot(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
