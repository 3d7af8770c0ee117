package model

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/hadron/internal/dynamo"
	"github.com/san-kum/hadron/internal/engine"
)

func (m *Model) Active() bool { return m.bridge.Active() }

// ActualStepCount polls the engine's step counter without an exchange.
func (m *Model) ActualStepCount() int64 { return m.bridge.ActualStepCount() }

// Start snapshots the current topology into the engine. It is a no-op when
// the model is already active.
func (m *Model) Start() error {
	if m.Active() {
		return nil
	}
	index := make(map[*Particle]int32, len(m.particles))
	snap := engine.Snapshot{
		Particles: make([]engine.ParticleState, len(m.particles)),
		Infos:     make([]engine.ParticleInfo, len(m.particles)),
		Links:     make([]engine.Link, len(m.links)),
	}
	for i, p := range m.particles {
		index[p] = int32(i)
		snap.Particles[i] = engine.ParticleState{Position: p.Position, Velocity: p.Velocity}
		snap.Infos[i] = engine.ParticleInfo{Mass: p.Mass, Fixed: p.Fixed}
	}
	for i, l := range m.links {
		a, okA := index[l.A]
		b, okB := index[l.B]
		if !okA || !okB {
			return fmt.Errorf("link %d endpoint: %w", i, dynamo.ErrNotFound)
		}
		snap.Links[i] = engine.Link{A: a, B: b, Strength: l.Strength}
	}

	if err := m.bridge.Start(snap); err != nil {
		return err
	}
	m.mu.Lock()
	m.stats = engine.Output{RealTimeScale: 1}
	m.mu.Unlock()
	return nil
}

// Stop halts the engine. Particle state keeps the values of the last
// Refresh.
func (m *Model) Stop() error {
	if !m.Active() {
		return nil
	}
	return m.bridge.Stop()
}

// Close releases the engine run, if any.
func (m *Model) Close() error { return m.Stop() }

// Refresh exchanges state with the engine once: fixed particles are pushed
// in, every other particle adopts the engine's values.
func (m *Model) Refresh() error {
	if !m.Active() {
		return nil
	}
	fixed := make([]bool, len(m.particles))
	var overrides []engine.Override
	for i, p := range m.particles {
		if !p.Fixed {
			continue
		}
		fixed[i] = true
		overrides = append(overrides, engine.Override{Index: i, Position: p.Position, Velocity: p.Velocity})
	}

	out, err := m.bridge.Sync(fixed, overrides)
	if err != nil {
		return err
	}
	for i, p := range m.particles {
		if !fixed[i] {
			m.bridge.ReadParticle(i, p.Position, p.Velocity)
		}
	}

	m.mu.Lock()
	m.stats = out
	m.mu.Unlock()
	return nil
}

func (m *Model) Input() engine.Input { return m.bridge.Input() }

func (m *Model) SetInput(in engine.Input) { m.bridge.SetInput(in) }

// Parameter returns the named input parameter.
func (m *Model) Parameter(name string) (float64, error) {
	in := m.bridge.Input()
	p, err := in.Field(name)
	if err != nil {
		return 0, err
	}
	return *p, nil
}

func (m *Model) SetParameter(name string, v float64) error {
	err := m.bridge.UpdateInput(func(in *engine.Input) error {
		p, err := in.Field(name)
		if err != nil {
			return err
		}
		*p = v
		return nil
	})
	if err != nil {
		return err
	}
	m.log.Debug("parameter set", zap.String("name", name), zap.Float64("value", v))
	return nil
}

func (m *Model) StepCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats.StepCount
}

// StepElapsedTime is the wall time of the engine's last step in
// milliseconds.
func (m *Model) StepElapsedTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats.StepElapsedTime
}

func (m *Model) RealTimeScale() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats.RealTimeScale
}

// Stats returns all three output statistics at once.
func (m *Model) Stats() engine.Output {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
