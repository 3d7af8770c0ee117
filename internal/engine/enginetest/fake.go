// Package enginetest provides a deterministic engine for tests.
package enginetest

import (
	"sync"

	"github.com/san-kum/hadron/internal/engine"
)

// Fake is a Native that moves every non-fixed particle by its velocity
// times Dt once per Sync. It records the calls it receives.
type Fake struct {
	Dt float64

	FailStart error
	FailSync  error
	FailStop  error

	mu     sync.Mutex
	next   engine.Handle
	states map[engine.Handle]*fakeRun

	Starts    int
	Syncs     int
	Stops     int
	LastInput engine.Input
	LastFixed []bool
	LastLinks []engine.Link
}

type fakeRun struct {
	dim       int
	particles []float64
	steps     int64
}

func New() *Fake {
	return &Fake{Dt: 1, states: make(map[engine.Handle]*fakeRun)}
}

func (f *Fake) Start(params *engine.Parameters, dim int, particles []float64, infos []engine.ParticleInfo, links []engine.Link) (engine.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailStart != nil {
		return 0, f.FailStart
	}
	f.Starts++
	f.next++
	f.states[f.next] = &fakeRun{dim: dim, particles: append([]float64(nil), particles...)}
	f.LastInput = params.In
	f.LastLinks = append([]engine.Link(nil), links...)
	return f.next, nil
}

func (f *Fake) Sync(h engine.Handle, params *engine.Parameters, particles []float64, infos []engine.ParticleInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSync != nil {
		return f.FailSync
	}
	r := f.states[h]
	f.Syncs++
	r.steps++

	stride := 2 * r.dim
	f.LastFixed = make([]bool, len(infos))
	for i, info := range infos {
		f.LastFixed[i] = info.Fixed
		own := r.particles[i*stride : i*stride+stride]
		caller := particles[i*stride : i*stride+stride]
		if info.Fixed {
			copy(own, caller)
			continue
		}
		for k := 0; k < r.dim; k++ {
			own[k] += own[r.dim+k] * f.Dt
		}
		copy(caller, own)
	}

	f.LastInput = params.In
	params.Out = engine.Output{StepElapsedTime: 0.5, RealTimeScale: 1, StepCount: r.steps}
	return nil
}

func (f *Fake) StepCount(h engine.Handle) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.states[h]; ok {
		return r.steps
	}
	return 0
}

// Advance bumps the step counter of h without touching particle state.
func (f *Fake) Advance(h engine.Handle, n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.states[h]; ok {
		r.steps += n
	}
}

// Handles lists the live runs.
func (f *Fake) Handles() []engine.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	hs := make([]engine.Handle, 0, len(f.states))
	for h := range f.states {
		hs = append(hs, h)
	}
	return hs
}

func (f *Fake) Stop(h engine.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Stops++
	delete(f.states, h)
	return f.FailStop
}
