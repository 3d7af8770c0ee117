package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/hadron/internal/compute"
	"github.com/san-kum/hadron/internal/dynamo"
	"github.com/san-kum/hadron/internal/integrators"
	"github.com/san-kum/hadron/internal/physics"
)

// DefaultSyncPeriod is how often a local run publishes its state.
const DefaultSyncPeriod = 30 * time.Millisecond

// LocalOptions configure a Local engine.
type LocalOptions struct {
	// NewIntegrator builds the stepper of each run. Adaptive Euler when nil.
	NewIntegrator func() dynamo.Integrator
	// SyncPeriod between worker publications. Zero publishes after every step.
	SyncPeriod time.Duration
	// Backend for pair forces. compute.Default() when nil.
	Backend compute.Backend
	Logger  *zap.Logger
}

// Local is an in-process engine. Every run integrates on its own goroutine
// and exchanges state with callers through a mutex guarded barrier copy.
type Local struct {
	opts LocalOptions

	mu   sync.Mutex
	next Handle
	runs map[Handle]*localRun
}

func NewLocal(opts LocalOptions) *Local {
	if opts.NewIntegrator == nil {
		opts.NewIntegrator = func() dynamo.Integrator { return integrators.NewAdaptiveEuler() }
	}
	if opts.Backend == nil {
		opts.Backend = compute.Default()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Local{opts: opts, runs: make(map[Handle]*localRun)}
}

func (l *Local) Start(params *Parameters, dim int, particles []float64, infos []ParticleInfo, links []Link) (Handle, error) {
	if dim < 1 || dim > 3 {
		return 0, dynamo.ErrInvalidDimension
	}
	if len(particles) != len(infos)*2*dim {
		return 0, fmt.Errorf("%d values for %d particles: %w", len(particles), len(infos), dynamo.ErrBufferMismatch)
	}

	masses := make([]float64, len(infos))
	for i, info := range infos {
		masses[i] = info.Mass
	}
	bonds := make([]physics.Bond, len(links))
	for i, lk := range links {
		bonds[i] = physics.Bond{A: int(lk.A), B: int(lk.B), Strength: lk.Strength}
	}
	field := physics.NewForceField(dim, masses, bonds)
	field.Backend = l.opts.Backend

	r := &localRun{
		dim:     dim,
		field:   field,
		integ:   l.opts.NewIntegrator(),
		period:  l.opts.SyncPeriod,
		log:     l.opts.Logger,
		working: dynamo.State(append([]float64(nil), particles...)),
		barrier: dynamo.State(append([]float64(nil), particles...)),
		fixed:   make([]bool, len(infos)),
		params:  Parameters{In: params.In, Out: Output{RealTimeScale: 1}},
		shared:  Parameters{In: params.In, Out: Output{RealTimeScale: 1}},
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for i, info := range infos {
		r.fixed[i] = info.Fixed
		field.Fixed[i] = info.Fixed
	}

	l.mu.Lock()
	l.next++
	h := l.next
	l.runs[h] = r
	l.mu.Unlock()

	r.log.Debug("local run started",
		zap.Uint64("handle", uint64(h)),
		zap.String("backend", l.opts.Backend.Name()),
		zap.Int("particles", len(infos)))
	go r.loop()
	return h, nil
}

func (l *Local) run(h Handle) (*localRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.runs[h]
	if !ok {
		return nil, fmt.Errorf("handle %d: %w", h, dynamo.ErrNotFound)
	}
	return r, nil
}

func (l *Local) Sync(h Handle, params *Parameters, particles []float64, infos []ParticleInfo) error {
	r, err := l.run(h)
	if err != nil {
		return err
	}
	if len(particles) != len(r.barrier) || len(infos) != len(r.fixed) {
		return dynamo.ErrBufferMismatch
	}
	r.sync(params, particles, infos)
	return nil
}

func (l *Local) StepCount(h Handle) int64 {
	r, err := l.run(h)
	if err != nil {
		return 0
	}
	return r.steps.Load()
}

func (l *Local) Stop(h Handle) error {
	l.mu.Lock()
	r, ok := l.runs[h]
	delete(l.runs, h)
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("handle %d: %w", h, dynamo.ErrNotFound)
	}
	close(r.stop)
	<-r.done
	return nil
}

type localRun struct {
	dim    int
	field  *physics.ForceField
	integ  dynamo.Integrator
	period time.Duration
	log    *zap.Logger

	// owned by the worker goroutine
	working dynamo.State
	params  Parameters

	mu      sync.Mutex
	barrier dynamo.State
	fixed   []bool
	shared  Parameters

	steps atomic.Int64
	stop  chan struct{}
	done  chan struct{}
}

func (r *localRun) loop() {
	defer close(r.done)

	stride := 2 * r.dim
	last := time.Now()
	var published time.Time
	stalls := 0

	for {
		select {
		case <-r.stop:
			return
		default:
		}

		if time.Since(published) >= r.period {
			r.exchange(stride)
			published = time.Now()
		}

		now := time.Now()
		dt := now.Sub(last).Seconds()
		last = now
		if dt <= 0 {
			continue
		}

		in := r.params.In
		r.field.Coefficients = physics.Coefficients{
			Viscosity:          in.Viscosity,
			ParticleAttraction: in.ParticleAttraction,
			ParticlePower:      in.ParticlePower,
			LinkAttraction:     in.LinkAttraction,
			LinkPower:          in.LinkPower,
			StretchAttraction:  in.StretchAttraction,
			Gravity:            in.Gravity,
		}

		taken, err := r.integ.Step(r.field, r.working, dt*in.TimeScale, in.Accuracy)
		if errors.Is(err, dynamo.ErrStepTooSmall) {
			stalls++
			if stalls == 1 || stalls%1000 == 0 {
				r.log.Debug("step size collapsed", zap.Int("stalls", stalls))
			}
		}

		r.params.Out.RealTimeScale = taken / dt
		r.params.Out.StepCount = r.steps.Add(1)
		r.params.Out.StepElapsedTime = float64(time.Since(now).Microseconds()) / 1000
	}
}

// exchange publishes worker state to the barrier and takes fixed slots and
// inputs from it.
func (r *localRun) exchange(stride int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, f := range r.fixed {
		slot := r.working[i*stride : i*stride+stride]
		shared := r.barrier[i*stride : i*stride+stride]
		r.field.Fixed[i] = f
		if f {
			copy(slot, shared)
		} else {
			copy(shared, slot)
		}
	}
	r.params.In = r.shared.In
	r.shared.Out = r.params.Out
}

// sync is the caller side of the barrier.
func (r *localRun) sync(params *Parameters, particles []float64, infos []ParticleInfo) {
	stride := 2 * r.dim

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.fixed {
		r.fixed[i] = infos[i].Fixed
		caller := particles[i*stride : i*stride+stride]
		shared := r.barrier[i*stride : i*stride+stride]
		if infos[i].Fixed {
			copy(shared, caller)
		} else {
			copy(caller, shared)
		}
	}
	r.shared.In = params.In
	params.Out = r.shared.Out
}
