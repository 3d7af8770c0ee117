package engine

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/san-kum/hadron/internal/dynamo"
)

// ParticleState is one particle's kinematic state as handed to Start.
type ParticleState struct {
	Position dynamo.State
	Velocity dynamo.State
}

// Snapshot is the model content an engine run starts from.
type Snapshot struct {
	Particles []ParticleState
	Infos     []ParticleInfo
	Links     []Link
}

// Override carries the caller-owned state of a fixed particle into Sync.
type Override struct {
	Index    int
	Position dynamo.State
	Velocity dynamo.State
}

// Bridge owns one engine instance and the buffers exchanged with it.
//
// Start, Sync and Stop are driven by a single scheduler and are not safe
// for concurrent use with each other. Input, SetInput and Output may be
// called from any goroutine.
type Bridge struct {
	native Native
	dim    int
	log    *zap.Logger

	mu     sync.Mutex
	params Parameters

	handle    Handle
	particles []float64
	infos     []ParticleInfo
	links     []Link
}

func NewBridge(native Native, dim int, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		native: native,
		dim:    dim,
		log:    log,
		params: DefaultParameters(),
	}
}

func (b *Bridge) Active() bool { return b.handle != 0 }

func (b *Bridge) Dimension() int { return b.dim }

// Len is the number of particles in the running snapshot.
func (b *Bridge) Len() int { return len(b.infos) }

func (b *Bridge) Start(snap Snapshot) error {
	if b.Active() {
		return dynamo.ErrEngineActive
	}
	n := len(snap.Particles)
	if n == 0 && len(snap.Links) > 0 {
		return dynamo.ErrEmptySnapshot
	}
	if len(snap.Infos) != n {
		return fmt.Errorf("%d particles, %d infos: %w", n, len(snap.Infos), dynamo.ErrBufferMismatch)
	}
	for i, l := range snap.Links {
		if l.A < 0 || int(l.A) >= n || l.B < 0 || int(l.B) >= n {
			return fmt.Errorf("link %d (%d, %d): %w", i, l.A, l.B, dynamo.ErrBufferMismatch)
		}
	}

	stride := 2 * b.dim
	particles := make([]float64, n*stride)
	for i, p := range snap.Particles {
		if len(p.Position) != b.dim || len(p.Velocity) != b.dim {
			return fmt.Errorf("particle %d: %w", i, dynamo.ErrDimensionMismatch)
		}
		copy(particles[i*stride:], p.Position)
		copy(particles[i*stride+b.dim:], p.Velocity)
	}
	infos := append([]ParticleInfo(nil), snap.Infos...)
	links := append([]Link(nil), snap.Links...)

	// outputs of a previous run must not leak into this one
	b.mu.Lock()
	b.params.Out = Output{RealTimeScale: 1}
	params := b.params
	b.mu.Unlock()
	h, err := b.native.Start(&params, b.dim, particles, infos, links)
	if err == nil && h == 0 {
		err = dynamo.ErrEngineFailure
	}
	if err != nil {
		b.log.Error("engine start failed", zap.Int("particles", n), zap.Error(err))
		return engineError("start", err)
	}

	b.handle = h
	b.particles = particles
	b.infos = infos
	b.links = links
	b.log.Info("engine started",
		zap.Int("dimension", b.dim),
		zap.Int("particles", n),
		zap.Int("links", len(links)))
	return nil
}

// Stop halts the run and releases the buffers. It is a no-op when the
// bridge is inactive.
func (b *Bridge) Stop() error {
	if !b.Active() {
		return nil
	}
	h := b.handle
	err := b.native.Stop(h)

	b.handle = 0
	b.particles = nil
	b.infos = nil
	b.links = nil

	if err != nil {
		b.log.Error("engine stop failed", zap.Error(err))
		return engineError("stop", err)
	}
	b.log.Info("engine stopped")
	return nil
}

// Close stops the engine if it is running.
func (b *Bridge) Close() error {
	return b.Stop()
}

func (b *Bridge) ActualStepCount() int64 {
	if !b.Active() {
		return 0
	}
	return b.native.StepCount(b.handle)
}

// Sync performs one exchange with the engine. fixed has one flag per
// particle; overrides supply the state of fixed particles and must only
// reference fixed slots. Non-fixed slots keep the engine's last output
// going in and receive the new output coming back.
func (b *Bridge) Sync(fixed []bool, overrides []Override) (Output, error) {
	if !b.Active() {
		return Output{}, fmt.Errorf("sync: %w", dynamo.ErrEngineFailure)
	}
	if len(fixed) != len(b.infos) {
		return Output{}, fmt.Errorf("%d fixed flags for %d particles: %w", len(fixed), len(b.infos), dynamo.ErrBufferMismatch)
	}
	for _, o := range overrides {
		if o.Index < 0 || o.Index >= len(fixed) || !fixed[o.Index] {
			return Output{}, fmt.Errorf("override for slot %d: %w", o.Index, dynamo.ErrBufferMismatch)
		}
		if len(o.Position) != b.dim || len(o.Velocity) != b.dim {
			return Output{}, fmt.Errorf("override for slot %d: %w", o.Index, dynamo.ErrDimensionMismatch)
		}
	}

	for i, f := range fixed {
		b.infos[i].Fixed = f
	}
	stride := 2 * b.dim
	for _, o := range overrides {
		copy(b.particles[o.Index*stride:], o.Position)
		copy(b.particles[o.Index*stride+b.dim:], o.Velocity)
	}

	params := b.exchangeParams()
	if err := b.native.Sync(b.handle, &params, b.particles, b.infos); err != nil {
		b.log.Error("engine sync failed", zap.Error(err))
		return Output{}, engineError("sync", err)
	}

	b.mu.Lock()
	b.params.Out = params.Out
	b.mu.Unlock()
	return params.Out, nil
}

// ReadParticle copies the buffered state of slot i into pos and vel.
func (b *Bridge) ReadParticle(i int, pos, vel dynamo.State) {
	stride := 2 * b.dim
	copy(pos, b.particles[i*stride:i*stride+b.dim])
	copy(vel, b.particles[i*stride+b.dim:i*stride+stride])
}

func (b *Bridge) Input() Input {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.params.In
}

func (b *Bridge) SetInput(in Input) {
	b.mu.Lock()
	b.params.In = in
	b.mu.Unlock()
}

// UpdateInput applies fn to the inputs under the parameter lock.
func (b *Bridge) UpdateInput(fn func(in *Input) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	in := b.params.In
	if err := fn(&in); err != nil {
		return err
	}
	b.params.In = in
	return nil
}

func (b *Bridge) Output() Output {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.params.Out
}

func (b *Bridge) exchangeParams() Parameters {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.params
}

// engineError tags a native failure with the operation that raised it.
// The result always matches dynamo.ErrEngineFailure.
func engineError(op string, err error) error {
	if !errors.Is(err, dynamo.ErrEngineFailure) {
		err = fmt.Errorf("%w: %v", dynamo.ErrEngineFailure, err)
	}
	return &dynamo.EngineError{Op: op, Wrapped: err}
}
