package model

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/hadron/internal/dynamo"
	"github.com/san-kum/hadron/internal/engine"
)

// DefaultPlacementAttempts bounds the candidate draws per particle during
// random placement.
const DefaultPlacementAttempts = 1000

// Model is an ordered set of particles and the links between them, bound
// to one engine for its lifetime.
//
// Topology may only change while the model is inactive. Particle order is
// the index space the engine sees.
type Model struct {
	dim       int
	particles []*Particle
	links     []*Link

	bridge *engine.Bridge
	rng    *rand.Rand
	log    *zap.Logger

	placementAttempts int

	mu    sync.Mutex
	stats engine.Output
}

type Option func(*Model)

// WithRand sets the random source used for placement, links and colors.
func WithRand(rng *rand.Rand) Option {
	return func(m *Model) { m.rng = rng }
}

func WithSeed(seed int64) Option {
	return func(m *Model) { m.rng = rand.New(rand.NewSource(seed)) }
}

func WithLogger(log *zap.Logger) Option {
	return func(m *Model) { m.log = log }
}

func WithPlacementAttempts(n int) Option {
	return func(m *Model) { m.placementAttempts = n }
}

func New(dim int, native engine.Native, opts ...Option) (*Model, error) {
	if dim < 1 || dim > 3 {
		return nil, fmt.Errorf("model dimension %d: %w", dim, dynamo.ErrInvalidDimension)
	}
	m := &Model{
		dim:               dim,
		log:               zap.NewNop(),
		placementAttempts: DefaultPlacementAttempts,
		stats:             engine.Output{RealTimeScale: 1},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	m.bridge = engine.NewBridge(native, dim, m.log)
	return m, nil
}

func (m *Model) Dimension() int { return m.dim }

func (m *Model) Len() int { return len(m.particles) }

// Particles returns the particle list. The slice must not be modified.
func (m *Model) Particles() []*Particle { return m.particles }

// Links returns the link list. The slice must not be modified.
func (m *Model) Links() []*Link { return m.links }

func (m *Model) Particle(i int) *Particle { return m.particles[i] }

// Rand exposes the model's random source for callers that need
// reproducible draws alongside it.
func (m *Model) Rand() *rand.Rand { return m.rng }

func (m *Model) AddParticle(p *Particle) error {
	if m.Active() {
		return dynamo.ErrActive
	}
	if p == nil {
		return dynamo.ErrNilParticle
	}
	if len(p.Position) != m.dim || len(p.Velocity) != m.dim {
		return fmt.Errorf("particle %q: %w", p.Name, dynamo.ErrDimensionMismatch)
	}
	if !p.Position.IsValid() || !p.Velocity.IsValid() {
		return fmt.Errorf("particle %q: %w", p.Name, dynamo.ErrInvalidState)
	}
	if !(p.Mass > 0) {
		return fmt.Errorf("particle %q mass %v: %w", p.Name, p.Mass, dynamo.ErrParameterBounds)
	}
	if m.indexOf(p) >= 0 {
		return dynamo.ErrDuplicateParticle
	}
	if p.Name != "" && m.FindParticle(p.Name) != nil {
		return fmt.Errorf("name %q: %w", p.Name, dynamo.ErrDuplicateParticle)
	}
	m.particles = append(m.particles, p)
	return nil
}

// RemoveParticle removes p and every link touching it.
func (m *Model) RemoveParticle(p *Particle) error {
	if m.Active() {
		return dynamo.ErrActive
	}
	i := m.indexOf(p)
	if i < 0 {
		return fmt.Errorf("remove particle: %w", dynamo.ErrNotFound)
	}
	kept := m.links[:0]
	for _, l := range m.links {
		if !l.Touches(p) {
			kept = append(kept, l)
		}
	}
	for j := len(kept); j < len(m.links); j++ {
		m.links[j] = nil
	}
	m.links = kept
	m.particles = append(m.particles[:i], m.particles[i+1:]...)
	return nil
}

func (m *Model) AddLink(a, b *Particle, strength float64) (*Link, error) {
	if m.Active() {
		return nil, dynamo.ErrActive
	}
	if a == b {
		return nil, dynamo.ErrSelfLink
	}
	if m.indexOf(a) < 0 || m.indexOf(b) < 0 {
		return nil, fmt.Errorf("link endpoint: %w", dynamo.ErrNotFound)
	}
	if m.FindLink(a, b) != nil {
		return nil, dynamo.ErrDuplicateLink
	}
	l := &Link{A: a, B: b, Strength: strength}
	m.links = append(m.links, l)
	return l, nil
}

// RemoveLink removes the link between a and b, if any, and reports whether
// one was removed.
func (m *Model) RemoveLink(a, b *Particle) (bool, error) {
	if m.Active() {
		return false, dynamo.ErrActive
	}
	for i, l := range m.links {
		if l.Joins(a, b) {
			m.links = append(m.links[:i], m.links[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *Model) FindLink(a, b *Particle) *Link {
	for _, l := range m.links {
		if l.Joins(a, b) {
			return l
		}
	}
	return nil
}

// FindParticle returns the first particle with the given name, or nil.
func (m *Model) FindParticle(name string) *Particle {
	for _, p := range m.particles {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (m *Model) ParticleIndex(p *Particle) (int, error) {
	i := m.indexOf(p)
	if i < 0 {
		return -1, fmt.Errorf("particle index: %w", dynamo.ErrNotFound)
	}
	return i, nil
}

func (m *Model) indexOf(p *Particle) int {
	for i, q := range m.particles {
		if q == p {
			return i
		}
	}
	return -1
}

// Clear removes all particles and links.
func (m *Model) Clear() error {
	if m.Active() {
		return dynamo.ErrActive
	}
	m.particles = nil
	m.links = nil
	return nil
}
