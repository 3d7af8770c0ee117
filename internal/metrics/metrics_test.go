package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/hadron/internal/dynamo"
	"github.com/san-kum/hadron/internal/model"
)

func particle(mass float64, pos, vel dynamo.State) *model.Particle {
	p := model.NewParticle(len(pos))
	p.Mass = mass
	copy(p.Position, pos)
	copy(p.Velocity, vel)
	return p
}

func TestKineticEnergy(t *testing.T) {
	m := NewKineticEnergy()
	ps := []*model.Particle{
		particle(2, dynamo.State{0, 0}, dynamo.State{3, 4}),
		particle(1, dynamo.State{1, 0}, dynamo.State{0, 2}),
	}

	m.Observe(ps, 0)
	if got := m.Value(); math.Abs(got-27) > 1e-12 {
		t.Errorf("expected energy 27, got %f", got)
	}

	ps[0].Velocity.Zero()
	m.Observe(ps, 1)
	if got := m.Value(); math.Abs(got-2) > 1e-12 {
		t.Errorf("expected last observation 2, got %f", got)
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestStability(t *testing.T) {
	s := NewStability(10)
	if s.Value() != 1 {
		t.Error("no observations should read as stable")
	}

	ok := []*model.Particle{particle(1, dynamo.State{1}, dynamo.State{1})}
	far := []*model.Particle{particle(1, dynamo.State{11}, dynamo.State{0})}
	bad := []*model.Particle{particle(1, dynamo.State{0}, dynamo.State{math.NaN()})}

	s.Observe(ok, 0)
	s.Observe(far, 1)
	s.Observe(bad, 2)
	s.Observe(ok, 3)
	if got := s.Value(); got != 0.5 {
		t.Errorf("expected stability 0.5, got %f", got)
	}
}

func TestMeanSpeedSkipsFixed(t *testing.T) {
	m := NewMeanSpeed()
	pinned := particle(1, dynamo.State{0, 0}, dynamo.State{100, 0})
	pinned.Fixed = true
	ps := []*model.Particle{
		particle(1, dynamo.State{0, 0}, dynamo.State{3, 4}),
		particle(1, dynamo.State{0, 0}, dynamo.State{1, 0}),
		pinned,
	}
	m.Observe(ps, 0)
	if got := m.Value(); got != 3 {
		t.Errorf("expected mean speed 3, got %f", got)
	}
}

func TestSnapshot(t *testing.T) {
	ms := Default()
	ps := []*model.Particle{particle(1, dynamo.State{0}, dynamo.State{2})}
	for _, m := range ms {
		m.Observe(ps, 0)
	}
	got := Snapshot(ms)
	if len(got) != 3 || got["kinetic_energy"] != 2 || got["stability"] != 1 || got["mean_speed"] != 2 {
		t.Errorf("unexpected snapshot %v", got)
	}
}

func TestCloneAll(t *testing.T) {
	ms := []Metric{NewKineticEnergy(), NewStability(1), NewMeanSpeed()}
	ps := []*model.Particle{particle(1, dynamo.State{5, 0}, dynamo.State{1, 0})}
	for _, m := range ms {
		m.Observe(ps, 0)
	}

	clones := CloneAll(ms)
	if len(clones) != len(ms) {
		t.Fatalf("expected %d clones, got %d", len(ms), len(clones))
	}
	for i, c := range clones {
		if c == ms[i] {
			t.Errorf("%s: clone shares the instance", c.Name())
		}
		if c.Name() != ms[i].Name() {
			t.Errorf("clone %d named %s, want %s", i, c.Name(), ms[i].Name())
		}
	}
	if got := clones[0].Value(); got != 0 {
		t.Errorf("cloned energy = %v, want 0", got)
	}
	// the threshold carries over: position 5 is out of bounds for both
	clones[1].Observe(ps, 0)
	if got := clones[1].Value(); got != ms[1].Value() {
		t.Errorf("cloned stability = %v, want %v", got, ms[1].Value())
	}
	if CloneAll(nil) != nil {
		t.Error("CloneAll(nil) should be nil")
	}
}
