package automation

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/hadron/internal/dynamo"
	"github.com/san-kum/hadron/internal/experiment"
	"github.com/san-kum/hadron/internal/geom"
	"github.com/san-kum/hadron/internal/metrics"
	"github.com/san-kum/hadron/internal/model"
)

// Scenario is a scripted sequence of edits and runs against one model.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step is one scenario action. Which fields matter depends on Action.
// Particles are referenced by name or by "#index".
type Step struct {
	Action string `yaml:"action"`

	Name     string    `yaml:"name"`
	Position []float64 `yaml:"position"`
	Velocity []float64 `yaml:"velocity"`
	Mass     float64   `yaml:"mass"`
	Fixed    bool      `yaml:"fixed"`

	A        string  `yaml:"a"`
	B        string  `yaml:"b"`
	Strength float64 `yaml:"strength"`

	Particles int       `yaml:"particles"`
	Links     int       `yaml:"links"`
	ZoneMin   []float64 `yaml:"zone_min"`
	ZoneMax   []float64 `yaml:"zone_max"`

	Param string  `yaml:"param"`
	Value float64 `yaml:"value"`

	Samples  int     `yaml:"samples"`
	Duration float64 `yaml:"duration"` // seconds
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// Options tune RunScenario.
type Options struct {
	Period time.Duration
	Log    *zap.Logger
}

// RunScenario applies every step to m in order and stops at the first
// failure. It returns the results of the run steps executed so far.
func RunScenario(ctx context.Context, sc *Scenario, m *model.Model, opts Options) ([]*experiment.Result, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	var results []*experiment.Result

	for i, step := range sc.Steps {
		log.Info("scenario step",
			zap.String("scenario", sc.Name),
			zap.Int("step", i+1),
			zap.String("action", step.Action))

		res, err := apply(ctx, m, step, opts.Period)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
		if res != nil {
			results = append(results, res)
		}
	}
	return results, nil
}

func apply(ctx context.Context, m *model.Model, s Step, period time.Duration) (*experiment.Result, error) {
	switch s.Action {
	case "random":
		zone, err := stepZone(m, s)
		if err != nil {
			return nil, err
		}
		_, err = m.AddRandomParticles(s.Particles, s.Links, zone)
		return nil, err

	case "randomize":
		zone, err := stepZone(m, s)
		if err != nil {
			return nil, err
		}
		return nil, m.RandomizePositions(zone)

	case "add":
		p := model.NewParticle(m.Dimension())
		p.Name = s.Name
		p.Fixed = s.Fixed
		if s.Mass != 0 {
			p.Mass = s.Mass
		}
		if err := setVector(p.Position, s.Position); err != nil {
			return nil, err
		}
		if err := setVector(p.Velocity, s.Velocity); err != nil {
			return nil, err
		}
		return nil, m.AddParticle(p)

	case "link":
		a, b, err := pair(m, s)
		if err != nil {
			return nil, err
		}
		strength := s.Strength
		if strength == 0 {
			strength = 1
		}
		_, err = m.AddLink(a, b, strength)
		return nil, err

	case "unlink":
		a, b, err := pair(m, s)
		if err != nil {
			return nil, err
		}
		_, err = m.RemoveLink(a, b)
		return nil, err

	case "remove":
		p, err := Lookup(m, s.Name)
		if err != nil {
			return nil, err
		}
		return nil, m.RemoveParticle(p)

	case "pin", "unpin":
		p, err := Lookup(m, s.Name)
		if err != nil {
			return nil, err
		}
		p.Fixed = s.Action == "pin"
		return nil, nil

	case "move":
		p, err := Lookup(m, s.Name)
		if err != nil {
			return nil, err
		}
		if err := setVector(p.Position, s.Position); err != nil {
			return nil, err
		}
		return nil, setVector(p.Velocity, s.Velocity)

	case "set":
		return nil, m.SetParameter(s.Param, s.Value)

	case "start":
		return nil, m.Start()

	case "stop":
		return nil, m.Stop()

	case "run":
		return experiment.Run(ctx, m, experiment.RunConfig{
			Samples:  s.Samples,
			Duration: time.Duration(s.Duration * float64(time.Second)),
			Period:   period,
			Metrics:  metrics.Default(),
		})
	}
	return nil, fmt.Errorf("unknown action %q: %w", s.Action, dynamo.ErrNotFound)
}

// Lookup resolves a particle reference: a name or "#index".
func Lookup(m *model.Model, ref string) (*model.Particle, error) {
	if idx, ok := strings.CutPrefix(ref, "#"); ok {
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 || i >= m.Len() {
			return nil, fmt.Errorf("particle %s: %w", ref, dynamo.ErrNotFound)
		}
		return m.Particle(i), nil
	}
	if p := m.FindParticle(ref); p != nil && ref != "" {
		return p, nil
	}
	return nil, fmt.Errorf("particle %q: %w", ref, dynamo.ErrNotFound)
}

func pair(m *model.Model, s Step) (*model.Particle, *model.Particle, error) {
	a, err := Lookup(m, s.A)
	if err != nil {
		return nil, nil, err
	}
	b, err := Lookup(m, s.B)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// setVector copies src into dst; an empty src leaves dst unchanged.
func setVector(dst dynamo.State, src []float64) error {
	if len(src) == 0 {
		return nil
	}
	if len(src) != len(dst) {
		return fmt.Errorf("%d components for dimension %d: %w", len(src), len(dst), dynamo.ErrDimensionMismatch)
	}
	copy(dst, src)
	return nil
}

func stepZone(m *model.Model, s Step) (geom.Box, error) {
	if len(s.ZoneMin) == 0 && len(s.ZoneMax) == 0 {
		return geom.CenteredBox(m.Dimension(), 0.5), nil
	}
	return geom.NewBox(s.ZoneMin, s.ZoneMax)
}
