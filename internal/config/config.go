package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/hadron/internal/dynamo"
	"github.com/san-kum/hadron/internal/engine"
	"github.com/san-kum/hadron/internal/geom"
)

const (
	DefaultDimension     = 2
	DefaultEngine        = "local"
	DefaultIntegrator    = "euler"
	DefaultSyncPeriod    = 0.03
	DefaultViewScale     = 1.0
	DefaultRefreshPeriod = 0.035
	DefaultParticleSize  = 8.0
	DefaultParticles     = 20
	DefaultLinks         = 30
)

type Config struct {
	Dimension  int              `yaml:"dimension" toml:"dimension"`
	Engine     EngineConfig     `yaml:"engine" toml:"engine"`
	Parameters ParametersConfig `yaml:"parameters" toml:"parameters"`
	View       ViewConfig       `yaml:"view" toml:"view"`
	Random     RandomConfig     `yaml:"random" toml:"random"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
}

type EngineConfig struct {
	Kind       string  `yaml:"kind" toml:"kind"`             // "local" or "native"
	Library    string  `yaml:"library" toml:"library"`       // shared library path for "native"
	Integrator string  `yaml:"integrator" toml:"integrator"` // local engine only
	SyncPeriod float64 `yaml:"sync_period" toml:"sync_period" gcfg:"sync-period"`
}

// ParametersConfig mirrors engine.Input with file-friendly keys.
type ParametersConfig struct {
	Viscosity          float64 `yaml:"viscosity" toml:"viscosity"`
	ParticleAttraction float64 `yaml:"particle_attraction" toml:"particle_attraction" gcfg:"particle-attraction"`
	ParticlePower      float64 `yaml:"particle_power" toml:"particle_power" gcfg:"particle-power"`
	LinkAttraction     float64 `yaml:"link_attraction" toml:"link_attraction" gcfg:"link-attraction"`
	LinkPower          float64 `yaml:"link_power" toml:"link_power" gcfg:"link-power"`
	StretchAttraction  float64 `yaml:"stretch_attraction" toml:"stretch_attraction" gcfg:"stretch-attraction"`
	Gravity            float64 `yaml:"gravity" toml:"gravity"`
	Accuracy           float64 `yaml:"accuracy" toml:"accuracy"`
	TimeScale          float64 `yaml:"time_scale" toml:"time_scale" gcfg:"time-scale"`
}

type ViewConfig struct {
	ViewScale     float64 `yaml:"view_scale" toml:"view_scale" gcfg:"view-scale"`
	Rotation      float64 `yaml:"rotation" toml:"rotation"`                                   // radians, 3D only
	RefreshPeriod float64 `yaml:"refresh_period" toml:"refresh_period" gcfg:"refresh-period"` // seconds
	ParticleSize  float64 `yaml:"particle_size" toml:"particle_size" gcfg:"particle-size"`
}

type RandomConfig struct {
	Particles int       `yaml:"particles" toml:"particles"`
	Links     int       `yaml:"links" toml:"links"`
	Seed      int64     `yaml:"seed" toml:"seed"`
	ZoneMin   []float64 `yaml:"zone_min,omitempty" toml:"zone_min,omitempty" gcfg:"zone-min"`
	ZoneMax   []float64 `yaml:"zone_max,omitempty" toml:"zone_max,omitempty" gcfg:"zone-max"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // "json" or "console"
	File   string `yaml:"file,omitempty" toml:"file,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Dimension: DefaultDimension,
		Engine: EngineConfig{
			Kind:       DefaultEngine,
			Integrator: DefaultIntegrator,
			SyncPeriod: DefaultSyncPeriod,
		},
		Parameters: ParametersFromInput(engine.DefaultParameters().In),
		View: ViewConfig{
			ViewScale:     DefaultViewScale,
			RefreshPeriod: DefaultRefreshPeriod,
			ParticleSize:  DefaultParticleSize,
		},
		Random: RandomConfig{
			Particles: DefaultParticles,
			Links:     DefaultLinks,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML, TOML or INI file, chosen by extension, over the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	switch {
	case isTOML(path):
		err = toml.Unmarshal(data, cfg)
	case isINI(path):
		err = readINI(string(data), cfg)
	default:
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if isINI(path) {
		return fmt.Errorf("save config %s: ini files are read-only", path)
	}
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func (c *Config) Validate() error {
	if c.Dimension < 1 || c.Dimension > 3 {
		return fmt.Errorf("dimension %d: %w", c.Dimension, dynamo.ErrInvalidDimension)
	}
	switch c.Engine.Kind {
	case "local":
	case "native":
		if c.Engine.Library == "" {
			return fmt.Errorf("native engine needs a library path: %w", dynamo.ErrParameterBounds)
		}
	default:
		return fmt.Errorf("engine kind %q: %w", c.Engine.Kind, dynamo.ErrNotFound)
	}
	if c.Engine.SyncPeriod < 0 {
		return fmt.Errorf("sync period %v: %w", c.Engine.SyncPeriod, dynamo.ErrParameterBounds)
	}

	in := c.Parameters.Input()
	for _, d := range Descriptors {
		p, err := in.Field(d.Name)
		if err != nil {
			return err
		}
		if err := d.Validate(*p); err != nil {
			return err
		}
	}

	if !(c.View.ViewScale > 0) || !(c.View.RefreshPeriod > 0) {
		return fmt.Errorf("view scale and refresh period must be positive: %w", dynamo.ErrParameterBounds)
	}
	if c.Random.Particles < 0 || c.Random.Links < 0 {
		return fmt.Errorf("random counts: %w", dynamo.ErrParameterBounds)
	}
	if _, err := c.Zone(); err != nil {
		return err
	}
	return nil
}

// Zone is the placement box for random generation. Without explicit
// corners it is the unit cube around the origin.
func (c *Config) Zone() (geom.Box, error) {
	if len(c.Random.ZoneMin) == 0 && len(c.Random.ZoneMax) == 0 {
		return geom.CenteredBox(c.Dimension, 0.5), nil
	}
	if len(c.Random.ZoneMin) != c.Dimension {
		return geom.Box{}, fmt.Errorf("zone has %d components: %w", len(c.Random.ZoneMin), dynamo.ErrDimensionMismatch)
	}
	return geom.NewBox(c.Random.ZoneMin, c.Random.ZoneMax)
}

func (c *Config) SyncPeriod() time.Duration {
	return seconds(c.Engine.SyncPeriod)
}

func (c *Config) RefreshPeriod() time.Duration {
	return seconds(c.View.RefreshPeriod)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func (p ParametersConfig) Input() engine.Input {
	return engine.Input{
		Viscosity:          p.Viscosity,
		ParticleAttraction: p.ParticleAttraction,
		ParticlePower:      p.ParticlePower,
		LinkAttraction:     p.LinkAttraction,
		LinkPower:          p.LinkPower,
		StretchAttraction:  p.StretchAttraction,
		Gravity:            p.Gravity,
		Accuracy:           p.Accuracy,
		TimeScale:          p.TimeScale,
	}
}

func ParametersFromInput(in engine.Input) ParametersConfig {
	return ParametersConfig{
		Viscosity:          in.Viscosity,
		ParticleAttraction: in.ParticleAttraction,
		ParticlePower:      in.ParticlePower,
		LinkAttraction:     in.LinkAttraction,
		LinkPower:          in.LinkPower,
		StretchAttraction:  in.StretchAttraction,
		Gravity:            in.Gravity,
		Accuracy:           in.Accuracy,
		TimeScale:          in.TimeScale,
	}
}
