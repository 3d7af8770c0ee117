package config

import "sort"

// Presets groups ready-made configurations by dimension ("1d", "2d", "3d").
var Presets = map[string]map[string]func() *Config{
	"1d": {
		"chain": preset(1, func(c *Config) {
			c.Parameters.StretchAttraction = 5
			c.Random.Particles, c.Random.Links = 10, 9
		}),
		"line": preset(1, func(c *Config) {
			c.Random.Particles, c.Random.Links = 6, 0
			c.Parameters.ParticleAttraction = -5
		}),
	},
	"2d": {
		"web": preset(2, func(c *Config) {
			c.Random.Particles, c.Random.Links = 20, 30
		}),
		"mesh": preset(2, func(c *Config) {
			c.Random.Particles, c.Random.Links = 12, 66
			c.Parameters.LinkAttraction = 2
		}),
		"drop": preset(2, func(c *Config) {
			c.Random.Particles, c.Random.Links = 8, 7
			c.Parameters.Gravity = 9.81
			c.Parameters.Viscosity = 1
		}),
	},
	"3d": {
		"cloud": preset(3, func(c *Config) {
			c.Random.Particles, c.Random.Links = 40, 40
			c.View.Rotation = 0.5
		}),
		"molecule": preset(3, func(c *Config) {
			c.Random.Particles, c.Random.Links = 6, 15
			c.Engine.Integrator = "rk4"
		}),
	},
}

func preset(dim int, edit func(*Config)) func() *Config {
	return func() *Config {
		c := DefaultConfig()
		c.Dimension = dim
		edit(c)
		return c
	}
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(group, name string) *Config {
	presets, ok := Presets[group]
	if !ok {
		return nil
	}
	build, ok := presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets(group string) []string {
	presets, ok := Presets[group]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
