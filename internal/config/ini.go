package config

import (
	"path/filepath"
	"strings"

	"gopkg.in/gcfg.v1"
)

// iniFile is the section layout of an INI config:
//
//	[hadron]
//	dimension = 3
//
//	[engine]
//	integrator = rk4
//	sync-period = 0.02
//
//	[random]
//	zone-min = -1
//	zone-min = -1
//
// Multi-valued variables such as zone-min are repeated once per axis.
type iniFile struct {
	Hadron struct {
		Dimension int
	}
	Engine     EngineConfig
	Parameters ParametersConfig
	View       ViewConfig
	Random     RandomConfig
	Logging    LoggingConfig
}

func isINI(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini", ".gcfg", ".conf":
		return true
	}
	return false
}

// readINI parses str over cfg. Sections and variables absent from str keep
// their current values.
func readINI(str string, cfg *Config) error {
	f := iniFile{
		Engine:     cfg.Engine,
		Parameters: cfg.Parameters,
		View:       cfg.View,
		Logging:    cfg.Logging,
	}
	f.Hadron.Dimension = cfg.Dimension
	// gcfg appends to slices, so zone bounds start empty
	f.Random = cfg.Random
	f.Random.ZoneMin, f.Random.ZoneMax = nil, nil

	if err := gcfg.ReadStringInto(&f, str); err != nil {
		return err
	}

	cfg.Dimension = f.Hadron.Dimension
	cfg.Engine = f.Engine
	cfg.Parameters = f.Parameters
	cfg.View = f.View
	cfg.Logging = f.Logging
	zmin, zmax := f.Random.ZoneMin, f.Random.ZoneMax
	f.Random.ZoneMin, f.Random.ZoneMax = cfg.Random.ZoneMin, cfg.Random.ZoneMax
	if len(zmin) > 0 {
		f.Random.ZoneMin = zmin
	}
	if len(zmax) > 0 {
		f.Random.ZoneMax = zmax
	}
	cfg.Random = f.Random
	return nil
}
