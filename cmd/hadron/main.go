package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/hadron/internal/config"
	"github.com/san-kum/hadron/internal/experiment"
	"github.com/san-kum/hadron/internal/model"
	"github.com/san-kum/hadron/internal/storage"
)

var (
	configFile string
	dataDir    string
	logLevel   string
	preset     string

	// populated by the root PersistentPreRunE
	cfg *config.Config
	log *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "hadron",
		Short:             "force-directed particle and link simulator",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, toml or ini)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".hadron", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "start from a preset, as group/name")

	rootCmd.AddCommand(
		newRunCmd(),
		newRandomCmd(),
		newLiveCmd(),
		newRenderCmd(),
		newScriptCmd(),
		newSweepCmd(),
		newEnsembleCmd(),
		newListCmd(),
		newPlotCmd(),
		newExportCmd(),
		newParamsCmd(),
		newPresetsCmd(),
		newConfigCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup resolves the effective configuration: defaults, then the preset,
// then the config file, then flags.
func setup(cmd *cobra.Command, args []string) error {
	cfg = config.DefaultConfig()
	if preset != "" {
		group, name, ok := strings.Cut(preset, "/")
		if !ok {
			return fmt.Errorf("preset %q: want group/name", preset)
		}
		cfg = config.GetPreset(group, name)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available in %s: %v)", preset, group, config.ListPresets(group))
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var err error
	log, err = config.NewLogger(cfg.Logging)
	return err
}

// newExperiment builds an experiment from cfg and fills its model either
// from a Hadronium document or from the random section of the config.
func newExperiment(modelFile string, l *zap.Logger) (*experiment.Experiment, error) {
	reg := experiment.NewRegistry()
	if modelFile == "" {
		exp, err := experiment.New(cfg, reg, l)
		if err != nil {
			return nil, err
		}
		if err := exp.Populate(); err != nil {
			exp.Close()
			return nil, err
		}
		return exp, nil
	}

	var exp *experiment.Experiment
	_, err := storage.LoadFile(modelFile, func(dim int) (*model.Model, error) {
		cfg.Dimension = dim
		var err error
		exp, err = experiment.New(cfg, reg, l)
		if err != nil {
			return nil, err
		}
		return exp.Model(), nil
	})
	if err != nil {
		if exp != nil {
			exp.Close()
		}
		return nil, err
	}
	return exp, nil
}

func runMetadata(name string, m *model.Model) storage.RunMetadata {
	params := make(map[string]float64, len(config.Descriptors))
	for _, d := range config.Descriptors {
		if v, err := m.Parameter(d.Name); err == nil {
			params[d.Name] = v
		}
	}
	return storage.RunMetadata{
		Name:       name,
		Seed:       cfg.Random.Seed,
		Dimension:  m.Dimension(),
		Particles:  m.Len(),
		Links:      len(m.Links()),
		Engine:     cfg.Engine.Kind,
		Integrator: cfg.Engine.Integrator,
		Parameters: params,
	}
}
