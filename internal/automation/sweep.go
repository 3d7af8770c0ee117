package automation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/hadron/internal/config"
	"github.com/san-kum/hadron/internal/dynamo"
	"github.com/san-kum/hadron/internal/experiment"
)

// ParameterSweep runs the same random graph once per parameter value.
type ParameterSweep struct {
	Param    string
	Min, Max float64
	Steps    int
	Run      experiment.RunConfig
}

type SweepResult struct {
	Value   float64
	Samples int
	Metrics map[string]float64
}

// RunSweep builds a fresh experiment per value from cfg, so every point
// starts from the same seeded topology. The values are spaced on the
// parameter's slider scale.
func RunSweep(ctx context.Context, cfg *config.Config, reg *experiment.Registry, sweep ParameterSweep, log *zap.Logger) ([]SweepResult, error) {
	if log == nil {
		log = zap.NewNop()
	}
	desc, err := config.Lookup(sweep.Param)
	if err != nil {
		return nil, err
	}
	if sweep.Steps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps: %w", dynamo.ErrParameterBounds)
	}
	if err := desc.Validate(sweep.Min); err != nil {
		return nil, err
	}
	if err := desc.Validate(sweep.Max); err != nil {
		return nil, err
	}

	lo, hi := desc.ToSlider(sweep.Min), desc.ToSlider(sweep.Max)
	results := make([]SweepResult, 0, sweep.Steps)
	for i := 0; i < sweep.Steps; i++ {
		value := desc.FromSlider(lo + (hi-lo)*float64(i)/float64(sweep.Steps-1))
		if i == 0 {
			value = sweep.Min
		} else if i == sweep.Steps-1 {
			value = sweep.Max
		}

		res, err := runOnce(ctx, cfg, reg, sweep.Run, log, map[string]float64{sweep.Param: value})
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.Param, value, err)
		}
		results = append(results, SweepResult{Value: value, Samples: len(res.Samples), Metrics: res.Metrics})
		log.Info("sweep point",
			zap.Int("point", i+1),
			zap.Int("of", sweep.Steps),
			zap.String("param", sweep.Param),
			zap.Float64("value", value))
	}
	return results, nil
}
