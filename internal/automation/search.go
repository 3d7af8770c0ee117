package automation

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/san-kum/hadron/internal/config"
	"github.com/san-kum/hadron/internal/dynamo"
	"github.com/san-kum/hadron/internal/experiment"
	"github.com/san-kum/hadron/internal/metrics"
)

// RunEnsemble runs the configured random graph once per seed in
// seedStart, seedStart+1, ... concurrently, each on its own engine. Every
// run observes its own clones of rc.Metrics; the caller's instances are
// left untouched.
func RunEnsemble(ctx context.Context, cfg *config.Config, reg *experiment.Registry, runs int, seedStart int64, rc experiment.RunConfig, log *zap.Logger) ([]*experiment.Result, error) {
	if runs < 1 {
		return nil, fmt.Errorf("ensemble of %d runs: %w", runs, dynamo.ErrParameterBounds)
	}
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]*experiment.Result, runs)
	errs := make([]error, runs)

	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			c := *cfg
			c.Random.Seed = seedStart + int64(idx)
			own := rc
			own.Metrics = metrics.CloneAll(rc.Metrics)
			results[idx], errs[idx] = runOnce(ctx, &c, reg, own, log.With(zap.Int64("seed", c.Random.Seed)), nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("seed %d: %w", seedStart+int64(i), err)
		}
	}
	return results, nil
}

// GridSearch tries every combination of parameter values and keeps the one
// with the smallest final Metric.
type GridSearch struct {
	Params []string
	Values [][]float64
	Metric string
	Run    experiment.RunConfig
}

func (g *GridSearch) Search(ctx context.Context, cfg *config.Config, reg *experiment.Registry, log *zap.Logger) (map[string]float64, float64, error) {
	if len(g.Params) != len(g.Values) {
		return nil, 0, fmt.Errorf("%d parameters, %d value lists: %w", len(g.Params), len(g.Values), dynamo.ErrParameterBounds)
	}
	for i, name := range g.Params {
		d, err := config.Lookup(name)
		if err != nil {
			return nil, 0, err
		}
		for _, v := range g.Values[i] {
			if err := d.Validate(v); err != nil {
				return nil, 0, err
			}
		}
	}
	if log == nil {
		log = zap.NewNop()
	}

	best := math.Inf(1)
	var bestParams map[string]float64
	err := g.searchRecursive(ctx, cfg, reg, log, 0, map[string]float64{}, &best, &bestParams)
	if err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, fmt.Errorf("metric %q: %w", g.Metric, dynamo.ErrNotFound)
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	cfg *config.Config,
	reg *experiment.Registry,
	log *zap.Logger,
	depth int,
	current map[string]float64,
	best *float64,
	bestParams *map[string]float64,
) error {
	if depth == len(g.Params) {
		res, err := runOnce(ctx, cfg, reg, g.Run, log, current)
		if err != nil {
			return err
		}
		val, ok := res.Metrics[g.Metric]
		if !ok || math.IsNaN(val) {
			return nil
		}
		log.Debug("grid point", zap.Any("params", current), zap.Float64(g.Metric, val))
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64, len(current))
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	name := g.Params[depth]
	for _, val := range g.Values[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[name] = val
		if err := g.searchRecursive(ctx, cfg, reg, log, depth+1, next, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}

// runOnce builds a fresh experiment for cfg, applies params and runs it.
func runOnce(ctx context.Context, cfg *config.Config, reg *experiment.Registry, rc experiment.RunConfig, log *zap.Logger, params map[string]float64) (*experiment.Result, error) {
	exp, err := experiment.New(cfg, reg, log)
	if err != nil {
		return nil, err
	}
	defer exp.Close()

	if err := exp.Populate(); err != nil {
		return nil, err
	}
	for name, v := range params {
		if err := exp.Model().SetParameter(name, v); err != nil {
			return nil, err
		}
	}
	if rc.Metrics == nil {
		rc.Metrics = metrics.Default()
	}
	return exp.Run(ctx, rc)
}
