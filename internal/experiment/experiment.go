package experiment

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/hadron/internal/config"
	"github.com/san-kum/hadron/internal/dynamo"
	"github.com/san-kum/hadron/internal/engine"
	"github.com/san-kum/hadron/internal/metrics"
	"github.com/san-kum/hadron/internal/model"
)

// Experiment is a model wired to the engine a configuration names.
type Experiment struct {
	cfg    *config.Config
	native engine.Native
	model  *model.Model
	log    *zap.Logger
}

// New builds the engine and an empty model for cfg.
func New(cfg *config.Config, reg *Registry, log *zap.Logger) (*Experiment, error) {
	if log == nil {
		log = zap.NewNop()
	}
	integ, err := reg.Integrator(cfg.Engine.Integrator)
	if err != nil {
		return nil, err
	}
	native, err := reg.NewEngine(cfg.Engine.Kind, EngineOptions{
		Library:    cfg.Engine.Library,
		Integrator: integ,
		SyncPeriod: cfg.SyncPeriod(),
		Logger:     log.Named("engine"),
	})
	if err != nil {
		return nil, err
	}

	opts := []model.Option{model.WithLogger(log)}
	if cfg.Random.Seed != 0 {
		opts = append(opts, model.WithSeed(cfg.Random.Seed))
	}
	m, err := model.New(cfg.Dimension, native, opts...)
	if err != nil {
		closeNative(native)
		return nil, err
	}
	m.SetInput(cfg.Parameters.Input())

	return &Experiment{cfg: cfg, native: native, model: m, log: log}, nil
}

func (e *Experiment) Model() *model.Model { return e.model }

// Populate adds the random particles and links the configuration asks for.
func (e *Experiment) Populate() error {
	zone, err := e.cfg.Zone()
	if err != nil {
		return err
	}
	_, err = e.model.AddRandomParticles(e.cfg.Random.Particles, e.cfg.Random.Links, zone)
	return err
}

func (e *Experiment) Run(ctx context.Context, rc RunConfig) (*Result, error) {
	if rc.Period == 0 {
		rc.Period = e.cfg.RefreshPeriod()
	}
	return Run(ctx, e.model, rc)
}

// Close stops the model and releases the engine.
func (e *Experiment) Close() error {
	err := e.model.Close()
	if cerr := closeNative(e.native); err == nil {
		err = cerr
	}
	return err
}

func closeNative(n engine.Native) error {
	if c, ok := n.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// RunConfig bounds a headless run. The run ends after Samples refreshes or
// once Duration has passed, whichever comes first; zero disables a bound.
type RunConfig struct {
	Samples  int
	Duration time.Duration
	Period   time.Duration
	Metrics  []metrics.Metric
	OnSample func(Sample)
}

// Sample is one refresh of a run.
type Sample struct {
	Elapsed         time.Duration
	StepCount       int64
	StepElapsedTime float64
	RealTimeScale   float64
	Metrics         map[string]float64
}

type Result struct {
	Samples []Sample
	Metrics map[string]float64
	Wall    time.Duration
}

// Run starts m if needed, samples it on every refresh and returns the
// trace. A model started here is stopped again before returning.
func Run(ctx context.Context, m *model.Model, rc RunConfig) (res *Result, err error) {
	if rc.Samples <= 0 && rc.Duration <= 0 {
		return nil, fmt.Errorf("run needs a sample count or a duration: %w", dynamo.ErrParameterBounds)
	}
	if !m.Active() {
		if err := m.Start(); err != nil {
			return nil, err
		}
		defer func() {
			if serr := m.Stop(); err == nil && serr != nil {
				err = fmt.Errorf("stop model: %w", serr)
			}
		}()
	}
	for _, mt := range rc.Metrics {
		mt.Reset()
	}

	res = &Result{}
	start := time.Now()
	r := model.NewRefresher(m, rc.Period)
	r.OnRefresh = func(m *model.Model) {
		elapsed := time.Since(start)
		for _, mt := range rc.Metrics {
			mt.Observe(m.Particles(), elapsed.Seconds())
		}
		stats := m.Stats()
		s := Sample{
			Elapsed:         elapsed,
			StepCount:       stats.StepCount,
			StepElapsedTime: stats.StepElapsedTime,
			RealTimeScale:   stats.RealTimeScale,
			Metrics:         metrics.Snapshot(rc.Metrics),
		}
		res.Samples = append(res.Samples, s)
		if rc.OnSample != nil {
			rc.OnSample(s)
		}
	}

	ticker := time.NewTicker(r.Period())
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		case <-ticker.C:
			if _, err = r.Tick(); err != nil {
				break loop
			}
			if rc.Samples > 0 && len(res.Samples) >= rc.Samples {
				break loop
			}
			if rc.Duration > 0 && time.Since(start) >= rc.Duration {
				break loop
			}
		}
	}

	res.Wall = time.Since(start)
	res.Metrics = metrics.Snapshot(rc.Metrics)
	return res, err
}
