package experiment

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/hadron/internal/dynamo"
	"github.com/san-kum/hadron/internal/engine"
	"github.com/san-kum/hadron/internal/integrators"
	"github.com/san-kum/hadron/internal/metrics"
)

// EngineOptions carry what any engine constructor may need.
type EngineOptions struct {
	Library    string
	Integrator func() dynamo.Integrator
	SyncPeriod time.Duration
	Logger     *zap.Logger
}

type Registry struct {
	engines     map[string]func(EngineOptions) (engine.Native, error)
	integrators map[string]func() dynamo.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		engines:     make(map[string]func(EngineOptions) (engine.Native, error)),
		integrators: make(map[string]func() dynamo.Integrator),
	}

	r.engines["local"] = func(opts EngineOptions) (engine.Native, error) {
		return engine.NewLocal(engine.LocalOptions{
			NewIntegrator: opts.Integrator,
			SyncPeriod:    opts.SyncPeriod,
			Logger:        opts.Logger,
		}), nil
	}
	r.engines["native"] = func(opts EngineOptions) (engine.Native, error) {
		lib, err := engine.OpenLibrary(opts.Library)
		if err != nil {
			return nil, err
		}
		return lib, nil
	}

	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewAdaptiveEuler() }
	r.integrators["rk4"] = func() dynamo.Integrator { return integrators.NewAdaptiveRK4() }

	return r
}

func (r *Registry) NewEngine(kind string, opts EngineOptions) (engine.Native, error) {
	fn, ok := r.engines[kind]
	if !ok {
		return nil, fmt.Errorf("unknown engine %q: %w", kind, dynamo.ErrNotFound)
	}
	return fn(opts)
}

// Integrator returns the constructor registered under name.
func (r *Registry) Integrator(name string) (func() dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator %q: %w", name, dynamo.ErrNotFound)
	}
	return fn, nil
}

func (r *Registry) ListEngines() []string {
	return sortedKeys(r.engines)
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.integrators)
}

func (r *Registry) DefaultMetrics() []metrics.Metric {
	return metrics.Default()
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
