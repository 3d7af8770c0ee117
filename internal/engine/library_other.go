//go:build !darwin && !linux

package engine

import (
	"fmt"

	"github.com/san-kum/hadron/internal/dynamo"
)

// Library is unavailable on this platform; use the local engine.
type Library struct{}

func OpenLibrary(path string) (*Library, error) {
	return nil, fmt.Errorf("engine library %s: %w: dynamic loading unsupported on this platform", path, dynamo.ErrEngineFailure)
}

func (l *Library) Close() error { return nil }

func (l *Library) Start(*Parameters, int, []float64, []ParticleInfo, []Link) (Handle, error) {
	return 0, dynamo.ErrEngineFailure
}

func (l *Library) Sync(Handle, *Parameters, []float64, []ParticleInfo) error {
	return dynamo.ErrEngineFailure
}

func (l *Library) StepCount(Handle) int64 { return 0 }

func (l *Library) Stop(Handle) error { return dynamo.ErrEngineFailure }
