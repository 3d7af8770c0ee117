package model

import (
	"context"
	"time"
)

// DefaultRefreshPeriod matches a 30 Hz display.
const DefaultRefreshPeriod = 33 * time.Millisecond

// Refresher drives Model.Refresh from a single goroutine, skipping the
// exchange when the engine has not completed a step since the last one.
type Refresher struct {
	model  *Model
	period time.Duration

	lastSteps int64

	// OnRefresh, if set, runs after every exchange on the refreshing
	// goroutine.
	OnRefresh func(*Model)
}

func NewRefresher(m *Model, period time.Duration) *Refresher {
	if period <= 0 {
		period = DefaultRefreshPeriod
	}
	return &Refresher{model: m, period: period, lastSteps: -1}
}

func (r *Refresher) Period() time.Duration { return r.period }

// Tick refreshes the model if the engine advanced and reports whether an
// exchange happened.
func (r *Refresher) Tick() (bool, error) {
	if !r.model.Active() {
		r.lastSteps = -1
		return false, nil
	}
	steps := r.model.ActualStepCount()
	if steps == r.lastSteps {
		return false, nil
	}
	if err := r.model.Refresh(); err != nil {
		return false, err
	}
	r.lastSteps = steps
	if r.OnRefresh != nil {
		r.OnRefresh(r.model)
	}
	return true, nil
}

// Run ticks every period until ctx is done or a refresh fails.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.Tick(); err != nil {
				return err
			}
		}
	}
}
