package model

import (
	"fmt"
	"image/color"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/hadron/internal/dynamo"
	"github.com/san-kum/hadron/internal/geom"
)

// MaxLinks is the number of distinct undirected links among n particles.
func MaxLinks(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// AddRandomParticles appends count particles placed inside zone and joins
// linkCount random pairs of them. Nothing is changed when any argument is
// rejected.
func (m *Model) AddRandomParticles(count, linkCount int, zone geom.Box) ([]*Particle, error) {
	if m.Active() {
		return nil, dynamo.ErrActive
	}
	if count < 0 || linkCount < 0 {
		return nil, fmt.Errorf("counts %d/%d: %w", count, linkCount, dynamo.ErrParameterBounds)
	}
	if limit := MaxLinks(count); linkCount > limit {
		return nil, fmt.Errorf("%d particles cannot have more than %d links: %w", count, limit, dynamo.ErrTooManyLinks)
	}
	if zone.Dim() != m.dim || len(zone.P2) != m.dim {
		return nil, fmt.Errorf("zone: %w", dynamo.ErrDimensionMismatch)
	}

	batch := make([]*Particle, count)
	for i := range batch {
		p := NewParticle(m.dim)
		p.FillColor = color.RGBA{
			R: uint8(m.rng.Intn(256)),
			G: uint8(m.rng.Intn(256)),
			B: uint8(m.rng.Intn(256)),
			A: 0xff,
		}
		batch[i] = p
	}
	m.place(batch, zone)
	m.particles = append(m.particles, batch...)

	for _, pair := range m.randomPairs(count, linkCount) {
		m.links = append(m.links, &Link{A: batch[pair[0]], B: batch[pair[1]], Strength: 1})
	}
	m.log.Info("random particles added",
		zap.Int("particles", count),
		zap.Int("links", linkCount))
	return batch, nil
}

// RandomizePositions re-places every particle inside zone and stops it.
func (m *Model) RandomizePositions(zone geom.Box) error {
	if m.Active() {
		return dynamo.ErrActive
	}
	if zone.Dim() != m.dim || len(zone.P2) != m.dim {
		return fmt.Errorf("zone: %w", dynamo.ErrDimensionMismatch)
	}
	m.place(m.particles, zone)
	return nil
}

// place draws positions so that no two particles of the batch are closer
// than half the average spacing. Each particle gets at most
// placementAttempts draws; the last draw is kept when none clears.
func (m *Model) place(batch []*Particle, zone geom.Box) {
	if len(batch) == 0 {
		return
	}
	spacing := math.Pow(zone.Volume(), 1/float64(m.dim)) / float64(len(batch))
	minDist := spacing / 2
	attempts := m.placementAttempts
	if attempts < 1 {
		attempts = 1
	}

	crowded := 0
	for i, p := range batch {
		p.Velocity.Zero()
		ok := false
		for try := 0; try < attempts && !ok; try++ {
			zone.Sample(m.rng, p.Position)
			ok = true
			for _, q := range batch[:i] {
				if q.Position.Dist(p.Position) < minDist {
					ok = false
					break
				}
			}
		}
		if !ok {
			crowded++
		}
	}
	if crowded > 0 {
		m.log.Warn("placement spacing not met",
			zap.Int("particles", crowded),
			zap.Float64("min_distance", minDist),
			zap.Int("attempts", attempts))
	}
}

// randomPairs picks k distinct unordered index pairs out of n. Sparse
// requests use rejection; dense ones shuffle the full pair list so the
// draw always terminates quickly.
func (m *Model) randomPairs(n, k int) [][2]int {
	if k == 0 {
		return nil
	}
	pairs := make([][2]int, 0, k)
	if k <= MaxLinks(n)/2 {
		seen := make(map[[2]int]struct{}, k)
		for len(pairs) < k {
			a, b := m.rng.Intn(n), m.rng.Intn(n)
			if a == b {
				continue
			}
			key := [2]int{min(a, b), max(a, b)}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			pairs = append(pairs, [2]int{a, b})
		}
		return pairs
	}

	all := make([][2]int, 0, MaxLinks(n))
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			all = append(all, [2]int{a, b})
		}
	}
	m.rng.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return append(pairs, all[:k]...)
}
