package model

import (
	"image/color"

	"github.com/san-kum/hadron/internal/dynamo"
)

var (
	DefaultFillColor   = color.RGBA{R: 100, G: 200, B: 100, A: 255}
	DefaultStrokeColor = color.RGBA{}
)

// Particle is a point mass. Position and Velocity have exactly as many
// components as the model dimension.
type Particle struct {
	Position dynamo.State
	Velocity dynamo.State
	Mass     float64
	// Fixed particles are positioned by the caller; the engine does not
	// move them.
	Fixed bool
	Name  string

	FillColor   color.RGBA
	StrokeColor color.RGBA

	// Tag is free for UI use.
	Tag any
}

func NewParticle(dim int) *Particle {
	return &Particle{
		Position:    make(dynamo.State, dim),
		Velocity:    make(dynamo.State, dim),
		Mass:        1,
		FillColor:   DefaultFillColor,
		StrokeColor: DefaultStrokeColor,
	}
}

// Link is an undirected spring between two particles.
type Link struct {
	A, B     *Particle
	Strength float64
}

// Joins reports whether l connects a and b in either order.
func (l *Link) Joins(a, b *Particle) bool {
	return l.A == a && l.B == b || l.A == b && l.B == a
}

// Touches reports whether p is an endpoint of l.
func (l *Link) Touches(p *Particle) bool {
	return l.A == p || l.B == p
}
