// Package geom holds the small geometric value types shared by the model,
// the view transform and the renderers.
package geom

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/hadron/internal/dynamo"
)

// Point is a position in screen space.
type Point struct {
	X, Y float64
}

// Vec is a displacement in screen space.
type Vec struct {
	X, Y float64
}

func (p Point) Add(v Vec) Point { return Point{p.X + v.X, p.Y + v.Y} }
func (p Point) Sub(q Point) Vec { return Vec{p.X - q.X, p.Y - q.Y} }

func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

func (v Vec) Scale(f float64) Vec { return Vec{v.X * f, v.Y * f} }

// Rect is an axis aligned screen rectangle given by two corners.
type Rect struct {
	Min, Max Point
}

// RectFromPoints orders the corners so Min is top-left.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		Min: Point{math.Min(a.X, b.X), math.Min(a.Y, b.Y)},
		Max: Point{math.Max(a.X, b.X), math.Max(a.Y, b.Y)},
	}
}

func (r Rect) Width() float64  { return r.Max.X - r.Min.X }
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Box is an axis aligned interval in world space. NewBox keeps
// P1[i] <= P2[i] on every axis.
type Box struct {
	P1, P2 dynamo.State
}

func NewBox(a, b dynamo.State) (Box, error) {
	if len(a) != len(b) {
		return Box{}, fmt.Errorf("box corners %d and %d: %w", len(a), len(b), dynamo.ErrDimensionMismatch)
	}
	p1 := make(dynamo.State, len(a))
	p2 := make(dynamo.State, len(a))
	for i := range a {
		p1[i] = math.Min(a[i], b[i])
		p2[i] = math.Max(a[i], b[i])
	}
	return Box{P1: p1, P2: p2}, nil
}

// CenteredBox returns the cube [-half, half]^dim.
func CenteredBox(dim int, half float64) Box {
	p1 := make(dynamo.State, dim)
	p2 := make(dynamo.State, dim)
	for i := 0; i < dim; i++ {
		p1[i] = -half
		p2[i] = half
	}
	return Box{P1: p1, P2: p2}
}

func (b Box) Dim() int { return len(b.P1) }

func (b Box) Size(i int) float64 {
	return math.Abs(b.P2[i] - b.P1[i])
}

func (b Box) Volume() float64 {
	v := 1.0
	for i := range b.P1 {
		v *= b.Size(i)
	}
	return v
}

func (b Box) Center() dynamo.State {
	c := make(dynamo.State, len(b.P1))
	for i := range c {
		c[i] = (b.P1[i] + b.P2[i]) / 2
	}
	return c
}

func (b Box) Contains(p dynamo.State) bool {
	if len(p) != len(b.P1) {
		return false
	}
	for i := range p {
		lo, hi := math.Min(b.P1[i], b.P2[i]), math.Max(b.P1[i], b.P2[i])
		if p[i] < lo || p[i] > hi {
			return false
		}
	}
	return true
}

// Sample writes a uniformly distributed point of the box into dst.
func (b Box) Sample(rng *rand.Rand, dst dynamo.State) {
	for i := range dst {
		dst[i] = b.P1[i] + rng.Float64()*(b.P2[i]-b.P1[i])
	}
}
