// Package transform maps world coordinates of a 1, 2 or 3 dimensional
// model onto a 2D screen and back.
//
// World axis 0 is always drawn vertically. In 2D world axis 1 is drawn
// horizontally; in 3D axes 1 and 2 are rotated about axis 0 by Rotation
// and projected orthographically. A 1D model is drawn on the vertical
// midline of the render area.
package transform

import (
	"fmt"
	"math"

	"github.com/san-kum/hadron/internal/dynamo"
	"github.com/san-kum/hadron/internal/geom"
)

// PixelsPerUnit is the screen length of one world unit at ViewScale 1.
const PixelsPerUnit = 500

type Transform struct {
	dim       int
	viewScale float64
	rotation  float64
	offset    geom.Vec
}

func New(dim int) (*Transform, error) {
	if dim < 1 || dim > 3 {
		return nil, fmt.Errorf("transform dimension %d: %w", dim, dynamo.ErrInvalidDimension)
	}
	return &Transform{dim: dim, viewScale: 1}, nil
}

func (t *Transform) Dimension() int { return t.dim }

func (t *Transform) ViewScale() float64 { return t.viewScale }

// SetViewScale ignores values that are not positive finite numbers.
func (t *Transform) SetViewScale(v float64) {
	if validScale(v) {
		t.viewScale = v
	}
}

func validScale(v float64) bool { return v > 0 && !math.IsInf(v, 1) }

func (t *Transform) scale() float64 { return t.viewScale * PixelsPerUnit }

// Rotation is the 3D rotation about world axis 0 in radians. It is always 0
// for other dimensions.
func (t *Transform) Rotation() float64 {
	if t.dim != 3 {
		return 0
	}
	return t.rotation
}

func (t *Transform) SetRotation(r float64) {
	if t.dim == 3 {
		t.rotation = r
	}
}

func (t *Transform) Offset() geom.Vec { return t.offset }

// SetOffset moves the world origin on screen. In 1D the horizontal part
// is owned by SetRenderSize and only Y is taken.
func (t *Transform) SetOffset(v geom.Vec) {
	if t.dim == 1 {
		t.offset.Y = v.Y
		return
	}
	t.offset = v
}

// SetRenderSize tells the transform the size of the drawing area. 1D and
// 3D views center world axis 0 horizontally.
func (t *Transform) SetRenderSize(width, height float64) {
	if t.dim != 2 {
		t.offset.X = width / 2
	}
}

func (t *Transform) ToScreen(w dynamo.State) geom.Point {
	s := t.scale()
	switch t.dim {
	case 1:
		return geom.Point{X: t.offset.X, Y: s*w[0] + t.offset.Y}
	case 2:
		return geom.Point{X: s*w[1] + t.offset.X, Y: s*w[0] + t.offset.Y}
	default:
		sin, cos := math.Sincos(t.rotation)
		return geom.Point{
			X: s*(w[1]*cos-w[2]*sin) + t.offset.X,
			Y: s*w[0] + t.offset.Y,
		}
	}
}

func (t *Transform) ToWorld(p geom.Point) dynamo.State {
	return t.ToWorldVector(geom.Vec{X: p.X - t.offset.X, Y: p.Y - t.offset.Y})
}

// ToWorldVector converts a screen displacement, such as a mouse drag, into
// a world displacement. Offset does not apply.
func (t *Transform) ToWorldVector(v geom.Vec) dynamo.State {
	s := t.scale()
	switch t.dim {
	case 1:
		return dynamo.State{v.Y / s}
	case 2:
		return dynamo.State{v.Y / s, v.X / s}
	default:
		sin, cos := math.Sincos(t.rotation)
		return dynamo.State{v.Y / s, v.X * cos / s, -v.X * sin / s}
	}
}

// ToWorldRect maps the corners of r into a world box.
func (t *Transform) ToWorldRect(r geom.Rect) geom.Box {
	b, _ := geom.NewBox(t.ToWorld(r.Min), t.ToWorld(r.Max))
	return b
}

// ToView rotates w into the frame the screen is projected from. Axis 1 of
// the result runs horizontally on screen and, in 3D, axis 2 points into it.
// In 1D and 2D the view frame is the world frame.
func (t *Transform) ToView(w dynamo.State) dynamo.State {
	v := w.Clone()
	if t.dim == 3 {
		sin, cos := math.Sincos(t.rotation)
		v[1] = w[1]*cos - w[2]*sin
		v[2] = w[1]*sin + w[2]*cos
	}
	return v
}

// SelectionBox is the view frame box of everything drawn inside r. Depth is
// unbounded in 3D. In 1D it reports false when r misses the midline.
func (t *Transform) SelectionBox(r geom.Rect) (geom.Box, bool) {
	switch t.dim {
	case 1:
		if t.offset.X < r.Min.X || t.offset.X > r.Max.X {
			return geom.Box{}, false
		}
		return t.ToWorldRect(r), true
	case 2:
		return t.ToWorldRect(r), true
	default:
		s := t.scale()
		b, _ := geom.NewBox(
			dynamo.State{(r.Min.Y - t.offset.Y) / s, (r.Min.X - t.offset.X) / s, math.Inf(-1)},
			dynamo.State{(r.Max.Y - t.offset.Y) / s, (r.Max.X - t.offset.X) / s, math.Inf(1)},
		)
		return b, true
	}
}

// ChangeScale zooms to newViewScale keeping the world point under anchor
// fixed on screen. It reports whether anything changed; scales that are not
// positive finite numbers are refused.
func (t *Transform) ChangeScale(newViewScale float64, anchor geom.Point) bool {
	if !validScale(newViewScale) || t.viewScale == newViewScale {
		return false
	}
	ratio := newViewScale / t.viewScale
	t.SetOffset(geom.Vec{
		X: anchor.X - (anchor.X-t.offset.X)*ratio,
		Y: anchor.Y - (anchor.Y-t.offset.Y)*ratio,
	})
	t.viewScale = newViewScale
	return true
}
