package viz

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/san-kum/hadron/internal/geom"
	"github.com/san-kum/hadron/internal/model"
)

type tool int

const (
	toolNone tool = iota
	toolMove      // drag the selection
	toolPan       // drag the view
	toolRect      // rubber band selection
)

// gesture tracks the mouse between press and release. Points are canvas
// dots.
type gesture struct {
	tool       tool
	press      geom.Point
	last       geom.Point
	pointer    geom.Point
	hasPointer bool
	// held is set while selected particles are fixed by a drag
	held bool
}

// Selection returns the selected particles in model order.
func (l *Live) Selection() []*model.Particle {
	var sel []*model.Particle
	for _, p := range l.model.Particles() {
		if l.selection[p] {
			sel = append(sel, p)
		}
	}
	return sel
}

// Pinned reports whether p was pinned from the view.
func (l *Live) Pinned(p *model.Particle) bool { return l.pinned[p] }

func (l *Live) cycleFocus(dir int) {
	l.release()
	clear(l.selection)
	n := l.model.Len()
	if n == 0 {
		l.focus = -1
		return
	}
	switch {
	case l.focus < 0 && dir > 0:
		l.focus = 0
	case l.focus < 0:
		l.focus = n - 1
	default:
		l.focus = ((l.focus+dir)%n + n) % n
	}
	l.selection[l.model.Particle(l.focus)] = true
}

func (l *Live) selectAll() {
	for _, p := range l.model.Particles() {
		l.selection[p] = true
	}
}

// pin fixes or frees the selection for good.
func (l *Live) pin(v bool) {
	for _, p := range l.Selection() {
		if v {
			l.pinned[p] = true
		} else {
			delete(l.pinned, p)
		}
		p.Fixed = v
	}
}

// hold fixes the selection so a running engine takes positions from the
// view while it is dragged.
func (l *Live) hold() {
	for _, p := range l.Selection() {
		p.Fixed = true
	}
	l.gesture.held = true
}

// release ends a drag. Particles that were not pinned move freely again.
func (l *Live) release() {
	if !l.gesture.held {
		return
	}
	l.gesture.held = false
	for _, p := range l.Selection() {
		if !l.pinned[p] {
			p.Fixed = false
		}
	}
}

// drag moves the selection by a screen displacement in dots.
func (l *Live) drag(dx, dy float64) {
	sel := l.Selection()
	if len(sel) == 0 {
		return
	}
	if !l.gesture.held {
		l.hold()
	}
	d := l.tr.ToWorldVector(geom.Vec{X: dx, Y: dy})
	for _, p := range sel {
		for i := range p.Position {
			p.Position[i] += d[i]
		}
		p.Velocity.Zero()
	}
}

// linkSelection joins every unlinked pair of selected particles.
func (l *Live) linkSelection() {
	sel := l.Selection()
	for i, a := range sel {
		for _, b := range sel[i+1:] {
			if l.model.FindLink(a, b) != nil {
				continue
			}
			if _, err := l.model.AddLink(a, b, 1); err != nil {
				l.fail("link", err)
				return
			}
		}
	}
}

// unlinkSelection removes the links between selected particles.
func (l *Live) unlinkSelection() {
	sel := l.Selection()
	for i, a := range sel {
		for _, b := range sel[i+1:] {
			if _, err := l.model.RemoveLink(a, b); err != nil {
				l.fail("unlink", err)
				return
			}
		}
	}
}

// hit returns the topmost particle drawn within hitRadius dots of pt.
func (l *Live) hit(pt geom.Point) *model.Particle {
	r := geom.RectFromPoints(
		pt.Add(geom.Vec{X: -hitRadius, Y: -hitRadius}),
		pt.Add(geom.Vec{X: hitRadius, Y: hitRadius}))
	box, ok := l.tr.SelectionBox(r)
	if !ok {
		return nil
	}
	ps := l.model.Particles()
	for i := len(ps) - 1; i >= 0; i-- {
		if box.Contains(l.tr.ToView(ps[i].Position)) {
			return ps[i]
		}
	}
	return nil
}

// HandleMouse applies a terminal mouse event. Cells map to the center of
// their braille block.
func (l *Live) HandleMouse(msg tea.MouseMsg) {
	pt := geom.Point{X: float64(msg.X*2 + 1), Y: float64(msg.Y*4 + 2)}
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		l.tr.ChangeScale(l.tr.ViewScale()*zoomFactor, pt)
	case msg.Button == tea.MouseButtonWheelDown:
		l.tr.ChangeScale(l.tr.ViewScale()/zoomFactor, pt)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		if msg.X < l.canvas.Width && msg.Y < l.canvas.Height {
			l.Press(pt, msg.Ctrl || msg.Alt)
		}
	case msg.Action == tea.MouseActionMotion:
		l.Move(pt)
	case msg.Action == tea.MouseActionRelease:
		l.Release(pt)
	}
}

// Press starts a gesture at pt. Without toggle a particle under pt is
// grabbed together with the rest of the selection, or the view is panned.
// With toggle the particle under pt flips its selection, or a rectangle
// selection starts.
func (l *Live) Press(pt geom.Point, toggle bool) {
	l.release()
	g := &l.gesture
	g.press, g.last, g.pointer, g.hasPointer = pt, pt, pt, true
	g.tool = toolNone

	p := l.hit(pt)
	switch {
	case toggle && p != nil:
		if l.selection[p] {
			delete(l.selection, p)
		} else {
			l.selection[p] = true
		}
	case toggle:
		g.tool = toolRect
	case p != nil:
		if !l.selection[p] {
			clear(l.selection)
			l.selection[p] = true
		}
		l.hold()
		g.tool = toolMove
	default:
		g.tool = toolPan
	}
}

func (l *Live) Move(pt geom.Point) {
	g := &l.gesture
	g.pointer, g.hasPointer = pt, true
	d := pt.Sub(g.last)
	switch g.tool {
	case toolMove:
		l.drag(d.X, d.Y)
	case toolPan:
		l.pan(d.X, d.Y)
	case toolNone:
		return
	}
	g.last = pt
}

// Release ends the gesture at pt. A rectangle adds every particle drawn
// inside it to the selection; in 3D the rectangle reaches through all
// depths.
func (l *Live) Release(pt geom.Point) {
	l.Move(pt)
	g := &l.gesture
	switch g.tool {
	case toolMove:
		l.release()
	case toolRect:
		if box, ok := l.tr.SelectionBox(geom.RectFromPoints(g.press, pt)); ok {
			for _, p := range l.model.Particles() {
				if box.Contains(l.tr.ToView(p.Position)) {
					l.selection[p] = true
				}
			}
		}
		l.log.Debug("rectangle selection", zap.Int("selected", len(l.selection)))
	}
	g.tool = toolNone
}
