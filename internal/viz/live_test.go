package viz

import (
	"errors"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/hadron/internal/dynamo"
	"github.com/san-kum/hadron/internal/engine/enginetest"
	"github.com/san-kum/hadron/internal/geom"
	"github.com/san-kum/hadron/internal/model"
)

func newLive(t *testing.T, dim int) (*Live, *model.Model) {
	t.Helper()
	m, err := model.New(dim, enginetest.New())
	if err != nil {
		t.Fatal(err)
	}
	a, b := model.NewParticle(dim), model.NewParticle(dim)
	a.Name = "A"
	b.Position[0] = 0.25
	b.Velocity[0] = 0.01
	for _, p := range []*model.Particle{a, b} {
		if err := m.AddParticle(p); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := m.AddLink(a, b, 1); err != nil {
		t.Fatal(err)
	}
	l, err := NewLive(m, Options{})
	if err != nil {
		t.Fatal(err)
	}
	return l, m
}

func TestNewLive_FitsZone(t *testing.T) {
	l, _ := newLive(t, 2)
	w, h := l.canvas.Dots()
	if w != 2*defaultCols || h != 4*defaultRows {
		t.Fatalf("canvas %dx%d", w, h)
	}
	want := fitMargin * float64(h) / 500
	if math.Abs(l.tr.ViewScale()-want) > 1e-12 {
		t.Errorf("view scale %v, want %v", l.tr.ViewScale(), want)
	}
	origin := l.tr.ToScreen(dynamo.State{0, 0})
	if origin.X != float64(w)/2 || origin.Y != float64(h)/2 {
		t.Errorf("origin at %+v", origin)
	}
}

func selected(l *Live) []*model.Particle { return l.Selection() }

func TestLive_Selection(t *testing.T) {
	l, m := newLive(t, 2)
	if len(selected(l)) != 0 {
		t.Fatal("nothing should be selected initially")
	}
	l.HandleKey("tab")
	if sel := selected(l); len(sel) != 1 || sel[0] != m.Particle(0) {
		t.Errorf("tab should select the first particle, got %v", sel)
	}
	l.HandleKey("tab")
	l.HandleKey("tab")
	if sel := selected(l); len(sel) != 1 || sel[0] != m.Particle(0) {
		t.Error("selection should wrap")
	}
	l.HandleKey("shift+tab")
	if sel := selected(l); len(sel) != 1 || sel[0] != m.Particle(1) {
		t.Error("shift+tab should go back")
	}

	l.HandleKey("a")
	if len(selected(l)) != 2 {
		t.Error("a should select everything")
	}
	l.HandleKey("p")
	for _, p := range m.Particles() {
		if !p.Fixed || !l.Pinned(p) {
			t.Error("p should pin the selection")
		}
	}
	l.HandleKey("esc")
	if len(selected(l)) != 0 {
		t.Error("esc should clear the selection")
	}
	if !m.Particle(0).Fixed {
		t.Error("clearing the selection must keep pins")
	}

	l.HandleKey("tab")
	l.HandleKey("u")
	if m.Particle(0).Fixed || l.Pinned(m.Particle(0)) {
		t.Error("u should unpin")
	}
	if !m.Particle(1).Fixed {
		t.Error("u only touches the selection")
	}
}

func TestLive_KeyDrag(t *testing.T) {
	l, m := newLive(t, 2)
	l.HandleKey("tab")
	p := m.Particle(0)

	before := l.tr.ToScreen(p.Position)
	l.HandleKey("l")
	l.HandleKey("j")
	after := l.tr.ToScreen(p.Position)

	if !p.Fixed {
		t.Error("dragging should hold the particle")
	}
	if math.Abs(after.X-before.X-dragStep) > 1e-9 || math.Abs(after.Y-before.Y-dragStep) > 1e-9 {
		t.Errorf("moved from %+v to %+v", before, after)
	}
	l.HandleKey("enter")
	if p.Fixed {
		t.Error("enter should drop an unpinned particle")
	}

	l.HandleKey("p")
	l.HandleKey("h")
	l.HandleKey("enter")
	if !p.Fixed {
		t.Error("a pinned particle stays fixed after a drag")
	}
}

func TestLive_MouseDrag(t *testing.T) {
	l, m := newLive(t, 2)
	b := m.Particle(1)
	start := l.tr.ToScreen(b.Position)

	l.Press(start, false)
	if sel := selected(l); len(sel) != 1 || sel[0] != b {
		t.Fatalf("press on a particle should select it, got %v", sel)
	}
	if !b.Fixed {
		t.Error("grabbed particle should be held")
	}
	want := b.Position.Clone()
	d := l.tr.ToWorldVector(geom.Vec{X: 10, Y: -6})
	for i := range want {
		want[i] += d[i]
	}
	l.Move(start.Add(geom.Vec{X: 4, Y: -2}))
	l.Release(start.Add(geom.Vec{X: 10, Y: -6}))

	for i := range want {
		if math.Abs(b.Position[i]-want[i]) > 1e-9 {
			t.Fatalf("position %v, want %v", b.Position, want)
		}
	}
	if b.Velocity[0] != 0 {
		t.Error("drag should stop the particle")
	}
	if b.Fixed {
		t.Error("release should free an unpinned particle")
	}

	l.HandleKey("p")
	at := l.tr.ToScreen(b.Position)
	l.Press(at, false)
	l.Release(at.Add(geom.Vec{X: 1}))
	if !b.Fixed {
		t.Error("release must keep an explicit pin")
	}
}

func TestLive_MousePan(t *testing.T) {
	l, _ := newLive(t, 2)
	off := l.tr.Offset()
	l.Press(geom.Point{X: 5, Y: 5}, false)
	l.Move(geom.Point{X: 11, Y: 9})
	l.Release(geom.Point{X: 11, Y: 9})
	if got := l.tr.Offset(); got.X != off.X+6 || got.Y != off.Y+4 {
		t.Errorf("offset %+v after pan from %+v", got, off)
	}
	if len(selected(l)) != 0 {
		t.Error("pan should not select")
	}
}

func TestLive_ToggleSelect(t *testing.T) {
	l, m := newLive(t, 2)
	a, b := m.Particle(0), m.Particle(1)
	pa, pb := l.tr.ToScreen(a.Position), l.tr.ToScreen(b.Position)

	l.Press(pa, true)
	l.Release(pa)
	l.Press(pb, true)
	l.Release(pb)
	if len(selected(l)) != 2 {
		t.Fatalf("toggle should add, got %v", selected(l))
	}
	l.Press(pa, true)
	l.Release(pa)
	if sel := selected(l); len(sel) != 1 || sel[0] != b {
		t.Errorf("toggle should remove, got %v", sel)
	}
	if a.Fixed || b.Fixed {
		t.Error("toggling must not fix particles")
	}
}

func TestLive_RectangleSelect(t *testing.T) {
	for _, dim := range []int{2, 3} {
		l, m := newLive(t, dim)
		a, b := m.Particle(0), m.Particle(1)
		if dim == 3 {
			b.Position[2] = 0.5
			l.tr.SetRotation(0.3)
		}

		pb := l.tr.ToScreen(b.Position)
		l.Press(pb.Add(geom.Vec{X: -5, Y: -5}), true)
		l.Move(pb)
		if c := l.Draw(); !c.IsSet(round(pb.X)-5, round(pb.Y)-5) {
			t.Errorf("dim %d: rectangle not drawn", dim)
		}
		l.Release(pb.Add(geom.Vec{X: 5, Y: 5}))
		if sel := selected(l); len(sel) != 1 || sel[0] != b {
			t.Errorf("dim %d: selected %v, want only b", dim, sel)
		}

		w, h := l.canvas.Dots()
		l.Press(geom.Point{X: 0.5, Y: 0.5}, true)
		l.Release(geom.Point{X: float64(w) - 0.5, Y: float64(h) - 0.5})
		if sel := selected(l); len(sel) != 2 || sel[0] != a {
			t.Errorf("dim %d: full rectangle selected %v", dim, sel)
		}
	}
}

func TestLive_LinkSelection(t *testing.T) {
	l, m := newLive(t, 2)
	c := model.NewParticle(2)
	c.Position[1] = 0.3
	if err := m.AddParticle(c); err != nil {
		t.Fatal(err)
	}

	l.HandleKey("a")
	l.HandleKey("U")
	if n := len(m.Links()); n != 0 {
		t.Fatalf("U left %d links", n)
	}
	l.HandleKey("L")
	if n := len(m.Links()); n != 3 {
		t.Fatalf("L made %d links, want 3", n)
	}
	if lk := m.FindLink(m.Particle(0), c); lk == nil || lk.Strength != 1 {
		t.Errorf("link %+v", lk)
	}
	l.HandleKey("L")
	if n := len(m.Links()); n != 3 {
		t.Errorf("second L duplicated links: %d", n)
	}

	l.HandleKey(" ")
	l.HandleKey("U")
	if !errors.Is(l.Err(), dynamo.ErrActive) {
		t.Errorf("unlink while running err = %v", l.Err())
	}
	l.HandleKey(" ")
}

func TestLive_HandleMouse(t *testing.T) {
	l, m := newLive(t, 2)
	a := l.tr.ToScreen(m.Particle(0).Position)
	cx, cy := int(a.X)/2, int(a.Y)/4

	l.Update(tea.MouseMsg{X: cx, Y: cy, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if sel := selected(l); len(sel) != 1 || sel[0] != m.Particle(0) {
		t.Fatalf("click on a cell holding a particle selected %v", sel)
	}
	l.Update(tea.MouseMsg{X: cx, Y: cy, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	if m.Particle(0).Fixed {
		t.Error("click should not leave the particle fixed")
	}
	if !strings.Contains(l.View(), "Pointer") {
		t.Error("panel should show the pointer position")
	}

	scale := l.tr.ViewScale()
	l.Update(tea.MouseMsg{X: 3, Y: 3, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	if math.Abs(l.tr.ViewScale()-scale*zoomFactor) > 1e-12 {
		t.Errorf("wheel zoom scale %v", l.tr.ViewScale())
	}

	off := l.tr.Offset()
	l.Update(tea.MouseMsg{X: l.canvas.Width + 2, Y: 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	l.Update(tea.MouseMsg{X: l.canvas.Width + 5, Y: 2, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	if l.tr.Offset() != off {
		t.Error("presses on the panel must not pan")
	}
}

func TestLive_PanZoomRotate(t *testing.T) {
	l, _ := newLive(t, 3)
	w, h := l.canvas.Dots()
	center := geom.Point{X: float64(w) / 2, Y: float64(h) / 2}
	world := l.tr.ToWorld(center)

	scale := l.tr.ViewScale()
	l.HandleKey("+")
	if math.Abs(l.tr.ViewScale()-scale*zoomFactor) > 1e-12 {
		t.Errorf("zoom in scale %v", l.tr.ViewScale())
	}
	got := l.tr.ToScreen(world)
	if math.Abs(got.X-center.X) > 1e-9 || math.Abs(got.Y-center.Y) > 1e-9 {
		t.Errorf("zoom should keep the center fixed, got %+v", got)
	}
	l.HandleKey("-")
	if math.Abs(l.tr.ViewScale()-scale) > 1e-12 {
		t.Errorf("zoom out scale %v", l.tr.ViewScale())
	}

	off := l.tr.Offset()
	l.HandleKey("down")
	if l.tr.Offset().Y != off.Y+panStep {
		t.Errorf("pan down offset %+v", l.tr.Offset())
	}

	l.HandleKey("]")
	if math.Abs(l.tr.Rotation()-rotateStep) > 1e-12 {
		t.Errorf("rotation %v", l.tr.Rotation())
	}
}

func TestLive_RunAndRefresh(t *testing.T) {
	l, m := newLive(t, 2)
	l.HandleKey(" ")
	if !m.Active() {
		t.Fatalf("space should start the model: %v", l.Err())
	}

	l.Refresh()
	l.Refresh()
	if len(l.history) != 2 {
		t.Errorf("expected 2 history points, got %d", len(l.history))
	}
	if m.Particle(1).Position[0] <= 0.25 {
		t.Error("refresh should pull engine positions")
	}

	l.HandleKey("r")
	if !errors.Is(l.Err(), dynamo.ErrActive) {
		t.Errorf("randomize while running err = %v", l.Err())
	}
	if !strings.Contains(l.View(), "RUNNING") {
		t.Error("panel should report running")
	}

	l.HandleKey(" ")
	if m.Active() {
		t.Error("space should stop the model")
	}
	l.HandleKey("r")
	if l.Err() != nil {
		t.Errorf("randomize while stopped: %v", l.Err())
	}
}

func TestLive_Parameters(t *testing.T) {
	l, m := newLive(t, 2)
	l.HandleKey("9")
	if l.param != 8 {
		t.Fatalf("param = %d", l.param)
	}
	l.HandleKey(">")
	if ts := m.Input().TimeScale; ts <= 1 {
		t.Errorf("TimeScale after > = %v", ts)
	}
	l.HandleKey("<")
	l.HandleKey("<")
	if ts := m.Input().TimeScale; ts >= 1 {
		t.Errorf("TimeScale after < < = %v", ts)
	}

	l.HandleKey("7")
	for i := 0; i < 100; i++ {
		l.HandleKey(">")
	}
	if g := m.Input().Gravity; math.Abs(g-1e3) > 1e-6 {
		t.Errorf("gravity should clamp at max, got %v", g)
	}
}

func TestLive_Update(t *testing.T) {
	l, _ := newLive(t, 2)

	_, cmd := l.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	if cmd != nil {
		t.Error("resize should not schedule anything")
	}
	if l.canvas.Width != 120-panelWidth-3 || l.canvas.Height != 39 {
		t.Errorf("canvas %dx%d", l.canvas.Width, l.canvas.Height)
	}
	w, h := l.canvas.Dots()
	if math.Abs(l.tr.ViewScale()-fitMargin*float64(min(w, h))/500) > 1e-12 {
		t.Error("first window size should refit")
	}

	if _, cmd := l.Update(TickMsg{}); cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	if _, cmd := l.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}); cmd == nil {
		t.Error("q should quit")
	}
}

func TestLive_Draw(t *testing.T) {
	l, m := newLive(t, 2)
	l.HandleKey("tab")
	m.Particle(0).Fixed = true
	c := l.Draw()

	a := l.tr.ToScreen(m.Particle(0).Position)
	b := l.tr.ToScreen(m.Particle(1).Position)
	if !c.IsSet(round(a.X), round(a.Y)) || !c.IsSet(round(b.X), round(b.Y)) {
		t.Error("particles not drawn")
	}
	// link midpoint
	if !c.IsSet(round((a.X+b.X)/2), round((a.Y+b.Y)/2)) {
		t.Error("link not drawn")
	}
	// pin marker apex and selection ring corner
	if !c.IsSet(round(a.X), round(a.Y)-4) || !c.IsSet(round(a.X)-3, round(a.Y)-3) {
		t.Error("markers not drawn")
	}

	view := l.View()
	for _, s := range []string{"HADRON 2D", "STOPPED", "Viscosity", "Selected"} {
		if !strings.Contains(view, s) {
			t.Errorf("view missing %q", s)
		}
	}
}
