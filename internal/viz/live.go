package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"go.uber.org/zap"

	"github.com/san-kum/hadron/internal/config"
	"github.com/san-kum/hadron/internal/geom"
	"github.com/san-kum/hadron/internal/model"
	"github.com/san-kum/hadron/internal/transform"
)

const (
	panelWidth      = 44
	historyCapacity = 120

	defaultCols = 80
	defaultRows = 24

	panStep    = 8    // dots
	dragStep   = 2    // dots
	hitRadius  = 3    // dots
	zoomFactor = 1.25 // per key press
	rotateStep = math.Pi / 36
	sliderStep = 0.02
	fitMargin  = 0.8
)

type TickMsg time.Time

// Options configure a live view.
type Options struct {
	// Zone is the world region used by randomize and by the initial fit.
	Zone geom.Box
	// ViewScale 0 fits Zone into the canvas on the first resize.
	ViewScale float64
	Rotation  float64
	Period    time.Duration
	Theme     string
	Logger    *zap.Logger
}

// Live is the bubbletea model of the interactive view. All model access
// happens on the bubbletea update goroutine.
type Live struct {
	model     *model.Model
	tr        *transform.Transform
	refresher *model.Refresher
	opts      Options
	log       *zap.Logger

	canvas *Canvas
	fitted bool

	// selection and pinned are keyed by particle so they survive topology
	// changes; pinned marks particles fixed on purpose rather than held by
	// a drag.
	selection map[*model.Particle]bool
	pinned    map[*model.Particle]bool
	focus     int
	gesture   gesture

	param   int
	history []float64

	theme  Theme
	styles styles
	err    error
}

func NewLive(m *model.Model, opts Options) (*Live, error) {
	tr, err := transform.New(m.Dimension())
	if err != nil {
		return nil, err
	}
	if opts.Period <= 0 {
		opts.Period = model.DefaultRefreshPeriod
	}
	if opts.Zone.Dim() == 0 {
		opts.Zone = geom.CenteredBox(m.Dimension(), 0.5)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ViewScale > 0 {
		tr.SetViewScale(opts.ViewScale)
	}
	tr.SetRotation(opts.Rotation)

	theme := GetTheme(opts.Theme)
	l := &Live{
		model:     m,
		tr:        tr,
		refresher: model.NewRefresher(m, opts.Period),
		opts:      opts,
		log:       log,
		selection: make(map[*model.Particle]bool),
		pinned:    make(map[*model.Particle]bool),
		focus:     -1,
		history:   make([]float64, 0, historyCapacity),
		theme:     theme,
		styles:    newStyles(theme),
	}
	for _, p := range m.Particles() {
		if p.Fixed {
			l.pinned[p] = true
		}
	}
	l.resize(defaultCols, defaultRows)
	// fit again once the terminal reports its real size
	l.fitted = false
	return l, nil
}

func (l *Live) Transform() *transform.Transform { return l.tr }

// Err is the last error reported by an action.
func (l *Live) Err() error { return l.err }

func (l *Live) tick() tea.Cmd {
	return tea.Tick(l.opts.Period, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (l *Live) Init() tea.Cmd { return l.tick() }

func (l *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		l.resize(msg.Width-panelWidth-3, msg.Height-1)
	case tea.KeyMsg:
		if l.HandleKey(msg.String()) {
			return l, tea.Quit
		}
	case tea.MouseMsg:
		l.HandleMouse(msg)
	case TickMsg:
		l.Refresh()
		return l, l.tick()
	}
	return l, nil
}

// Refresh exchanges state with the engine if it advanced and records the
// real-time scale.
func (l *Live) Refresh() {
	if !l.model.Active() {
		return
	}
	refreshed, err := l.refresher.Tick()
	if err != nil {
		l.fail("refresh", err)
		return
	}
	if refreshed {
		l.history = append(l.history, l.model.RealTimeScale())
		if len(l.history) > historyCapacity {
			l.history = l.history[1:]
		}
	}
}

// HandleKey applies one key press and reports whether the view should quit.
func (l *Live) HandleKey(key string) bool {
	switch key {
	case "q", "ctrl+c":
		return true
	case " ":
		l.toggleRun()
	case "up":
		l.pan(0, -panStep)
	case "down":
		l.pan(0, panStep)
	case "left":
		l.pan(-panStep, 0)
	case "right":
		l.pan(panStep, 0)
	case "+", "=":
		l.zoom(zoomFactor)
	case "-", "_":
		l.zoom(1 / zoomFactor)
	case "[":
		l.tr.SetRotation(l.tr.Rotation() - rotateStep)
	case "]":
		l.tr.SetRotation(l.tr.Rotation() + rotateStep)
	case "tab":
		l.cycleFocus(1)
	case "shift+tab":
		l.cycleFocus(-1)
	case "a":
		l.selectAll()
	case "esc":
		l.release()
		clear(l.selection)
	case "p":
		l.pin(true)
	case "u":
		l.pin(false)
	case "L":
		l.linkSelection()
	case "U":
		l.unlinkSelection()
	case "enter":
		l.release()
	case "h":
		l.drag(-dragStep, 0)
	case "l":
		l.drag(dragStep, 0)
	case "k":
		l.drag(0, -dragStep)
	case "j":
		l.drag(0, dragStep)
	case "r":
		l.randomize()
	case "<", ",":
		l.stepParam(-1)
	case ">", ".":
		l.stepParam(1)
	case "t":
		l.theme = nextTheme(l.theme)
		l.styles = newStyles(l.theme)
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			if i := int(key[0] - '1'); i < len(config.Descriptors) {
				l.param = i
			}
		}
	}
	return false
}

func (l *Live) toggleRun() {
	l.err = nil
	if l.model.Active() {
		if err := l.model.Stop(); err != nil {
			l.fail("stop", err)
		}
		return
	}
	if err := l.model.Start(); err != nil {
		l.fail("start", err)
		return
	}
	l.history = l.history[:0]
}

func (l *Live) pan(dx, dy float64) {
	off := l.tr.Offset()
	l.tr.SetOffset(geom.Vec{X: off.X + dx, Y: off.Y + dy})
}

func (l *Live) zoom(f float64) {
	w, h := l.canvas.Dots()
	l.tr.ChangeScale(l.tr.ViewScale()*f, geom.Point{X: float64(w) / 2, Y: float64(h) / 2})
}

func (l *Live) randomize() {
	if err := l.model.RandomizePositions(l.opts.Zone); err != nil {
		l.fail("randomize", err)
	}
}

// stepParam moves the chosen parameter one notch along its slider scale.
func (l *Live) stepParam(dir int) {
	d := config.Descriptors[l.param]
	v, err := l.model.Parameter(d.Name)
	if err != nil {
		l.fail("parameter", err)
		return
	}
	pos := math.Max(0, math.Min(1, d.ToSlider(v)+float64(dir)*sliderStep))
	if err := l.model.SetParameter(d.Name, d.Clamp(d.FromSlider(pos))); err != nil {
		l.fail("parameter", err)
	}
}

func (l *Live) fail(op string, err error) {
	l.err = fmt.Errorf("%s: %w", op, err)
	l.log.Error("live view", zap.String("op", op), zap.Error(err))
}

// resize rebuilds the canvas for a terminal area of cols x rows cells and
// fits the zone on the first call when no view scale was given.
func (l *Live) resize(cols, rows int) {
	if cols < 10 {
		cols = 10
	}
	if rows < 4 {
		rows = 4
	}
	var oldW, oldH int
	if l.canvas != nil {
		oldW, oldH = l.canvas.Dots()
	}
	l.canvas = NewCanvas(cols, rows)
	w, h := l.canvas.Dots()
	l.tr.SetRenderSize(float64(w), float64(h))

	if !l.fitted {
		l.fitted = true
		if l.opts.ViewScale <= 0 {
			l.fit()
		}
		l.tr.SetOffset(geom.Vec{X: float64(w) / 2, Y: float64(h) / 2})
		return
	}
	// keep the world point at the old center in the center
	off := l.tr.Offset()
	l.tr.SetOffset(geom.Vec{X: off.X + float64(w-oldW)/2, Y: off.Y + float64(h-oldH)/2})
}

func (l *Live) fit() {
	extent := 0.0
	for i := 0; i < l.opts.Zone.Dim(); i++ {
		extent = math.Max(extent, 2*math.Max(math.Abs(l.opts.Zone.P1[i]), math.Abs(l.opts.Zone.P2[i])))
	}
	if extent == 0 {
		return
	}
	w, h := l.canvas.Dots()
	l.tr.SetViewScale(fitMargin * float64(min(w, h)) / (extent * transform.PixelsPerUnit))
}

// Draw renders links, particles and markers onto the canvas.
func (l *Live) Draw() *Canvas {
	c := l.canvas
	c.Clear()
	for _, link := range l.model.Links() {
		a, b := l.tr.ToScreen(link.A.Position), l.tr.ToScreen(link.B.Position)
		c.DrawLine(round(a.X), round(a.Y), round(b.X), round(b.Y))
	}
	for _, p := range l.model.Particles() {
		pt := l.tr.ToScreen(p.Position)
		x, y := round(pt.X), round(pt.Y)
		c.Disc(x, y, 1)
		if p.Fixed {
			c.Triangle(x, y, 2)
		}
		if l.selection[p] {
			c.Ring(x, y, 3)
		}
	}
	if l.gesture.tool == toolRect {
		r := geom.RectFromPoints(l.gesture.press, l.gesture.last)
		x0, y0, x1, y1 := round(r.Min.X), round(r.Min.Y), round(r.Max.X), round(r.Max.Y)
		c.DrawLine(x0, y0, x1, y0)
		c.DrawLine(x1, y0, x1, y1)
		c.DrawLine(x1, y1, x0, y1)
		c.DrawLine(x0, y1, x0, y0)
	}
	return c
}

func (l *Live) View() string {
	canvasView := l.styles.canvas.Render(l.Draw().String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, l.styles.panel.Render(l.panel()))
}

func (l *Live) panel() string {
	st := l.styles
	var s strings.Builder
	s.WriteString(st.header.Render(fmt.Sprintf("HADRON %dD", l.model.Dimension())) + "\n")

	if l.model.Active() {
		s.WriteString(st.running.Render("RUNNING") + "\n\n")
	} else {
		s.WriteString(st.stopped.Render("STOPPED") + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	stats := l.model.Stats()
	row("Particles", fmt.Sprintf("%d", l.model.Len()))
	row("Links", fmt.Sprintf("%d", len(l.model.Links())))
	row("Steps", fmt.Sprintf("%d", stats.StepCount))
	row("Step time", fmt.Sprintf("%.3f ms", stats.StepElapsedTime))
	row("Real time", fmt.Sprintf("%.3f", stats.RealTimeScale))
	row("View scale", fmt.Sprintf("%.3g", l.tr.ViewScale()))
	if l.model.Dimension() == 3 {
		row("Rotation", fmt.Sprintf("%.0f°", l.tr.Rotation()*180/math.Pi))
	}
	if l.gesture.hasPointer {
		row("Pointer", formatState(l.tr.ToWorld(l.gesture.pointer)))
	}
	switch sel := l.Selection(); len(sel) {
	case 0:
	case 1:
		p := sel[0]
		name := p.Name
		if name == "" {
			i, _ := l.model.ParticleIndex(p)
			name = fmt.Sprintf("#%d", i)
		}
		if l.pinned[p] {
			name += " (pinned)"
		}
		row("Selected", name)
	default:
		row("Selected", fmt.Sprintf("%d particles", len(sel)))
	}

	if len(l.history) > 1 {
		chart := asciigraph.Plot(l.history,
			asciigraph.Height(4),
			asciigraph.Width(panelWidth-12),
			asciigraph.Caption("real-time scale"))
		s.WriteString("\n" + st.graph.Render(chart) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	for i, d := range config.Descriptors {
		v, _ := l.model.Parameter(d.Name)
		line := fmt.Sprintf("%d %-18s %s %.3g", i+1, d.Name, sliderBar(d.ToSlider(v), 8), v)
		if i == l.param {
			s.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + st.value.Render(line) + "\n")
		}
	}

	if l.err != nil {
		s.WriteString("\n" + st.failure.Render(l.err.Error()) + "\n")
	}
	s.WriteString(st.help.Render("SPC run  arrows pan  +/- zoom  [] rotate\nTAB select  a all  esc none  p/u pin\nL/U link  hjkl drag  enter drop\nr randomize  1-9 param  </> adjust\nt theme  q quit  ctrl+drag box select"))
	return s.String()
}

func round(v float64) int { return int(math.Round(v)) }

func formatState(s []float64) string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprintf("%.3f", v)
	}
	return strings.Join(parts, " ")
}

// Run starts the live view on the terminal and blocks until quit. The
// model is stopped on exit.
func Run(m *model.Model, opts Options) error {
	l, err := NewLive(m, opts)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(l, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run()
	if stopErr := m.Stop(); err == nil {
		err = stopErr
	}
	return err
}
