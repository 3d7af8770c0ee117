package export

import (
	"fmt"
	"image/color"
	"io"
	"strings"

	"github.com/san-kum/hadron/internal/geom"
	"github.com/san-kum/hadron/internal/model"
	"github.com/san-kum/hadron/internal/transform"
)

const (
	ForwardLinkColor  = "silver"
	BackwardLinkColor = "pink"
)

// Options control the SVG rendering of a model.
type Options struct {
	Width, Height int
	ParticleSize  float64 // diameter in pixels
	Background    string
	ShowNames     bool
}

func DefaultOptions() Options {
	return Options{
		Width:        800,
		Height:       600,
		ParticleSize: 8,
		Background:   "#0a0a0a",
		ShowNames:    true,
	}
}

// LinkColor picks the stroke for a link from the on-screen order of its
// endpoints.
func LinkColor(a, b geom.Point) string {
	if a.X < b.X {
		return ForwardLinkColor
	}
	return BackwardLinkColor
}

// WriteSVG draws links, then particles, then pin markers and names, all
// through t. The caller positions t for the requested size.
func WriteSVG(w io.Writer, m *model.Model, t *transform.Transform, opts Options) error {
	if opts.ParticleSize <= 0 {
		opts.ParticleSize = DefaultOptions().ParticleSize
	}
	r := opts.ParticleSize / 2

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
`, opts.Width, opts.Height, opts.Width, opts.Height))
	if opts.Background != "" {
		sb.WriteString(fmt.Sprintf(`<rect width="100%%" height="100%%" fill="%s"/>
`, opts.Background))
	}

	sb.WriteString(`<g stroke-width="1">
`)
	for _, l := range m.Links() {
		a, b := t.ToScreen(l.A.Position), t.ToScreen(l.B.Position)
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>
`, a.X, a.Y, b.X, b.Y, LinkColor(a, b)))
	}
	sb.WriteString("</g>\n")

	sb.WriteString("<g>\n")
	for _, p := range m.Particles() {
		c := t.ToScreen(p.Position)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"%s/>
`, c.X, c.Y, r, rgba(p.FillColor), stroke(p.StrokeColor)))
		if p.Fixed {
			// triangle above the particle
			sb.WriteString(fmt.Sprintf(`<polygon class="pin" points="%.1f,%.1f %.1f,%.1f %.1f,%.1f" fill="none" stroke="white"/>
`, c.X, c.Y-2*r, c.X-r, c.Y-r, c.X+r, c.Y-r))
		}
	}
	sb.WriteString("</g>\n")

	if opts.ShowNames {
		sb.WriteString(`<g fill="white" font-family="monospace" font-size="10">
`)
		for _, p := range m.Particles() {
			if p.Name == "" {
				continue
			}
			c := t.ToScreen(p.Position)
			sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f">%s</text>
`, c.X+r+1, c.Y+r, escape(p.Name)))
		}
		sb.WriteString("</g>\n")
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// SeriesToSVG plots one value series of a run trace as a polyline.
func SeriesToSVG(values []float64, width, height int, strokeColor string) string {
	if len(values) < 2 {
		return ""
	}

	minY, maxY := values[0], values[0]
	for _, v := range values {
		if v < minY {
			minY = v
		}
		if v > maxY {
			maxY = v
		}
	}
	rangeY := maxY - minY
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	step := float64(width) / float64(len(values)-1)
	for i, v := range values {
		x := float64(i) * step
		y := float64(height) - (v-minY)/rangeY*float64(height)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

func rgba(c color.RGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%.3g)", c.R, c.G, c.B, float64(c.A)/255)
}

func stroke(c color.RGBA) string {
	if c.A == 0 {
		return ""
	}
	return fmt.Sprintf(` stroke="%s"`, rgba(c))
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return escaper.Replace(s) }
