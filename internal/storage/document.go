package storage

import (
	"encoding/xml"
	"fmt"
	"image/color"
	"io"
	"os"
	"strconv"

	"github.com/san-kum/hadron/internal/dynamo"
	"github.com/san-kum/hadron/internal/engine"
	"github.com/san-kum/hadron/internal/model"
)

// The Hadronium document: one root element carrying the dimension, the
// engine inputs as named properties, the particles and the links. Links
// refer to particles by Id when the particle has a name and by position
// otherwise. Default values are omitted on write.

const defaultDimension = 2

var coordNames = [3]string{"X", "Y", "Z"}

type xmlDocument struct {
	XMLName    xml.Name      `xml:"Hadronium"`
	Dimension  string        `xml:"Dimension,attr,omitempty"`
	Properties []xmlProperty `xml:"Property"`
	Particles  []xmlParticle `xml:"Particle"`
	Links      []xmlLink     `xml:"Link"`
}

type xmlProperty struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:"Value,attr"`
}

type xmlParticle struct {
	ID          string     `xml:"Id,attr,omitempty"`
	Mass        string     `xml:"Mass,attr,omitempty"`
	Fixed       string     `xml:"Fixed,attr,omitempty"`
	Position    *xmlVector `xml:"Position"`
	Velocity    *xmlVector `xml:"Velocity"`
	FillColor   *xmlColor  `xml:"FillColor"`
	StrokeColor *xmlColor  `xml:"StrokeColor"`
}

type xmlVector struct {
	X string `xml:"X,attr,omitempty"`
	Y string `xml:"Y,attr,omitempty"`
	Z string `xml:"Z,attr,omitempty"`
}

type xmlColor struct {
	R string `xml:"R,attr"`
	G string `xml:"G,attr"`
	B string `xml:"B,attr"`
	A string `xml:"A,attr,omitempty"`
}

type xmlLink struct {
	AName    string `xml:"A.Name,attr,omitempty"`
	ANumber  string `xml:"A.Number,attr,omitempty"`
	BName    string `xml:"B.Name,attr,omitempty"`
	BNumber  string `xml:"B.Number,attr,omitempty"`
	Strength string `xml:"Strength,attr,omitempty"`
}

// ModelFactory builds an empty model of the given dimension for Read.
type ModelFactory func(dim int) (*model.Model, error)

// Read decodes a document into a model created by newModel. The model is
// closed again when the document turns out to be invalid.
func Read(r io.Reader, newModel ModelFactory) (_ *model.Model, err error) {
	var doc xmlDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	dim := defaultDimension
	if doc.Dimension != "" {
		d, err := strconv.Atoi(doc.Dimension)
		if err != nil {
			return nil, fmt.Errorf("dimension %q: %w", doc.Dimension, dynamo.ErrInvalidDimension)
		}
		dim = d
	}
	m, err := newModel(dim)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			m.Close()
		}
	}()

	for _, prop := range doc.Properties {
		v, err := parseFloat(prop.Value)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", prop.Name, err)
		}
		// Display properties share the document; only engine inputs are
		// applied here.
		if _, err := m.Parameter(prop.Name); err != nil {
			continue
		}
		if err := m.SetParameter(prop.Name, v); err != nil {
			return nil, err
		}
	}

	for i, xp := range doc.Particles {
		p, err := readParticle(xp, dim)
		if err != nil {
			return nil, fmt.Errorf("particle %d: %w", i, err)
		}
		if err := m.AddParticle(p); err != nil {
			return nil, fmt.Errorf("particle %d: %w", i, err)
		}
	}

	for i, xl := range doc.Links {
		a, err := resolve(m, "A", xl.AName, xl.ANumber)
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
		b, err := resolve(m, "B", xl.BName, xl.BNumber)
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
		strength := 1.0
		if xl.Strength != "" {
			if strength, err = parseFloat(xl.Strength); err != nil {
				return nil, fmt.Errorf("link %d strength: %w", i, err)
			}
		}
		if _, err := m.AddLink(a, b, strength); err != nil {
			return nil, fmt.Errorf("link %d: %w", i, err)
		}
	}
	return m, nil
}

func readParticle(xp xmlParticle, dim int) (*model.Particle, error) {
	p := model.NewParticle(dim)
	p.Name = xp.ID
	if xp.Mass != "" {
		mass, err := parseFloat(xp.Mass)
		if err != nil {
			return nil, err
		}
		p.Mass = mass
	}
	if xp.Fixed != "" {
		fixed, err := strconv.ParseBool(xp.Fixed)
		if err != nil {
			return nil, err
		}
		p.Fixed = fixed
	}
	if err := readVector(xp.Position, p.Position); err != nil {
		return nil, fmt.Errorf("position: %w", err)
	}
	if err := readVector(xp.Velocity, p.Velocity); err != nil {
		return nil, fmt.Errorf("velocity: %w", err)
	}
	var err error
	if p.FillColor, err = readColor(xp.FillColor, p.FillColor); err != nil {
		return nil, err
	}
	if p.StrokeColor, err = readColor(xp.StrokeColor, p.StrokeColor); err != nil {
		return nil, err
	}
	return p, nil
}

func readVector(v *xmlVector, dst dynamo.State) error {
	if v == nil {
		return nil
	}
	comps := [3]string{v.X, v.Y, v.Z}
	for i := range dst {
		if comps[i] == "" {
			return fmt.Errorf("missing %s: %w", coordNames[i], dynamo.ErrDimensionMismatch)
		}
		x, err := parseFloat(comps[i])
		if err != nil {
			return err
		}
		dst[i] = x
	}
	return nil
}

func readColor(c *xmlColor, def color.RGBA) (color.RGBA, error) {
	if c == nil {
		return def, nil
	}
	var out [4]uint8
	for i, s := range [4]string{c.R, c.G, c.B, c.A} {
		if s == "" && i == 3 {
			out[i] = 0xff
			continue
		}
		v, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return def, fmt.Errorf("color: %w", err)
		}
		out[i] = uint8(v)
	}
	return color.RGBA{R: out[0], G: out[1], B: out[2], A: out[3]}, nil
}

func resolve(m *model.Model, end, name, number string) (*model.Particle, error) {
	if name != "" {
		if p := m.FindParticle(name); p != nil {
			return p, nil
		}
		return nil, fmt.Errorf("%s.Name %q: %w", end, name, dynamo.ErrNotFound)
	}
	if number != "" {
		i, err := strconv.Atoi(number)
		if err != nil || i < 0 || i >= m.Len() {
			return nil, fmt.Errorf("%s.Number %q: %w", end, number, dynamo.ErrNotFound)
		}
		return m.Particle(i), nil
	}
	return nil, fmt.Errorf("link end %s has no reference: %w", end, dynamo.ErrNotFound)
}

// Write encodes m as a document.
func Write(w io.Writer, m *model.Model) error {
	doc := xmlDocument{Dimension: strconv.Itoa(m.Dimension())}

	in := m.Input()
	for _, name := range engine.ParameterNames {
		v, _ := in.Field(name)
		doc.Properties = append(doc.Properties, xmlProperty{Name: name, Value: formatFloat(*v)})
	}

	for _, p := range m.Particles() {
		xp := xmlParticle{
			ID:          p.Name,
			Position:    writeVector(p.Position),
			Velocity:    writeVector(p.Velocity),
			FillColor:   writeColor(p.FillColor),
			StrokeColor: writeColor(p.StrokeColor),
		}
		if p.Mass != 1 {
			xp.Mass = formatFloat(p.Mass)
		}
		if p.Fixed {
			xp.Fixed = "true"
		}
		doc.Particles = append(doc.Particles, xp)
	}

	for _, l := range m.Links() {
		var xl xmlLink
		var err error
		if xl.AName, xl.ANumber, err = reference(m, l.A); err != nil {
			return err
		}
		if xl.BName, xl.BNumber, err = reference(m, l.B); err != nil {
			return err
		}
		if l.Strength != 1 {
			xl.Strength = formatFloat(l.Strength)
		}
		doc.Links = append(doc.Links, xl)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func reference(m *model.Model, p *model.Particle) (name, number string, err error) {
	if p.Name != "" {
		return p.Name, "", nil
	}
	i, err := m.ParticleIndex(p)
	if err != nil {
		return "", "", err
	}
	return "", strconv.Itoa(i), nil
}

func writeVector(v dynamo.State) *xmlVector {
	var comps [3]string
	for i, x := range v {
		comps[i] = formatFloat(x)
	}
	return &xmlVector{X: comps[0], Y: comps[1], Z: comps[2]}
}

func writeColor(c color.RGBA) *xmlColor {
	xc := &xmlColor{
		R: strconv.Itoa(int(c.R)),
		G: strconv.Itoa(int(c.G)),
		B: strconv.Itoa(int(c.B)),
	}
	if c.A != 0xff {
		xc.A = strconv.Itoa(int(c.A))
	}
	return xc
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

func LoadFile(path string, newModel ModelFactory) (*model.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Read(f, newModel)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func SaveFile(path string, m *model.Model) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
