// Provides the normalization of SVG documents for pen plotting.
// SVG files are parsed into an owned element tree, and every
// drawable shape is reduced to a polyline path tagged with its
// pen color. The result is both a new, normalized tree and the
// list of colored paths, which can then be consumed by the
// G-code emitter.
package svgdoc

import (
	"io"
	"log"
	"os"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	"golang.org/x/net/html/charset"

	"github.com/penplot/penplot/layout"
	"github.com/penplot/penplot/svgcolor"
	"github.com/penplot/penplot/svgpath"
)

// ErrorMode is the for setting how the parser reacts to unparsed elements
type ErrorMode uint8

const (
	// IgnoreErrorMode skips unsupported elements silently.
	IgnoreErrorMode ErrorMode = iota
	// WarnErrorMode logs a warning for unsupported elements.
	WarnErrorMode
	// StrictErrorMode returns an error on unsupported elements.
	StrictErrorMode
)

// Options tune the normalization.
type Options struct {
	ErrorMode ErrorMode
	// Logger receives the warnings in WarnErrorMode.
	// The standard logger is used if nil.
	Logger *log.Logger
}

// ColoredPath binds a pen color to a path.
type ColoredPath struct {
	Path  svgpath.Path
	Color svgcolor.Name
	// ID and Tag identify the source element.
	ID, Tag string
}

// Bounds defines a bounding box, such as a viewport
// or a path extent.
type Bounds struct{ X, Y, W, H float64 }

func (b Bounds) positive() bool { return b.W > 0 && b.H > 0 }

// Drawing holds data from a normalized SVG.
type Drawing struct {
	ViewBox      Bounds   // viewBox attribute, zero if missing
	HasViewBox   bool     // a valid viewBox attribute was read
	Width        string   // top level width attribute
	Height       string   // top level height attribute
	Titles       []string // Title elements collect here
	Descriptions []string // Description elements collect here

	// Paths are in document order, in SVG user units,
	// with the transforms applied.
	Paths []ColoredPath

	// Warnings describes the skipped elements and path data,
	// whatever the error mode.
	Warnings []string

	// Doc is the normalized document: shapes are replaced by
	// `path` elements using only M and L commands, with
	// a `data-color` attribute.
	Doc *etree.Document
}

// ReadDrawingStream reads and normalizes the SVG document from the given io.Reader.
func ReadDrawingStream(stream io.Reader, opts Options) (*Drawing, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	doc.ReadSettings.Permissive = true
	if _, err := doc.ReadFrom(stream); err != nil {
		return nil, errors.Wrap(err, "invalid svg xml")
	}
	return Normalize(doc, opts)
}

// ReadDrawing reads and normalizes the named SVG file.
func ReadDrawing(file string, opts Options) (*Drawing, error) {
	fin, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer fin.Close()
	return ReadDrawingStream(fin, opts)
}

// Normalize walks the source tree and returns the normalized drawing.
// The source document is not modified.
func Normalize(src *etree.Document, opts Options) (*Drawing, error) {
	root := src.Root()
	if root == nil {
		return nil, errors.New("invalid svg: empty document")
	}
	if root.Tag != "svg" {
		return nil, errors.Errorf("invalid svg: root element is <%s>", root.Tag)
	}
	drawing := &Drawing{Doc: etree.NewDocument()}
	drawing.Doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	c := newCursor(drawing, opts)
	c.indexIDs(root)
	if err := c.readRoot(root); err != nil {
		return nil, err
	}
	drawing.Doc.Indent(2)
	return drawing, nil
}

// WriteTo writes the normalized document.
func (d *Drawing) WriteTo(w io.Writer) (int64, error) {
	return d.Doc.WriteTo(w)
}

// PathBounds returns the extent of all the paths.
// ok is false if there are no points.
func (d *Drawing) PathBounds() (b Bounds, ok bool) {
	var min, max svgpath.Point
	for _, p := range d.Paths {
		pmin, pmax, has := p.Path.Bounds()
		if !has {
			continue
		}
		if !ok {
			min, max, ok = pmin, pmax, true
			continue
		}
		if pmin.X < min.X {
			min.X = pmin.X
		}
		if pmin.Y < min.Y {
			min.Y = pmin.Y
		}
		if pmax.X > max.X {
			max.X = pmax.X
		}
		if pmax.Y > max.Y {
			max.Y = pmax.Y
		}
	}
	return Bounds{X: min.X, Y: min.Y, W: max.X - min.X, H: max.Y - min.Y}, ok
}

// ContentBox returns the rectangle to fit on the paper: the viewBox
// attribute if any, then the extent of the paths, then the width and
// height attributes, and finally a 100x100 square. The result is
// clamped to at least 1 unit in each direction, so that an explicit
// viewBox of zero size maps to a 1x1 box.
func (d *Drawing) ContentBox() layout.ViewBox {
	if d.HasViewBox {
		return layout.ViewBox{MinX: d.ViewBox.X, MinY: d.ViewBox.Y, Width: d.ViewBox.W, Height: d.ViewBox.H}.Clamped()
	}
	if b, ok := d.PathBounds(); ok {
		return layout.ViewBox{MinX: b.X, MinY: b.Y, Width: b.W, Height: b.H}.Clamped()
	}
	w, errW := parseLength(d.Width)
	h, errH := parseLength(d.Height)
	if errW == nil && errH == nil && w > 0 && h > 0 {
		return layout.ViewBox{Width: w, Height: h}.Clamped()
	}
	return layout.ViewBox{Width: 100, Height: 100}
}

// ByColor groups the paths by pen color. Colors are returned in
// order of first appearance in the document.
func (d *Drawing) ByColor() ([]svgcolor.Name, map[svgcolor.Name][]svgpath.Path) {
	var colors []svgcolor.Name
	byColor := make(map[svgcolor.Name][]svgpath.Path)
	for _, p := range d.Paths {
		if len(p.Path) == 0 {
			continue
		}
		if _, seen := byColor[p.Color]; !seen {
			colors = append(colors, p.Color)
		}
		byColor[p.Color] = append(byColor[p.Color], p.Path)
	}
	return colors, byColor
}
