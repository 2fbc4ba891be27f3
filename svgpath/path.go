// Implements an abstract representation of
// plotter paths: every SVG shape or curve is reduced
// to polylines made of move and line operations.
package svgpath

import (
	"math"
	"strconv"
	"strings"
)

// Point is a planar coordinate. Its unit depends on the pipeline
// stage: SVG user units, paper millimeters or machine millimeters.
type Point struct{ X, Y float64 }

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// IsFinite is false if one of the coordinates is NaN or infinite.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Operation groups the two polyline commands
type Operation interface {
	point() Point
}

// MoveTo starts a new sub-path, with the pen up.
type MoveTo Point

// LineTo draws a straight segment from the current point.
type LineTo Point

func (op MoveTo) point() Point { return Point(op) }
func (op LineTo) point() Point { return Point(op) }

// Path describes a sequence of move and line operations.
// Higher-level shapes and curves are reduced to a path.
type Path []Operation

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToSVGPath returns a string representation of the path,
// suitable for the `d` attribute of an SVG path element.
func (p Path) ToSVGPath() string {
	chunks := make([]string, len(p))
	for i, op := range p {
		switch op := op.(type) {
		case MoveTo:
			chunks[i] = "M " + formatFloat(op.X) + " " + formatFloat(op.Y)
		case LineTo:
			chunks[i] = "L " + formatFloat(op.X) + " " + formatFloat(op.Y)
		}
	}
	return strings.Join(chunks, " ")
}

// String returns a readable representation of a Path.
func (p Path) String() string {
	return p.ToSVGPath()
}

// Start starts a new sub-path at the given point.
func (p *Path) Start(a Point) {
	*p = append(*p, MoveTo(a))
}

// Line adds a linear segment to the current sub-path.
func (p *Path) Line(b Point) {
	*p = append(*p, LineTo(b))
}

// Stop closes the current sub-path with a line back
// to its first point, if closeLoop is true.
func (p *Path) Stop(closeLoop bool) {
	if !closeLoop || len(*p) == 0 {
		return
	}
	for i := len(*p) - 1; i >= 0; i-- {
		if m, ok := (*p)[i].(MoveTo); ok {
			p.Line(Point(m))
			return
		}
	}
}

// Points returns every point of the path, in order.
func (p Path) Points() []Point {
	out := make([]Point, len(p))
	for i, op := range p {
		out[i] = op.point()
	}
	return out
}

// SubPaths splits the path at each MoveTo. A LineTo without
// a preceding MoveTo starts an implicit sub-path.
func (p Path) SubPaths() [][]Point {
	var (
		out     [][]Point
		current []Point
	)
	for _, op := range p {
		if _, isMove := op.(MoveTo); isMove && len(current) > 0 {
			out = append(out, current)
			current = nil
		}
		current = append(current, op.point())
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

// First returns the first point of the path.
// It panics on an empty path.
func (p Path) First() Point { return p[0].point() }

// Last returns the last point of the path.
// It panics on an empty path.
func (p Path) Last() Point { return p[len(p)-1].point() }

// Reverse returns a new path drawing the same segments
// in the opposite direction: the sub-paths are visited
// from last to first, each one walked backward.
func (p Path) Reverse() Path {
	subs := p.SubPaths()
	out := make(Path, 0, len(p))
	for i := len(subs) - 1; i >= 0; i-- {
		sub := subs[i]
		out.Start(sub[len(sub)-1])
		for j := len(sub) - 2; j >= 0; j-- {
			out.Line(sub[j])
		}
	}
	return out
}

// Transform returns a copy of the path with m applied to every point.
func (p Path) Transform(m Matrix2D) Path {
	out := make(Path, len(p))
	for i, op := range p {
		switch op := op.(type) {
		case MoveTo:
			out[i] = MoveTo(m.Apply(Point(op)))
		case LineTo:
			out[i] = LineTo(m.Apply(Point(op)))
		}
	}
	return out
}

// FromSubPaths builds a path starting a new sub-path
// for each slice of points. Empty slices are skipped.
func FromSubPaths(subs [][]Point) Path {
	var out Path
	for _, sub := range subs {
		if len(sub) == 0 {
			continue
		}
		out.Start(sub[0])
		for _, pt := range sub[1:] {
			out.Line(pt)
		}
	}
	return out
}

// Bounds returns the extent of the path points.
// ok is false for an empty path.
func (p Path) Bounds() (min, max Point, ok bool) {
	if len(p) == 0 {
		return min, max, false
	}
	min, max = p.First(), p.First()
	for _, op := range p[1:] {
		pt := op.point()
		min.X, min.Y = math.Min(min.X, pt.X), math.Min(min.Y, pt.Y)
		max.X, max.Y = math.Max(max.X, pt.X), math.Max(max.Y, pt.Y)
	}
	return min, max, true
}

// Drawer knows how to do the actual pen moves
// but doesn't need any SVG knowledge.
type Drawer interface {
	// Start moves to `a` with the pen up, starting a new stroke.
	Start(a Point)
	// Line draws a segment from the current point to `b`.
	Line(b Point)
}

// DrawTo replays the path on the drawer.
func (p Path) DrawTo(d Drawer) {
	for _, op := range p {
		switch op := op.(type) {
		case MoveTo:
			d.Start(Point(op))
		case LineTo:
			d.Line(Point(op))
		}
	}
}
