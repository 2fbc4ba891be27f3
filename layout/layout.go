// Package layout maps drawing coordinates (SVG user units)
// onto the paper and the plotter bed, in millimeters.
//
// The paper is centered on the machine origin, the drawing
// is scaled uniformly to fit inside the margins and centered
// in the remaining area. The machine Y axis points up.
package layout

import (
	"math"

	"github.com/pkg/errors"

	"github.com/penplot/penplot/svgpath"
)

// PaperConfig describes the sheet, in millimeters.
type PaperConfig struct {
	Width, Height float64

	MarginTop, MarginRight, MarginBottom, MarginLeft float64
}

// Validate checks that the paper has a positive drawing area.
func (p PaperConfig) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return errors.Errorf("invalid paper size %gx%g", p.Width, p.Height)
	}
	if p.MarginTop < 0 || p.MarginRight < 0 || p.MarginBottom < 0 || p.MarginLeft < 0 {
		return errors.New("negative paper margin")
	}
	if p.MarginLeft+p.MarginRight >= p.Width || p.MarginTop+p.MarginBottom >= p.Height {
		return errors.New("margins leave no drawing area")
	}
	return nil
}

// Size is a width and a height.
type Size struct{ W, H float64 }

// DrawingArea returns the paper size minus the margins.
// Each dimension is at least 1mm.
func (p PaperConfig) DrawingArea() Size {
	return Size{
		W: math.Max(1, p.Width-p.MarginLeft-p.MarginRight),
		H: math.Max(1, p.Height-p.MarginTop-p.MarginBottom),
	}
}

// MachineConfig describes the travel envelope of the plotter,
// centered on (0,0), in millimeters.
type MachineConfig struct {
	BedWidth, BedHeight float64
}

// DefaultMachine is the bed of the reference polargraph.
var DefaultMachine = MachineConfig{BedWidth: 252.45, BedHeight: 249.602}

// Validate checks that the bed has a positive size.
func (m MachineConfig) Validate() error {
	if m.BedWidth <= 0 || m.BedHeight <= 0 {
		return errors.Errorf("invalid bed size %gx%g", m.BedWidth, m.BedHeight)
	}
	return nil
}

// Bounds returns the corners of the bed.
func (m MachineConfig) Bounds() (min, max svgpath.Point) {
	return svgpath.Point{X: -m.BedWidth / 2, Y: -m.BedHeight / 2},
		svgpath.Point{X: m.BedWidth / 2, Y: m.BedHeight / 2}
}

// Contains returns true if p is inside the bed (borders included).
func (m MachineConfig) Contains(p svgpath.Point) bool {
	min, max := m.Bounds()
	return min.X <= p.X && p.X <= max.X && min.Y <= p.Y && p.Y <= max.Y
}

// ViewBox is the rectangle the drawing is authored in,
// in SVG user units.
type ViewBox struct {
	MinX, MinY, Width, Height float64
}

// Clamped returns a copy of the view box with width and height
// at least 1, so that scaling never divides by zero.
// Non-finite values are replaced by safe defaults.
func (v ViewBox) Clamped() ViewBox {
	if !isFinite(v.Width) || v.Width < 1 {
		v.Width = 1
	}
	if !isFinite(v.Height) || v.Height < 1 {
		v.Height = 1
	}
	if !isFinite(v.MinX) {
		v.MinX = 0
	}
	if !isFinite(v.MinY) {
		v.MinY = 0
	}
	return v
}

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Scale returns the uniform scale fitting the view box in the area.
func Scale(area Size, vb ViewBox) float64 {
	vb = vb.Clamped()
	return math.Min(area.W/vb.Width, area.H/vb.Height)
}

// MapPoint maps a point of the drawing into machine coordinates.
// The machine shares the paper unit and origin, only the Y axis
// is flipped.
func MapPoint(p svgpath.Point, scale float64, area Size, vb ViewBox, paper PaperConfig) svgpath.Point {
	vb = vb.Clamped()
	offsetX := -paper.Width/2 + paper.MarginLeft + (area.W-vb.Width*scale)/2
	offsetY := -paper.Height/2 + paper.MarginTop + (area.H-vb.Height*scale)/2
	xPaper := offsetX + (p.X-vb.MinX)*scale
	yPaper := offsetY + (p.Y-vb.MinY)*scale
	return svgpath.Point{X: xPaper, Y: -yPaper}
}
