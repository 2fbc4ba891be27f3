package layout

import (
	"golang.org/x/image/math/f64"

	"github.com/penplot/penplot/svgpath"
)

// Mapper is the affine transform from drawing coordinates
// to machine coordinates, precomputed for a paper, a view box
// and a machine.
type Mapper struct {
	Scale   float64
	Area    Size
	ViewBox ViewBox // clamped
	Machine MachineConfig

	// Degenerate is true when the inputs produced a non finite
	// transform, which has been replaced by the identity.
	Degenerate bool
	Reason     string

	aff f64.Aff3
}

// NewMapper computes the mapping of MapPoint as a matrix.
func NewMapper(paper PaperConfig, vb ViewBox, machine MachineConfig) Mapper {
	area := paper.DrawingArea()
	vb = vb.Clamped()
	scale := Scale(area, vb)
	origin := MapPoint(svgpath.Point{}, scale, area, vb, paper)
	m := Mapper{
		Scale:   scale,
		Area:    area,
		ViewBox: vb,
		Machine: machine,
		aff:     f64.Aff3{scale, 0, origin.X, 0, -scale, origin.Y},
	}
	for _, c := range m.aff {
		if !isFinite(c) {
			m.Degenerate = true
			m.Reason = "non finite mapping (paper or view box out of range), identity used"
			m.Scale = 1
			m.aff = svgpath.Identity.Aff3()
			break
		}
	}
	return m
}

// MapPath transforms every point of p.
func (m Mapper) MapPath(p svgpath.Path) svgpath.Path {
	return p.Transform(svgpath.FromAff3(m.aff))
}

// Contains returns true if the machine point is inside the bed.
func (m Mapper) Contains(p svgpath.Point) bool {
	return m.Machine.Contains(p)
}
