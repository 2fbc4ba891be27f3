package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/penplot/penplot/svgpath"
)

var a4 = PaperConfig{Width: 210, Height: 297, MarginTop: 10, MarginRight: 10, MarginBottom: 10, MarginLeft: 10}

func TestPaperValidate(t *testing.T) {
	assert.NoError(t, a4.Validate())
	assert.Error(t, PaperConfig{Width: 0, Height: 10}.Validate())
	assert.Error(t, PaperConfig{Width: 10, Height: 10, MarginLeft: -1}.Validate())
	assert.Error(t, PaperConfig{Width: 10, Height: 10, MarginLeft: 5, MarginRight: 5}.Validate())
	assert.NoError(t, DefaultMachine.Validate())
	assert.Error(t, MachineConfig{}.Validate())
}

func TestMapPoint(t *testing.T) {
	vb := ViewBox{Width: 100, Height: 100}
	area := a4.DrawingArea()
	assert.Equal(t, Size{190, 277}, area)

	scale := Scale(area, vb)
	assert.Equal(t, 1.9, scale)

	// the drawing is centered vertically: slack = 277-190 = 87
	p := MapPoint(svgpath.Point{X: 0, Y: 0}, scale, area, vb, a4)
	assert.InDelta(t, -95, p.X, 1e-9)
	assert.InDelta(t, 95, p.Y, 1e-9)

	p = MapPoint(svgpath.Point{X: 100, Y: 100}, scale, area, vb, a4)
	assert.InDelta(t, 95, p.X, 1e-9)
	assert.InDelta(t, -95, p.Y, 1e-9)

	// view box offset
	vb2 := ViewBox{MinX: 50, MinY: 50, Width: 100, Height: 100}
	p = MapPoint(svgpath.Point{X: 50, Y: 50}, scale, area, vb2, a4)
	assert.InDelta(t, -95, p.X, 1e-9)
	assert.InDelta(t, 95, p.Y, 1e-9)
}

func mapOne(m Mapper, p svgpath.Point) svgpath.Point {
	return m.MapPath(svgpath.Line(p, p)).Points()[0]
}

func TestMapperMatchesMapPoint(t *testing.T) {
	vb := ViewBox{MinX: -20, MinY: 5, Width: 300, Height: 120}
	m := NewMapper(a4, vb, DefaultMachine)
	assert.False(t, m.Degenerate)
	for _, pt := range []svgpath.Point{{X: 0, Y: 0}, {X: -20, Y: 5}, {X: 280, Y: 125}, {X: 13.5, Y: 77}} {
		expected := MapPoint(pt, m.Scale, m.Area, vb, a4)
		got := mapOne(m, pt)
		assert.InDelta(t, expected.X, got.X, 1e-9)
		assert.InDelta(t, expected.Y, got.Y, 1e-9)
	}

	path := svgpath.Rect(-20, 5, 300, 120)
	mapped := m.MapPath(path)
	for i, pt := range path.Points() {
		assert.InDelta(t, mapOne(m, pt).X, mapped.Points()[i].X, 1e-9)
		assert.InDelta(t, mapOne(m, pt).Y, mapped.Points()[i].Y, 1e-9)
	}
}

func TestDegenerateViewBox(t *testing.T) {
	m := NewMapper(a4, ViewBox{}, DefaultMachine)
	assert.False(t, m.Degenerate)
	assert.False(t, math.IsNaN(m.Scale) || math.IsInf(m.Scale, 0))
	assert.True(t, mapOne(m, svgpath.Point{X: 3, Y: 4}).IsFinite())

	m = NewMapper(a4, ViewBox{Width: math.NaN(), Height: math.Inf(1)}, DefaultMachine)
	assert.True(t, mapOne(m, svgpath.Point{X: 3, Y: 4}).IsFinite())

	m = NewMapper(PaperConfig{Width: math.NaN(), Height: 10}, ViewBox{Width: 10, Height: 10}, DefaultMachine)
	assert.True(t, m.Degenerate)
	assert.NotEmpty(t, m.Reason)
	assert.Equal(t, svgpath.Point{X: 3, Y: 4}, mapOne(m, svgpath.Point{X: 3, Y: 4}))
}

func TestContains(t *testing.T) {
	assert.True(t, DefaultMachine.Contains(svgpath.Point{}))
	assert.True(t, DefaultMachine.Contains(svgpath.Point{X: 126.225, Y: -124.801}))
	assert.False(t, DefaultMachine.Contains(svgpath.Point{X: 127, Y: 0}))
	min, max := DefaultMachine.Bounds()
	assert.Equal(t, svgpath.Point{X: -126.225, Y: -124.801}, min)
	assert.Equal(t, svgpath.Point{X: 126.225, Y: 124.801}, max)
}
