package svgpath

// This file implements the reduction of Bézier curves
// to line segments. The number of segments depends on how far
// the control polygon strays from the chord.

// curvatureRatio returns the length of the control polygon
// divided by the chord length. A degenerate chord yields +Inf
// (or NaN if the curve is a single point).
func curvatureRatio(pts ...Point) (ratio, polygon float64) {
	for i := 1; i < len(pts); i++ {
		polygon += pts[i-1].Dist(pts[i])
	}
	return polygon / pts[0].Dist(pts[len(pts)-1]), polygon
}

// CubicSegments returns the number of segments used
// to flatten a cubic Bézier curve.
func CubicSegments(p0, p1, p2, p3 Point) int {
	ratio, polygon := curvatureRatio(p0, p1, p2, p3)
	switch {
	case polygon == 0:
		return 1
	case ratio < 1.1:
		return 8
	case ratio < 1.5:
		return 16
	case ratio < 2:
		return 32
	case ratio < 3:
		return 64
	default:
		return 128
	}
}

// QuadSegments returns the number of segments used
// to flatten a quadratic Bézier curve.
func QuadSegments(p0, p1, p2 Point) int {
	ratio, polygon := curvatureRatio(p0, p1, p2)
	switch {
	case polygon == 0:
		return 1
	case ratio < 1.1:
		return 6
	case ratio < 1.3:
		return 12
	case ratio < 1.7:
		return 24
	case ratio < 2.2:
		return 48
	default:
		return 96
	}
}

// cubicAt evaluates the curve at t, in [0,1]
func cubicAt(p0, p1, p2, p3 Point, t float64) Point {
	mt := 1 - t
	a, b, c, d := mt*mt*mt, 3*mt*mt*t, 3*mt*t*t, t*t*t
	return Point{
		X: a*p0.X + b*p1.X + c*p2.X + d*p3.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y + d*p3.Y,
	}
}

// quadAt evaluates the curve at t, in [0,1]
func quadAt(p0, p1, p2 Point, t float64) Point {
	mt := 1 - t
	a, b, c := mt*mt, 2*mt*t, t*t
	return Point{
		X: a*p0.X + b*p1.X + c*p2.X,
		Y: a*p0.Y + b*p1.Y + c*p2.Y,
	}
}

// CubeBezier adds the flattened cubic curve from the current
// point p0 to p3. p0 itself is not added.
func (p *Path) CubeBezier(p0, p1, p2, p3 Point) {
	n := CubicSegments(p0, p1, p2, p3)
	for i := 1; i < n; i++ {
		p.Line(cubicAt(p0, p1, p2, p3, float64(i)/float64(n)))
	}
	p.Line(p3) // exact end point
}

// QuadBezier adds the flattened quadratic curve from the current
// point p0 to p2. p0 itself is not added.
func (p *Path) QuadBezier(p0, p1, p2 Point) {
	n := QuadSegments(p0, p1, p2)
	for i := 1; i < n; i++ {
		p.Line(quadAt(p0, p1, p2, float64(i)/float64(n)))
	}
	p.Line(p2)
}
