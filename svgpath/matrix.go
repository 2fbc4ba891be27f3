package svgpath

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Matrix2D represents the affine transform
//
//	| A C E |
//	| B D F |
//	| 0 0 1 |
//
// following the SVG `matrix(a b c d e f)` convention.
type Matrix2D struct {
	A, B, C, D, E, F float64
}

// Identity is the identity transform.
var Identity = Matrix2D{1, 0, 0, 1, 0, 0}

// Mult returns a*b: b is applied first.
func (a Matrix2D) Mult(b Matrix2D) Matrix2D {
	return Matrix2D{
		A: a.A*b.A + a.C*b.B,
		B: a.B*b.A + a.D*b.B,
		C: a.A*b.C + a.C*b.D,
		D: a.B*b.C + a.D*b.D,
		E: a.A*b.E + a.C*b.F + a.E,
		F: a.B*b.E + a.D*b.F + a.F,
	}
}

// Translate returns a.Mult(translation(x, y))
func (a Matrix2D) Translate(x, y float64) Matrix2D {
	return a.Mult(Matrix2D{1, 0, 0, 1, x, y})
}

// Scale returns a.Mult(scaling(x, y))
func (a Matrix2D) Scale(x, y float64) Matrix2D {
	return a.Mult(Matrix2D{x, 0, 0, y, 0, 0})
}

// Rotate returns a.Mult(rotation(theta)), with theta in radians.
func (a Matrix2D) Rotate(theta float64) Matrix2D {
	s, c := math.Sincos(theta)
	return a.Mult(Matrix2D{c, s, -s, c, 0, 0})
}

// SkewX returns a.Mult(skewX(theta)), with theta in radians.
func (a Matrix2D) SkewX(theta float64) Matrix2D {
	return a.Mult(Matrix2D{1, 0, math.Tan(theta), 1, 0, 0})
}

// SkewY returns a.Mult(skewY(theta)), with theta in radians.
func (a Matrix2D) SkewY(theta float64) Matrix2D {
	return a.Mult(Matrix2D{1, math.Tan(theta), 0, 1, 0, 0})
}

// Apply transforms the point p.
func (a Matrix2D) Apply(p Point) Point {
	return Point{
		X: a.A*p.X + a.C*p.Y + a.E,
		Y: a.B*p.X + a.D*p.Y + a.F,
	}
}

// IsIdentity is true for the identity transform.
func (a Matrix2D) IsIdentity() bool { return a == Identity }

// Aff3 returns the matrix in the row-major layout
// used by golang.org/x/image.
func (a Matrix2D) Aff3() f64.Aff3 {
	return f64.Aff3{a.A, a.C, a.E, a.B, a.D, a.F}
}

// FromAff3 is the inverse of Aff3.
func FromAff3(m f64.Aff3) Matrix2D {
	return Matrix2D{A: m[0], C: m[1], E: m[2], B: m[3], D: m[4], F: m[5]}
}
