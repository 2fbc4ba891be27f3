package svgpath

import (
	"math"
)

// This file implements the transformation from
// high level shapes to their polyline equivalent

// maxDx is the maximum radians a cubic splice is allowed to span
// in ellipse parametric when approximating an elliptical arc.
const maxDx float64 = math.Pi / 8

// Rect returns the closed outline of the rectangle:
// the four corners plus the return to the first one.
func Rect(x, y, w, h float64) Path {
	var p Path
	p.Start(Point{x, y})
	p.Line(Point{x + w, y})
	p.Line(Point{x + w, y + h})
	p.Line(Point{x, y + h})
	p.Stop(true)
	return p
}

// CircleSegments returns the number of segments
// used to approximate a circle of radius r.
func CircleSegments(r float64) int {
	switch {
	case r <= 10:
		return 16
	case r <= 50:
		return 32
	case r <= 100:
		return 64
	default:
		return 128
	}
}

// Circle returns a closed polygon approximating the circle,
// starting at (cx+r, cy).
func Circle(cx, cy, r float64) Path {
	return Ellipse(cx, cy, r, r)
}

// Ellipse returns a closed polygon approximating the axis aligned
// ellipse. The segment count is chosen from the larger radius.
func Ellipse(cx, cy, rx, ry float64) Path {
	n := CircleSegments(math.Max(rx, ry))
	var p Path
	p.Start(Point{cx + rx, cy})
	for i := 1; i < n; i++ {
		angle := float64(i) * 2 * math.Pi / float64(n)
		p.Line(Point{cx + rx*math.Cos(angle), cy + ry*math.Sin(angle)})
	}
	p.Stop(true)
	return p
}

// Line returns the 2-point path from a to b.
func Line(a, b Point) Path {
	return Path{MoveTo(a), LineTo(b)}
}

// Polyline returns the path through all the points.
// If closed is true, the path returns to its first point.
func Polyline(points []Point, closed bool) Path {
	if len(points) == 0 {
		return nil
	}
	p := make(Path, 0, len(points)+1)
	p.Start(points[0])
	for _, pt := range points[1:] {
		p.Line(pt)
	}
	p.Stop(closed)
	return p
}

// addArc adds an arc to the path p, approximated by cubic splines
// which are then flattened.
// points holds rx, ry, x-axis rotation (degrees), large arc and sweep flags,
// and the end point; (px, py) is the current point.
func (p *Path) addArc(points []float64, cx, cy, px, py float64) (lx, ly float64) {
	rotX := points[2] * math.Pi / 180
	largeArc := points[3] != 0
	sweep := points[4] != 0
	startAngle := math.Atan2(py-cy, px-cx) - rotX
	endAngle := math.Atan2(points[6]-cy, points[5]-cx) - rotX
	deltaTheta := endAngle - startAngle
	arcBig := math.Abs(deltaTheta) > math.Pi

	etaStart := math.Atan2(math.Sin(startAngle)/points[1], math.Cos(startAngle)/points[0])
	etaEnd := math.Atan2(math.Sin(endAngle)/points[1], math.Cos(endAngle)/points[0])
	deltaEta := etaEnd - etaStart
	if arcBig != largeArc {
		if deltaEta < 0 {
			deltaEta += math.Pi * 2
		} else {
			deltaEta -= math.Pi * 2
		}
	}
	// needed if the center of the ellipse is
	// at the midpoint of the start and end points.
	if deltaEta < 0 && sweep {
		deltaEta += math.Pi * 2
	} else if deltaEta >= 0 && !sweep {
		deltaEta -= math.Pi * 2
	}

	segs := int(math.Abs(deltaEta)/maxDx) + 1
	dEta := deltaEta / float64(segs) // span of each segment
	// L. Maisonobe, "Drawing an elliptical arc using polylines, quadratic
	// or cubic Bezier curves", 2003
	// https://www.spaceroots.org/documents/elllipse/elliptical-arc.pdf
	tde := math.Tan(dEta / 2)
	alpha := math.Sin(dEta) * (math.Sqrt(4+3*tde*tde) - 1) / 3
	lx, ly = px, py
	sinTheta, cosTheta := math.Sin(rotX), math.Cos(rotX)
	ldx, ldy := ellipsePrime(points[0], points[1], sinTheta, cosTheta, etaStart, cx, cy)
	for i := 1; i <= segs; i++ {
		eta := etaStart + dEta*float64(i)
		var px, py float64
		if i == segs {
			px, py = points[5], points[6] // exact end point, no roundoff
		} else {
			px, py = ellipsePointAt(points[0], points[1], sinTheta, cosTheta, eta, cx, cy)
		}
		dx, dy := ellipsePrime(points[0], points[1], sinTheta, cosTheta, eta, cx, cy)
		p.CubeBezier(Point{lx, ly}, Point{lx + alpha*ldx, ly + alpha*ldy},
			Point{px - alpha*dx, py - alpha*dy}, Point{px, py})
		lx, ly, ldx, ldy = px, py, dx, dy
	}
	return lx, ly
}

// ellipsePrime returns the tangent of the ellipse of radii (a, b)
// centered on (cx, cy) at the parameter eta.
func ellipsePrime(a, b, sinTheta, cosTheta, eta, cx, cy float64) (px, py float64) {
	bCosEta := b * math.Cos(eta)
	aSinEta := a * math.Sin(eta)
	px = -aSinEta*cosTheta - bCosEta*sinTheta
	py = -aSinEta*sinTheta + bCosEta*cosTheta
	return
}

// ellipsePointAt returns the point of the ellipse at the parameter eta.
func ellipsePointAt(a, b, sinTheta, cosTheta, eta, cx, cy float64) (px, py float64) {
	aCosEta := a * math.Cos(eta)
	bSinEta := b * math.Sin(eta)
	px = cx + aCosEta*cosTheta - bSinEta*sinTheta
	py = cy + aCosEta*sinTheta + bSinEta*cosTheta
	return
}

// findEllipseCenter returns the center of the ellipse going through the
// start and end points. Radii too small for such an ellipse are scaled
// up in place, keeping their ratio.
func findEllipseCenter(ra, rb *float64, rotX, startX, startY, endX, endY float64, sweep, smallArc bool) (cx, cy float64) {
	cos, sin := math.Cos(rotX), math.Sin(rotX)

	// Move origin to start point
	nx, ny := endX-startX, endY-startY

	// Rotate ellipse x-axis to coordinate x-axis
	nx, ny = nx*cos+ny*sin, -nx*sin+ny*cos
	// Scale X dimension so that ra = rb
	nx *= *rb / *ra // the ellipse is now a circle of radius rb

	midX, midY := nx/2, ny/2
	midlenSq := midX*midX + midY*midY

	var hr float64
	if *rb**rb < midlenSq {
		// Requested ellipse does not exist; scale ra, rb to fit.
		nrb := math.Sqrt(midlenSq)
		if *ra == *rb {
			*ra = nrb // prevents roundoff
		} else {
			*ra = *ra * nrb / *rb
		}
		*rb = nrb
	} else {
		hr = math.Sqrt(*rb**rb-midlenSq) / math.Sqrt(midlenSq)
	}
	// if hr is zero, both answers are the same.
	if sweep == smallArc {
		cx = midX + midY*hr
		cy = midY - midX*hr
	} else {
		cx = midX - midY*hr
		cy = midY + midX*hr
	}

	// reverse scale
	cx *= *ra / *rb
	// reverse rotate and translate back to original coordinates
	return cx*cos - cy*sin + startX, cx*sin + cy*cos + startY
}
