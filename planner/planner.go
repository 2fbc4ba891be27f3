// Package planner reduces pen-up travel: it orders the strokes of a
// plot with a greedy nearest endpoint heuristic, and thins polylines
// whose points are closer than the pen can render.
package planner

import (
	"github.com/penplot/penplot/svgpath"
)

// Simplify keeps the first point, then every point at least
// minDistance away from the last kept point. The last point is
// always kept, so the stroke is never truncated.
// The input is returned unchanged if minDistance <= 0 or it has
// fewer than 2 points.
func Simplify(points []svgpath.Point, minDistance float64) []svgpath.Point {
	if minDistance <= 0 || len(points) < 2 {
		return points
	}
	out := []svgpath.Point{points[0]}
	last := points[0]
	for _, pt := range points[1 : len(points)-1] {
		if pt.Dist(last) >= minDistance {
			out = append(out, pt)
			last = pt
		}
	}
	return append(out, points[len(points)-1])
}

// Order returns the paths sorted by a nearest neighbor walk starting
// at origin. At each step, the start and the end of every remaining
// path are candidates; a path picked by its end is reversed. On equal
// distances the earliest path in the input wins, and its start is
// preferred over its end.
// Empty paths are kept, at the end of the output.
func Order(paths []svgpath.Path, origin svgpath.Point) []svgpath.Path {
	out := make([]svgpath.Path, 0, len(paths))
	used := make([]bool, len(paths))
	var empty []svgpath.Path
	remaining := 0
	for i, p := range paths {
		if len(p) == 0 {
			used[i] = true
			empty = append(empty, p)
			continue
		}
		remaining++
	}

	pen := origin
	for ; remaining > 0; remaining-- {
		best, reverse := -1, false
		var bestDist float64
		for i, p := range paths {
			if used[i] {
				continue
			}
			if d := pen.Dist(p.First()); best == -1 || d < bestDist {
				best, reverse, bestDist = i, false, d
			}
			if d := pen.Dist(p.Last()); d < bestDist {
				best, reverse, bestDist = i, true, d
			}
		}
		used[best] = true
		chosen := paths[best]
		if reverse {
			chosen = chosen.Reverse()
		}
		out = append(out, chosen)
		pen = chosen.Last()
	}
	return append(out, empty...)
}

// TravelDistance returns the total pen-up distance of drawing
// the paths in order, starting from origin.
func TravelDistance(paths []svgpath.Path, origin svgpath.Point) float64 {
	var total float64
	pen := origin
	for _, p := range paths {
		for _, sub := range p.SubPaths() {
			total += pen.Dist(sub[0])
			pen = sub[len(sub)-1]
		}
	}
	return total
}
