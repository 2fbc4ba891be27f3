package planner

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penplot/penplot/svgpath"
)

type pt = svgpath.Point

func TestSimplify(t *testing.T) {
	for _, tc := range []struct {
		points   []pt
		radius   float64
		expected []pt
	}{
		{[]pt{{X: 0, Y: 0}, {X: 0.1, Y: 0}}, 5, []pt{{X: 0, Y: 0}, {X: 0.1, Y: 0}}},
		{[]pt{{X: 0, Y: 0}, {X: 0.1, Y: 0}}, 0, []pt{{X: 0, Y: 0}, {X: 0.1, Y: 0}}},
		{[]pt{{X: 0, Y: 0}}, 5, []pt{{X: 0, Y: 0}}},
		{[]pt{{X: 0, Y: 0}, {X: 0.5, Y: 0}, {X: 1, Y: 0}, {X: 1.5, Y: 0}, {X: 2, Y: 0}, {X: 2.1, Y: 0}}, 1, []pt{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2.1, Y: 0}}},
		{[]pt{{X: 0, Y: 0}, {X: 0.2, Y: 0}, {X: 0.4, Y: 0}, {X: 10, Y: 0}}, 1, []pt{{X: 0, Y: 0}, {X: 10, Y: 0}}},
		{[]pt{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}, -1, []pt{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}},
	} {
		assert.Equal(t, tc.expected, Simplify(tc.points, tc.radius))
	}
}

func TestSimplifyTwoPoints(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		in := []pt{{X: r.Float64(), Y: r.Float64()}, {X: r.Float64(), Y: r.Float64()}}
		assert.Equal(t, in, Simplify(in, r.Float64()*10))
	}
}

func line(x0, y0, x1, y1 float64) svgpath.Path {
	return svgpath.Line(pt{X: x0, Y: y0}, pt{X: x1, Y: y1})
}

func TestOrder(t *testing.T) {
	paths := []svgpath.Path{
		line(10, 0, 20, 0),
		line(1, 0, 2, 0),
		line(30, 0, 21, 0), // picked by its end
	}
	out := Order(paths, pt{})
	require.Len(t, out, 3)
	assert.Equal(t, line(1, 0, 2, 0), out[0])
	assert.Equal(t, line(10, 0, 20, 0), out[1])
	assert.Equal(t, line(21, 0, 30, 0), out[2])
	assert.Less(t, TravelDistance(out, pt{}), TravelDistance(paths, pt{}))
}

func TestOrderTies(t *testing.T) {
	// same distance: first path, then start before end
	paths := []svgpath.Path{
		line(0, 5, 0, -5),
		line(5, 0, -5, 0),
	}
	out := Order(paths, pt{})
	assert.Equal(t, paths[0], out[0])

	// a closed path has equal start and end: never reversed
	square := svgpath.Rect(1, 1, 2, 2)
	out = Order([]svgpath.Path{square}, pt{})
	assert.Equal(t, square, out[0])
}

func sortedKeys(paths []svgpath.Path) []string {
	var keys []string
	for _, p := range paths {
		a, b := p.ToSVGPath(), p.Reverse().ToSVGPath()
		if b < a {
			a = b
		}
		keys = append(keys, a)
	}
	sort.Strings(keys)
	return keys
}

func TestOrderIsPermutation(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	var paths []svgpath.Path
	for i := 0; i < 50; i++ {
		paths = append(paths, line(r.Float64()*100, r.Float64()*100, r.Float64()*100, r.Float64()*100))
	}
	paths = append(paths, nil)
	out := Order(paths, pt{})
	assert.Len(t, out, len(paths))
	assert.Equal(t, sortedKeys(paths), sortedKeys(out))
}
