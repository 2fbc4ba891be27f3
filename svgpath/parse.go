package svgpath

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/tdewolff/parse/v2/strconv"
)

// ErrParamMismatch is returned when a list of numbers
// does not have the expected length or contains garbage.
var ErrParamMismatch = errors.New("param mismatch")

// pathCursor is used while compiling the `d` attribute
// of a path element.
type pathCursor struct {
	path Path

	points     []float64 // arguments of the current command
	cur, start Point     // current point and start of the sub-path
	lastCtrl   Point     // last control point of a curve
	lastCurve  byte      // 'C' or 'Q' if the previous command was a curve

	skipping bool // stray numbers after an unknown command
	warnings []string
}

// argCount returns the number of arguments of the command, or -1
// if the command is not supported.
func argCount(cmd byte) int {
	switch cmd {
	case 'M', 'm', 'L', 'l', 'T', 't':
		return 2
	case 'H', 'h', 'V', 'v':
		return 1
	case 'C', 'c':
		return 6
	case 'S', 's', 'Q', 'q':
		return 4
	case 'A', 'a':
		return 7
	case 'Z', 'z':
		return 0
	default:
		return -1
	}
}

func isLetter(b byte) bool {
	return ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func skipCommaWhitespace(b []byte, i int) int {
	for i < len(b) && (b[i] == ' ' || b[i] == ',' || b[i] == '\n' || b[i] == '\r' || b[i] == '\t' || b[i] == '\f') {
		i++
	}
	return i
}

// skipToken advances past one unusable token.
func skipToken(b []byte, i int) int {
	if _, n := strconv.ParseFloat(b[i:]); n > 0 {
		return i + n
	}
	return i + 1
}

func (c *pathCursor) warnf(format string, args ...interface{}) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

// readArgs reads the arguments of cmd into c.points, starting at b[i].
// Arc flags may be written without separator.
func (c *pathCursor) readArgs(b []byte, i int, cmd byte) (int, bool) {
	c.points = c.points[:0]
	isArc := cmd == 'A' || cmd == 'a'
	for k := 0; k < argCount(cmd); k++ {
		i = skipCommaWhitespace(b, i)
		if i >= len(b) {
			return i, false
		}
		if isArc && (k == 3 || k == 4) {
			if b[i] != '0' && b[i] != '1' {
				return i, false
			}
			c.points = append(c.points, float64(b[i]-'0'))
			i++
			continue
		}
		f, n := strconv.ParseFloat(b[i:])
		if n == 0 {
			return i, false
		}
		c.points = append(c.points, f)
		i += n
	}
	return i, true
}

// compilePath translates the svg path data into the cursor path.
// Unknown commands and stray characters are reported as warnings
// and skipped, so that the rest of the data is still compiled.
func (c *pathCursor) compilePath(d string) {
	b := []byte(d)
	var cmd byte
	for i := 0; ; {
		i = skipCommaWhitespace(b, i)
		if i >= len(b) {
			return
		}
		if isLetter(b[i]) {
			cmd = b[i]
			i++
			if argCount(cmd) == -1 {
				c.warnf("unsupported path command %q at offset %d", cmd, i-1)
				c.skipping = true
				cmd = 0
				continue
			}
			c.skipping = false
			if cmd == 'Z' || cmd == 'z' {
				c.closePath()
				cmd = 0
			}
			continue
		}
		if cmd == 0 {
			if !c.skipping {
				c.warnf("unexpected %q at offset %d", b[i], i)
				c.skipping = true
			}
			i = skipToken(b, i)
			continue
		}
		next, ok := c.readArgs(b, i, cmd)
		if !ok {
			c.warnf("invalid parameters for path command %q at offset %d", cmd, i)
			c.skipping = true
			cmd = 0
			i = next
			if next < len(b) && !isLetter(b[next]) {
				i = skipToken(b, next)
			}
			continue
		}
		i = next
		c.execute(cmd)
		// extra coordinates after a move are implicit lines
		switch cmd {
		case 'M':
			cmd = 'L'
		case 'm':
			cmd = 'l'
		}
	}
}

func (c *pathCursor) abs(x, y float64, rel bool) Point {
	if rel {
		return Point{c.cur.X + x, c.cur.Y + y}
	}
	return Point{x, y}
}

// ensureStarted begins a sub-path at the current point
// when a drawing command comes first.
func (c *pathCursor) ensureStarted() {
	if len(c.path) == 0 {
		c.path.Start(c.cur)
		c.start = c.cur
	}
}

// reflected returns the implicit first control point of
// a smooth curve of the given family.
func (c *pathCursor) reflected(family byte) Point {
	if c.lastCurve != family {
		return c.cur
	}
	return Point{2*c.cur.X - c.lastCtrl.X, 2*c.cur.Y - c.lastCtrl.Y}
}

func (c *pathCursor) closePath() {
	if len(c.path) == 0 {
		return
	}
	c.path.Line(c.start)
	c.cur = c.start
	c.lastCurve = 0
}

func (c *pathCursor) execute(cmd byte) {
	rel := cmd >= 'a'
	p := c.points
	var curve byte
	switch cmd {
	case 'M', 'm':
		pt := c.abs(p[0], p[1], rel)
		c.path.Start(pt)
		c.cur, c.start = pt, pt
	case 'L', 'l':
		c.ensureStarted()
		c.cur = c.abs(p[0], p[1], rel)
		c.path.Line(c.cur)
	case 'H', 'h':
		c.ensureStarted()
		x := p[0]
		if rel {
			x += c.cur.X
		}
		c.cur = Point{x, c.cur.Y}
		c.path.Line(c.cur)
	case 'V', 'v':
		c.ensureStarted()
		y := p[0]
		if rel {
			y += c.cur.Y
		}
		c.cur = Point{c.cur.X, y}
		c.path.Line(c.cur)
	case 'C', 'c':
		c.ensureStarted()
		p1, p2, p3 := c.abs(p[0], p[1], rel), c.abs(p[2], p[3], rel), c.abs(p[4], p[5], rel)
		c.path.CubeBezier(c.cur, p1, p2, p3)
		c.cur, c.lastCtrl, curve = p3, p2, 'C'
	case 'S', 's':
		c.ensureStarted()
		p1 := c.reflected('C')
		p2, p3 := c.abs(p[0], p[1], rel), c.abs(p[2], p[3], rel)
		c.path.CubeBezier(c.cur, p1, p2, p3)
		c.cur, c.lastCtrl, curve = p3, p2, 'C'
	case 'Q', 'q':
		c.ensureStarted()
		p1, p2 := c.abs(p[0], p[1], rel), c.abs(p[2], p[3], rel)
		c.path.QuadBezier(c.cur, p1, p2)
		c.cur, c.lastCtrl, curve = p2, p1, 'Q'
	case 'T', 't':
		c.ensureStarted()
		p1 := c.reflected('Q')
		p2 := c.abs(p[0], p[1], rel)
		c.path.QuadBezier(c.cur, p1, p2)
		c.cur, c.lastCtrl, curve = p2, p1, 'Q'
	case 'A', 'a':
		c.ensureStarted()
		end := c.abs(p[5], p[6], rel)
		c.arcTo(p[0], p[1], p[2], p[3] != 0, p[4] != 0, end)
		c.cur = end
	}
	c.lastCurve = curve
}

// arcTo adds the elliptical arc from the current point to end.
func (c *pathCursor) arcTo(rx, ry, rotDeg float64, largeArc, sweep bool, end Point) {
	rx, ry = math.Abs(rx), math.Abs(ry)
	if rx == 0 || ry == 0 || end == c.cur {
		c.path.Line(end)
		return
	}
	cx, cy := findEllipseCenter(&rx, &ry, rotDeg*math.Pi/180, c.cur.X, c.cur.Y, end.X, end.Y, sweep, !largeArc)
	c.path.addArc([]float64{rx, ry, rotDeg, boolToFloat(largeArc), boolToFloat(sweep), end.X, end.Y}, cx, cy, c.cur.X, c.cur.Y)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// CompilePath parses the `d` attribute of a path element into
// a polyline. Curves are flattened. The returned warnings describe
// the parts of `d` that were skipped.
func CompilePath(d string) (Path, []string) {
	var c pathCursor
	c.compilePath(d)
	return c.path, c.warnings
}

// ParseFloats reads a list of numbers separated by commas
// and/or whitespace, as found in `points`, `viewBox` or
// transform arguments.
func ParseFloats(s string) ([]float64, error) {
	b := []byte(s)
	var out []float64
	for i := skipCommaWhitespace(b, 0); i < len(b); i = skipCommaWhitespace(b, i) {
		f, n := strconv.ParseFloat(b[i:])
		if n == 0 {
			return out, errors.Wrapf(ErrParamMismatch, "invalid number at offset %d in %q", i, s)
		}
		out = append(out, f)
		i += n
	}
	return out, nil
}
