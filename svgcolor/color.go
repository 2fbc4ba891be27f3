// Package svgcolor classifies SVG color specifications
// into the closed set of pen colors a plotter job is split by.
package svgcolor

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Name is one of the base pen colors.
type Name string

const (
	Black   Name = "black"
	White   Name = "white"
	Red     Name = "red"
	Green   Name = "green"
	Blue    Name = "blue"
	Yellow  Name = "yellow"
	Purple  Name = "purple"
	Orange  Name = "orange"
	Brown   Name = "brown"
	Pink    Name = "pink"
	Gray    Name = "gray"
	Cyan    Name = "cyan"
	Magenta Name = "magenta"
)

// RGB is an opaque color, with 8 bits per channel
// stored as floats to simplify distance computations.
type RGB struct{ R, G, B float64 }

// Swatch binds a pen color to its reference value.
type Swatch struct {
	Name  Name
	Value RGB
}

// Palette lists the base colors, in classification order:
// ties are resolved in favor of the first entry.
var Palette = [...]Swatch{
	{Black, RGB{0, 0, 0}},
	{White, RGB{255, 255, 255}},
	{Red, RGB{255, 0, 0}},
	{Green, RGB{0, 128, 0}},
	{Blue, RGB{0, 0, 255}},
	{Yellow, RGB{255, 255, 0}},
	{Purple, RGB{128, 0, 128}},
	{Orange, RGB{255, 165, 0}},
	{Brown, RGB{165, 42, 42}},
	{Pink, RGB{255, 192, 203}},
	{Gray, RGB{128, 128, 128}},
	{Cyan, RGB{0, 255, 255}},
	{Magenta, RGB{255, 0, 255}},
}

func lookup(s string) (RGB, bool) {
	for _, sw := range Palette {
		if string(sw.Name) == s {
			return sw.Value, true
		}
	}
	return RGB{}, false
}

var numberRe = regexp.MustCompile(`-?\d*\.?\d+%?`)

// numbers extracts the numeric components of a functional
// notation like rgb(...) or hsl(...), positionally.
func numbers(s string) (out []float64, percent []bool) {
	for _, m := range numberRe.FindAllString(s, -1) {
		isPercent := strings.HasSuffix(m, "%")
		f, err := strconv.ParseFloat(strings.TrimSuffix(m, "%"), 64)
		if err != nil {
			continue
		}
		out = append(out, f)
		percent = append(percent, isPercent)
	}
	return out, percent
}

func clamp255(f float64) float64 {
	return math.Max(0, math.Min(255, f))
}

func parseHex(s string) (RGB, bool) {
	// alpha is ignored
	switch len(s) {
	case 4:
		s = s[:3]
	case 8:
		s = s[:6]
	}
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return RGB{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{float64(v >> 16 & 0xff), float64(v >> 8 & 0xff), float64(v & 0xff)}, true
}

func hue2rgb(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	switch {
	case t < 1./6:
		return p + (q-p)*6*t
	case t < 1./2:
		return q
	case t < 2./3:
		return p + (q-p)*(2./3-t)*6
	default:
		return p
	}
}

// hslToRGB expects h in degrees, s and l in percent.
func hslToRGB(h, s, l float64) RGB {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	h /= 360
	s = math.Max(0, math.Min(100, s)) / 100
	l = math.Max(0, math.Min(100, l)) / 100
	if s == 0 {
		return RGB{l * 255, l * 255, l * 255}
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return RGB{
		R: math.Round(hue2rgb(p, q, h+1./3) * 255),
		G: math.Round(hue2rgb(p, q, h) * 255),
		B: math.Round(hue2rgb(p, q, h-1./3) * 255),
	}
}

// Parse reads a color specification: #rgb or #rrggbb hex,
// rgb()/rgba(), hsl()/hsla(), a palette name or a CSS color name.
// Only the first three components of functional notations are used.
func Parse(spec string) (RGB, bool) {
	s := strings.ToLower(strings.TrimSpace(spec))
	switch {
	case s == "":
		return RGB{}, false
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb"):
		vs, percent := numbers(s)
		if len(vs) < 3 {
			return RGB{}, false
		}
		for i := range vs[:3] {
			if percent[i] {
				vs[i] *= 2.55
			}
		}
		return RGB{clamp255(vs[0]), clamp255(vs[1]), clamp255(vs[2])}, true
	case strings.HasPrefix(s, "hsl"):
		vs, _ := numbers(s)
		if len(vs) < 3 {
			return RGB{}, false
		}
		return hslToRGB(vs[0], vs[1], vs[2]), true
	}
	if c, ok := lookup(s); ok {
		return c, true
	}
	if c, ok := colornames.Map[s]; ok {
		return RGB{float64(c.R), float64(c.G), float64(c.B)}, true
	}
	return RGB{}, false
}

// Nearest returns the palette color closest to c
// in euclidean RGB distance.
func Nearest(c RGB) Name {
	best, bestDist := Palette[0].Name, math.Inf(1)
	for _, sw := range Palette {
		dr, dg, db := c.R-sw.Value.R, c.G-sw.Value.G, c.B-sw.Value.B
		if d := math.Sqrt(dr*dr + dg*dg + db*db); d < bestDist {
			best, bestDist = sw.Name, d
		}
	}
	return best
}

// Resolve classifies a color specification into a pen color.
// Unparseable input resolves to Black.
func Resolve(spec string) Name {
	c, ok := Parse(spec)
	if !ok {
		return Black
	}
	return Nearest(c)
}

// IsPaint returns false for values which do not draw anything,
// or do not name a color by themselves: empty, "none",
// "transparent", "inherit" and "currentColor".
// Paint server references (url(#...)) are not paints either.
func IsPaint(spec string) bool {
	switch s := strings.ToLower(strings.TrimSpace(spec)); {
	case s == "", s == "none", s == "transparent", s == "inherit", s == "currentcolor":
		return false
	case strings.HasPrefix(s, "url("):
		return false
	}
	return true
}

// Chain resolves the drawing color of an element from its own
// specifications and the color inherited from its ancestors.
// The priority is: inline style stroke, stroke attribute,
// fill attribute, inherited stroke, and finally Black.
func Chain(styleStroke, strokeAttr, fillAttr string, inherited Name) Name {
	for _, spec := range [...]string{styleStroke, strokeAttr, fillAttr} {
		if IsPaint(spec) {
			return Resolve(spec)
		}
	}
	if inherited != "" {
		return inherited
	}
	return Black
}
