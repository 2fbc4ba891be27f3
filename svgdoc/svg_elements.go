package svgdoc

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"

	"github.com/penplot/penplot/svgpath"
)

func init() {
	// avoids cyclical static declaration
	// called on package initialization
	for _, tag := range [...]string{"svg", "g", "a", "switch"} {
		drawFuncs[tag] = gF
	}
	drawFuncs["use"] = useF
}

type svgFunc func(c *drawingCursor, el, parent *etree.Element) error

var drawFuncs = map[string]svgFunc{
	"line":     lineF,
	"rect":     rectF,
	"circle":   circleF,
	"ellipse":  circleF, // circleF handles ellipse also
	"polyline": polylineF,
	"polygon":  polygonF,
	"path":     pathF,
	"desc":     descF,
	"title":    titleF,
}

// skippedElements are copied as is, and never drawn.
var skippedElements = map[string]bool{
	"defs":           true,
	"symbol":         true,
	"clipPath":       true,
	"mask":           true,
	"marker":         true,
	"pattern":        true,
	"style":          true,
	"metadata":       true,
	"linearGradient": true,
	"radialGradient": true,
}

// attributes replaced by the path data in the output tree
var (
	transformAttrs = map[string]bool{"transform": true}
	rectAttrs      = map[string]bool{"transform": true, "x": true, "y": true, "width": true, "height": true, "rx": true, "ry": true}
	circleAttrs    = map[string]bool{"transform": true, "cx": true, "cy": true, "r": true, "rx": true, "ry": true}
	lineAttrs      = map[string]bool{"transform": true, "x1": true, "y1": true, "x2": true, "y2": true}
	polyAttrs      = map[string]bool{"transform": true, "points": true}
	pathAttrs      = map[string]bool{"transform": true, "d": true}
	useAttrs       = map[string]bool{"transform": true, "x": true, "y": true, "width": true, "height": true, "href": true}
)

// gF copies the container and walks its children.
func gF(c *drawingCursor, el, parent *etree.Element) error {
	out := shallowCopy(el, transformAttrs)
	parent.AddChild(out)
	return c.readChildren(el, out)
}

func rectF(c *drawingCursor, el, parent *etree.Element) error {
	var x, y, w, h, rx, ry float64
	err := c.readLengths(el, map[string]*float64{
		"x": &x, "y": &y, "width": &w, "height": &h, "rx": &rx, "ry": &ry,
	})
	if err != nil {
		return c.handleError(err)
	}
	if w <= 0 || h <= 0 { // not drawn, but not an error
		return nil
	}
	c.addPath(el, parent, svgpath.Rect(x, y, w, h), rectAttrs)
	return nil
}

func circleF(c *drawingCursor, el, parent *etree.Element) error {
	var cx, cy, r, rx, ry float64
	err := c.readLengths(el, map[string]*float64{
		"cx": &cx, "cy": &cy, "r": &r, "rx": &rx, "ry": &ry,
	})
	if err != nil {
		return c.handleError(err)
	}
	var path svgpath.Path
	if el.Tag == "circle" {
		if r <= 0 {
			return nil
		}
		path = svgpath.Circle(cx, cy, r)
	} else {
		// a single radius applies to both axis
		if rx <= 0 {
			rx = ry
		}
		if ry <= 0 {
			ry = rx
		}
		if rx <= 0 || ry <= 0 {
			return nil
		}
		path = svgpath.Ellipse(cx, cy, rx, ry)
	}
	c.addPath(el, parent, path, circleAttrs)
	return nil
}

func lineF(c *drawingCursor, el, parent *etree.Element) error {
	var x1, x2, y1, y2 float64
	err := c.readLengths(el, map[string]*float64{
		"x1": &x1, "y1": &y1, "x2": &x2, "y2": &y2,
	})
	if err != nil {
		return c.handleError(err)
	}
	c.addPath(el, parent, svgpath.Line(svgpath.Point{X: x1, Y: y1}, svgpath.Point{X: x2, Y: y2}), lineAttrs)
	return nil
}

func readPoints(el *etree.Element) ([]svgpath.Point, error) {
	coords, err := svgpath.ParseFloats(attrValue(el, "points"))
	if err != nil {
		return nil, errors.Wrapf(err, "<%s> attribute points", el.Tag)
	}
	if len(coords)%2 != 0 {
		return nil, errors.Errorf("<%s> has an odd number of coordinates", el.Tag)
	}
	points := make([]svgpath.Point, len(coords)/2)
	for i := range points {
		points[i] = svgpath.Point{X: coords[2*i], Y: coords[2*i+1]}
	}
	return points, nil
}

func polyF(c *drawingCursor, el, parent *etree.Element, closed bool) error {
	points, err := readPoints(el)
	if err != nil {
		return c.handleError(err)
	}
	c.addPath(el, parent, svgpath.Polyline(points, closed), polyAttrs)
	return nil
}

func polylineF(c *drawingCursor, el, parent *etree.Element) error {
	return polyF(c, el, parent, false)
}

func polygonF(c *drawingCursor, el, parent *etree.Element) error {
	return polyF(c, el, parent, true)
}

func pathF(c *drawingCursor, el, parent *etree.Element) error {
	path, warnings := svgpath.CompilePath(attrValue(el, "d"))
	for _, w := range warnings {
		c.warnf("<%s id=%q>: %s", el.Tag, attrValue(el, "id"), w)
	}
	c.addPath(el, parent, path, pathAttrs)
	return nil
}

func descF(c *drawingCursor, el, parent *etree.Element) error {
	c.drawing.Descriptions = append(c.drawing.Descriptions, strings.TrimSpace(el.Text()))
	parent.AddChild(el.Copy())
	return nil
}

func titleF(c *drawingCursor, el, parent *etree.Element) error {
	c.drawing.Titles = append(c.drawing.Titles, strings.TrimSpace(el.Text()))
	parent.AddChild(el.Copy())
	return nil
}

// useF draws the referenced element in place, as a group
// offset by the x and y attributes.
func useF(c *drawingCursor, el, parent *etree.Element) error {
	var x, y float64
	if err := c.readLengths(el, map[string]*float64{"x": &x, "y": &y}); err != nil {
		return c.handleError(err)
	}
	href := attrValue(el, "href")
	if href == "" {
		return c.handleError(errors.New("only use tags with href is supported"))
	}
	if !strings.HasPrefix(href, "#") {
		return c.handleError(errors.Errorf("only the ID CSS selector is supported, got %q", href))
	}
	ref, ok := c.ids[href[1:]]
	if !ok {
		return c.handleError(errors.Errorf("href %q in use statement was not found", href))
	}
	if c.useDepth >= maxUseDepth {
		return c.handleError(errors.Errorf("use of %q nested too deeply", href))
	}

	out := shallowCopy(el, useAttrs)
	out.Tag = "g"
	parent.AddChild(out)

	c.useDepth++
	defer func() { c.useDepth-- }()
	c.styleStack[len(c.styleStack)-1].transform = c.top().transform.Translate(x, y)
	if ref.Tag == "symbol" {
		// symbols are only drawn through use
		return c.readChildren(ref, out)
	}
	return c.readElement(ref, out)
}
