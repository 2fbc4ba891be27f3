package svgdoc

import (
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
	"github.com/tdewolff/parse/v2/strconv"

	"github.com/penplot/penplot/svgcolor"
	"github.com/penplot/penplot/svgpath"
)

// maxUseDepth bounds the nesting of <use> references.
const maxUseDepth = 8

var errParamMismatch = svgpath.ErrParamMismatch

type (
	// style holds the state inherited down the tree
	style struct {
		stroke    svgcolor.Name // nearest ancestor stroke, empty if none
		transform svgpath.Matrix2D
	}

	// drawingCursor is used while walking the source tree
	drawingCursor struct {
		drawing    *Drawing
		errorMode  ErrorMode
		logger     *log.Logger
		styleStack []style
		ids        map[string]*etree.Element
		useDepth   int

		percentRef    Bounds // reference box of percentage lengths
		percentWarned bool
	}
)

func newCursor(drawing *Drawing, opts Options) *drawingCursor {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &drawingCursor{
		drawing:    drawing,
		errorMode:  opts.ErrorMode,
		logger:     logger,
		styleStack: []style{{transform: svgpath.Identity}},
		ids:        make(map[string]*etree.Element),
	}
}

func (c *drawingCursor) top() style { return c.styleStack[len(c.styleStack)-1] }

func (c *drawingCursor) warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	c.drawing.Warnings = append(c.drawing.Warnings, msg)
	if c.errorMode == WarnErrorMode {
		c.logger.Println(msg)
	}
}

// handleError reports an element which can't be drawn. Only
// StrictErrorMode turns it into an error.
func (c *drawingCursor) handleError(err error) error {
	if c.errorMode == StrictErrorMode {
		return err
	}
	c.warnf("%s", err)
	return nil
}

// indexIDs records the elements referenced by <use>.
func (c *drawingCursor) indexIDs(el *etree.Element) {
	if id := attrValue(el, "id"); id != "" {
		if _, dup := c.ids[id]; !dup {
			c.ids[id] = el
		}
	}
	for _, child := range el.ChildElements() {
		c.indexIDs(child)
	}
}

// attrValue returns the value of the attribute, whatever its namespace.
func attrValue(el *etree.Element, key string) string {
	for _, a := range el.Attr {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// readStyle splits the style attribute into its declarations.
func readStyle(v string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(v, ";") {
		kv := strings.SplitN(pair, ":", 2)
		if len(kv) != 2 {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(kv[0]))] = strings.TrimSpace(kv[1])
	}
	return out
}

// ownStroke returns the stroke specification of the element:
// the inline style first, then the attribute.
func ownStroke(el *etree.Element) (styleStroke, strokeAttr string) {
	return readStyle(attrValue(el, "style"))["stroke"], attrValue(el, "stroke")
}

// pushStyle computes the state inherited by the children of el,
// and pushes it on the style stack.
func (c *drawingCursor) pushStyle(el *etree.Element) error {
	cur := c.top()
	styleStroke, strokeAttr := ownStroke(el)
	if svgcolor.IsPaint(styleStroke) {
		cur.stroke = svgcolor.Resolve(styleStroke)
	} else if svgcolor.IsPaint(strokeAttr) {
		cur.stroke = svgcolor.Resolve(strokeAttr)
	}
	if v := attrValue(el, "transform"); v != "" {
		m, err := parseTransform(cur.transform, v)
		if err != nil {
			c.styleStack = append(c.styleStack, cur)
			return errors.Wrapf(err, "invalid transform %q on <%s>", v, el.Tag)
		}
		cur.transform = m
	}
	c.styleStack = append(c.styleStack, cur)
	return nil
}

func (c *drawingCursor) popStyle() {
	c.styleStack = c.styleStack[:len(c.styleStack)-1]
}

// colorOf resolves the pen of a drawn element.
func (c *drawingCursor) colorOf(el *etree.Element) svgcolor.Name {
	styleStroke, strokeAttr := ownStroke(el)
	fill := readStyle(attrValue(el, "style"))["fill"]
	if fill == "" {
		fill = attrValue(el, "fill")
	}
	// the stack top already holds el's own stroke: the parent one is below
	inherited := c.styleStack[len(c.styleStack)-2].stroke
	return svgcolor.Chain(styleStroke, strokeAttr, fill, inherited)
}

func readTransformAttr(m1 svgpath.Matrix2D, k string, points []float64) (svgpath.Matrix2D, error) {
	ln := len(points)
	switch k {
	case "rotate":
		if ln == 1 {
			m1 = m1.Rotate(points[0] * math.Pi / 180)
		} else if ln == 3 {
			m1 = m1.Translate(points[1], points[2]).
				Rotate(points[0]*math.Pi/180).
				Translate(-points[1], -points[2])
		} else {
			return m1, errParamMismatch
		}
	case "translate":
		if ln == 1 {
			m1 = m1.Translate(points[0], 0)
		} else if ln == 2 {
			m1 = m1.Translate(points[0], points[1])
		} else {
			return m1, errParamMismatch
		}
	case "skewx":
		if ln == 1 {
			m1 = m1.SkewX(points[0] * math.Pi / 180)
		} else {
			return m1, errParamMismatch
		}
	case "skewy":
		if ln == 1 {
			m1 = m1.SkewY(points[0] * math.Pi / 180)
		} else {
			return m1, errParamMismatch
		}
	case "scale":
		if ln == 1 {
			m1 = m1.Scale(points[0], points[0])
		} else if ln == 2 {
			m1 = m1.Scale(points[0], points[1])
		} else {
			return m1, errParamMismatch
		}
	case "matrix":
		if ln == 6 {
			m1 = m1.Mult(svgpath.Matrix2D{
				A: points[0],
				B: points[1],
				C: points[2],
				D: points[3],
				E: points[4],
				F: points[5]})
		} else {
			return m1, errParamMismatch
		}
	default:
		return m1, errParamMismatch
	}
	return m1, nil
}

// parseTransform composes the transform list v after m1.
func parseTransform(m1 svgpath.Matrix2D, v string) (svgpath.Matrix2D, error) {
	for _, t := range strings.Split(v, ")") {
		t = strings.TrimSpace(strings.TrimLeft(t, " ,\t\n"))
		if len(t) == 0 {
			continue
		}
		d := strings.Split(t, "(")
		if len(d) != 2 || len(d[1]) < 1 {
			return m1, errParamMismatch // badly formed transformation
		}
		points, err := svgpath.ParseFloats(d[1])
		if err != nil {
			return m1, err
		}
		m1, err = readTransformAttr(m1, strings.ToLower(strings.TrimSpace(d[0])), points)
		if err != nil {
			return m1, err
		}
	}
	return m1, nil
}

// parseLength reads a number, ignoring its unit suffix
// (px, mm, pt...). Percentages are relative to ref.
func parseLength(v string) (float64, error) {
	return parseLengthRef(v, 0)
}

func parseLengthRef(v string, ref float64) (float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	f, n := strconv.ParseFloat([]byte(v))
	if n == 0 {
		return 0, errors.Wrapf(errParamMismatch, "invalid length %q", v)
	}
	if strings.TrimSpace(v[n:]) == "%" {
		f = f * ref / 100
	}
	return f, nil
}

type percentage uint8

const (
	widthPercentage percentage = iota
	heightPercentage
	diagPercentage
)

// parseUnit resolves percentages against the viewBox, as the
// drawing is scaled to the paper anyway. Without a viewBox, the
// width and height of the root element are used instead.
func (c *drawingCursor) parseUnit(v string, p percentage) (float64, error) {
	vb := c.percentRef
	if strings.HasSuffix(strings.TrimSpace(v), "%") && !c.percentWarned && !c.drawing.ViewBox.positive() {
		c.percentWarned = true
		if vb.positive() {
			c.warnf("percentage %q without viewBox: using the width and height of the document", v)
		} else {
			c.warnf("percentage %q without viewBox nor document size: resolved to 0", v)
		}
	}
	var ref float64
	switch p {
	case widthPercentage:
		ref = vb.W
	case heightPercentage:
		ref = vb.H
	case diagPercentage:
		ref = math.Sqrt(vb.W*vb.W+vb.H*vb.H) / math.Sqrt2
	}
	return parseLengthRef(v, ref)
}

// readLengths fills the targets from the attributes of el.
func (c *drawingCursor) readLengths(el *etree.Element, targets map[string]*float64) error {
	for _, a := range el.Attr {
		dst, ok := targets[a.Key]
		if !ok || a.Space != "" {
			continue
		}
		p := widthPercentage
		switch a.Key {
		case "y", "y1", "y2", "cy", "height", "ry":
			p = heightPercentage
		case "r":
			p = diagPercentage
		}
		f, err := c.parseUnit(a.Value, p)
		if err != nil {
			return errors.Wrapf(err, "<%s> attribute %s", el.Tag, a.Key)
		}
		*dst = f
	}
	return nil
}

// readChildren walks the children of src, adding their
// normalized version to dst.
func (c *drawingCursor) readChildren(src, dst *etree.Element) error {
	for _, child := range src.ChildElements() {
		if err := c.readElement(child, dst); err != nil {
			return err
		}
	}
	return nil
}

// readElement dispatches el to its handler, within its own style.
func (c *drawingCursor) readElement(el, parent *etree.Element) error {
	if skippedElements[el.Tag] {
		parent.AddChild(el.Copy())
		return nil
	}
	df, ok := drawFuncs[el.Tag]
	if !ok {
		parent.AddChild(el.Copy())
		return c.handleError(errors.Errorf("cannot process svg element <%s>", el.Tag))
	}
	err := c.pushStyle(el)
	defer c.popStyle()
	if err != nil {
		// the parent transform stays in place
		c.styleStack[len(c.styleStack)-1].transform = c.styleStack[len(c.styleStack)-2].transform
		if err = c.handleError(err); err != nil {
			return err
		}
	}
	return df(c, el, parent)
}

// readRoot reads the top level <svg> element.
func (c *drawingCursor) readRoot(root *etree.Element) error {
	d := c.drawing
	d.Width = attrValue(root, "width")
	d.Height = attrValue(root, "height")
	if v := attrValue(root, "viewBox"); v != "" {
		points, err := svgpath.ParseFloats(v)
		if err != nil || len(points) != 4 {
			if err := c.handleError(errors.Errorf("invalid viewBox %q", v)); err != nil {
				return err
			}
		} else {
			d.ViewBox = Bounds{X: points[0], Y: points[1], W: points[2], H: points[3]}
			d.HasViewBox = true
		}
	}
	c.percentRef = d.ViewBox
	if !d.ViewBox.positive() {
		w, errW := parseLength(d.Width)
		h, errH := parseLength(d.Height)
		if errW == nil && errH == nil {
			c.percentRef = Bounds{W: w, H: h}
		}
	}

	out := shallowCopy(root, transformAttrs)
	d.Doc.AddChild(out)
	err := c.pushStyle(root)
	defer c.popStyle()
	if err != nil {
		c.styleStack[len(c.styleStack)-1].transform = svgpath.Identity
		if err = c.handleError(err); err != nil {
			return err
		}
	}
	return c.readChildren(root, out)
}

// shallowCopy returns a new element with the same tag and
// attributes, except the dropped ones.
func shallowCopy(el *etree.Element, drop map[string]bool) *etree.Element {
	out := etree.NewElement(el.Tag)
	out.Space = el.Space
	for _, a := range el.Attr {
		if drop[a.Key] {
			continue
		}
		out.CreateAttr(a.FullKey(), a.Value)
	}
	return out
}

// addPath records a drawn shape, and replaces it in the output
// tree by an equivalent path element. Empty paths are dropped.
func (c *drawingCursor) addPath(el, parent *etree.Element, path svgpath.Path, drop map[string]bool) {
	if len(path) == 0 {
		return
	}
	path = path.Transform(c.top().transform)
	color := c.colorOf(el)
	id := attrValue(el, "id")
	c.drawing.Paths = append(c.drawing.Paths, ColoredPath{Path: path, Color: color, ID: id, Tag: el.Tag})

	out := shallowCopy(el, drop)
	out.Tag = "path"
	out.CreateAttr("d", path.ToSVGPath())
	out.CreateAttr("data-color", string(color))
	parent.AddChild(out)
}
