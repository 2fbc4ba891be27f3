package svgdoc

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penplot/penplot/layout"
	"github.com/penplot/penplot/svgcolor"
	"github.com/penplot/penplot/svgpath"
)

func assertPointsInDelta(t *testing.T, expected, actual []svgpath.Point) {
	t.Helper()
	require.Len(t, actual, len(expected))
	for i := range expected {
		assert.InDelta(t, expected[i].X, actual[i].X, 1e-9, "point %d", i)
		assert.InDelta(t, expected[i].Y, actual[i].Y, 1e-9, "point %d", i)
	}
}

func readString(t *testing.T, svg string, opts Options) *Drawing {
	t.Helper()
	d, err := ReadDrawingStream(strings.NewReader(svg), opts)
	require.NoError(t, err)
	return d
}

func TestRectInheritsStroke(t *testing.T) {
	d := readString(t, `<svg viewBox="0 0 100 100"><g stroke="#0000ff"><rect x="10" y="10" width="20" height="20"/></g></svg>`, Options{})
	require.Len(t, d.Paths, 1)
	p := d.Paths[0]
	assert.Equal(t, svgcolor.Blue, p.Color)
	assert.Equal(t, "rect", p.Tag)
	assert.Equal(t, []svgpath.Point{{X: 10, Y: 10}, {X: 30, Y: 10}, {X: 30, Y: 30}, {X: 10, Y: 30}, {X: 10, Y: 10}}, p.Path.Points())
	assert.Equal(t, Bounds{0, 0, 100, 100}, d.ViewBox)
}

func TestShapesFile(t *testing.T) {
	var logs bytes.Buffer
	d, err := ReadDrawing("testdata/shapes.svg", Options{ErrorMode: WarnErrorMode, Logger: log.New(&logs, "", 0)})
	require.NoError(t, err)

	assert.Equal(t, []string{"Shapes"}, d.Titles)
	assert.Equal(t, []string{"One of every supported shape"}, d.Descriptions)
	assert.Equal(t, "200mm", d.Width)

	var tags []string
	var colors []svgcolor.Name
	for _, p := range d.Paths {
		tags = append(tags, p.Tag)
		colors = append(colors, p.Color)
	}
	assert.Equal(t, []string{"rect", "circle", "ellipse", "line", "polyline", "polygon", "path", "circle"}, tags)
	assert.Equal(t, []svgcolor.Name{
		svgcolor.Blue, svgcolor.Red, svgcolor.Green, svgcolor.Blue,
		svgcolor.Blue, svgcolor.Orange, svgcolor.Blue, svgcolor.Purple,
	}, colors)

	// group transform baked into the points
	assert.Equal(t, svgpath.Point{X: 10, Y: 10}, d.Paths[0].Path.First())
	// use offset
	assert.InDelta(t, 152, d.Paths[7].Path.First().X, 1e-9)
	assert.InDelta(t, 50, d.Paths[7].Path.First().Y, 1e-9)

	require.Len(t, d.Warnings, 1)
	assert.Contains(t, d.Warnings[0], "<text>")
	assert.Contains(t, logs.String(), "<text>")

	order, byColor := d.ByColor()
	assert.Equal(t, []svgcolor.Name{svgcolor.Blue, svgcolor.Red, svgcolor.Green, svgcolor.Orange, svgcolor.Purple}, order)
	assert.Len(t, byColor[svgcolor.Blue], 4)
}

func TestErrorModes(t *testing.T) {
	const svg = `<svg viewBox="0 0 10 10"><text>hello</text><line x1="0" y1="0" x2="1" y2="1"/></svg>`

	var logs bytes.Buffer
	d := readString(t, svg, Options{ErrorMode: IgnoreErrorMode, Logger: log.New(&logs, "", 0)})
	assert.Len(t, d.Paths, 1)
	assert.Len(t, d.Warnings, 1)
	assert.Empty(t, logs.String())

	_, err := ReadDrawingStream(strings.NewReader(svg), Options{ErrorMode: StrictErrorMode})
	assert.Error(t, err)
}

func TestBadPathDataNeverAborts(t *testing.T) {
	d := readString(t, `<svg><path d="M 0 0 L 10 0 X 5 5 L 10 10"/></svg>`, Options{ErrorMode: StrictErrorMode})
	require.Len(t, d.Paths, 1)
	assert.Equal(t, []svgpath.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}, d.Paths[0].Path.Points())
	assert.NotEmpty(t, d.Warnings)
}

func TestMalformedAttributeSkipsElement(t *testing.T) {
	d := readString(t, `<svg><rect x="abc" width="1" height="1"/><line x2="5" y2="5"/></svg>`, Options{})
	require.Len(t, d.Paths, 1)
	assert.Equal(t, "line", d.Paths[0].Tag)
	assert.Len(t, d.Warnings, 1)
}

func TestColorPriority(t *testing.T) {
	d := readString(t, `<svg>
		<g stroke="green">
			<line style="stroke:red" stroke="blue" fill="yellow" x2="1"/>
			<line stroke="blue" fill="yellow" x2="1"/>
			<line fill="yellow" x2="1"/>
			<line fill="none" x2="1"/>
			<g stroke="none"><line x2="1"/></g>
		</g>
		<line x2="1"/>
		<line stroke="not-a-color" x2="1"/>
	</svg>`, Options{})
	var colors []svgcolor.Name
	for _, p := range d.Paths {
		colors = append(colors, p.Color)
	}
	assert.Equal(t, []svgcolor.Name{
		svgcolor.Red, svgcolor.Blue, svgcolor.Yellow, svgcolor.Green, svgcolor.Green,
		svgcolor.Black, svgcolor.Black,
	}, colors)
}

func TestTransforms(t *testing.T) {
	d := readString(t, `<svg>
		<g transform="translate(10, 20) scale(2)">
			<line x1="1" y1="1" x2="2" y2="1" transform="rotate(90)"/>
		</g>
		<line x1="1" y1="0" x2="2" y2="0" transform="matrix(1 0 0 1 5 5)"/>
		<line x1="1" y1="0" x2="2" y2="0" transform="bogus(1)"/>
	</svg>`, Options{})
	require.Len(t, d.Paths, 3)

	pts := d.Paths[0].Path.Points()
	// rotate(90): (1,1) -> (-1,1), scale -> (-2,2), translate -> (8,22)
	assert.InDelta(t, 8, pts[0].X, 1e-9)
	assert.InDelta(t, 22, pts[0].Y, 1e-9)
	assert.InDelta(t, 8, pts[1].X, 1e-9)
	assert.InDelta(t, 24, pts[1].Y, 1e-9)

	assert.Equal(t, []svgpath.Point{{X: 6, Y: 5}, {X: 7, Y: 5}}, d.Paths[1].Path.Points())
	// an invalid transform falls back to the parent one
	assert.Equal(t, []svgpath.Point{{X: 1, Y: 0}, {X: 2, Y: 0}}, d.Paths[2].Path.Points())
	assert.Len(t, d.Warnings, 1)
}

func TestUse(t *testing.T) {
	d := readString(t, `<svg xmlns:xlink="http://www.w3.org/1999/xlink">
		<defs><g id="pair"><line x2="1"/><line y2="1"/></g></defs>
		<symbol id="sym"><line x2="3"/></symbol>
		<use href="#pair" x="10"/>
		<use xlink:href="#sym" y="10" stroke="red"/>
		<use href="#missing"/>
		<g id="loop"><use href="#loop"/></g>
	</svg>`, Options{})
	require.Len(t, d.Paths, 3)
	assert.Equal(t, []svgpath.Point{{X: 10, Y: 0}, {X: 11, Y: 0}}, d.Paths[0].Path.Points())
	assert.Equal(t, []svgpath.Point{{X: 10, Y: 0}, {X: 10, Y: 1}}, d.Paths[1].Path.Points())
	assert.Equal(t, []svgpath.Point{{X: 0, Y: 10}, {X: 3, Y: 10}}, d.Paths[2].Path.Points())
	assert.Equal(t, svgcolor.Red, d.Paths[2].Color)
	// missing reference and self reference
	assert.Len(t, d.Warnings, 2)
}

func TestNormalizeIsPure(t *testing.T) {
	src := etree.NewDocument()
	require.NoError(t, src.ReadFromString(`<svg><g transform="translate(1 1)"><circle r="1"/></g></svg>`))
	before, err := src.WriteToString()
	require.NoError(t, err)

	d, err := Normalize(src, Options{})
	require.NoError(t, err)
	after, err := src.WriteToString()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	out := d.Doc.Root()
	require.NotNil(t, out)
	g := out.SelectElement("g")
	require.NotNil(t, g)
	assert.Nil(t, g.SelectAttr("transform"))
	p := g.SelectElement("path")
	require.NotNil(t, p)
	assert.Equal(t, "black", p.SelectAttrValue("data-color", ""))
	assert.True(t, strings.HasPrefix(p.SelectAttrValue("d", ""), "M 2 1 L "))
	assert.Nil(t, p.SelectAttr("r"))
}

func TestNormalizeIdempotent(t *testing.T) {
	d1, err := ReadDrawing("testdata/shapes.svg", Options{})
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = d1.WriteTo(&buf)
	require.NoError(t, err)

	d2 := readString(t, buf.String(), Options{})
	require.Len(t, d2.Paths, len(d1.Paths))
	for i := range d1.Paths {
		assert.Equal(t, "path", d2.Paths[i].Tag)
		assert.Equal(t, d1.Paths[i].Color, d2.Paths[i].Color)
		assertPointsInDelta(t, d1.Paths[i].Path.Points(), d2.Paths[i].Path.Points())
	}
}

func TestCharset(t *testing.T) {
	d, err := ReadDrawing("testdata/latin1.svg", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"café"}, d.Titles)
	assert.Len(t, d.Paths, 1)
}

func TestInvalidDocuments(t *testing.T) {
	for _, s := range []string{"", "<html></html>", "just text"} {
		_, err := ReadDrawingStream(strings.NewReader(s), Options{})
		assert.Error(t, err, s)
	}
}

func TestContentBox(t *testing.T) {
	d := readString(t, `<svg viewBox="5 5 50 20"><line x2="1000"/></svg>`, Options{})
	assert.Equal(t, layout.ViewBox{MinX: 5, MinY: 5, Width: 50, Height: 20}, d.ContentBox())

	d = readString(t, `<svg width="30"><line x1="2" y1="3" x2="12" y2="23"/></svg>`, Options{})
	assert.Equal(t, layout.ViewBox{MinX: 2, MinY: 3, Width: 10, Height: 20}, d.ContentBox())

	d = readString(t, `<svg width="30px" height="40px"></svg>`, Options{})
	assert.Equal(t, layout.ViewBox{Width: 30, Height: 40}, d.ContentBox())

	d = readString(t, `<svg></svg>`, Options{})
	assert.Equal(t, layout.ViewBox{Width: 100, Height: 100}, d.ContentBox())

	// a horizontal line has a zero height extent
	d = readString(t, `<svg><line x2="10"/></svg>`, Options{})
	assert.Equal(t, 1., d.ContentBox().Height)

	// an explicit empty viewBox wins over the paths
	d = readString(t, `<svg viewBox="0 0 0 0"><line x2="10" y2="10"/></svg>`, Options{})
	assert.Equal(t, layout.ViewBox{Width: 1, Height: 1}, d.ContentBox())
}

func TestPercentages(t *testing.T) {
	d := readString(t, `<svg viewBox="0 0 200 100"><line x1="50%" y1="50%" x2="100%" y2="0"/></svg>`, Options{})
	require.Len(t, d.Paths, 1)
	assert.Equal(t, []svgpath.Point{{X: 100, Y: 50}, {X: 200, Y: 0}}, d.Paths[0].Path.Points())
}

func TestPercentagesWithoutViewBox(t *testing.T) {
	d := readString(t, `<svg width="200mm" height="100mm"><rect width="50%" height="50%"/></svg>`, Options{ErrorMode: IgnoreErrorMode})
	require.Len(t, d.Paths, 1)
	b, ok := d.PathBounds()
	require.True(t, ok)
	assert.Equal(t, Bounds{W: 100, H: 50}, b)
	require.Len(t, d.Warnings, 1)
	assert.Contains(t, d.Warnings[0], "without viewBox")

	d = readString(t, `<svg><rect width="50%" height="10"/></svg>`, Options{ErrorMode: IgnoreErrorMode})
	assert.Empty(t, d.Paths)
	require.Len(t, d.Warnings, 1)
	assert.Contains(t, d.Warnings[0], "resolved to 0")
}
