package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penplot/penplot/gcode"
	"github.com/penplot/penplot/layout"
	"github.com/penplot/penplot/stream"
	"github.com/penplot/penplot/svgdoc"
)

func TestFormats(t *testing.T) {
	formats, err := Formats()
	require.NoError(t, err)
	require.Len(t, formats, 5)
	assert.Equal(t, Format{Name: "A5", Width: 148, Height: 210}, formats[0])
	assert.Equal(t, Format{Name: "B2", Width: 500, Height: 707}, formats[4])

	f, err := LookupFormat("a4")
	require.NoError(t, err)
	assert.Equal(t, 210., f.Width)
	_, err = LookupFormat("letter")
	assert.Error(t, err)

	assert.Equal(t, "A3", MatchFormat(297, 420))
	assert.Equal(t, "A4", MatchFormat(297, 210))
	assert.Equal(t, Custom, MatchFormat(100, 100))
}

func TestDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	paper, err := c.PaperConfig()
	require.NoError(t, err)
	assert.Equal(t, layout.PaperConfig{Width: 297, Height: 420}, paper)
	assert.Equal(t, layout.DefaultMachine, c.MachineConfig())
	assert.Equal(t, gcode.DefaultPen, c.PenConfig())

	sc, err := c.Slicer(nil)
	require.NoError(t, err)
	assert.True(t, sc.Optimize)
	assert.Equal(t, 0.5, sc.JoinRadius)
	assert.Equal(t, float64(gcode.DefaultTravelSpeed), sc.TravelSpeed)
	assert.Equal(t, svgdoc.WarnErrorMode, sc.ErrorMode)

	opts := c.StreamOptions(nil)
	assert.Equal(t, stream.DefaultBufferCapacity, opts.BufferCapacity)
	assert.Equal(t, stream.DefaultAckTimeout, opts.AckTimeout)
	assert.Equal(t, stream.DefaultSettleDelay, opts.SettleDelay)
	assert.False(t, opts.LineNumbers)
	assert.False(t, opts.KeepPauseCommands)
}

const fileConfig = `
paper:
  format: a4
  landscape: true
  margins:
    top: 10
    left: 15
plot:
  optimize: false
  errormode: strict
  usergcode:
    - M117 hello
stream:
  port: /dev/ttyUSB0
  baudrates: [115200]
  acktimeout: 2s
  buffercapacity: 8
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "penplot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	c, err := Load(writeConfig(t, fileConfig))
	require.NoError(t, err)

	paper, err := c.PaperConfig()
	require.NoError(t, err)
	assert.Equal(t, layout.PaperConfig{Width: 297, Height: 210, MarginTop: 10, MarginLeft: 15}, paper)

	sc, err := c.Slicer(nil)
	require.NoError(t, err)
	assert.False(t, sc.Optimize)
	assert.Equal(t, svgdoc.StrictErrorMode, sc.ErrorMode)
	assert.Equal(t, []string{"M117 hello"}, sc.UserGcode)

	assert.Equal(t, "/dev/ttyUSB0", c.Stream.Port)
	assert.Equal(t, []int{115200}, c.Stream.BaudRates)
	opts := c.StreamOptions(nil)
	assert.Equal(t, 2*time.Second, opts.AckTimeout)
	assert.Equal(t, 8, opts.BufferCapacity)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("PENPLOT_PAPER_FORMAT", "A5")
	t.Setenv("PENPLOT_STREAM_LINENUMBERS", "true")
	t.Setenv("PENPLOT_STREAM_BUFFERCAPACITY", "2")

	c, err := Load(writeConfig(t, fileConfig))
	require.NoError(t, err)
	paper, err := c.PaperConfig()
	require.NoError(t, err)
	assert.Equal(t, 210., paper.Width) // A5, landscape from the file
	assert.Equal(t, 148., paper.Height)

	opts := c.StreamOptions(nil)
	assert.True(t, opts.LineNumbers)
	assert.Equal(t, 2, opts.BufferCapacity)
}

func TestExplicitDimensions(t *testing.T) {
	c, err := Load(writeConfig(t, "paper:\n  width: 100\n  height: 150\n"))
	require.NoError(t, err)
	paper, err := c.PaperConfig()
	require.NoError(t, err)
	assert.Equal(t, 100., paper.Width)
	assert.Equal(t, 150., paper.Height)
	assert.Equal(t, Custom, MatchFormat(paper.Width, paper.Height))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	for _, content := range []string{
		"paper:\n  format: letter\n",
		"plot:\n  errormode: loud\n",
		"paper:\n  margins:\n    left: 200\n    right: 200\n",
		"machine:\n  bedwidth: -1\n",
	} {
		_, err := Load(writeConfig(t, content))
		assert.Error(t, err, content)
	}

	mode, err := ParseErrorMode(" Ignore ")
	require.NoError(t, err)
	assert.Equal(t, svgdoc.IgnoreErrorMode, mode)
}
