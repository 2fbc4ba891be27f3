// Package config loads the settings of the plotter host from a
// configuration file, PENPLOT_ environment variables and defaults,
// in decreasing priority.
package config

import (
	_ "embed"
	"log"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/penplot/penplot/gcode"
	"github.com/penplot/penplot/layout"
	"github.com/penplot/penplot/slicer"
	"github.com/penplot/penplot/stream"
	"github.com/penplot/penplot/svgdoc"
)

// EnvPrefix prefixes the environment variables: paper.format is
// read from PENPLOT_PAPER_FORMAT.
const EnvPrefix = "PENPLOT"

// Custom is the format name of a paper matching no standard format.
const Custom = "custom"

//go:embed formats.yaml
var formatsYAML []byte

// Format is a standard paper size, in portrait orientation.
type Format struct {
	Name   string  `yaml:"name"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Formats returns the standard paper formats, smallest first.
func Formats() ([]Format, error) {
	var table struct {
		Formats []Format `yaml:"formats"`
	}
	if err := yaml.UnmarshalStrict(formatsYAML, &table); err != nil {
		return nil, errors.Wrap(err, "invalid paper formats table")
	}
	return table.Formats, nil
}

// LookupFormat returns the format with the given name, ignoring case.
func LookupFormat(name string) (Format, error) {
	formats, err := Formats()
	if err != nil {
		return Format{}, err
	}
	for _, f := range formats {
		if strings.EqualFold(f.Name, name) {
			return f, nil
		}
	}
	return Format{}, errors.Errorf("unknown paper format %q", name)
}

// MatchFormat returns the name of the format of the given size,
// in either orientation, or Custom.
func MatchFormat(width, height float64) string {
	formats, err := Formats()
	if err != nil {
		return Custom
	}
	for _, f := range formats {
		if (f.Width == width && f.Height == height) || (f.Width == height && f.Height == width) {
			return f.Name
		}
	}
	return Custom
}

type Margins struct {
	Top, Right, Bottom, Left float64
}

// Paper is given either by a format name or by explicit
// dimensions, which take precedence.
type Paper struct {
	Format    string
	Landscape bool
	Width     float64
	Height    float64
	Margins   Margins
}

type Machine struct {
	BedWidth  float64
	BedHeight float64
}

type Pen struct {
	UpAngle    int
	DownAngle  int
	MoveMillis int
	ParkMillis int
}

type Plot struct {
	Optimize    bool
	JoinRadius  float64
	TravelSpeed float64
	DrawSpeed   float64
	UserGcode   []string
	// ErrorMode is one of ignore, warn or strict.
	ErrorMode string
}

type Stream struct {
	// Port is a serial device; URL a websocket bridge.
	Port      string
	BaudRates []int
	URL       string

	BufferCapacity    int
	AckTimeout        time.Duration
	BusyGrace         time.Duration
	SettleDelay       time.Duration
	ProgressInterval  int
	KeepPauseCommands bool
	LineNumbers       bool
}

type Config struct {
	Paper   Paper
	Machine Machine
	Pen     Pen
	Plot    Plot
	Stream  Stream
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("paper.format", "A3")
	v.SetDefault("paper.landscape", false)
	v.SetDefault("paper.width", 0)
	v.SetDefault("paper.height", 0)
	v.SetDefault("paper.margins.top", 0)
	v.SetDefault("paper.margins.right", 0)
	v.SetDefault("paper.margins.bottom", 0)
	v.SetDefault("paper.margins.left", 0)

	v.SetDefault("machine.bedwidth", layout.DefaultMachine.BedWidth)
	v.SetDefault("machine.bedheight", layout.DefaultMachine.BedHeight)

	v.SetDefault("pen.upangle", gcode.DefaultPen.UpAngle)
	v.SetDefault("pen.downangle", gcode.DefaultPen.DownAngle)
	v.SetDefault("pen.movemillis", gcode.DefaultPen.MoveMillis)
	v.SetDefault("pen.parkmillis", gcode.DefaultPen.ParkMillis)

	v.SetDefault("plot.optimize", true)
	v.SetDefault("plot.joinradius", 0.5)
	v.SetDefault("plot.travelspeed", gcode.DefaultTravelSpeed)
	v.SetDefault("plot.drawspeed", 0)
	v.SetDefault("plot.usergcode", []string{})
	v.SetDefault("plot.errormode", "warn")

	v.SetDefault("stream.port", "")
	v.SetDefault("stream.baudrates", []int{})
	v.SetDefault("stream.url", "")
	v.SetDefault("stream.buffercapacity", stream.DefaultBufferCapacity)
	v.SetDefault("stream.acktimeout", stream.DefaultAckTimeout)
	v.SetDefault("stream.busygrace", stream.DefaultBusyGrace)
	v.SetDefault("stream.settledelay", stream.DefaultSettleDelay)
	v.SetDefault("stream.progressinterval", stream.DefaultProgressInterval)
	v.SetDefault("stream.keeppausecommands", false)
	v.SetDefault("stream.linenumbers", false)
}

// New returns a viper instance with the defaults and the
// environment bindings.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration file at path, if not empty.
// Its format is deduced from the extension (yaml, json, toml...).
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	}
	return Decode(v)
}

// Decode extracts and validates the configuration held by v.
func Decode(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	if _, err := c.PaperConfig(); err != nil {
		return nil, err
	}
	if _, err := ParseErrorMode(c.Plot.ErrorMode); err != nil {
		return nil, err
	}
	if err := c.MachineConfig().Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ParseErrorMode accepts ignore, warn and strict.
func ParseErrorMode(s string) (svgdoc.ErrorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ignore":
		return svgdoc.IgnoreErrorMode, nil
	case "warn", "":
		return svgdoc.WarnErrorMode, nil
	case "strict":
		return svgdoc.StrictErrorMode, nil
	}
	return 0, errors.Errorf("unknown error mode %q (expected ignore, warn or strict)", s)
}

// PaperConfig resolves the paper format and validates the result.
func (c *Config) PaperConfig() (layout.PaperConfig, error) {
	w, h := c.Paper.Width, c.Paper.Height
	if w <= 0 || h <= 0 {
		f, err := LookupFormat(c.Paper.Format)
		if err != nil {
			return layout.PaperConfig{}, err
		}
		w, h = f.Width, f.Height
	}
	if c.Paper.Landscape && w < h {
		w, h = h, w
	}
	p := layout.PaperConfig{
		Width:        w,
		Height:       h,
		MarginTop:    c.Paper.Margins.Top,
		MarginRight:  c.Paper.Margins.Right,
		MarginBottom: c.Paper.Margins.Bottom,
		MarginLeft:   c.Paper.Margins.Left,
	}
	return p, p.Validate()
}

func (c *Config) MachineConfig() layout.MachineConfig {
	return layout.MachineConfig{BedWidth: c.Machine.BedWidth, BedHeight: c.Machine.BedHeight}
}

func (c *Config) PenConfig() gcode.PenConfig {
	return gcode.PenConfig{
		UpAngle:    c.Pen.UpAngle,
		DownAngle:  c.Pen.DownAngle,
		MoveMillis: c.Pen.MoveMillis,
		ParkMillis: c.Pen.ParkMillis,
	}
}

// Slicer returns the compilation settings.
func (c *Config) Slicer(logger *log.Logger) (slicer.Config, error) {
	paper, err := c.PaperConfig()
	if err != nil {
		return slicer.Config{}, err
	}
	mode, err := ParseErrorMode(c.Plot.ErrorMode)
	if err != nil {
		return slicer.Config{}, err
	}
	return slicer.Config{
		Paper:       paper,
		Machine:     c.MachineConfig(),
		Pen:         c.PenConfig(),
		Optimize:    c.Plot.Optimize,
		JoinRadius:  c.Plot.JoinRadius,
		TravelSpeed: c.Plot.TravelSpeed,
		DrawSpeed:   c.Plot.DrawSpeed,
		UserGcode:   c.Plot.UserGcode,
		ErrorMode:   mode,
		Logger:      logger,
	}, nil
}

// StreamOptions returns the engine settings.
func (c *Config) StreamOptions(logger *log.Logger) stream.Options {
	return stream.Options{
		BufferCapacity:    c.Stream.BufferCapacity,
		AckTimeout:        c.Stream.AckTimeout,
		BusyGrace:         c.Stream.BusyGrace,
		SettleDelay:       c.Stream.SettleDelay,
		ProgressInterval:  c.Stream.ProgressInterval,
		KeepPauseCommands: c.Stream.KeepPauseCommands,
		LineNumbers:       c.Stream.LineNumbers,
		Pen:               c.PenConfig(),
		Logger:            logger,
	}
}
