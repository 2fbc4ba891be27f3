// Package slicer composes the compilation pipeline: an SVG document
// is normalized, mapped onto the paper, split by pen color and
// turned into one G-code program per color, each with its
// duration estimate.
package slicer

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/penplot/penplot/gcode"
	"github.com/penplot/penplot/layout"
	"github.com/penplot/penplot/svgcolor"
	"github.com/penplot/penplot/svgdoc"
	"github.com/penplot/penplot/svgpath"
)

// Config gathers the job settings.
// Zero values select the defaults, except for the paper.
type Config struct {
	Paper   layout.PaperConfig
	Machine layout.MachineConfig
	Pen     gcode.PenConfig

	Optimize    bool
	JoinRadius  float64 // mm
	TravelSpeed float64 // mm/min
	DrawSpeed   float64 // mm/min, TravelSpeed if zero
	UserGcode   []string

	ErrorMode svgdoc.ErrorMode
	Logger    *log.Logger

	// Now is used to timestamp the programs, time.Now if nil.
	Now func() time.Time
}

func (cfg *Config) setDefaults() {
	if cfg.Machine == (layout.MachineConfig{}) {
		cfg.Machine = layout.DefaultMachine
	}
	if cfg.TravelSpeed <= 0 {
		cfg.TravelSpeed = gcode.DefaultTravelSpeed
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
}

// Output is the program of one pen color.
type Output struct {
	Program  *gcode.Program
	Estimate gcode.TimeEstimate
}

// Result is the outcome of a compilation.
type Result struct {
	Drawing *svgdoc.Drawing
	ViewBox layout.ViewBox
	Mapper  layout.Mapper

	// Colors lists the pens in order of first appearance.
	Colors  []svgcolor.Name
	Outputs map[svgcolor.Name]*Output

	// Warnings collects the issues of every stage.
	Warnings []string
}

// Generate compiles the SVG document read from r.
func Generate(ctx context.Context, r io.Reader, cfg Config) (*Result, error) {
	cfg.setDefaults()
	if err := cfg.Paper.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Machine.Validate(); err != nil {
		return nil, err
	}
	drawing, err := svgdoc.ReadDrawingStream(r, svgdoc.Options{ErrorMode: cfg.ErrorMode, Logger: cfg.Logger})
	if err != nil {
		return nil, err
	}
	res := &Result{
		Drawing:  drawing,
		ViewBox:  drawing.ContentBox(),
		Warnings: append([]string(nil), drawing.Warnings...),
	}
	res.Mapper = layout.NewMapper(cfg.Paper, res.ViewBox, cfg.Machine)
	if res.Mapper.Degenerate {
		res.Warnings = append(res.Warnings, "degenerate mapping replaced by identity: "+res.Mapper.Reason)
		cfg.Logger.Println("degenerate mapping:", res.Mapper.Reason)
	}

	colors, byColor := drawing.ByColor()
	res.Colors = colors
	for color, paths := range byColor {
		mapped := make([]svgpath.Path, len(paths))
		for i, p := range paths {
			mapped[i] = res.Mapper.MapPath(p)
		}
		byColor[color] = mapped
	}
	res.Outputs, err = Emit(ctx, byColor, cfg)
	if err != nil {
		return nil, err
	}
	for _, color := range colors {
		for _, w := range res.Outputs[color].Program.Warnings {
			res.Warnings = append(res.Warnings, string(color)+": "+w)
		}
	}
	return res, nil
}

// GenerateFile compiles the named SVG file.
func GenerateFile(ctx context.Context, file string, cfg Config) (*Result, error) {
	fin, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer fin.Close()
	return Generate(ctx, fin, cfg)
}

// Emit writes and estimates the program of each color, the paths
// being already in machine coordinates. Colors are processed
// concurrently; the programs share the same timestamp.
func Emit(ctx context.Context, byColor map[svgcolor.Name][]svgpath.Path, cfg Config) (map[svgcolor.Name]*Output, error) {
	cfg.setDefaults()
	date := cfg.Now()

	outputs := make([]*Output, 0, len(byColor))
	colors := make([]svgcolor.Name, 0, len(byColor))
	for color := range byColor {
		colors = append(colors, color)
		outputs = append(outputs, nil)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, color := range colors {
		i, color := i, color
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return errors.Wrapf(err, "emitting %s", color)
			}
			opts := gcode.EmitOptions{
				Color:       color,
				Machine:     cfg.Machine,
				Pen:         cfg.Pen,
				TravelSpeed: cfg.TravelSpeed,
				DrawSpeed:   cfg.DrawSpeed,
				JoinRadius:  cfg.JoinRadius,
				Optimize:    cfg.Optimize,
				Date:        date,
				UserGcode:   cfg.UserGcode,
			}
			prog := gcode.Emit(byColor[color], opts)
			pen := cfg.Pen
			if pen == (gcode.PenConfig{}) {
				pen = gcode.DefaultPen
			}
			outputs[i] = &Output{Program: prog, Estimate: gcode.Estimate(prog.Lines, cfg.TravelSpeed, pen)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[svgcolor.Name]*Output, len(colors))
	for i, color := range colors {
		out[color] = outputs[i]
	}
	return out, nil
}
