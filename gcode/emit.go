package gcode

import (
	"fmt"
	"time"

	"github.com/penplot/penplot/layout"
	"github.com/penplot/penplot/planner"
	"github.com/penplot/penplot/svgcolor"
	"github.com/penplot/penplot/svgpath"
)

// DefaultTravelSpeed is used when no speed is configured, in mm/min.
const DefaultTravelSpeed = 3000

// EmitOptions parametrize the program of one color.
// Zero values select the defaults.
type EmitOptions struct {
	Color   svgcolor.Name
	Machine layout.MachineConfig
	Pen     PenConfig

	TravelSpeed float64 // mm/min
	DrawSpeed   float64 // mm/min, TravelSpeed if zero

	// JoinRadius is the minimal distance between two
	// consecutive points of a stroke, in mm.
	JoinRadius float64
	// Optimize reorders the paths to reduce pen-up travel.
	Optimize bool

	Date      time.Time
	UserGcode []string // inserted in the preamble
}

func (opts *EmitOptions) setDefaults() {
	if opts.Color == "" {
		opts.Color = svgcolor.Black
	}
	if opts.Machine == (layout.MachineConfig{}) {
		opts.Machine = layout.DefaultMachine
	}
	if opts.Pen == (PenConfig{}) {
		opts.Pen = DefaultPen
	}
	if opts.TravelSpeed <= 0 {
		opts.TravelSpeed = DefaultTravelSpeed
	}
	if opts.Date.IsZero() {
		opts.Date = time.Now()
	}
}

// Emit writes the program drawing the paths, given in machine
// coordinates. Each sub-path is simplified on its own, so that
// the pen transition at its start is never skipped.
func Emit(paths []svgpath.Path, opts EmitOptions) *Program {
	opts.setDefaults()
	if opts.Optimize {
		paths = planner.Order(paths, svgpath.Point{})
	}

	w := NewWriter(opts.Pen, opts.TravelSpeed, opts.DrawSpeed)
	w.Preamble(opts.Color, opts.Machine, opts.Date, opts.UserGcode)
	outside := 0
	for _, path := range paths {
		subs := path.SubPaths()
		for i, sub := range subs {
			if len(sub) > 2 {
				subs[i] = planner.Simplify(sub, opts.JoinRadius)
			}
		}
		simplified := svgpath.FromSubPaths(subs)
		simplified.DrawTo(w)
		for _, pt := range simplified.Points() {
			if !opts.Machine.Contains(pt) {
				outside++
			}
		}
	}
	w.Postamble()

	prog := &Program{Color: opts.Color, Lines: w.Lines()}
	if outside > 0 {
		prog.Warnings = append(prog.Warnings,
			fmt.Sprintf("%d point(s) outside of the %gx%g mm bed", outside, opts.Machine.BedWidth, opts.Machine.BedHeight))
	}
	return prog
}
