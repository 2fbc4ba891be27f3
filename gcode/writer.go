// Package gcode emits the plotter programs: one self-contained
// Marlin program per pen color, with a servo driven pen, and
// estimates how long a program takes to run.
package gcode

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/penplot/penplot/layout"
	"github.com/penplot/penplot/svgcolor"
	"github.com/penplot/penplot/svgpath"
)

// PenConfig describes the servo lifting the pen.
type PenConfig struct {
	UpAngle    int // servo angle with the pen raised
	DownAngle  int // servo angle with the pen on the paper
	MoveMillis int // duration of a pen move between strokes
	ParkMillis int // duration of the pen moves around the operator pause
}

// DefaultPen is the servo setup of the reference polargraph.
var DefaultPen = PenConfig{UpAngle: 90, DownAngle: 25, MoveMillis: 100, ParkMillis: 250}

func servo(angle, millis int) string {
	return fmt.Sprintf("M280 P0 S%d T%d", angle, millis)
}

// Up returns the command raising the pen between strokes.
func (p PenConfig) Up() string { return servo(p.UpAngle, p.MoveMillis) }

// Down returns the command lowering the pen.
func (p PenConfig) Down() string { return servo(p.DownAngle, p.MoveMillis) }

// Park returns the slow pen raise used at the start and
// the end of a program.
func (p PenConfig) Park() string { return servo(p.UpAngle, p.ParkMillis) }

// Generator is written in the program header.
const Generator = "penplot"

// Writer accumulates the lines of one program. It implements
// svgpath.Drawer: Start travels with the pen up, Line draws
// with the pen down. Servo commands are only emitted when the
// pen state actually changes.
type Writer struct {
	pen            PenConfig
	travelF, drawF string
	penDown        bool

	lines []string
}

var _ svgpath.Drawer = (*Writer)(nil)

func formatFeed(mmPerMin float64) string {
	return strconv.FormatFloat(mmPerMin, 'f', -1, 64)
}

// NewWriter starts an empty program. Speeds are in mm/min;
// a zero draw speed means the travel speed.
func NewWriter(pen PenConfig, travelSpeed, drawSpeed float64) *Writer {
	if drawSpeed <= 0 {
		drawSpeed = travelSpeed
	}
	return &Writer{pen: pen, travelF: formatFeed(travelSpeed), drawF: formatFeed(drawSpeed)}
}

func (w *Writer) emit(lines ...string) {
	w.lines = append(w.lines, lines...)
}

// Preamble writes the header comments, homes the machine,
// raises the pen and waits for the operator to load the pen.
func (w *Writer) Preamble(color svgcolor.Name, machine layout.MachineConfig, date time.Time, userGcode []string) {
	min, max := machine.Bounds()
	w.emit(
		";Generated with "+Generator,
		";FLAVOR:Marlin-polargraph",
		fmt.Sprintf(";MINX:%.3f", min.X),
		fmt.Sprintf(";MINY:%.3f", min.Y),
		fmt.Sprintf(";MAXX:%.3f", max.X),
		fmt.Sprintf(";MAXY:%.3f", max.Y),
		"; "+date.Format("2006-01-02 15:04:05"),
		";Start of user gcode",
	)
	w.emit(userGcode...)
	w.emit(
		";End of user gcode",
		"G28 X Y",
		w.pen.Park(),
		fmt.Sprintf("M0 %s pen and click", color),
	)
	w.penDown = false
}

// Start travels to `a`, raising the pen first if needed.
func (w *Writer) Start(a svgpath.Point) {
	if w.penDown {
		w.emit(w.pen.Up())
		w.penDown = false
	}
	w.emit(fmt.Sprintf("G0 X%.3f Y%.3f F%s", a.X, a.Y, w.travelF))
}

// Line draws to `b`, lowering the pen first if needed.
func (w *Writer) Line(b svgpath.Point) {
	if !w.penDown {
		w.emit(w.pen.Down())
		w.penDown = true
	}
	w.emit(fmt.Sprintf("G1 X%.3f Y%.3f F%s", b.X, b.Y, w.drawF))
}

// Postamble raises the pen, returns to the origin and
// releases the motors.
func (w *Writer) Postamble() {
	if w.penDown {
		w.emit(w.pen.Park())
		w.penDown = false
	}
	w.emit("G0 X0 Y0 F"+w.travelF, "M84", ";End of Gcode")
}

// Lines returns the program written so far.
func (w *Writer) Lines() []string { return w.lines }

// Program is the G-code for one pen color.
type Program struct {
	Color svgcolor.Name
	Lines []string

	// Warnings collects the non fatal issues found
	// while emitting, like points outside the bed.
	Warnings []string
}

// String returns the program text, one command per line.
func (p *Program) String() string {
	return strings.Join(p.Lines, "\n") + "\n"
}

// WriteTo writes the program text to w.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, p.String())
	return int64(n), err
}
