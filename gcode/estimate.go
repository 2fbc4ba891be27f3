package gcode

import (
	"fmt"
	"math"
	"strings"
)

const (
	// Acceleration of the motion planner, in mm/s².
	Acceleration = 800.
	// PenOperationSeconds is the cost of one pen transition.
	PenOperationSeconds = 0.8
	// PauseSeconds is added once when the program waits for the operator.
	PauseSeconds = 30.
)

// TimeEstimate is the expected duration of a program.
// Distances are in mm and times in seconds.
type TimeEstimate struct {
	TotalSeconds int

	TravelDistance, DrawDistance float64
	TravelTime, DrawTime         float64

	PenOperations    int
	PenOperationTime float64

	UserPauses int
	PauseTime  float64
}

// SegmentTime returns the time to move along a straight segment,
// with a trapezoidal velocity profile: accelerate up to speed,
// cruise, then decelerate. Short segments never reach the cruise
// speed. speed is in mm/s, accel in mm/s².
func SegmentTime(distance, speed, accel float64) float64 {
	if distance <= 0 || speed <= 0 || accel <= 0 {
		return 0
	}
	accelDistance := speed * speed / (2 * accel)
	if distance >= 2*accelDistance {
		return 2*speed/accel + (distance-2*accelDistance)/speed
	}
	return 2 * math.Sqrt(distance/accel)
}

// Estimate walks the G0/G1 moves of the program. A move is a
// travel when it is a G0 or the pen is up. The feed rate of each
// move is used when present, travelSpeed (mm/min) otherwise.
// Pen transitions are recognized from the servo angles of pen.
func Estimate(lines []string, travelSpeed float64, pen PenConfig) TimeEstimate {
	var (
		est          TimeEstimate
		last         struct{ X, Y float64 }
		penDown      bool
		defaultSpeed = travelSpeed / 60
	)
	for _, raw := range lines {
		l := ParseLine(raw)
		switch l.Code {
		case "M280":
			s, ok := l.Param('S')
			if !ok {
				continue
			}
			switch int(s) {
			case pen.UpAngle:
				if penDown {
					penDown = false
					est.PenOperations++
				}
			case pen.DownAngle:
				if !penDown {
					penDown = true
					est.PenOperations++
				}
			}
		case "M0", "M1":
			est.UserPauses++
		case "G0", "G1":
			x, okX := l.Param('X')
			y, okY := l.Param('Y')
			if !okX || !okY {
				continue
			}
			d := math.Hypot(x-last.X, y-last.Y)
			last.X, last.Y = x, y
			if d == 0 {
				continue
			}
			speed := defaultSpeed
			if f, ok := l.Param('F'); ok && f > 0 {
				speed = f / 60
			}
			t := SegmentTime(d, speed, Acceleration)
			if l.Code == "G0" || !penDown {
				est.TravelDistance += d
				est.TravelTime += t
			} else {
				est.DrawDistance += d
				est.DrawTime += t
			}
		}
	}
	est.PenOperationTime = float64(est.PenOperations) * PenOperationSeconds
	if est.UserPauses > 0 {
		est.PauseTime = PauseSeconds
	}
	est.TotalSeconds = int(math.Ceil(est.TravelTime + est.DrawTime + est.PenOperationTime + est.PauseTime))
	return est
}

// FormatDuration returns `Hh Mmin Ss`, the hours being
// omitted when zero.
func FormatDuration(seconds int) string {
	h, m, s := seconds/3600, seconds%3600/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%dh %dmin %ds", h, m, s)
	}
	return fmt.Sprintf("%dmin %ds", m, s)
}

// Formatted returns the total duration, see FormatDuration.
func (e TimeEstimate) Formatted() string { return FormatDuration(e.TotalSeconds) }

// Details returns the itemized breakdown of the estimate.
func (e TimeEstimate) Details() []string {
	return []string{
		fmt.Sprintf("Travel distance: %.2f mm", e.TravelDistance),
		fmt.Sprintf("Draw distance: %.2f mm", e.DrawDistance),
		fmt.Sprintf("Travel time: %.2f min", e.TravelTime/60),
		fmt.Sprintf("Draw time: %.2f min", e.DrawTime/60),
		fmt.Sprintf("Pen operations: %d (%.2f min)", e.PenOperations, e.PenOperationTime/60),
		fmt.Sprintf("User pauses: %d", e.UserPauses),
	}
}

// String returns the total duration followed by the details.
func (e TimeEstimate) String() string {
	return e.Formatted() + " (" + strings.Join(e.Details(), ", ") + ")"
}
