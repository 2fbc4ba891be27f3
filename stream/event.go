package stream

import (
	"fmt"
	"time"
)

// EventKind identifies the effects published by an Engine.
type EventKind uint8

const (
	// EventWriteLine asks the transport owner to write Line.
	EventWriteLine EventKind = iota
	EventLog
	EventProgress
	// EventComplete is the last event of a successful job.
	EventComplete
	// EventError is the last event of an aborted or failed job.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventWriteLine:
		return "WRITE_LINE"
	case EventLog:
		return "LOG"
	case EventProgress:
		return "PROGRESS"
	case EventComplete:
		return "COMPLETE"
	case EventError:
		return "ERROR"
	}
	return fmt.Sprintf("<event %d>", k)
}

// Level is the severity of a log event.
type Level uint8

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("<level %d>", l)
}

// Progress is advisory telemetry about a job.
type Progress struct {
	Current, Total int
	Percent        float64
	LinesPerSec    float64
	ETA            time.Duration
	BufferUsed     int // unacknowledged lines
}

func (p Progress) String() string {
	return fmt.Sprintf("%d/%d (%.1f%%) %.1f lines/s, buffer %d, eta %s",
		p.Current, p.Total, p.Percent, p.LinesPerSec, p.BufferUsed, p.ETA.Round(time.Second))
}

// Result summarizes a finished job.
type Result struct {
	JobID   string
	JobName string
	State   State

	Total   int // lines to send, after filtering
	Sent    int // job lines written
	Skipped int // dropped pause commands

	Duration time.Duration
	Log      []string
}

// Event is one effect of an Engine. Only the fields
// relevant to Kind are set.
type Event struct {
	Kind EventKind

	Line string
	// Safety is set on the pen-up and motor-release lines written
	// after an abort or an error. Their write errors are ignored.
	Safety bool

	Level   Level
	Message string

	Progress Progress

	Result *Result
	Err    error
}
