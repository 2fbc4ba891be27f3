package stream

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/penplot/penplot/gcode"
	"github.com/pkg/errors"
)

const (
	DefaultBufferCapacity   = 4
	DefaultAckTimeout       = 5 * time.Second
	DefaultBusyGrace        = 3 * time.Second
	DefaultSettleDelay      = 500 * time.Millisecond
	DefaultProgressInterval = 100

	// BreakCommand releases a controller waiting for the operator.
	BreakCommand = "M108"
	// MotorsOff releases the steppers.
	MotorsOff = "M84"
	// ResetLineNumber starts a numbered session.
	ResetLineNumber = "M110 N0"
)

var (
	ErrAborted = errors.New("streaming aborted")
	ErrTimeout = errors.New("timeout waiting for acknowledgment")
	ErrBusy    = errors.New("a job is already streaming on this transport")
	ErrNoLines = errors.New("no G-code lines to stream")
)

// pauseCodes are the program pause commands, dropped unless
// Options.KeepPauseCommands is set.
var pauseCodes = []string{"M0", "M1", "M25"}

// State is the stage of a job.
type State uint8

const (
	StateFilling State = iota
	StateStreaming
	StateDraining
	StateComplete
	StateAborted
	StateError
)

func (s State) String() string {
	switch s {
	case StateFilling:
		return "filling"
	case StateStreaming:
		return "streaming"
	case StateDraining:
		return "draining"
	case StateComplete:
		return "complete"
	case StateAborted:
		return "aborted"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("<state %d>", s)
}

// Options tunes the engine. The zero value uses the defaults.
type Options struct {
	// BufferCapacity is the number of unacknowledged lines in flight.
	BufferCapacity int
	// AckTimeout is the longest wait for an acknowledgment.
	AckTimeout time.Duration
	// BusyGrace is how long a busy signal keeps the deadline away.
	BusyGrace time.Duration
	// SettleDelay is the wait after the pen-down of a resume.
	SettleDelay time.Duration
	// ProgressInterval is the number of lines between progress events.
	ProgressInterval int

	// KeepPauseCommands sends M0, M1 and M25 instead of dropping them.
	KeepPauseCommands bool
	// LineNumbers prefixes lines with a number and a checksum.
	LineNumbers bool

	Pen     gcode.PenConfig
	JobName string

	// Logger mirrors the session log. Nothing is logged if nil.
	Logger *log.Logger
}

func (o *Options) setDefaults() {
	if o.BufferCapacity <= 0 {
		o.BufferCapacity = DefaultBufferCapacity
	}
	if o.AckTimeout <= 0 {
		o.AckTimeout = DefaultAckTimeout
	}
	if o.BusyGrace <= 0 {
		o.BusyGrace = DefaultBusyGrace
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = DefaultProgressInterval
	}
	if o.Pen == (gcode.PenConfig{}) {
		o.Pen = gcode.DefaultPen
	}
	if o.JobName == "" {
		o.JobName = "job"
	}
}

// Prepare drops blank and comment lines and, if skipPause is true,
// the program pause commands. It returns the trimmed lines to send
// and the number of dropped pause commands.
func Prepare(program []string, skipPause bool) (lines []string, skipped int) {
	for _, line := range program {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == ';' {
			continue
		}
		if skipPause && gcode.ParseLine(line).Is(pauseCodes...) {
			skipped++
			continue
		}
		lines = append(lines, line)
	}
	return lines, skipped
}

type commandKind uint8

const (
	cmdPause commandKind = iota
	cmdResume
	cmdFail
)

type command struct {
	kind commandKind
	err  error
}

type outOfBand struct {
	line   string
	settle bool // wait SettleDelay once written
}

// Engine runs the send/acknowledge loop of one job on its own
// goroutine. It never touches the transport: lines to write are
// published as EventWriteLine and received lines are handed back
// with Incoming.
//
// Events must be drained until the channel is closed.
type Engine struct {
	opts    Options
	jobID   string
	lines   []string
	skipped int

	events chan Event
	done   chan struct{}

	mu     sync.Mutex // guards inbox and cmds
	inbox  []string
	cmds   []command
	notify chan struct{}

	abortCh   chan struct{}
	abortOnce sync.Once
	startOnce sync.Once

	// owned by the run goroutine
	state          State
	paused         bool
	settling       bool
	settleC        <-chan time.Time
	penDown        bool
	penDownAtPause bool
	pending        int
	next           int
	lineNumber     int
	oob            []outOfBand
	start          time.Time
	lastAck        time.Time
	lastBusy       time.Time
	log            []string
	result         *Result
}

// NewEngine filters program and prepares a job.
// ErrNoLines is returned if nothing is left to send.
func NewEngine(program []string, opts Options) (*Engine, error) {
	opts.setDefaults()
	lines, skipped := Prepare(program, !opts.KeepPauseCommands)
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	return &Engine{
		opts:    opts,
		jobID:   uuid.NewString(),
		lines:   lines,
		skipped: skipped,
		events:  make(chan Event),
		done:    make(chan struct{}),
		notify:  make(chan struct{}, 1),
		abortCh: make(chan struct{}),
	}, nil
}

func (e *Engine) JobID() string { return e.jobID }

// Total is the number of lines of the job, after filtering.
func (e *Engine) Total() int { return len(e.lines) }

// Skipped is the number of dropped pause commands.
func (e *Engine) Skipped() int { return e.skipped }

// Start launches the job. Cancelling ctx is equivalent to Abort.
// Calls after the first are ignored.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() { go e.run(ctx) })
}

// Events publishes the effects of the job. It is closed after
// the final EventComplete or EventError.
func (e *Engine) Events() <-chan Event { return e.events }

// Done is closed when the job is over.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Result is only valid once Done is closed.
func (e *Engine) Result() *Result { return e.result }

// Incoming hands a line received from the controller to the engine.
func (e *Engine) Incoming(line string) {
	e.post(func() { e.inbox = append(e.inbox, line) })
}

// Fail reports a transport failure, which ends the job in error.
func (e *Engine) Fail(err error) { e.post(func() { e.cmds = append(e.cmds, command{kind: cmdFail, err: err}) }) }

// Pause stops sending new lines and lifts the pen.
func (e *Engine) Pause() { e.post(func() { e.cmds = append(e.cmds, command{kind: cmdPause}) }) }

// Resume lowers the pen if it was down, waits for it to settle
// and resumes sending.
func (e *Engine) Resume() { e.post(func() { e.cmds = append(e.cmds, command{kind: cmdResume}) }) }

// Abort stops the job. It may be called any number of times,
// from any goroutine, before or after the job ends.
func (e *Engine) Abort() { e.abortOnce.Do(func() { close(e.abortCh) }) }

func (e *Engine) post(f func()) {
	e.mu.Lock()
	f()
	e.mu.Unlock()
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

func (e *Engine) aborted() bool {
	select {
	case <-e.abortCh:
		return true
	default:
		return false
	}
}

func (e *Engine) emit(ev Event) { e.events <- ev }

func (e *Engine) logf(level Level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	e.log = append(e.log, level.String()+": "+msg)
	if e.opts.Logger != nil {
		e.opts.Logger.Printf("[%s] %s: %s", e.opts.JobName, level, msg)
	}
	e.emit(Event{Kind: EventLog, Level: level, Message: msg})
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	defer close(e.events)

	e.start = time.Now()
	e.lastAck = e.start
	e.logf(LevelInfo, "streaming %s: %d lines (job %s)", e.opts.JobName, len(e.lines), e.jobID)
	if e.skipped > 0 {
		e.logf(LevelWarning, "skipped %d pause command(s)", e.skipped)
	}
	e.logf(LevelInfo, "buffer capacity: %d lines", e.opts.BufferCapacity)
	if e.opts.LineNumbers {
		e.oob = append(e.oob, outOfBand{line: ResetLineNumber})
	}

	timer := time.NewTimer(e.opts.AckTimeout)
	defer timer.Stop()
	for {
		if e.aborted() {
			e.finish(StateAborted, ErrAborted)
			return
		}
		if err := ctx.Err(); err != nil {
			e.finish(StateAborted, errors.WithMessage(ErrAborted, err.Error()))
			return
		}

		e.pump()
		if e.state == StateDraining && e.pending == 0 && len(e.oob) == 0 {
			e.finish(StateComplete, nil)
			return
		}

		wait := e.opts.AckTimeout
		if e.pending > 0 {
			wait = time.Until(e.deadline())
		}
		resetTimer(timer, wait)

		select {
		case <-e.abortCh:
		case <-ctx.Done():
		case <-e.notify:
			if err := e.drainInbox(); err != nil {
				e.finish(StateError, err)
				return
			}
		case <-e.settleC:
			e.settleC = nil
			e.settling = false
			e.logf(LevelInfo, "pen settled, resuming")
		case <-timer.C:
			if e.pending > 0 && !time.Now().Before(e.deadline()) {
				e.finish(StateError, errors.Wrapf(ErrTimeout, "%d line(s) unacknowledged after %s",
					e.pending, e.opts.AckTimeout))
				return
			}
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	if d < 0 {
		d = 0
	}
	t.Reset(d)
}

// deadline is AckTimeout after the later of the last satisfied
// wait and the end of the grace period of the last busy signal.
func (e *Engine) deadline() time.Time {
	base := e.lastAck
	if b := e.lastBusy.Add(e.opts.BusyGrace); b.After(base) {
		base = b
	}
	return base.Add(e.opts.AckTimeout)
}

// pump fills the window: out-of-band lines first, then job lines
// unless paused or settling.
func (e *Engine) pump() {
	for e.pending < e.opts.BufferCapacity && !e.aborted() {
		if len(e.oob) > 0 {
			l := e.oob[0]
			e.oob = e.oob[1:]
			e.send(l.line)
			if l.settle {
				e.settle()
			}
			continue
		}
		if e.paused || e.settling || e.next >= len(e.lines) {
			break
		}
		line := e.lines[e.next]
		e.next++
		if e.opts.LineNumbers {
			e.lineNumber++
			line = gcode.Number(e.lineNumber, line)
		}
		e.send(line)
		e.progress()
	}

	if e.state == StateFilling && (e.pending >= e.opts.BufferCapacity || e.next >= len(e.lines)) {
		e.state = StateStreaming
		e.logf(LevelInfo, "buffer filled with %d line(s)", e.pending)
	}
	if e.state == StateStreaming && e.next >= len(e.lines) {
		e.state = StateDraining
		e.logf(LevelInfo, "all lines sent, waiting for %d acknowledgment(s)", e.pending)
	}
}

// send writes a line which expects an acknowledgment.
func (e *Engine) send(line string) {
	if e.pending == 0 {
		// the wait starts now
		e.lastAck = time.Now()
	}
	e.pending++
	if l := gcode.ParseLine(line); l.Is("M280") {
		if s, ok := l.Param('S'); ok {
			e.penDown = int(s) == e.opts.Pen.DownAngle
		}
	}
	e.emit(Event{Kind: EventWriteLine, Line: line})
}

func (e *Engine) settle() {
	e.settling = true
	e.settleC = time.After(e.opts.SettleDelay)
}

func (e *Engine) progress() {
	if e.next%e.opts.ProgressInterval != 0 && e.next != len(e.lines) {
		return
	}
	p := Progress{
		Current:    e.next,
		Total:      len(e.lines),
		Percent:    100 * float64(e.next) / float64(len(e.lines)),
		BufferUsed: e.pending,
	}
	if elapsed := time.Since(e.start).Seconds(); elapsed > 0 {
		p.LinesPerSec = float64(e.next) / elapsed
	}
	if p.LinesPerSec > 0 {
		p.ETA = time.Duration(float64(p.Total-p.Current) / p.LinesPerSec * float64(time.Second))
	}
	e.logf(LevelInfo, "%s", p)
	e.emit(Event{Kind: EventProgress, Progress: p})
}

func (e *Engine) drainInbox() error {
	e.mu.Lock()
	inbox, cmds := e.inbox, e.cmds
	e.inbox, e.cmds = nil, nil
	e.mu.Unlock()

	for _, c := range cmds {
		switch c.kind {
		case cmdPause:
			e.pause()
		case cmdResume:
			e.resume()
		case cmdFail:
			return errors.Wrap(c.err, "transport failure")
		}
	}
	for _, line := range inbox {
		e.handle(line)
	}
	return nil
}

func (e *Engine) handle(line string) {
	kind := Classify(line)
	switch kind {
	case AckOK:
	case AckResend:
		if n, ok := ResendLine(line); ok {
			e.logf(LevelWarning, "controller requested line %d again, continuing", n)
		} else {
			e.logf(LevelWarning, "%s", line)
		}
	case AckBusy:
		e.lastBusy = time.Now()
		e.logf(LevelInfo, "%s", line)
	case AckPausedForUser:
		e.lastBusy = time.Now()
		e.logf(LevelWarning, "controller waiting for the user, sending %s", BreakCommand)
		e.emit(Event{Kind: EventWriteLine, Line: BreakCommand})
	case AckLineError, AckError:
		e.logf(LevelError, "%s", line)
	default:
		e.logf(LevelInfo, "%s", line)
	}
	if kind.Satisfies() {
		e.satisfy()
	}
}

func (e *Engine) satisfy() {
	if e.pending > 0 {
		e.pending--
	}
	e.lastAck = time.Now()
}

func (e *Engine) pause() {
	if e.paused {
		return
	}
	e.paused = true
	e.penDownAtPause = e.penDown
	e.oob = append(e.oob, outOfBand{line: e.opts.Pen.Up()})
	e.logf(LevelWarning, "paused at line %d/%d", e.next, len(e.lines))
}

func (e *Engine) resume() {
	if !e.paused {
		return
	}
	e.paused = false
	if e.penDownAtPause {
		e.oob = append(e.oob, outOfBand{line: e.opts.Pen.Down(), settle: true})
	} else {
		e.settle()
	}
	e.logf(LevelInfo, "resuming at line %d/%d", e.next, len(e.lines))
}

// finish publishes the final events. Aborted and failed jobs
// lift the pen and release the motors first.
func (e *Engine) finish(state State, err error) {
	e.state = state
	switch state {
	case StateComplete:
		e.logf(LevelSuccess, "%s complete: %d lines in %s", e.opts.JobName, e.next,
			time.Since(e.start).Round(time.Millisecond))
	case StateAborted:
		e.logf(LevelWarning, "%s aborted at line %d/%d", e.opts.JobName, e.next, len(e.lines))
	default:
		e.logf(LevelError, "%s failed at line %d/%d: %v", e.opts.JobName, e.next, len(e.lines), err)
	}
	if state != StateComplete {
		e.emit(Event{Kind: EventWriteLine, Line: e.opts.Pen.Up(), Safety: true})
		e.emit(Event{Kind: EventWriteLine, Line: MotorsOff, Safety: true})
	}

	e.result = &Result{
		JobID:    e.jobID,
		JobName:  e.opts.JobName,
		State:    state,
		Total:    len(e.lines),
		Sent:     e.next,
		Skipped:  e.skipped,
		Duration: time.Since(e.start),
		Log:      e.log,
	}
	if err != nil {
		e.emit(Event{Kind: EventError, Err: err, Result: e.result})
	} else {
		e.emit(Event{Kind: EventComplete, Result: e.result})
	}
}
