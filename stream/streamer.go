package stream

import (
	"context"
	"strings"
	"sync"

	"github.com/penplot/penplot/transport"
)

// Streamer owns a transport and streams one job at a time on it.
type Streamer struct {
	t    transport.Transport
	opts Options

	// OnEvent, if not nil, is called with every event of the
	// active job, after writes are performed.
	OnEvent func(Event)

	mu     sync.Mutex
	active *Engine
}

// NewStreamer uses opts for every job streamed on t.
func NewStreamer(t transport.Transport, opts Options) *Streamer {
	return &Streamer{t: t, opts: opts}
}

// Stream sends program and waits for the job to end.
// ErrBusy is returned if another job is streaming; an aborted
// job returns an error whose cause is ErrAborted.
func (s *Streamer) Stream(ctx context.Context, program string, jobName string) (*Result, error) {
	opts := s.opts
	if jobName != "" {
		opts.JobName = jobName
	}

	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	e, err := NewEngine(strings.Split(program, "\n"), opts)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.active = e
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.active = nil
		s.mu.Unlock()
	}()

	s.discardStale()
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		s.forward(e)
	}()
	e.Start(ctx)

	var (
		res    *Result
		jobErr error
	)
	for ev := range e.Events() {
		switch ev.Kind {
		case EventWriteLine:
			if err := s.t.WriteLine(ev.Line); err != nil && !ev.Safety {
				e.Fail(err)
			}
		case EventComplete:
			res = ev.Result
		case EventError:
			res, jobErr = ev.Result, ev.Err
		}
		if s.OnEvent != nil {
			s.OnEvent(ev)
		}
	}
	// the next job must not share the transport with this forwarder
	<-forwarded
	return res, jobErr
}

// discardStale drops lines received before the job, such as the
// acknowledgments of the safety commands of a previous job.
func (s *Streamer) discardStale() {
	for {
		select {
		case _, ok := <-s.t.Lines():
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// forward hands the transport lines to e until it is done.
// Lines received once e is done are left to the next job.
func (s *Streamer) forward(e *Engine) {
	lines := s.t.Lines()
	for {
		select {
		case <-e.Done():
			return
		default:
		}
		select {
		case line, ok := <-lines:
			if !ok {
				e.Fail(transport.ErrClosed)
				return
			}
			select {
			case <-e.Done():
				return
			default:
				e.Incoming(line)
			}
		case <-e.Done():
			return
		}
	}
}

func (s *Streamer) current() *Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Busy is true while a job is streaming.
func (s *Streamer) Busy() bool { return s.current() != nil }

// Pause pauses the active job, if any.
func (s *Streamer) Pause() bool {
	e := s.current()
	if e != nil {
		e.Pause()
	}
	return e != nil
}

// Resume resumes the active job, if any.
func (s *Streamer) Resume() bool {
	e := s.current()
	if e != nil {
		e.Resume()
	}
	return e != nil
}

// Abort aborts the active job, if any.
func (s *Streamer) Abort() bool {
	e := s.current()
	if e != nil {
		e.Abort()
	}
	return e != nil
}
