package transport

import (
	"strings"
	"sync"
)

// Responder computes the replies of a simulated controller to a line.
type Responder func(line string) []string

// AlwaysOK acknowledges every line.
func AlwaysOK(string) []string { return []string{"ok"} }

// Simulator is an in-process controller, used for dry runs and tests.
type Simulator struct {
	respond Responder

	mu      sync.Mutex
	written []string
	closed  bool

	lines chan string
}

// NewSimulator returns a simulator replying with respond,
// AlwaysOK if nil.
func NewSimulator(respond Responder) *Simulator {
	if respond == nil {
		respond = AlwaysOK
	}
	return &Simulator{respond: respond, lines: make(chan string, 4096)}
}

func (s *Simulator) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.written = append(s.written, line)
	for _, reply := range s.respond(line) {
		s.lines <- reply
	}
	return nil
}

// Inject delivers an unsolicited line, as if sent by the controller.
func (s *Simulator) Inject(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.lines <- line
	}
}

func (s *Simulator) Lines() <-chan string { return s.lines }

// Written returns a copy of the lines received so far.
func (s *Simulator) Written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.written...)
}

// Count returns the number of written lines starting with prefix.
func (s *Simulator) Count(prefix string) int {
	n := 0
	for _, l := range s.Written() {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.lines)
	}
	return nil
}
