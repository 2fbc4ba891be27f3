// Package transport provides the line oriented links to the
// plotter controller: serial ports, websocket bridges and an
// in-process simulator.
package transport

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ErrClosed is returned when writing to a closed transport.
var ErrClosed = errors.New("transport closed")

// Transport exchanges newline terminated ASCII lines with a controller.
// A transport is an exclusive resource: one writer and one reader.
type Transport interface {
	// WriteLine sends line, appending the terminating newline.
	WriteLine(line string) error
	// Lines delivers the inbound lines, without their terminator.
	// The channel is closed when the link goes down.
	Lines() <-chan string
	Close() error
}

// lineBuffer is the capacity of the inbound channels.
const lineBuffer = 256

// lineConn adapts a byte stream.
type lineConn struct {
	rwc io.ReadWriteCloser

	mu     sync.Mutex // guards writes and closed
	closed bool

	lines     chan string
	closeOnce sync.Once
}

// NewLineConn wraps a byte stream, splitting the inbound
// bytes on newlines. Carriage returns are dropped.
func NewLineConn(rwc io.ReadWriteCloser) Transport {
	c := &lineConn{rwc: rwc, lines: make(chan string, lineBuffer)}
	go c.readLoop()
	return c
}

func (c *lineConn) readLoop() {
	defer close(c.lines)
	scanner := bufio.NewScanner(c.rwc)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c.lines <- line
	}
}

func (c *lineConn) WriteLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	_, err := io.WriteString(c.rwc, line+"\n")
	return errors.Wrapf(err, "writing %q", line)
}

func (c *lineConn) Lines() <-chan string { return c.lines }

func (c *lineConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		err = c.rwc.Close()
	})
	return err
}
