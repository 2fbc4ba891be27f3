package transport

import (
	"context"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// WebSocket talks to a network bridge in front of the controller.
// Each text message may carry several lines.
type WebSocket struct {
	conn *websocket.Conn

	mu     sync.Mutex // guards writes and closed
	closed bool

	lines     chan string
	closeOnce sync.Once
}

// DialWebSocket connects to the bridge at url (ws:// or wss://).
func DialWebSocket(ctx context.Context, url string) (*WebSocket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing %s", url)
	}
	return NewWebSocket(conn), nil
}

// NewWebSocket wraps an established connection.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	ws := &WebSocket{conn: conn, lines: make(chan string, lineBuffer)}
	go ws.readLoop()
	return ws
}

func (ws *WebSocket) readLoop() {
	defer close(ws.lines)
	for {
		_, data, err := ws.conn.ReadMessage()
		if err != nil {
			return
		}
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				ws.lines <- line
			}
		}
	}
}

func (ws *WebSocket) WriteLine(line string) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.closed {
		return ErrClosed
	}
	err := ws.conn.WriteMessage(websocket.TextMessage, []byte(line+"\n"))
	return errors.Wrapf(err, "writing %q", line)
}

func (ws *WebSocket) Lines() <-chan string { return ws.lines }

// Close sends a close frame and releases the connection.
func (ws *WebSocket) Close() error {
	var err error
	ws.closeOnce.Do(func() {
		ws.mu.Lock()
		ws.closed = true
		_ = ws.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		ws.mu.Unlock()
		err = ws.conn.Close()
	})
	return err
}
