package transport

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func receive(t *testing.T, lines <-chan string) string {
	t.Helper()
	select {
	case l, ok := <-lines:
		require.True(t, ok, "channel closed")
		return l
	case <-time.After(2 * time.Second):
		t.Fatal("no line received")
		return ""
	}
}

func TestLineConn(t *testing.T) {
	host, device := net.Pipe()
	c := NewLineConn(host)

	go func() {
		_, _ = device.Write([]byte("ok\r\n\nbusy: processing\n"))
	}()
	assert.Equal(t, "ok", receive(t, c.Lines()))
	assert.Equal(t, "busy: processing", receive(t, c.Lines()))

	go func() { _ = c.WriteLine("G28 X Y") }()
	r := bufio.NewReader(device)
	got, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "G28 X Y\n", got)

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.Equal(t, ErrClosed, c.WriteLine("M84"))
	_, ok := <-c.Lines()
	assert.False(t, ok)
}

type fakePort struct {
	serial.Port
	conn net.Conn
}

func (p fakePort) Read(b []byte) (int, error)  { return p.conn.Read(b) }
func (p fakePort) Write(b []byte) (int, error) { return p.conn.Write(b) }
func (p fakePort) Close() error                { return p.conn.Close() }

func TestOpenSerialTriesBaudRates(t *testing.T) {
	defer func(f func(string, int) (serial.Port, error)) { openPort = f }(openPort)

	host, _ := net.Pipe()
	var tried []int
	openPort = func(name string, baud int) (serial.Port, error) {
		tried = append(tried, baud)
		if baud != 230400 {
			return nil, errors.New("invalid speed")
		}
		return fakePort{conn: host}, nil
	}
	s, err := OpenSerial("/dev/ttyUSB0", nil)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, []int{250000, 115200, 230400}, tried)
	assert.Equal(t, 230400, s.Baud)
	assert.Equal(t, "/dev/ttyUSB0", s.Name)
}

func TestOpenSerialReportsAttempts(t *testing.T) {
	defer func(f func(string, int) (serial.Port, error)) { openPort = f }(openPort)
	openPort = func(string, int) (serial.Port, error) { return nil, errors.New("busy") }

	_, err := OpenSerial("COM3", []int{115200, 57600})
	require.Error(t, err)
	cerr, ok := err.(*ConnectError)
	require.True(t, ok)
	assert.Len(t, cerr.Attempts, 2)
	assert.Equal(t, 57600, cerr.Attempts[1].Baud)
	assert.Equal(t, "cannot open serial port COM3 (115200 baud: busy; 57600 baud: busy)", err.Error())
}

// okBridge acknowledges every received line, as a controller would.
func okBridge(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			n := strings.Count(string(data), "\n")
			reply := strings.Repeat("ok\n", n)
			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				return
			}
		}
	}))
}

func TestWebSocket(t *testing.T) {
	srv := okBridge(t)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, err := DialWebSocket(context.Background(), url)
	require.NoError(t, err)

	require.NoError(t, ws.WriteLine("G28 X Y"))
	assert.Equal(t, "ok", receive(t, ws.Lines()))
	require.NoError(t, ws.WriteLine("M84"))
	assert.Equal(t, "ok", receive(t, ws.Lines()))

	require.NoError(t, ws.Close())
	assert.Equal(t, ErrClosed, ws.WriteLine("M84"))
}

func TestDialWebSocketFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := DialWebSocket(ctx, "ws://127.0.0.1:1/")
	assert.Error(t, err)
}

func TestSimulator(t *testing.T) {
	sim := NewSimulator(func(line string) []string {
		if line == "M0" {
			return []string{"busy: paused for user"}
		}
		return []string{"ok"}
	})
	require.NoError(t, sim.WriteLine("G28 X Y"))
	require.NoError(t, sim.WriteLine("M0"))
	sim.Inject("echo: hello")
	assert.Equal(t, "ok", receive(t, sim.Lines()))
	assert.Equal(t, "busy: paused for user", receive(t, sim.Lines()))
	assert.Equal(t, "echo: hello", receive(t, sim.Lines()))
	assert.Equal(t, []string{"G28 X Y", "M0"}, sim.Written())
	assert.Equal(t, 1, sim.Count("G28"))

	require.NoError(t, sim.Close())
	assert.Equal(t, ErrClosed, sim.WriteLine("M84"))
	_, ok := <-sim.Lines()
	assert.False(t, ok)
}
