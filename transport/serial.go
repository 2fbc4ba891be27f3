package transport

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// BaudRates are tried in order when opening a serial port.
var BaudRates = []int{250000, 115200, 230400, 57600}

// openPort is replaced in tests.
var openPort = func(name string, baud int) (serial.Port, error) {
	return serial.Open(name, &serial.Mode{BaudRate: baud})
}

// Attempt is one failed connection.
type Attempt struct {
	Baud int
	Err  error
}

// ConnectError lists every failed attempt to open a port.
type ConnectError struct {
	Port     string
	Attempts []Attempt
}

func (e *ConnectError) Error() string {
	chunks := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		chunks[i] = fmt.Sprintf("%d baud: %v", a.Baud, a.Err)
	}
	return fmt.Sprintf("cannot open serial port %s (%s)", e.Port, strings.Join(chunks, "; "))
}

// Serial is an open serial port.
type Serial struct {
	Transport
	Name string
	Baud int
}

// OpenSerial opens the named port with the first bit rate that works.
// BaudRates is used if bauds is empty. The returned error is
// a *ConnectError.
func OpenSerial(name string, bauds []int) (*Serial, error) {
	if len(bauds) == 0 {
		bauds = BaudRates
	}
	cerr := &ConnectError{Port: name}
	for _, baud := range bauds {
		port, err := openPort(name, baud)
		if err != nil {
			cerr.Attempts = append(cerr.Attempts, Attempt{Baud: baud, Err: err})
			continue
		}
		return &Serial{Transport: NewLineConn(port), Name: name, Baud: baud}, nil
	}
	return nil, cerr
}

// Ports lists the serial ports of the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
