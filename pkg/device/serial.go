package device

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the baud rate of the ESP32 controller firmware.
	DefaultBaudRate = 115200
	// MaxLineLength bounds a line with no terminator. Longer input is
	// returned as a line of its own so line noise cannot grow the buffer.
	MaxLineLength = 4096
)

var errClosed = errors.New("connection closed")

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// port is the subset of serial.Port used by Serial.
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// Serial is a connection to the controller over a serial port.
type Serial struct {
	conn    port
	mu      sync.Mutex
	pending []byte
	buf     [256]byte
	closed  bool
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Open opens the serial port, waits settle for the controller to come out of
// reset and discards whatever it printed meanwhile.
func Open(name string, baudRate int, settle time.Duration) (*Serial, error) {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	p, err := serial.Open(name, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, &ChannelError{Op: "open", Err: fmt.Errorf("failed to open serial port %s: %w", name, err)}
	}

	s, err := newSerial(p, settle)
	if err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

func newSerial(p port, settle time.Duration) (*Serial, error) {
	if settle > 0 {
		time.Sleep(settle)
	}
	if err := p.ResetInputBuffer(); err != nil {
		return nil, &ChannelError{Op: "flush", Err: err}
	}
	return &Serial{conn: p}, nil
}

// Send writes cmd followed by a newline.
func (d *Serial) Send(cmd string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return &ChannelError{Op: "write", Err: errClosed}
	}
	if _, err := d.conn.Write([]byte(cmd + "\n")); err != nil {
		return &ChannelError{Op: "write", Err: fmt.Errorf("failed to send %q: %w", cmd, err)}
	}
	return nil
}

// ReadLine returns the next line with the terminator and trailing blanks
// removed. Invalid UTF-8 sequences are dropped.
func (d *Serial) ReadLine(timeout time.Duration) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return "", &ChannelError{Op: "read", Err: errClosed}
	}
	if line, ok := d.takeLine(); ok {
		return line, nil
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", nil
		}
		if err := d.conn.SetReadTimeout(remaining); err != nil {
			return "", &ChannelError{Op: "read", Err: err}
		}

		n, err := d.conn.Read(d.buf[:])
		if err != nil {
			return "", &ChannelError{Op: "read", Err: err}
		}
		if n == 0 {
			// Read timed out
			return "", nil
		}

		d.pending = append(d.pending, d.buf[:n]...)
		if line, ok := d.takeLine(); ok {
			return line, nil
		}
	}
}

// Close closes the serial port. It is safe to call more than once.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.conn.Close(); err != nil {
		return &ChannelError{Op: "close", Err: err}
	}
	return nil
}

// takeLine removes the first complete line from the pending buffer.
func (d *Serial) takeLine() (string, bool) {
	idx := bytes.IndexByte(d.pending, '\n')
	if idx < 0 {
		if len(d.pending) < MaxLineLength {
			return "", false
		}
		idx = MaxLineLength
	}

	line := decodeLine(d.pending[:idx])
	rest := idx
	if rest < len(d.pending) && d.pending[rest] == '\n' {
		rest++
	}
	d.pending = append(d.pending[:0], d.pending[rest:]...)
	return line, true
}

func decodeLine(b []byte) string {
	return strings.TrimRight(strings.ToValidUTF8(string(b), ""), " \t\r\n")
}
