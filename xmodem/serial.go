package xmodem

import (
	"os"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SerialPort adapts an open go.bug.st/serial port to ReaderWithTimeout.
// Deadlines are translated into the port's read timeout before each
// read; a read that returns no data once the timeout elapses reports
// os.ErrDeadlineExceeded.
type SerialPort struct {
	serial.Port

	mu       sync.Mutex
	deadline time.Time
}

// NewSerialPort wraps port. The port keeps its mode; opening and closing
// it stay with the caller.
func NewSerialPort(port serial.Port) *SerialPort {
	return &SerialPort{Port: port}
}

func (p *SerialPort) SetReadDeadline(t time.Time) error {
	p.mu.Lock()
	p.deadline = t
	p.mu.Unlock()
	return nil
}

func (p *SerialPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	dl := p.deadline
	p.mu.Unlock()

	timeout := serial.NoTimeout
	if !dl.IsZero() {
		timeout = time.Until(dl)
		if timeout <= 0 {
			return 0, os.ErrDeadlineExceeded
		}
	}
	if err := p.Port.SetReadTimeout(timeout); err != nil {
		return 0, err
	}

	n, err := p.Port.Read(buf)
	if n == 0 && err == nil {
		return 0, os.ErrDeadlineExceeded
	}
	return n, err
}

// Purge discards bytes the port has already received, for use before a
// transfer starts.
func (p *SerialPort) Purge() error {
	return p.Port.ResetInputBuffer()
}
