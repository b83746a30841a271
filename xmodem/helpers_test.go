package xmodem

import (
	"bytes"
	"os"
	"sync"
	"testing"
	"time"
)

// scriptedPort is a fake peer. Reads drain the queued input and report
// a deadline error as soon as it is empty, so timeouts cost nothing.
// Every write is recorded and passed to respond, whose return value is
// queued as the peer's answer.
type scriptedPort struct {
	mu      sync.Mutex
	in      []byte
	writes  [][]byte
	respond func(p []byte) []byte
}

func newScriptedPort(input []byte, respond func(p []byte) []byte) *scriptedPort {
	return &scriptedPort{in: append([]byte(nil), input...), respond: respond}
}

func (p *scriptedPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.in) == 0 {
		return 0, os.ErrDeadlineExceeded
	}
	n := copy(buf, p.in)
	p.in = p.in[n:]
	return n, nil
}

func (p *scriptedPort) SetReadDeadline(time.Time) error { return nil }

func (p *scriptedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, append([]byte(nil), b...))
	if p.respond != nil {
		p.in = append(p.in, p.respond(b)...)
	}
	return len(b), nil
}

// frames returns the recorded writes that are whole blocks.
func (p *scriptedPort) frames() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out [][]byte
	for _, w := range p.writes {
		if isFrame(w) {
			out = append(out, w)
		}
	}
	return out
}

// output returns everything written, concatenated.
func (p *scriptedPort) output() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Join(p.writes, nil)
}

func isFrame(b []byte) bool {
	return len(b) > 3 && (b[0] == SOH || b[0] == STX)
}

// ackAll acknowledges every block and EOT.
func ackAll(p []byte) []byte {
	if isFrame(p) || (len(p) == 1 && p[0] == EOT) {
		return []byte{ACK}
	}
	return nil
}

func testConfig() *Config {
	c := DefaultConfig()
	c.MaxErrors = 3
	c.HandshakeTimeout = 50 * time.Millisecond
	c.BlockTimeout = 50 * time.Millisecond
	c.ByteTimeout = 50 * time.Millisecond
	c.RequestTimeout = 50 * time.Millisecond
	return c
}

func endsWithCancel(t *testing.T, out []byte) {
	t.Helper()
	if len(out) < 2 || out[len(out)-2] != CAN || out[len(out)-1] != CAN {
		t.Fatalf("output does not end with CAN CAN: % x", tail(out))
	}
}

func tail(b []byte) []byte {
	if len(b) > 8 {
		return b[len(b)-8:]
	}
	return b
}

func frame(seq byte, data []byte, size int, mode ChecksumMode) []byte {
	return encodeBlock(seq, data, size, NewChecksum(mode))
}

func repeat(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

// pipePair connects two engines: a's writes are b's reads and vice versa.
type pipeEnd struct {
	r *os.File
	w *os.File
}

func pipePair(t *testing.T) (pipeEnd, pipeEnd) {
	t.Helper()
	r1, w1, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	r2, w2, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		r1.Close()
		w1.Close()
		r2.Close()
		w2.Close()
	})
	return pipeEnd{r: r1, w: w2}, pipeEnd{r: r2, w: w1}
}

// e2eConfig leaves room for goroutine scheduling on a real pipe.
func e2eConfig() *Config {
	c := DefaultConfig()
	c.HandshakeTimeout = 2 * time.Second
	c.BlockTimeout = 2 * time.Second
	c.ByteTimeout = time.Second
	c.RequestTimeout = 2 * time.Second
	return c
}
