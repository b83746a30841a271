package xmodem

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"
)

// ReaderWithTimeout is an interface for reading with timeout support.
// It extends io.Reader with deadline capabilities. *os.File (including
// pipes) and net.Conn satisfy it directly; NewTimeoutReader and
// NewSerialPort adapt streams that do not.
type ReaderWithTimeout interface {
	io.Reader
	SetReadDeadline(time.Time) error
}

// modemIO provides buffered byte reads bounded by a deadline and
// unbuffered writes to the peer.
type modemIO struct {
	reader ReaderWithTimeout
	writer io.Writer
	rbuf   []byte
	rpos   int
	rleft  int
}

func newModemIO(reader ReaderWithTimeout, writer io.Writer, bufsize int) *modemIO {
	return &modemIO{
		reader: reader,
		writer: writer,
		rbuf:   make([]byte, bufsize),
	}
}

// readByte reads a single byte, failing with ErrTimeout once dl expires.
func (z *modemIO) readByte(dl deadline) (byte, error) {
	if z.rleft > 0 {
		z.rleft--
		b := z.rbuf[z.rpos]
		z.rpos++
		return b, nil
	}

	for {
		if dl.expired() {
			return 0, NewError(ErrTimeout, "no data from peer")
		}
		if err := z.reader.SetReadDeadline(dl.at); err != nil {
			return 0, wrapError(ErrIO, "set read deadline", err)
		}

		n, err := z.reader.Read(z.rbuf)
		if n > 0 {
			z.rpos = 1
			z.rleft = n - 1
			return z.rbuf[0], nil
		}
		if err != nil {
			if isDeadlineErr(err) {
				return 0, NewError(ErrTimeout, "no data from peer")
			}
			return 0, wrapError(ErrIO, "read", err)
		}
	}
}

// write writes bytes to the peer.
func (z *modemIO) write(buf []byte) error {
	if _, err := z.writer.Write(buf); err != nil {
		return wrapError(ErrIO, "write", err)
	}
	return z.flush()
}

// writeByte writes a single control byte.
func (z *modemIO) writeByte(b byte) error {
	return z.write([]byte{b})
}

func (z *modemIO) flush() error {
	if f, ok := z.writer.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return wrapError(ErrIO, "flush", err)
		}
	}
	return nil
}

func isDeadlineErr(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// timeoutReader adds deadline support to a plain io.Reader. A single
// goroutine pumps the underlying reader so a read can be abandoned when
// the deadline passes without losing the bytes that arrive later.
type timeoutReader struct {
	reader io.Reader
	chunks chan readChunk
	once   sync.Once

	mu       sync.Mutex
	deadline time.Time
	pending  []byte
	err      error
}

type readChunk struct {
	data []byte
	err  error
}

// NewTimeoutReader wraps reader so that it satisfies ReaderWithTimeout.
// Use it for stdin, SSH pipes and other streams without native deadlines.
func NewTimeoutReader(reader io.Reader) ReaderWithTimeout {
	if rt, ok := reader.(ReaderWithTimeout); ok {
		return rt
	}
	return &timeoutReader{
		reader: reader,
		chunks: make(chan readChunk, 1),
	}
}

func (r *timeoutReader) pump() {
	for {
		buf := make([]byte, 1024)
		n, err := r.reader.Read(buf)
		if n > 0 {
			r.chunks <- readChunk{data: buf[:n]}
		}
		if err != nil {
			r.chunks <- readChunk{err: err}
			close(r.chunks)
			return
		}
	}
}

func (r *timeoutReader) SetReadDeadline(t time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deadline = t
	return nil
}

func (r *timeoutReader) Read(p []byte) (int, error) {
	r.once.Do(func() { go r.pump() })

	r.mu.Lock()
	if len(r.pending) > 0 {
		n := copy(p, r.pending)
		r.pending = r.pending[n:]
		r.mu.Unlock()
		return n, nil
	}
	if r.err != nil {
		err := r.err
		r.mu.Unlock()
		return 0, err
	}
	dl := r.deadline
	r.mu.Unlock()

	var timeout <-chan time.Time
	if !dl.IsZero() {
		wait := time.Until(dl)
		if wait <= 0 {
			return 0, os.ErrDeadlineExceeded
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case chunk, ok := <-r.chunks:
		r.mu.Lock()
		defer r.mu.Unlock()
		if !ok {
			return 0, r.err
		}
		if chunk.err != nil {
			r.err = chunk.err
			return 0, chunk.err
		}
		n := copy(p, chunk.data)
		r.pending = chunk.data[n:]
		return n, nil
	case <-timeout:
		return 0, os.ErrDeadlineExceeded
	}
}
