package xmodem

import (
	"errors"
	"io"
	"os"
	"testing"
	"time"
)

func TestTimeoutReaderDeadline(t *testing.T) {
	pr, pw := io.Pipe()
	r := NewTimeoutReader(pr)
	buf := make([]byte, 8)

	r.SetReadDeadline(time.Now().Add(20 * time.Millisecond))
	start := time.Now()
	if _, err := r.Read(buf); !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("read outlived its deadline")
	}

	go pw.Write([]byte("abc"))
	r.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := r.Read(buf)
	if err != nil || string(buf[:n]) != "abc" {
		t.Fatalf("Read = %q, %v", buf[:n], err)
	}

	pw.Close()
	r.SetReadDeadline(time.Time{})
	if _, err := r.Read(buf); err != io.EOF {
		t.Fatalf("err = %v, want EOF", err)
	}
}

func TestTimeoutReaderKeepsPartialChunks(t *testing.T) {
	pr, pw := io.Pipe()
	r := NewTimeoutReader(pr)
	go pw.Write([]byte("hello"))

	r.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got []byte
	small := make([]byte, 2)
	for len(got) < 5 {
		n, err := r.Read(small)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		got = append(got, small[:n]...)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestNewTimeoutReaderPassesThroughFiles(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	if got := NewTimeoutReader(r); got != ReaderWithTimeout(r) {
		t.Fatal("*os.File was wrapped")
	}
}

func TestModemIOReadByteTimeout(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	z := newModemIO(r, w, 16)
	if _, err := z.readByte(startDeadline(20 * time.Millisecond)); !IsTimeout(err) {
		t.Fatalf("err = %v, want timeout", err)
	}

	w.Write([]byte{ACK, NAK})
	for _, want := range []byte{ACK, NAK} {
		b, err := z.readByte(startDeadline(time.Second))
		if err != nil || b != want {
			t.Fatalf("readByte = %s, %v; want %s", ControlName(b), err, ControlName(want))
		}
	}
}

func TestModemIOReadError(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()
	w.Close()

	z := newModemIO(r, io.Discard, 16)
	_, err = z.readByte(startDeadline(time.Second))
	var xerr *Error
	if !errors.As(err, &xerr) || xerr.Type != ErrIO || !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want I/O error wrapping EOF", err)
	}
}
