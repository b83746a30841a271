package xmodem

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Debug(format string, args ...interface{}) {
	l.lines = append(l.lines, "DEBUG "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Info(format string, args ...interface{}) {
	l.lines = append(l.lines, "INFO "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Error(format string, args ...interface{}) {
	l.lines = append(l.lines, "ERROR "+fmt.Sprintf(format, args...))
}

func TestLogrusLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetLevel(logrus.DebugLevel)

	l := NewLogrusLogger(log, "ymodem")
	l.Debug("block %d", 3)
	l.Error("gave up")

	out := buf.String()
	for _, want := range []string{`level=debug msg="block 3" component=ymodem`, `level=error msg="gave up" component=ymodem`} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proto.log")
	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	l.Info("handshake %s", CRC16)
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "INFO: handshake CRC-16") {
		t.Fatalf("log = %q", data)
	}
}

func TestFormatBlockLog(t *testing.T) {
	short := FormatBlockLog("sent", SOH, 1, []byte("hi"))
	if short != `sent SOH #1, size=2, data="hi"` {
		t.Fatalf("got %s", short)
	}

	long := FormatBlockLog("received", STX, 9, bytes.Repeat([]byte{'a'}, BlockSize1K))
	if !strings.HasSuffix(long, "...[truncated]") || !strings.Contains(long, "size=1024") {
		t.Fatalf("got %s", long)
	}
}

func TestLoggingReaderWriter(t *testing.T) {
	port := newScriptedPort([]byte{ACK}, nil)
	rec := &recordingLogger{}

	r := NewLoggingReader(port, rec, "rx")
	w := NewLoggingWriter(port, rec, "tx")

	buf := make([]byte, 4)
	if _, err := r.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	// deadline expiry is routine and not logged as an error
	r.Read(buf)
	w.Write([]byte{WANTCRC})

	want := []string{
		`DEBUG rx: Read 1 bytes: "\x06"`,
		`DEBUG tx: Wrote 1 bytes: "C"`,
	}
	if strings.Join(rec.lines, "\n") != strings.Join(want, "\n") {
		t.Fatalf("lines = %q", rec.lines)
	}
}

func TestEngineLogsThroughLogger(t *testing.T) {
	rec := &recordingLogger{}
	port := newScriptedPort([]byte{WANTCRC}, ackAll)
	x := NewXModem(port, port, WithConfig(testConfig()), WithLogger(rec))

	if err := x.SendFrom(context.Background(), strings.NewReader("abc")); err != nil {
		t.Fatalf("SendFrom: %v", err)
	}
	joined := strings.Join(rec.lines, "\n")
	for _, want := range []string{"INFO receiver requested CRC-16", "DEBUG sent SOH #1", "INFO EOT acknowledged"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("log missing %q:\n%s", want, joined)
		}
	}
}
