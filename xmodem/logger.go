package xmodem

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger interface for protocol logging
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// FileLogger writes logs to a file
type FileLogger struct {
	file *os.File
	mu   sync.Mutex
}

// NewFileLogger creates a logger that writes to a file
func NewFileLogger(path string) (*FileLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{file: file}, nil
}

func (l *FileLogger) log(level, format string, args ...interface{}) {
	if l == nil || l.file == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(l.file, "[%s] %s: %s\n", timestamp, level, msg)
}

func (l *FileLogger) Debug(format string, args ...interface{}) {
	l.log("DEBUG", format, args...)
}

func (l *FileLogger) Info(format string, args ...interface{}) {
	l.log("INFO", format, args...)
}

func (l *FileLogger) Error(format string, args ...interface{}) {
	l.log("ERROR", format, args...)
}

func (l *FileLogger) Close() error {
	if l != nil && l.file != nil {
		return l.file.Close()
	}
	return nil
}

// NoopLogger does nothing
type NoopLogger struct{}

func (NoopLogger) Debug(format string, args ...interface{}) {}
func (NoopLogger) Info(format string, args ...interface{})  {}
func (NoopLogger) Error(format string, args ...interface{}) {}

// LogrusLogger sends protocol logs to a logrus entry
type LogrusLogger struct {
	Entry *logrus.Entry
}

// NewLogrusLogger tags every record with the given component name.
func NewLogrusLogger(logger *logrus.Logger, component string) *LogrusLogger {
	return &LogrusLogger{Entry: logger.WithField("component", component)}
}

func (l *LogrusLogger) Debug(format string, args ...interface{}) {
	l.Entry.Debugf(format, args...)
}

func (l *LogrusLogger) Info(format string, args ...interface{}) {
	l.Entry.Infof(format, args...)
}

func (l *LogrusLogger) Error(format string, args ...interface{}) {
	l.Entry.Errorf(format, args...)
}

// FormatBlockLog formats a block for logging with data truncation
func FormatBlockLog(direction string, header, seq byte, payload []byte) string {
	msg := fmt.Sprintf("%s %s #%d", direction, ControlName(header), seq)
	if len(payload) > 0 {
		displayLen := len(payload)
		if displayLen > 32 {
			msg += fmt.Sprintf(", size=%d, data=%q...[truncated]", len(payload), payload[:32])
		} else {
			msg += fmt.Sprintf(", size=%d, data=%q", len(payload), payload[:displayLen])
		}
	}
	return msg
}

// LoggingReader wraps a reader and logs all reads
type LoggingReader struct {
	reader ReaderWithTimeout
	logger Logger
	name   string
}

func NewLoggingReader(reader ReaderWithTimeout, logger Logger, name string) *LoggingReader {
	return &LoggingReader{
		reader: reader,
		logger: logger,
		name:   name,
	}
}

func (lr *LoggingReader) Read(p []byte) (int, error) {
	n, err := lr.reader.Read(p)
	if lr.logger != nil && n > 0 {
		data := p[:n]
		if n > 32 {
			lr.logger.Debug("%s: Read %d bytes: %q...[truncated]", lr.name, n, data[:32])
		} else {
			lr.logger.Debug("%s: Read %d bytes: %q", lr.name, n, data)
		}
	}
	if err != nil && err != io.EOF && !isDeadlineErr(err) && lr.logger != nil {
		lr.logger.Error("%s: Read error: %v", lr.name, err)
	}
	return n, err
}

func (lr *LoggingReader) SetReadDeadline(t time.Time) error {
	return lr.reader.SetReadDeadline(t)
}

// LoggingWriter wraps a writer and logs all writes
type LoggingWriter struct {
	writer io.Writer
	logger Logger
	name   string
}

func NewLoggingWriter(writer io.Writer, logger Logger, name string) *LoggingWriter {
	return &LoggingWriter{
		writer: writer,
		logger: logger,
		name:   name,
	}
}

func (lw *LoggingWriter) Write(p []byte) (int, error) {
	n, err := lw.writer.Write(p)
	if lw.logger != nil && n > 0 {
		data := p[:n]
		if n > 32 {
			lw.logger.Debug("%s: Wrote %d bytes: %q...[truncated]", lw.name, n, data[:32])
		} else {
			lw.logger.Debug("%s: Wrote %d bytes: %q", lw.name, n, data)
		}
	}
	if err != nil && lw.logger != nil {
		lw.logger.Error("%s: Write error: %v", lw.name, err)
	}
	return n, err
}
