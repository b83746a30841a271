package xmodem

import (
	"io"
	"time"
)

// Callbacks provides hooks for transfer events.
// All callbacks are optional - nil callbacks use default behavior.
type Callbacks struct {
	// OnFileStart is called when a file transfer starts.
	// size is 0 when unknown (plain XMODEM).
	OnFileStart func(filename string, size int64)

	// OnProgress is called periodically during file transfer.
	// filename: name of the file being transferred
	// transferred: bytes transferred so far
	// total: total bytes to transfer (0 if unknown)
	// rate: transfer rate in bytes per second
	OnProgress func(filename string, transferred, total int64, rate float64)

	// OnFileComplete is called when a file transfer completes.
	// duration: time taken for the transfer
	OnFileComplete func(filename string, bytesTransferred int64, duration time.Duration)

	// OnError is called when a transfer fails.
	// context: description of where the error occurred
	OnError func(err error, context string)

	// OnEvent is called for block-level protocol events (debugging/logging).
	OnEvent func(event Event)

	// OnFileCreate is called when a YMODEM receiver needs a sink for a
	// file announced in block 0. If nil, the file is created in the
	// receive directory. The returned writer is closed by the receiver.
	OnFileCreate func(filename string, size int64) (io.WriteCloser, error)
}

// Event represents a protocol event for logging/debugging.
type Event struct {
	Type      EventType
	Seq       byte
	Message   string
	Timestamp time.Time
}

// EventType categorizes protocol events.
type EventType int

const (
	EventHandshake EventType = iota
	EventBlockSent
	EventBlockAcked
	EventBlockNaked
	EventBlockAccepted
	EventBlockRepeated
	EventBlockRejected
	EventTimeout
	EventEOT
	EventCancelled
)

func (t EventType) String() string {
	switch t {
	case EventHandshake:
		return "handshake"
	case EventBlockSent:
		return "block sent"
	case EventBlockAcked:
		return "block acked"
	case EventBlockNaked:
		return "block naked"
	case EventBlockAccepted:
		return "block accepted"
	case EventBlockRepeated:
		return "block repeated"
	case EventBlockRejected:
		return "block rejected"
	case EventTimeout:
		return "timeout"
	case EventEOT:
		return "end of transmission"
	case EventCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// defaultCallbacks returns a set of callbacks with default implementations.
func defaultCallbacks() *Callbacks {
	return &Callbacks{
		OnFileStart:    func(string, int64) {},
		OnProgress:     func(string, int64, int64, float64) {},
		OnFileComplete: func(string, int64, time.Duration) {},
		OnError:        func(error, string) {},
		OnEvent:        func(Event) {},
		OnFileCreate:   nil, // Use default
	}
}

// mergeCallbacks merges user callbacks with defaults.
// User callbacks override defaults, nil callbacks use defaults.
func mergeCallbacks(user *Callbacks) *Callbacks {
	result := defaultCallbacks()
	if user == nil {
		return result
	}

	if user.OnFileStart != nil {
		result.OnFileStart = user.OnFileStart
	}
	if user.OnProgress != nil {
		result.OnProgress = user.OnProgress
	}
	if user.OnFileComplete != nil {
		result.OnFileComplete = user.OnFileComplete
	}
	if user.OnError != nil {
		result.OnError = user.OnError
	}
	if user.OnEvent != nil {
		result.OnEvent = user.OnEvent
	}

	// File operations (nil means use default)
	result.OnFileCreate = user.OnFileCreate

	return result
}
