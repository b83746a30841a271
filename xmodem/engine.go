package xmodem

import (
	"io"
	"time"
)

// Config holds engine configuration. It is copied into each engine at
// construction, so sessions in one process can be tuned independently.
type Config struct {
	// MaxErrors is the consecutive error budget for one block, EOT or
	// receiver handshake.
	MaxErrors int

	// HandshakeTimeout bounds each wait for the receiver's 'C' or NAK.
	HandshakeTimeout time.Duration

	// BlockTimeout bounds the wait for ACK/NAK after a block and the
	// receiver's wait for the next block header.
	BlockTimeout time.Duration

	// ByteTimeout bounds each byte read inside a block.
	ByteTimeout time.Duration

	// RequestTimeout is how long a receiver waits before resending its
	// handshake byte.
	RequestTimeout time.Duration

	// Checksum is the mode a receiver requests.
	Checksum ChecksumMode

	// TruncateToSize cuts YMODEM output to the size declared in block 0,
	// dropping the final block's CPMEOF padding.
	TruncateToSize bool

	// ProgressInterval is the minimum time between OnProgress calls.
	ProgressInterval time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxErrors:        10,
		HandshakeTimeout: 60 * time.Second,
		BlockTimeout:     10 * time.Second,
		ByteTimeout:      1 * time.Second,
		RequestTimeout:   3 * time.Second,
		Checksum:         CRC16,
		TruncateToSize:   false,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Engine runs the sender and receiver state machines over one stream
// pair. An engine must not be used by more than one transfer at a time.
type Engine struct {
	io        *modemIO
	config    Config
	callbacks *Callbacks
	logger    Logger
	progress  *ProgressTracker
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(e *Engine) {
		if config != nil {
			e.config = *config
		}
	}
}

// WithCallbacks sets the transfer callbacks.
func WithCallbacks(callbacks *Callbacks) Option {
	return func(e *Engine) {
		e.callbacks = mergeCallbacks(callbacks)
	}
}

// WithLogger sets a logger for protocol debugging.
func WithLogger(logger Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a transfer engine reading peer bytes from reader and
// writing to writer.
func NewEngine(reader ReaderWithTimeout, writer io.Writer, opts ...Option) *Engine {
	e := &Engine{
		config:    *DefaultConfig(),
		callbacks: defaultCallbacks(),
		logger:    NoopLogger{},
	}

	for _, opt := range opts {
		opt(e)
	}

	defaults := DefaultConfig()
	if e.config.MaxErrors <= 0 {
		e.config.MaxErrors = defaults.MaxErrors
	}
	if e.config.ProgressInterval <= 0 {
		e.config.ProgressInterval = defaults.ProgressInterval
	}

	e.io = newModemIO(reader, writer, BlockSize1K+5)
	e.progress = NewProgressTracker(e.callbacks.OnProgress, e.config.ProgressInterval)
	return e
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

func (e *Engine) emit(t EventType, seq byte, message string) {
	e.callbacks.OnEvent(Event{
		Type:      t,
		Seq:       seq,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// cancelTransfer tells the peer to abort with two CAN bytes.
func (e *Engine) cancelTransfer() {
	e.logger.Info("sending CAN CAN")
	if err := e.io.write([]byte{CAN, CAN}); err != nil {
		e.logger.Error("cancel: %v", err)
	}
}

// fail reports err through the callbacks and logger and returns it.
func (e *Engine) fail(err error, context string) error {
	e.logger.Error("%s: %v", context, err)
	e.callbacks.OnError(err, context)
	return err
}
