package xmodem

import (
	"errors"
	"fmt"
)

// Error represents an XMODEM/YMODEM transfer error
type Error struct {
	// Type is the error type
	Type ErrorType

	// Message is a human-readable error message
	Message string

	// Err is the underlying cause (if any)
	Err error
}

// ErrorType categorizes transfer errors
type ErrorType int

const (
	// ErrProtocol indicates an unexpected byte from the peer
	ErrProtocol ErrorType = iota

	// ErrTimeout indicates no expected byte arrived within the deadline
	ErrTimeout

	// ErrInvalidBlock indicates a complement or checksum mismatch
	ErrInvalidBlock

	// ErrRepeatedBlock indicates a duplicate of the last accepted block
	ErrRepeatedBlock

	// ErrSyncLost indicates a block sequence that is neither expected nor a repeat
	ErrSyncLost

	// ErrMaxErrors indicates the consecutive error budget was exhausted
	ErrMaxErrors

	// ErrPeerCancelled indicates the peer sent CAN
	ErrPeerCancelled

	// ErrInvalidFilename indicates a name that fails the DOS 8.3-style check
	ErrInvalidFilename

	// ErrCancelled indicates the caller cancelled the transfer
	ErrCancelled

	// ErrIO indicates an I/O error on the stream, source or sink
	ErrIO
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("xmodem %s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("xmodem %s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (t ErrorType) String() string {
	switch t {
	case ErrProtocol:
		return "protocol error"
	case ErrTimeout:
		return "timeout"
	case ErrInvalidBlock:
		return "invalid block"
	case ErrRepeatedBlock:
		return "repeated block"
	case ErrSyncLost:
		return "synchronization lost"
	case ErrMaxErrors:
		return "too many errors"
	case ErrPeerCancelled:
		return "cancelled by peer"
	case ErrInvalidFilename:
		return "invalid filename"
	case ErrCancelled:
		return "cancelled"
	case ErrIO:
		return "I/O error"
	default:
		return "unknown error"
	}
}

// NewError creates a new transfer error
func NewError(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// wrapError creates a transfer error around an underlying cause
func wrapError(errType ErrorType, message string, err error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

func isType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return isType(err, ErrTimeout)
}

// IsCancelled checks if an error indicates cancellation by the caller
func IsCancelled(err error) bool {
	return isType(err, ErrCancelled)
}

// IsPeerCancelled checks if the peer aborted the transfer
func IsPeerCancelled(err error) bool {
	return isType(err, ErrPeerCancelled)
}

// IsSyncLost checks if block synchronization was lost
func IsSyncLost(err error) bool {
	return isType(err, ErrSyncLost)
}

// IsMaxErrors checks if the error budget was exhausted
func IsMaxErrors(err error) bool {
	return isType(err, ErrMaxErrors)
}

// IsInvalidFilename checks if a YMODEM filename was rejected
func IsInvalidFilename(err error) bool {
	return isType(err, ErrInvalidFilename)
}
