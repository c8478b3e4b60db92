package xmodem

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents an XMODEM protocol error.
type Error struct {
	// Type is the error type.
	Type ErrorType

	// Message is a human-readable error message.
	Message string

	// Byte is the wire byte that caused the error, if applicable.
	Byte int
}

// ErrorType categorizes XMODEM errors.
type ErrorType int

const (
	// ErrProtocol indicates the peer sent an unexpected control byte.
	// Fatal for the current exchange and never retried.
	ErrProtocol ErrorType = iota

	// ErrChecksum indicates a packet checksum mismatch. Recoverable:
	// the transfer drivers retry the same packet.
	ErrChecksum

	// ErrCancelled indicates the peer cancelled the transfer with CAN.
	ErrCancelled

	// ErrBufferSize indicates a caller-supplied buffer with an invalid
	// length. Caller programming error, never retried.
	ErrBufferSize

	// ErrTransferFailed indicates the per-packet retry budget was
	// exhausted. Terminal for the whole transfer.
	ErrTransferFailed
)

func (e *Error) Error() string {
	if e.Byte >= 0 {
		return fmt.Sprintf("xmodem %s: %s (byte: %s)", e.Type, e.Message, ControlName(byte(e.Byte)))
	}
	return fmt.Sprintf("xmodem %s: %s", e.Type, e.Message)
}

func (t ErrorType) String() string {
	switch t {
	case ErrProtocol:
		return "protocol error"
	case ErrChecksum:
		return "checksum error"
	case ErrCancelled:
		return "cancelled"
	case ErrBufferSize:
		return "bad buffer size"
	case ErrTransferFailed:
		return "transfer failed"
	default:
		return "unknown error"
	}
}

// NewError creates a new XMODEM error.
func NewError(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Byte:    -1,
	}
}

// NewByteError creates a new XMODEM error carrying the offending wire byte.
func NewByteError(errType ErrorType, message string, b byte) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Byte:    int(b),
	}
}

// IsChecksum checks if an error is a checksum error.
func IsChecksum(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrChecksum
	}
	return false
}

// IsCancelled checks if an error indicates cancellation by the peer.
func IsCancelled(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrCancelled
	}
	return false
}

// IsProtocol checks if an error is a protocol violation.
func IsProtocol(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrProtocol
	}
	return false
}

// IsRetryable reports whether a packet exchange that failed with err may be
// retried. Checksum mismatches and interrupted transport operations are
// transient; every other failure is final for the transfer.
func IsRetryable(err error) bool {
	return IsChecksum(err) || errors.Is(err, syscall.EINTR)
}
