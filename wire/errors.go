package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectionClosed is returned when the peer closed the stream where a
	// response was expected.
	ErrConnectionClosed = connectionClosedError{}

	// ErrSessionClosed is returned by a session that was closed, either by
	// the caller or after a fatal error.
	ErrSessionClosed = errors.New("celrix: session closed")
)

type connectionClosedError struct{}

func (connectionClosedError) Error() string               { return "celrix: connection closed" }
func (connectionClosedError) ShouldCloseConnection() bool { return true }

// ConnectionError wraps an I/O failure on the transport.
//
// Connection handling: the connection is broken, CLOSE it.
type ConnectionError struct {
	Op   string // dial, read, write, flush
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("celrix: %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("celrix: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error               { return e.Err }
func (e *ConnectionError) ShouldCloseConnection() bool { return true }

// FrameTruncatedError means the stream ended before a declared length was
// satisfied. Nothing partially read is ever returned alongside it.
type FrameTruncatedError struct {
	Declared uint64
	Received uint64
}

func (e *FrameTruncatedError) Error() string {
	return fmt.Sprintf("celrix: truncated frame: declared %d bytes, received %d", e.Declared, e.Received)
}

func (e *FrameTruncatedError) ShouldCloseConnection() bool { return true }

// PayloadTruncatedError means a length inside an already received payload
// points past the payload end.
type PayloadTruncatedError struct {
	Offset int
	Need   int
	Len    int
}

func (e *PayloadTruncatedError) Error() string {
	return fmt.Sprintf("celrix: truncated payload: need %d bytes at offset %d, payload is %d bytes", e.Need, e.Offset, e.Len)
}

func (e *PayloadTruncatedError) ShouldCloseConnection() bool { return true }

// BadMagicError is returned when a binary frame header does not start with
// the protocol magic.
type BadMagicError struct {
	Got [4]byte
}

func (e *BadMagicError) Error() string {
	return fmt.Sprintf("celrix: bad magic %q", e.Got[:])
}

func (e *BadMagicError) ShouldCloseConnection() bool { return true }

// UnknownOpcodeError is returned for a binary opcode the decoder does not handle.
type UnknownOpcodeError struct {
	Opcode byte
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("celrix: unknown opcode 0x%02x", e.Opcode)
}

func (e *UnknownOpcodeError) ShouldCloseConnection() bool { return true }

// UnknownPrefixError is returned for a text response line with an unknown type prefix.
type UnknownPrefixError struct {
	Prefix byte
}

func (e *UnknownPrefixError) Error() string {
	return fmt.Sprintf("celrix: unknown response prefix %q", e.Prefix)
}

func (e *UnknownPrefixError) ShouldCloseConnection() bool { return true }

// ParseError is a structurally malformed response: a length that is not a
// number, an integer payload of the wrong size, nesting too deep.
type ParseError struct {
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "celrix: parse error: " + e.Message + ": " + e.Err.Error()
	}
	return "celrix: parse error: " + e.Message
}

func (e *ParseError) Unwrap() error               { return e.Err }
func (e *ParseError) ShouldCloseConnection() bool { return true }

// ServerError is an error the server reported for a command.
// A full response was read, so the session stays usable.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "celrix: server error: " + e.Message
}

func (e *ServerError) ShouldCloseConnection() bool { return false }

// ProtocolViolationError is a well-formed response of the wrong kind for the
// command that requested it.
type ProtocolViolationError struct {
	Command string
	Got     Kind
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("celrix: protocol violation: unexpected %s response to %s", e.Got, e.Command)
}

func (e *ProtocolViolationError) ShouldCloseConnection() bool { return true }

// InvalidKeyError rejects a key before anything is written.
type InvalidKeyError struct {
	Message string
}

func (e *InvalidKeyError) Error() string               { return "celrix: invalid key: " + e.Message }
func (e *InvalidKeyError) ShouldCloseConnection() bool { return false }

// InvalidArgumentError rejects a command argument before anything is written.
type InvalidArgumentError struct {
	Message string
}

func (e *InvalidArgumentError) Error() string               { return "celrix: invalid argument: " + e.Message }
func (e *InvalidArgumentError) ShouldCloseConnection() bool { return false }

// ErrorWithConnectionState is implemented by every error of this package.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves the stream in an unknown
// state. Unknown error types are treated as fatal.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	return true
}

// AsError converts an Error value into a *ServerError and returns nil for
// every other value.
func AsError(v Value) error {
	if msg, ok := v.(Error); ok {
		return &ServerError{Message: string(msg)}
	}
	return nil
}
