package recordwire

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrPeerClosed is wrapped by a ConnError when the peer closes the stream
// before a whole frame was transferred.
var ErrPeerClosed = errors.New("peer closed connection")

// ErrConnectionClosed is returned when operating on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// ErrorKind classifies failures for logging and statistics.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConfiguration
	KindConnection
	KindFormat
	KindTimeout
	KindAccept
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindConnection:
		return "connection"
	case KindFormat:
		return "format"
	case KindTimeout:
		return "timeout"
	case KindAccept:
		return "accept"
	default:
		return "unknown"
	}
}

// ConfigError reports a missing or invalid configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// ConnError is a transport failure during dial, send or receive.
// Offset is the number of frame bytes transferred before the failure.
type ConnError struct {
	Op     string
	Addr   string
	Offset int
	Err    error
}

func (e *ConnError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("%s %s: at byte %d: %v", e.Op, e.Addr, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s: at byte %d: %v", e.Op, e.Offset, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// FormatError is returned when a buffer does not hold a whole frame.
type FormatError struct {
	Len int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed frame: got %d bytes, want %d", e.Len, FrameSize)
}

// TimeoutError is returned when a read or write exceeded its deadline.
type TimeoutError struct {
	Op     string
	Addr   string
	Offset int
	Err    error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s: timed out at byte %d: %v", e.Op, e.Addr, e.Offset, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Timeout lets TimeoutError satisfy net.Error style checks.
func (e *TimeoutError) Timeout() bool { return true }

// AcceptError is returned when the listener fails to accept a connection.
type AcceptError struct {
	Err error
}

func (e *AcceptError) Error() string {
	return fmt.Sprintf("accept: %v", e.Err)
}

func (e *AcceptError) Unwrap() error { return e.Err }

// KindOf reports which part of the taxonomy err belongs to.
func KindOf(err error) ErrorKind {
	var (
		configErr  *ConfigError
		connErr    *ConnError
		formatErr  *FormatError
		timeoutErr *TimeoutError
		acceptErr  *AcceptError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &configErr):
		return KindConfiguration
	case errors.As(err, &timeoutErr):
		return KindTimeout
	case errors.As(err, &formatErr):
		return KindFormat
	case errors.As(err, &acceptErr):
		return KindAccept
	case errors.As(err, &connErr):
		return KindConnection
	default:
		return KindUnknown
	}
}
