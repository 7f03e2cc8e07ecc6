// Package recordwire transfers one fixed-layout record per TCP connection.
// A frame is 104 bytes: a big-endian int32 id followed by a zero-padded
// 100-byte text field. The package provides the frame codec, a connection
// handler that moves whole frames over partial reads and writes with
// deadlines, a single-shot client, and an acceptor loop.
package recordwire

import (
	"context"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// Stream is the part of net.Conn a Conn needs. Tests substitute their own.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
}

// Default configuration values.
const (
	// defaultDialTimeout bounds Dial when no DialTimeoutOption is given.
	defaultDialTimeout = 5 * time.Second
	// maxEmptyIO is how many consecutive zero-byte reads or writes without
	// an error are tolerated before the stream is treated as stuck.
	maxEmptyIO = 100
)

// aLongTimeAgo is a deadline that makes pending I/O fail immediately.
var aLongTimeAgo = time.Unix(1, 0)

// Conn owns one stream and moves exactly one record over it.
// It never closes the stream on its own; the caller does.
type Conn struct {
	stream Stream
	logger Logger

	opts options

	closed atomic.Bool
}

// NewConn wraps stream with the given options.
func NewConn(stream Stream, opt ...Option) *Conn {
	opts := newOptions(opt)
	return &Conn{
		stream: stream,
		logger: opts.logger,
		opts:   opts,
	}
}

// SendRecord encodes r and writes the whole frame, looping over short
// writes. Failures are *ConnError or *TimeoutError carrying the byte
// offset reached.
func (c *Conn) SendRecord(ctx context.Context, r Record) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	frame, truncated := Encode(r)
	if truncated {
		c.logger.Warn("record text truncated", "addr", c.addrString(),
			"id", r.ID, "text_len", len(r.Text), "max", MaxTextLen)
		if c.opts.onTruncate != nil {
			c.opts.onTruncate(r)
		}
	}

	if err := ctx.Err(); err != nil {
		return c.ioError(ctx, "send", 0, err)
	}

	stop, err := c.armDeadline(ctx, c.opts.writeTimeout, c.stream.SetWriteDeadline)
	if err != nil {
		return c.ioError(ctx, "send", 0, err)
	}
	defer stop()

	off, empty := 0, 0
	for off < FrameSize {
		n, err := c.stream.Write(frame[off:])
		off += n
		if off >= FrameSize {
			break
		}
		if err != nil {
			c.logger.Debug("write error", "addr", c.addrString(), "offset", off, "error", err)
			return c.ioError(ctx, "send", off, err)
		}
		if n > 0 {
			empty = 0
			continue
		}
		if empty++; empty >= maxEmptyIO {
			return c.ioError(ctx, "send", off, io.ErrShortWrite)
		}
	}

	c.logger.Debug("record sent", "addr", c.addrString(), "id", r.ID)
	return nil
}

// ReceiveRecord reads until exactly one frame has arrived and decodes it.
// A peer that closes early yields a *ConnError wrapping ErrPeerClosed.
func (c *Conn) ReceiveRecord(ctx context.Context) (Record, error) {
	if c.closed.Load() {
		return Record{}, ErrConnectionClosed
	}

	if err := ctx.Err(); err != nil {
		return Record{}, c.ioError(ctx, "receive", 0, err)
	}

	stop, err := c.armDeadline(ctx, c.opts.readTimeout, c.stream.SetReadDeadline)
	if err != nil {
		return Record{}, c.ioError(ctx, "receive", 0, err)
	}
	defer stop()

	buf := make([]byte, FrameSize)
	off, empty := 0, 0
	for off < FrameSize {
		n, err := c.stream.Read(buf[off:])
		off += n
		if off >= FrameSize {
			break
		}
		if err != nil {
			c.logger.Debug("read error", "addr", c.addrString(), "offset", off, "error", err)
			return Record{}, c.ioError(ctx, "receive", off, err)
		}
		if n > 0 {
			empty = 0
			continue
		}
		if empty++; empty >= maxEmptyIO {
			return Record{}, c.ioError(ctx, "receive", off, io.ErrNoProgress)
		}
	}

	rec, err := Decode(buf)
	if err != nil {
		return Record{}, err
	}

	c.logger.Debug("record received", "addr", c.addrString(), "id", rec.ID)
	return rec, nil
}

// Close closes the underlying stream. Safe to call multiple times.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil // already closed
	}
	return c.stream.Close()
}

// IsClosed returns true if the connection has been closed.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// Addr returns the remote address of the connection.
func (c *Conn) Addr() net.Addr {
	return c.stream.RemoteAddr()
}

func (c *Conn) addrString() string {
	if addr := c.stream.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// armDeadline sets the stream deadline to the earlier of now+timeout and
// the context deadline, and forces it into the past if ctx is canceled.
// The returned func detaches the context watcher.
func (c *Conn) armDeadline(ctx context.Context, timeout time.Duration, set func(time.Time) error) (func() bool, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}

	if err := set(deadline); err != nil {
		return nil, errors.Wrap(err, "set deadline")
	}

	return context.AfterFunc(ctx, func() {
		_ = set(aLongTimeAgo)
	}), nil
}

// ioError maps a stream failure onto the error taxonomy.
func (c *Conn) ioError(ctx context.Context, op string, off int, err error) error {
	addr := c.addrString()

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return &TimeoutError{Op: op, Addr: addr, Offset: off, Err: ctxErr}
		}
		return &ConnError{Op: op, Addr: addr, Offset: off, Err: ctxErr}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Op: op, Addr: addr, Offset: off, Err: err}
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = ErrPeerClosed
	}
	return &ConnError{Op: op, Addr: addr, Offset: off, Err: err}
}
