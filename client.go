package recordwire

import (
	"context"
	"net"
	"strings"

	"github.com/pkg/errors"
)

// Dial connects to addr ("host:port"). An empty or portless address is a
// *ConfigError; connection failures are *ConnError or *TimeoutError.
func Dial(ctx context.Context, addr string, opt ...Option) (*Conn, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, &ConfigError{Field: "host", Reason: "server address is required"}
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, &ConfigError{Field: "host", Reason: err.Error()}
	}
	if host == "" {
		return nil, &ConfigError{Field: "host", Reason: "server host is required"}
	}

	opts := newOptions(opt)

	dialer := net.Dialer{Timeout: opts.dialTimeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &TimeoutError{Op: "dial", Addr: addr, Err: err}
		}
		return nil, &ConnError{Op: "dial", Addr: addr, Err: err}
	}

	if tcp, ok := raw.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	opts.logger.Debug("connected", "addr", addr)
	return &Conn{stream: raw, logger: opts.logger, opts: opts}, nil
}

// Send dials addr, transmits r and closes the connection.
func Send(ctx context.Context, addr string, r Record, opt ...Option) error {
	conn, err := Dial(ctx, addr, opt...)
	if err != nil {
		return err
	}

	sendErr := conn.SendRecord(ctx, r)
	closeErr := conn.Close()
	if sendErr != nil {
		return sendErr
	}
	if closeErr != nil {
		return &ConnError{Op: "close", Addr: addr, Offset: FrameSize, Err: closeErr}
	}
	return nil
}
