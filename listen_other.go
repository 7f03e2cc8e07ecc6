//go:build !unix

package recordwire

import (
	"net"

	"github.com/pkg/errors"
)

// listenTCP falls back to the runtime listener; the backlog is left to
// the operating system default.
func listenTCP(addr string, _ int) (net.Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", addr)
	}
	return l, nil
}
