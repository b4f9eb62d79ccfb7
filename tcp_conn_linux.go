//go:build linux

package tio

import (
	"context"
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/brickingsoft/tio/pkg/ring"
	"github.com/brickingsoft/tio/pkg/sys"
)

func newTCPConn(ctx context.Context, r *ring.Ring, fd *sys.Fd) *TCPConn {
	return &TCPConn{
		ctx:  ctx,
		ring: r,
		fd:   fd,
	}
}

// TCPConn wraps one connected socket accepted by a TCPListener. The
// descriptor is exclusively owned by the connection. Reads and writes go
// through the listener's completion driver, so the connection is usable
// while its listener stays open.
type TCPConn struct {
	ctx          context.Context
	ring         *ring.Ring
	fd           *sys.Fd
	closed       atomic.Bool
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func (conn *TCPConn) Read(b []byte) (n int, err error) {
	if conn.closed.Load() {
		err = newOpErr(opRead, conn.fd.Net(), conn.fd.LocalAddr(), conn.fd.RemoteAddr(), ErrClosed)
		return
	}
	n, rErr := conn.ring.Receive(conn.ctx, conn.fd.Socket(), b, conn.readTimeout)
	if rErr != nil {
		err = newOpErr(opRead, conn.fd.Net(), conn.fd.LocalAddr(), conn.fd.RemoteAddr(), rErr)
		return
	}
	if n == 0 && len(b) > 0 {
		err = io.EOF
	}
	return
}

func (conn *TCPConn) Write(b []byte) (n int, err error) {
	if conn.closed.Load() {
		err = newOpErr(opWrite, conn.fd.Net(), conn.fd.LocalAddr(), conn.fd.RemoteAddr(), ErrClosed)
		return
	}
	for n < len(b) {
		wrote, wErr := conn.ring.Send(conn.ctx, conn.fd.Socket(), b[n:], conn.writeTimeout)
		if wErr != nil {
			err = newOpErr(opWrite, conn.fd.Net(), conn.fd.LocalAddr(), conn.fd.RemoteAddr(), wErr)
			return
		}
		n += wrote
	}
	return
}

func (conn *TCPConn) Close() error {
	if !conn.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := conn.fd.Close(); err != nil {
		return newOpErr(opClose, conn.fd.Net(), conn.fd.LocalAddr(), conn.fd.RemoteAddr(), err)
	}
	return nil
}

func (conn *TCPConn) LocalAddr() net.Addr {
	return conn.fd.LocalAddr()
}

func (conn *TCPConn) RemoteAddr() net.Addr {
	return conn.fd.RemoteAddr()
}

// SetReadTimeout bounds every following Read, zero or below removes the
// bound.
func (conn *TCPConn) SetReadTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	conn.readTimeout = d
}

// SetWriteTimeout bounds every following Write, zero or below removes the
// bound.
func (conn *TCPConn) SetWriteTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	conn.writeTimeout = d
}

func (conn *TCPConn) SetNoDelay(noDelay bool) error {
	if err := conn.fd.SetNoDelay(noDelay); err != nil {
		return newOpErr("set", conn.fd.Net(), conn.fd.LocalAddr(), conn.fd.RemoteAddr(), err)
	}
	return nil
}

func (conn *TCPConn) SetKeepAlive(keepalive bool) error {
	if err := conn.fd.SetKeepAlive(keepalive); err != nil {
		return newOpErr("set", conn.fd.Net(), conn.fd.LocalAddr(), conn.fd.RemoteAddr(), err)
	}
	return nil
}

// CloseRead shuts down the reading side.
func (conn *TCPConn) CloseRead() error {
	if err := conn.fd.CloseRead(); err != nil {
		return newOpErr(opClose, conn.fd.Net(), conn.fd.LocalAddr(), conn.fd.RemoteAddr(), err)
	}
	return nil
}

// CloseWrite shuts down the writing side.
func (conn *TCPConn) CloseWrite() error {
	if err := conn.fd.CloseWrite(); err != nil {
		return newOpErr(opClose, conn.fd.Net(), conn.fd.LocalAddr(), conn.fd.RemoteAddr(), err)
	}
	return nil
}
