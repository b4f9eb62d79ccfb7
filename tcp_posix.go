//go:build !linux

package tio

import (
	"context"
	"net"
	"time"

	"github.com/brickingsoft/errors"
)

// ListenTCP binds a listening socket to the given concrete endpoint, no
// resolution happens. Platforms without the completion driver fall back to
// the net package, the options that tune the driver are accepted and
// ignored.
func ListenTCP(network string, addr *net.TCPAddr, options ...Option) (*TCPListener, error) {
	opts := Options{
		Backlog: DefaultBacklog,
	}
	for _, option := range options {
		if optErr := option(&opts); optErr != nil {
			return nil, newOpErr(opListen, network, nil, addr, optErr)
		}
	}
	inner, err := net.ListenTCP(network, addr)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TCPListener{
		ctx:    ctx,
		cancel: cancel,
		inner:  inner,
	}, nil
}

// TCPListener owns exactly one bound, listening socket.
type TCPListener struct {
	ctx    context.Context
	cancel context.CancelFunc
	inner  *net.TCPListener
}

// Accept waits for and accepts one incoming connection, honoring ctx by
// interrupting the blocking accept through a deadline.
func (ln *TCPListener) Accept(ctx context.Context) (conn *TCPConn, addr net.Addr, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ln.ctx.Err() != nil {
		err = newOpErr(opAccept, "tcp", ln.inner.Addr(), nil, ErrClosed)
		return
	}
	acceptCtx, acceptCancel := context.WithCancel(ctx)
	defer acceptCancel()
	stop := context.AfterFunc(ln.ctx, acceptCancel)
	defer stop()
	wake := context.AfterFunc(acceptCtx, func() {
		_ = ln.inner.SetDeadline(time.Now())
	})
	defer wake()

	inner, acceptErr := ln.inner.AcceptTCP()
	_ = ln.inner.SetDeadline(time.Time{})
	if acceptErr != nil {
		if ctxErr := acceptCtx.Err(); ctxErr != nil {
			acceptErr = ctxErr
		}
		if ln.ctx.Err() != nil {
			acceptErr = errors.From(ErrClosed, errors.WithWrap(acceptErr))
		}
		err = newOpErr(opAccept, "tcp", ln.inner.Addr(), nil, acceptErr)
		return
	}
	addr = inner.RemoteAddr()
	if addr == nil {
		_ = inner.Close()
		err = newOpErr(opAccept, "tcp", ln.inner.Addr(), nil, ErrMissingPeerAddress)
		return
	}
	conn = &TCPConn{inner: inner}
	return
}

// OnAccept runs an accept loop on its own goroutine and dispatches every
// result to the handler via the shared executors.
func (ln *TCPListener) OnAccept(handler AcceptHandler) {
	go func(ln *TCPListener, handler AcceptHandler) {
		for {
			conn, addr, err := ln.Accept(ln.ctx)
			if err != nil {
				handler(ln.ctx, nil, nil, err)
				if IsClosed(err) {
					return
				}
				continue
			}
			execErr := Executors().Execute(ln.ctx, func() {
				handler(ln.ctx, conn, addr, nil)
			})
			if execErr != nil {
				_ = conn.Close()
				handler(ln.ctx, nil, nil, newOpErr(opAccept, "tcp", ln.inner.Addr(), addr, execErr))
				return
			}
		}
	}(ln, handler)
}

func (ln *TCPListener) Addr() net.Addr {
	return ln.inner.Addr()
}

func (ln *TCPListener) Close() error {
	ln.cancel()
	return ln.inner.Close()
}

// TCPConn wraps one connected socket accepted by a TCPListener.
type TCPConn struct {
	inner        *net.TCPConn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func (conn *TCPConn) Read(b []byte) (n int, err error) {
	if conn.readTimeout > 0 {
		_ = conn.inner.SetReadDeadline(time.Now().Add(conn.readTimeout))
	}
	return conn.inner.Read(b)
}

func (conn *TCPConn) Write(b []byte) (n int, err error) {
	if conn.writeTimeout > 0 {
		_ = conn.inner.SetWriteDeadline(time.Now().Add(conn.writeTimeout))
	}
	return conn.inner.Write(b)
}

func (conn *TCPConn) Close() error {
	return conn.inner.Close()
}

func (conn *TCPConn) LocalAddr() net.Addr {
	return conn.inner.LocalAddr()
}

func (conn *TCPConn) RemoteAddr() net.Addr {
	return conn.inner.RemoteAddr()
}

func (conn *TCPConn) SetReadTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	conn.readTimeout = d
}

func (conn *TCPConn) SetWriteTimeout(d time.Duration) {
	if d < 0 {
		d = 0
	}
	conn.writeTimeout = d
}

func (conn *TCPConn) SetNoDelay(noDelay bool) error {
	return conn.inner.SetNoDelay(noDelay)
}

func (conn *TCPConn) SetKeepAlive(keepalive bool) error {
	return conn.inner.SetKeepAlive(keepalive)
}

func (conn *TCPConn) CloseRead() error {
	return conn.inner.CloseRead()
}

func (conn *TCPConn) CloseWrite() error {
	return conn.inner.CloseWrite()
}
