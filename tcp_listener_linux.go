//go:build linux

package tio

import (
	"context"
	"net"
	"syscall"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/tio/pkg/ring"
	"github.com/brickingsoft/tio/pkg/sys"
)

// ListenTCP binds a listening socket to the given concrete endpoint, no
// resolution happens. A nil addr means the wildcard address with an OS
// assigned port.
func ListenTCP(network string, addr *net.TCPAddr, options ...Option) (*TCPListener, error) {
	opts := Options{
		Backlog: DefaultBacklog,
	}
	for _, option := range options {
		if optErr := option(&opts); optErr != nil {
			return nil, newOpErr(opListen, network, nil, addr, optErr)
		}
	}
	if addr == nil {
		addr = &net.TCPAddr{}
	}
	fd, fdErr := sys.NewListenerSocket(network, addr, sys.ListenOptions{
		Backlog:      opts.Backlog,
		ReusePort:    opts.ReusePort,
		FastOpen:     opts.FastOpen,
		DeferAccept:  opts.DeferAccept,
		MultipathTCP: opts.MultipathTCP,
	})
	if fdErr != nil {
		return nil, newOpErr(opListen, network, nil, addr, fdErr)
	}
	ringOptions := make([]ring.Option, 0, 1)
	if opts.RingWaitTimeout > 0 {
		ringOptions = append(ringOptions, ring.WithWaitTimeout(opts.RingWaitTimeout))
	}
	r, rErr := ring.New(opts.RingSize, ringOptions...)
	if rErr != nil {
		_ = fd.Close()
		return nil, newOpErr(opListen, network, nil, addr, rErr)
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	return &TCPListener{
		ctx:    ctx,
		cancel: cancel,
		fd:     fd,
		ring:   r,
	}, nil
}

// TCPListener owns exactly one bound, listening socket. Accept may be
// called concurrently, every call is an independent request against the
// shared descriptor and no listener state is mutated outside the driver's
// own bookkeeping.
type TCPListener struct {
	ctx    context.Context
	cancel context.CancelFunc
	fd     *sys.Fd
	ring   *ring.Ring
}

// Accept waits for and accepts one incoming connection.
//
// Exactly one asynchronous accept request is submitted to the driver and
// the calling goroutine suspends until that request completes. On success
// the connected stream and the remote peer's address are returned, the
// stream's descriptor is owned by the caller. The peer address is always
// present, when it cannot be obtained the accept fails with
// ErrMissingPeerAddress and the connected socket is closed.
//
// A failed Accept does not break the listener, the caller decides whether
// to call Accept again.
func (ln *TCPListener) Accept(ctx context.Context) (conn *TCPConn, addr net.Addr, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ln.ctx.Err() != nil {
		err = newOpErr(opAccept, ln.fd.Net(), ln.fd.LocalAddr(), nil, ErrClosed)
		return
	}
	acceptCtx, acceptCancel := context.WithCancel(ctx)
	defer acceptCancel()
	stop := context.AfterFunc(ln.ctx, acceptCancel)
	defer stop()

	accepted, rsa, acceptErr := ln.ring.Accept(acceptCtx, ln.fd.Socket(), 0)
	if acceptErr != nil {
		if ln.ctx.Err() != nil {
			acceptErr = errors.From(ErrClosed, errors.WithWrap(acceptErr))
		}
		err = newOpErr(opAccept, ln.fd.Net(), ln.fd.LocalAddr(), nil, acceptErr)
		return
	}
	cfd := sys.NewFd(ln.fd.Net(), accepted, ln.fd.Family(), ln.fd.SocketType())
	conn, addr, err = acceptedConn(ln.ctx, ln.ring, cfd, rsa, ln.fd.LocalAddr())
	if err != nil {
		err = newOpErr(opAccept, ln.fd.Net(), ln.fd.LocalAddr(), nil, err)
	}
	return
}

// acceptedConn turns a raw accept completion into the stream and peer
// address pair. On any failure the descriptor is closed, it never leaks.
func acceptedConn(ctx context.Context, r *ring.Ring, cfd *sys.Fd, rsa *syscall.RawSockaddrAny, laddr net.Addr) (conn *TCPConn, addr net.Addr, err error) {
	addr, addrErr := peerAddr(cfd, rsa)
	if addrErr != nil {
		_ = cfd.Close()
		err = addrErr
		return
	}
	cfd.SetRemoteAddr(addr)
	if loadErr := cfd.LoadLocalAddr(); loadErr != nil {
		cfd.SetLocalAddr(laddr)
	}
	conn = newTCPConn(ctx, r, cfd)
	return
}

// peerAddr decodes the sockaddr buffer delivered with the accept
// completion, falling back to getpeername when the buffer is unusable.
// Both failing is a hard error even though the connection itself
// succeeded.
func peerAddr(cfd *sys.Fd, rsa *syscall.RawSockaddrAny) (net.Addr, error) {
	if rsa != nil {
		if sa, saErr := sys.RawSockaddrAnyToSockaddr(rsa); saErr == nil {
			if addr := sys.SockaddrToTCPAddr(sa); addr != nil {
				return addr, nil
			}
		}
	}
	if loadErr := cfd.LoadRemoteAddr(); loadErr != nil {
		return nil, errors.From(ErrMissingPeerAddress, errors.WithWrap(loadErr))
	}
	return cfd.RemoteAddr(), nil
}

// OnAccept runs an accept loop on its own goroutine and dispatches every
// result to the handler via the shared executors. The loop stops when the
// listener is closed, the handler observes that as a closed error.
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
				handler(ln.ctx, nil, nil, newOpErr(opAccept, ln.fd.Net(), ln.fd.LocalAddr(), addr, execErr))
				return
			}
		}
	}(ln, handler)
}

// Addr returns the bound address, after binding port 0 it carries the
// assigned port.
func (ln *TCPListener) Addr() net.Addr {
	return ln.fd.LocalAddr()
}

// Close closes the listening socket and cancels outstanding accepts. It is
// safe to call once concurrent Accept calls are in flight, they fail with
// a closed error.
func (ln *TCPListener) Close() error {
	ln.cancel()
	err := ln.fd.Close()
	ln.ring.Stop()
	if err != nil {
		return newOpErr(opClose, ln.fd.Net(), ln.fd.LocalAddr(), nil, err)
	}
	return nil
}
