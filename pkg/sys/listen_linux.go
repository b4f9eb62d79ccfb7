//go:build linux

package sys

import (
	"net"
	"os"
	"syscall"
)

type ListenOptions struct {
	Backlog      int
	ReusePort    bool
	FastOpen     int
	DeferAccept  bool
	MultipathTCP bool
}

// NewListenerSocket creates, binds and places into listening state exactly
// one TCP socket for the given concrete endpoint. On any failure the socket
// is closed before returning, no descriptor escapes. On success the bound
// local address is read back via getsockname, so binding port 0 yields the
// assigned port.
func NewListenerSocket(network string, addr *net.TCPAddr, options ListenOptions) (fd *Fd, err error) {
	switch network {
	case "tcp", "tcp4", "tcp6":
		break
	default:
		err = net.UnknownNetworkError(network)
		return
	}
	family, ipv6only, familyErr := TCPAddrFamily(network, addr)
	if familyErr != nil {
		err = familyErr
		return
	}
	proto := syscall.IPPROTO_TCP
	if options.MultipathTCP {
		if mp, ok := TryGetMultipathTCPProto(); ok {
			proto = mp
		}
	}
	sock, sockErr := NewSocket(family, syscall.SOCK_STREAM, proto)
	if sockErr != nil {
		err = sockErr
		return
	}
	fd = NewFd(network, sock, family, syscall.SOCK_STREAM)
	if err = fd.SetIpv6only(ipv6only); err != nil {
		_ = fd.Close()
		return
	}
	if err = fd.AllowReuseAddr(); err != nil {
		_ = fd.Close()
		return
	}
	if options.ReusePort {
		if err = fd.AllowReusePort(); err != nil {
			_ = fd.Close()
			return
		}
	}
	if err = fd.AllowFastOpen(options.FastOpen); err != nil {
		_ = fd.Close()
		return
	}
	if options.DeferAccept {
		if err = fd.SetDeferAccept(); err != nil {
			_ = fd.Close()
			return
		}
	}
	sa, saErr := AddrToSockaddr(family, addr)
	if saErr != nil {
		_ = fd.Close()
		err = saErr
		return
	}
	if err = fd.Bind(sa); err != nil {
		_ = fd.Close()
		return
	}
	backlog := options.Backlog
	if backlog < 1 {
		backlog = syscall.SOMAXCONN
	}
	if max := MaxListenerBacklog(); backlog > max {
		backlog = max
	}
	if err = syscall.Listen(fd.sock, backlog); err != nil {
		_ = fd.Close()
		err = os.NewSyscallError("listen", err)
		return
	}
	if sn, getSockNameErr := syscall.Getsockname(fd.sock); getSockNameErr == nil {
		fd.SetLocalAddr(SockaddrToTCPAddr(sn))
	} else {
		fd.SetLocalAddr(addr)
	}
	return
}
