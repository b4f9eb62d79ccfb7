package tio

import (
	"context"
	"errors"
	"net"

	"github.com/brickingsoft/tio/pkg/sys"
)

// AcceptHandler handles one accept result dispatched by OnAccept.
type AcceptHandler func(ctx context.Context, conn *TCPConn, addr net.Addr, err error)

// Listen resolves a textual address specification into an ordered sequence
// of candidate endpoints and binds the first usable one.
//
// Candidates are tried in resolution order, the first successful bind and
// listen wins and later candidates are not touched. When resolution yields
// zero candidates the construction fails with ErrNoUsableAddress before any
// socket is created. When every candidate fails the per candidate errors
// are aggregated.
//
// Binding with a port number of 0 requests an OS assigned port, readable
// via Addr of the returned listener.
func Listen(network string, address string, options ...Option) (*TCPListener, error) {
	addrs, resolveErr := sys.ResolveTCPAddrs(network, address)
	if resolveErr != nil {
		return nil, newOpErr(opListen, network, nil, nil, resolveErr)
	}
	if len(addrs) == 0 {
		return nil, newOpErr(opListen, network, nil, nil, ErrNoUsableAddress)
	}
	bindErrs := make([]error, 0, 1)
	for _, addr := range addrs {
		ln, lnErr := ListenTCP(network, addr, options...)
		if lnErr == nil {
			return ln, nil
		}
		bindErrs = append(bindErrs, lnErr)
	}
	return nil, errors.Join(bindErrs...)
}
