package tio

import (
	"context"
	"net"

	"github.com/brickingsoft/errors"
)

var (
	// ErrClosed means the listener or connection was closed before or during
	// the operation.
	ErrClosed = errors.Define("tio: closed")
	// ErrNoUsableAddress means a textual address specification resolved to
	// zero candidate endpoints, so no socket was created.
	ErrNoUsableAddress = errors.Define("tio: no usable address")
	// ErrMissingPeerAddress means an accept completion yielded a connected
	// socket but the remote peer's address could not be obtained. The socket
	// is closed and the accept fails as a whole.
	ErrMissingPeerAddress = errors.Define("tio: could not get peer address")
)

func IsClosed(err error) bool {
	if opErr, ok := err.(*net.OpError); ok {
		err = opErr.Err
	}
	return errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled)
}

func IsNoUsableAddress(err error) bool {
	if opErr, ok := err.(*net.OpError); ok {
		err = opErr.Err
	}
	return errors.Is(err, ErrNoUsableAddress)
}

func IsMissingPeerAddress(err error) bool {
	if opErr, ok := err.(*net.OpError); ok {
		err = opErr.Err
	}
	return errors.Is(err, ErrMissingPeerAddress)
}

const (
	opListen = "listen"
	opAccept = "accept"
	opRead   = "read"
	opWrite  = "write"
	opClose  = "close"
)

func newOpErr(op string, network string, laddr net.Addr, raddr net.Addr, err error) *net.OpError {
	return &net.OpError{
		Op:     op,
		Net:    network,
		Source: laddr,
		Addr:   raddr,
		Err:    err,
	}
}
