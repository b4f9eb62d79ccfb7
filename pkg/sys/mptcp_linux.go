//go:build linux

package sys

import (
	"errors"
	"sync"
	"syscall"
)

const (
	_IPPROTO_MPTCP = 0x106
)

var (
	mptcpOnce      sync.Once
	mptcpAvailable bool
)

func TryGetMultipathTCPProto() (int, bool) {
	if supportsMultipathTCP() {
		return _IPPROTO_MPTCP, true
	}
	return 0, false
}

func supportsMultipathTCP() bool {
	mptcpOnce.Do(initMPTCPavailable)
	return mptcpAvailable
}

func initMPTCPavailable() {
	s, err := syscall.Socket(syscall.AF_INET, syscall.SOCK_STREAM|syscall.SOCK_NONBLOCK|syscall.SOCK_CLOEXEC, _IPPROTO_MPTCP)
	switch {
	case errors.Is(err, syscall.EPROTONOSUPPORT):
		return
	case errors.Is(err, syscall.EINVAL):
		return
	case err == nil:
		_ = syscall.Close(s)
		fallthrough
	default:
		mptcpAvailable = true
	}
}
