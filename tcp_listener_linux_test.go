//go:build linux

package tio

import (
	"context"
	"net"
	"syscall"
	"testing"
	"unsafe"

	"github.com/brickingsoft/tio/pkg/sys"
	"golang.org/x/sys/unix"
)

func TestPeerAddr_FromCompletion(t *testing.T) {
	rsa := &syscall.RawSockaddrAny{}
	sa4 := (*syscall.RawSockaddrInet4)(unsafe.Pointer(rsa))
	sa4.Family = syscall.AF_INET
	sa4.Addr = [4]byte{127, 0, 0, 1}
	p := (*[2]byte)(unsafe.Pointer(&sa4.Port))
	p[0] = byte(45678 >> 8)
	p[1] = byte(45678 & 0xff)

	cfd := sys.NewFd("tcp", -1, syscall.AF_INET, syscall.SOCK_STREAM)
	addr, err := peerAddr(cfd, rsa)
	if err != nil {
		t.Fatal(err)
	}
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		t.Fatalf("addr type: %T", addr)
	}
	if tcpAddr.String() != "127.0.0.1:45678" {
		t.Errorf("decoded %s", tcpAddr)
	}
}

func TestAcceptedConn_MissingPeerAddress(t *testing.T) {
	// a completion that yields a handle but an undecodable sockaddr, on a
	// descriptor getpeername also rejects, must fail as a whole and close
	// the handle
	fds := make([]int, 2)
	if err := syscall.Pipe(fds); err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = syscall.Close(fds[1])
	}()

	cfd := sys.NewFd("tcp", fds[0], syscall.AF_INET, syscall.SOCK_STREAM)
	conn, addr, err := acceptedConn(context.Background(), nil, cfd, &syscall.RawSockaddrAny{}, nil)
	if err == nil {
		_ = conn.Close()
		t.Fatalf("expected error, got addr %v", addr)
	}
	if !IsMissingPeerAddress(err) {
		t.Errorf("expected missing peer address, got %v", err)
	}
	if _, fcntlErr := unix.FcntlInt(uintptr(fds[0]), unix.F_GETFD, 0); fcntlErr != unix.EBADF {
		t.Errorf("handle leaked, fcntl err %v", fcntlErr)
	}
}
