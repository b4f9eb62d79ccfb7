//go:build linux

package sys_test

import (
	"net"
	"syscall"
	"testing"
	"unsafe"

	"github.com/brickingsoft/tio/pkg/sys"
)

func TestTCPAddrFamily(t *testing.T) {
	family, ipv6only, err := sys.TCPAddrFamily("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	if family != syscall.AF_INET || ipv6only {
		t.Errorf("family %d ipv6only %v", family, ipv6only)
	}

	family, ipv6only, err = sys.TCPAddrFamily("tcp6", &net.TCPAddr{IP: net.ParseIP("::1")})
	if err != nil {
		t.Fatal(err)
	}
	if family != syscall.AF_INET6 || !ipv6only {
		t.Errorf("family %d ipv6only %v", family, ipv6only)
	}

	family, _, err = sys.TCPAddrFamily("tcp", &net.TCPAddr{})
	if err != nil {
		t.Fatal(err)
	}
	if family != syscall.AF_INET {
		t.Errorf("wildcard family %d", family)
	}
}

func TestAddrSockaddrRoundTrip(t *testing.T) {
	addr := &net.TCPAddr{IP: net.IPv4(192, 0, 2, 7), Port: 4321}
	sa, err := sys.AddrToSockaddr(syscall.AF_INET, addr)
	if err != nil {
		t.Fatal(err)
	}
	back := sys.SockaddrToTCPAddr(sa)
	if back == nil || !back.IP.Equal(addr.IP) || back.Port != addr.Port {
		t.Errorf("round trip: %v", back)
	}
}

func TestRawSockaddrAnyToSockaddr(t *testing.T) {
	rsa := &syscall.RawSockaddrAny{}
	sa4 := (*syscall.RawSockaddrInet4)(unsafe.Pointer(rsa))
	sa4.Family = syscall.AF_INET
	sa4.Addr = [4]byte{10, 0, 0, 1}
	p := (*[2]byte)(unsafe.Pointer(&sa4.Port))
	p[0] = byte(8080 >> 8)
	p[1] = byte(8080 & 0xff)

	sa, err := sys.RawSockaddrAnyToSockaddr(rsa)
	if err != nil {
		t.Fatal(err)
	}
	inet4, ok := sa.(*syscall.SockaddrInet4)
	if !ok {
		t.Fatalf("sockaddr type: %T", sa)
	}
	if inet4.Port != 8080 || inet4.Addr != [4]byte{10, 0, 0, 1} {
		t.Errorf("decoded %v:%d", inet4.Addr, inet4.Port)
	}

	bad := &syscall.RawSockaddrAny{}
	if _, err = sys.RawSockaddrAnyToSockaddr(bad); err == nil {
		t.Error("expected family error")
	}
}
