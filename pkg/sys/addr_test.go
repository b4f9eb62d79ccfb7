package sys_test

import (
	"net"
	"testing"

	"github.com/brickingsoft/tio/pkg/sys"
)

func TestResolveTCPAddrs(t *testing.T) {
	addrs, err := sys.ResolveTCPAddrs("tcp", "127.0.0.1:9000")
	if err != nil {
		t.Fatal(err)
	}
	if len(addrs) != 1 {
		t.Fatalf("candidates: %v", addrs)
	}
	if addrs[0].Port != 9000 || !addrs[0].IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Errorf("candidate: %v", addrs[0])
	}
}

func TestResolveTCPAddrs_Wildcard(t *testing.T) {
	addrs, err := sys.ResolveTCPAddrs("tcp", ":8080")
	if err != nil {
		t.Fatal(err)
	}
	if len(addrs) != 1 {
		t.Fatalf("candidates: %v", addrs)
	}
	if addrs[0].Port != 8080 || len(addrs[0].IP) != 0 {
		t.Errorf("candidate: %v", addrs[0])
	}
}

func TestResolveTCPAddrs_Empty(t *testing.T) {
	// tcp6 excludes an IPv4 literal, so resolution yields zero candidates
	addrs, err := sys.ResolveTCPAddrs("tcp6", "127.0.0.1:9000")
	if err != nil {
		t.Fatal(err)
	}
	if len(addrs) != 0 {
		t.Errorf("candidates: %v", addrs)
	}
}

func TestResolveTCPAddrs_Invalid(t *testing.T) {
	if _, err := sys.ResolveTCPAddrs("udp", "127.0.0.1:9000"); err == nil {
		t.Error("expected network error")
	}
	if _, err := sys.ResolveTCPAddrs("tcp", ""); err == nil {
		t.Error("expected address error")
	}
	if _, err := sys.ResolveTCPAddrs("tcp", "127.0.0.1"); err == nil {
		t.Error("expected missing port error")
	}
}
