//go:build linux

package sys

import (
	"net"
	"syscall"
	"unsafe"

	"github.com/brickingsoft/errors"
)

// TCPAddrFamily picks the socket family for a candidate endpoint. The
// network suffix wins, otherwise the family follows the IP length, with an
// empty IP meaning the IPv4 wildcard.
func TCPAddrFamily(network string, addr *net.TCPAddr) (family int, ipv6only bool, err error) {
	switch network[len(network)-1] {
	case '4':
		family = syscall.AF_INET
		return
	case '6':
		family = syscall.AF_INET6
		ipv6only = true
		return
	default:
		break
	}
	if addr.AddrPort().Addr().Is4In6() {
		addr.IP = addr.IP.To4()
	}
	switch len(addr.IP) {
	case net.IPv4len:
		family = syscall.AF_INET
		break
	case net.IPv6len:
		family = syscall.AF_INET6
		break
	case 0:
		family = syscall.AF_INET
		addr.IP = net.IPv4zero.To4()
		break
	default:
		err = errors.New("ip is invalid")
		return
	}
	return
}

func AddrToSockaddr(family int, addr *net.TCPAddr) (sa syscall.Sockaddr, err error) {
	if addr.AddrPort().Addr().Is4In6() && family == syscall.AF_INET {
		addr.IP = addr.IP.To4()
	}
	switch family {
	case syscall.AF_INET:
		sa4 := &syscall.SockaddrInet4{
			Port: addr.Port,
			Addr: [4]byte{},
		}
		if len(addr.IP) > 0 {
			ip4 := addr.IP.To4()
			if ip4 == nil {
				err = errors.New("ip is invalid")
				return
			}
			copy(sa4.Addr[:], ip4)
		}
		sa = sa4
		return
	case syscall.AF_INET6:
		zoneId := uint32(0)
		if ifi, ifiErr := net.InterfaceByName(addr.Zone); ifiErr == nil {
			zoneId = uint32(ifi.Index)
		}
		sa6 := &syscall.SockaddrInet6{
			Port:   addr.Port,
			Addr:   [16]byte{},
			ZoneId: zoneId,
		}
		if len(addr.IP) > 0 {
			copy(sa6.Addr[:], addr.IP.To16())
		}
		sa = sa6
		return
	default:
		err = errors.New("family is invalid")
		return
	}
}

func SockaddrToTCPAddr(sa syscall.Sockaddr) (addr *net.TCPAddr) {
	switch sa := sa.(type) {
	case *syscall.SockaddrInet4:
		addr = &net.TCPAddr{
			IP:   append([]byte{}, sa.Addr[:]...),
			Port: sa.Port,
		}
		break
	case *syscall.SockaddrInet6:
		var zone string
		if sa.ZoneId != 0 {
			if ifi, err := net.InterfaceByIndex(int(sa.ZoneId)); err == nil {
				zone = ifi.Name
			}
		}
		addr = &net.TCPAddr{
			IP:   append([]byte{}, sa.Addr[:]...),
			Port: sa.Port,
			Zone: zone,
		}
		break
	default:
		break
	}
	return
}

// RawSockaddrAnyToSockaddr decodes the sockaddr buffer filled by an accept
// completion. Only inet families are expected on a TCP socket.
func RawSockaddrAnyToSockaddr(rsa *syscall.RawSockaddrAny) (syscall.Sockaddr, error) {
	if rsa == nil {
		return nil, errors.New("sockaddr is nil")
	}
	switch rsa.Addr.Family {
	case syscall.AF_INET:
		pp := (*syscall.RawSockaddrInet4)(unsafe.Pointer(rsa))
		sa := new(syscall.SockaddrInet4)
		p := (*[2]byte)(unsafe.Pointer(&pp.Port))
		sa.Port = int(p[0])<<8 + int(p[1])
		sa.Addr = pp.Addr
		return sa, nil
	case syscall.AF_INET6:
		pp := (*syscall.RawSockaddrInet6)(unsafe.Pointer(rsa))
		sa := new(syscall.SockaddrInet6)
		p := (*[2]byte)(unsafe.Pointer(&pp.Port))
		sa.Port = int(p[0])<<8 + int(p[1])
		sa.ZoneId = pp.Scope_id
		sa.Addr = pp.Addr
		return sa, nil
	default:
		return nil, syscall.EAFNOSUPPORT
	}
}
