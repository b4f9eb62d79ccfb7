package sys

import (
	"context"
	"net"
	"strings"

	"github.com/brickingsoft/errors"
)

// ResolveTCPAddrs resolves a textual address specification into an ordered
// sequence of candidate endpoints. The order is the resolver's, a hostname
// backed by several records yields several candidates. An empty host means
// the wildcard address. The result can be empty when every resolved address
// is excluded by the network, tcp4 drops IPv6 candidates and tcp6 drops
// IPv4 ones.
func ResolveTCPAddrs(network string, address string) ([]*net.TCPAddr, error) {
	switch network {
	case "tcp", "tcp4", "tcp6":
		break
	default:
		return nil, net.UnknownNetworkError(network)
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.New("address is invalid")
	}
	host, service, splitErr := net.SplitHostPort(address)
	if splitErr != nil {
		return nil, splitErr
	}
	ctx := context.Background()
	port, portErr := net.DefaultResolver.LookupPort(ctx, network, service)
	if portErr != nil {
		return nil, portErr
	}
	if host == "" {
		return []*net.TCPAddr{{Port: port}}, nil
	}
	ips, lookupErr := net.DefaultResolver.LookupIPAddr(ctx, host)
	if lookupErr != nil {
		return nil, lookupErr
	}
	candidates := make([]*net.TCPAddr, 0, len(ips))
	for _, ip := range ips {
		if network == "tcp4" && ip.IP.To4() == nil {
			continue
		}
		if network == "tcp6" && ip.IP.To4() != nil {
			continue
		}
		candidates = append(candidates, &net.TCPAddr{IP: ip.IP, Port: port, Zone: ip.Zone})
	}
	return candidates, nil
}
