package ping

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

// resolveHost returns every address for host in resolver order.
func resolveHost(ctx context.Context, host string) ([]netip.Addr, error) {
	if host == "" {
		return nil, fmt.Errorf("%w: host cannot be empty", ErrBadAddress)
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{addr}, nil
	}

	ips, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrResolveFailed, host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%w: no address found for %s", ErrResolveFailed, host)
	}
	addrs := make([]netip.Addr, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, ip.Unmap())
	}
	return addrs, nil
}
