package ping

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"mcping/internal/logging"
)

const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultReadTimeout    = 10 * time.Second
)

// dialTCP tries every resolved address in order and returns the first
// connection established within timeout.
func dialTCP(ctx context.Context, endpoint Endpoint, timeout time.Duration) (net.Conn, error) {
	addrs, err := resolveHost(ctx, endpoint.Host)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, addr := range addrs {
		target := netip.AddrPortFrom(addr, uint16(endpoint.Port))
		conn, err := connectAddr(ctx, target, timeout)
		if err == nil {
			logging.Logger().Debug("connected", "endpoint", endpoint.String(), "addr", target.String())
			return conn, nil
		}
		logging.Logger().Debug("connect attempt failed", "addr", target.String(), "err", err)
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrConnectFailed, endpoint, lastErr)
}

// listenUDP binds a datagram socket on localPort (0 for ephemeral) in the
// family of the first address endpoint resolves to.
func listenUDP(ctx context.Context, endpoint Endpoint, localPort int) (*net.UDPConn, *net.UDPAddr, error) {
	addrs, err := resolveHost(ctx, endpoint.Host)
	if err != nil {
		return nil, nil, err
	}
	addr := addrs[0]
	remote := net.UDPAddrFromAddrPort(netip.AddrPortFrom(addr, uint16(endpoint.Port)))

	network := "udp6"
	if addr.Is4() {
		network = "udp4"
	}
	conn, err := net.ListenUDP(network, &net.UDPAddr{Port: localPort})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: bind udp port %d: %v", ErrConnectFailed, localPort, err)
	}
	return conn, remote, nil
}

func connectDeadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}
