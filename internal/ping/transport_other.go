//go:build !linux && !darwin

package ping

import (
	"context"
	"net"
	"net/netip"
	"time"
)

func connectAddr(ctx context.Context, target netip.AddrPort, timeout time.Duration) (net.Conn, error) {
	dialer := &net.Dialer{Deadline: connectDeadline(ctx, timeout)}
	return dialer.DialContext(ctx, "tcp", target.String())
}
