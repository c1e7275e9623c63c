//go:build linux || darwin

package ping

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// connectAddr performs a non-blocking connect, waits for write readiness until
// the deadline, checks SO_ERROR and hands the socket back in blocking mode.
func connectAddr(ctx context.Context, target netip.AddrPort, timeout time.Duration) (net.Conn, error) {
	family, sa, err := sockaddr(target)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	owned := true
	defer func() {
		if owned {
			_ = unix.Close(fd)
		}
	}()
	unix.CloseOnExec(fd)

	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, fmt.Errorf("set non-blocking: %w", err)
	}
	err = unix.Connect(fd, sa)
	if err != nil && !errors.Is(err, unix.EINPROGRESS) && !errors.Is(err, unix.EINTR) {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err != nil {
		if err := waitWritable(fd, connectDeadline(ctx, timeout)); err != nil {
			return nil, err
		}
	}

	soErr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return nil, fmt.Errorf("getsockopt: %w", err)
	}
	if soErr != 0 {
		return nil, fmt.Errorf("connect: %w", syscall.Errno(soErr))
	}
	if err := unix.SetNonblock(fd, false); err != nil {
		return nil, fmt.Errorf("set blocking: %w", err)
	}

	owned = false
	file := os.NewFile(uintptr(fd), "tcp:"+target.String())
	defer file.Close()
	conn, err := net.FileConn(file)
	if err != nil {
		return nil, fmt.Errorf("wrap socket: %w", err)
	}
	return conn, nil
}

func waitWritable(fd int, deadline time.Time) error {
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("connect: %w", ErrTimeout)
		}
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
		n, err := unix.Poll(fds, int(remaining.Milliseconds())+1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("connect: %w", ErrTimeout)
		}
		return nil
	}
}

func sockaddr(target netip.AddrPort) (int, unix.Sockaddr, error) {
	addr := target.Addr()
	port := int(target.Port())
	if addr.Is4() {
		return unix.AF_INET, &unix.SockaddrInet4{Port: port, Addr: addr.As4()}, nil
	}
	sa := &unix.SockaddrInet6{Port: port, Addr: addr.As16()}
	if zone := addr.Zone(); zone != "" {
		ifi, err := net.InterfaceByName(zone)
		if err != nil {
			return 0, nil, fmt.Errorf("%w: zone %q: %v", ErrBadAddress, zone, err)
		}
		sa.ZoneId = uint32(ifi.Index)
	}
	return unix.AF_INET6, sa, nil
}
