package ping

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestDialTCP(t *testing.T) {
	endpoint := serveTCP(t, func(conn net.Conn) {
		_, _ = io.Copy(conn, conn)
	})

	conn, err := dialTCP(context.Background(), endpoint, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 4)
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := io.ReadFull(conn, buf); err != nil || string(buf) != "ping" {
		t.Fatalf("unexpected echo %q: %v", buf, err)
	}
}

func TestDialTCPRefused(t *testing.T) {
	_, err := dialTCP(context.Background(), Endpoint{Host: "127.0.0.1", Port: closedPort(t)}, time.Second)
	if !errors.Is(err, ErrConnectFailed) {
		t.Fatalf("expected connect failed, got %v", err)
	}
}

func TestDialTCPBlackhole(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the connect timeout")
	}
	start := time.Now()
	_, err := dialTCP(context.Background(), Endpoint{Host: "10.255.255.1", Port: 25565}, 500*time.Millisecond)
	if !errors.Is(err, ErrConnectFailed) {
		t.Fatalf("expected connect failed, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 6*time.Second {
		t.Fatalf("connect took %v", elapsed)
	}
}

func TestDialTCPContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := dialTCP(ctx, Endpoint{Host: "10.255.255.1", Port: 25565}, DefaultConnectTimeout)
	if !errors.Is(err, ErrConnectFailed) {
		t.Fatalf("expected connect failed, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("context deadline ignored, took %v", elapsed)
	}
}

func TestResolveHostLiteral(t *testing.T) {
	addrs, err := resolveHost(context.Background(), "::1")
	if err != nil || len(addrs) != 1 || !addrs[0].Is6() {
		t.Fatalf("unexpected result: %v, %v", addrs, err)
	}
	if _, err := resolveHost(context.Background(), ""); !errors.Is(err, ErrBadAddress) {
		t.Fatalf("expected bad address, got %v", err)
	}
}
