package ping

import (
	"context"
	"net"
	"testing"
	"time"
)

var noSRV = SRVFunc(func(context.Context, string) (Endpoint, bool) {
	return Endpoint{}, false
})

func testClient(srv SRVResolver) *Client {
	if srv == nil {
		srv = noSRV
	}
	return NewClient(Config{
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    2 * time.Second,
		SRV:            srv,
	})
}

// serveTCP accepts a single connection on a loopback listener and hands it to handle.
func serveTCP(t *testing.T, handle func(conn net.Conn)) Endpoint {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
		handle(conn)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return Endpoint{Host: "127.0.0.1", Port: addr.Port}
}

// closedPort returns a loopback port that refuses connections.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}
