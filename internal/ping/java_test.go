package ping

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

const e2eStatus = `{"version":{"name":"1.20","protocol":763},"players":{"online":1,"max":20},"description":"Hi"}`

func statusFrame(json string) []byte {
	body := append([]byte{0x00}, EncodeVarInt(int32(len(json)))...)
	body = append(body, json...)
	return append(EncodeVarInt(int32(len(body))), body...)
}

// javaServer answers one status exchange with frame and echoes the ping.
func javaServer(t *testing.T, frame []byte, handshakes chan<- []byte) func(net.Conn) {
	return func(conn net.Conn) {
		r := bufio.NewReader(conn)
		handshake, err := readFrame(r)
		if err != nil {
			t.Errorf("read handshake: %v", err)
			return
		}
		if handshakes != nil {
			handshakes <- handshake
		}
		request := make([]byte, 2)
		if _, err := io.ReadFull(r, request); err != nil || !bytes.Equal(request, statusRequest) {
			t.Errorf("unexpected status request % x: %v", request, err)
			return
		}
		if _, err := conn.Write(frame); err != nil {
			return
		}
		ping := make([]byte, 10)
		if _, err := io.ReadFull(r, ping); err != nil {
			return
		}
		_, _ = conn.Write(ping)
	}
}

func TestParseJavaStatus(t *testing.T) {
	payload := `{"version":{"name":"1.20.4","protocol":765},"players":{"max":20,"online":5,"sample":[{"name":"Steve","id":"069a79f4-44e9-4726-a5be-fca90e38aaf5"},{"name":"Anonymous Player","id":"00000000-0000-0000-0000-000000000000"}]},"description":{"text":"Hello ","extra":["World"]},"favicon":"data:image/png;base64,iVBORw0KGgo=","enforcesSecureChat":false}`
	status, err := parseJavaStatus(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.VersionName != "1.20.4" || status.Protocol != "765" {
		t.Fatalf("unexpected version: %s %s", status.VersionName, status.Protocol)
	}
	if status.PlayersOnline != "5" || status.PlayersMax != "20" {
		t.Fatalf("unexpected players: %s/%s", status.PlayersOnline, status.PlayersMax)
	}
	if len(status.PlayersSample) != 2 || status.PlayersSample[0].Name != "Steve" {
		t.Fatalf("unexpected sample: %+v", status.PlayersSample)
	}
	if status.PlayersSample[0].Anonymous() || !status.PlayersSample[1].Anonymous() {
		t.Fatalf("unexpected anonymous flags: %+v", status.PlayersSample)
	}
	if got := status.Description.String(); got != "WorldHello " {
		t.Fatalf("unexpected description: %q", got)
	}
	if !status.Has(FieldFavicon) || status.Favicon != "data:image/png;base64,iVBORw0KGgo=" {
		t.Fatalf("unexpected favicon: %q", status.Favicon)
	}
	if len(status.Sections) != 1 || status.Sections[0].Key != "enforcesSecureChat" {
		t.Fatalf("unexpected sections: %+v", status.Sections)
	}
}

func TestParseJavaStatusPartial(t *testing.T) {
	status, err := parseJavaStatus(`{"description":"only motd"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Has(FieldVersionName) || status.Has(FieldPlayersOnline) || status.Has(FieldPlayersSample) {
		t.Fatalf("unexpected fields present")
	}
	if !status.Has(FieldDescription) {
		t.Fatalf("expected description")
	}
}

func TestParseJavaStatusRejects(t *testing.T) {
	for _, payload := range []string{`[]`, `{"version":`, `not json`, `{"players":"lots"}`, `{"description":"Hi"} garbage`, `{"description":"Hi"}{}`} {
		if _, err := parseJavaStatus(payload); !errors.Is(err, ErrJSONParse) {
			t.Fatalf("%q: expected json parse error, got %v", payload, err)
		}
	}
}

func TestParseJavaStatusTrailingWhitespace(t *testing.T) {
	if _, err := parseJavaStatus("{\"description\":\"Hi\"}\n "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseJavaStatusOddSample(t *testing.T) {
	payload := `{"players":{"online":3,"max":10,"sample":[{"name":"a","id":5},{"id":"069a79f4-44e9-4726-a5be-fca90e38aaf5"},"x"]}}`
	status, err := parseJavaStatus(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Player{
		{Name: "a", ID: "5"},
		{Name: unknownPlayerName, ID: "069a79f4-44e9-4726-a5be-fca90e38aaf5"},
		{Name: unknownPlayerName, ID: unknownPlayerID},
	}
	if !status.Has(FieldPlayersSample) || len(status.PlayersSample) != len(want) {
		t.Fatalf("unexpected sample: %+v", status.PlayersSample)
	}
	for i := range want {
		if status.PlayersSample[i] != want[i] {
			t.Fatalf("sample[%d] = %+v, want %+v", i, status.PlayersSample[i], want[i])
		}
	}
	if status.PlayersOnline != "3" {
		t.Fatalf("unexpected online count %q", status.PlayersOnline)
	}
}

func TestStatusResponseJSONFrameLength(t *testing.T) {
	body := append([]byte{0x00}, EncodeVarInt(5)...)
	body = append(body, "hello"...)
	if got, err := statusResponseJSON(body); err != nil || got != "hello" {
		t.Fatalf("unexpected result %q: %v", got, err)
	}

	long := append(append([]byte{}, body...), 0x00)
	if _, err := statusResponseJSON(long); !errors.Is(err, ErrFrameInvalid) {
		t.Fatalf("expected frame invalid for trailing byte, got %v", err)
	}
	if _, err := statusResponseJSON(body[:len(body)-1]); !errors.Is(err, ErrFrameInvalid) {
		t.Fatalf("expected frame invalid for short string, got %v", err)
	}
	wrongID := append([]byte{0x01}, body[1:]...)
	if _, err := statusResponseJSON(wrongID); !errors.Is(err, ErrFrameInvalid) {
		t.Fatalf("expected frame invalid for packet id, got %v", err)
	}
}

func TestBuildHandshake(t *testing.T) {
	got := buildHandshake(770, Endpoint{Host: "mc", Port: 25565})
	want := []byte{0x00, 0x82, 0x06, 0x02, 'm', 'c', 0x63, 0xDD, 0x01}
	if !bytes.Equal(got, want) {
		t.Fatalf("unexpected handshake: % x", got)
	}
}

func TestProbeJavaModern(t *testing.T) {
	handshakes := make(chan []byte, 1)
	endpoint := serveTCP(t, javaServer(t, statusFrame(e2eStatus), handshakes))

	status, err := testClient(nil).ProbeJavaModern(context.Background(), endpoint.String(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Edition != EditionJava {
		t.Fatalf("unexpected edition: %s", status.Edition)
	}
	if status.VersionName != "1.20" || status.Protocol != "763" {
		t.Fatalf("unexpected version: %s %s", status.VersionName, status.Protocol)
	}
	if status.PlayersOnline != "1" || status.PlayersMax != "20" {
		t.Fatalf("unexpected players: %s/%s", status.PlayersOnline, status.PlayersMax)
	}
	if status.Description.String() != "Hi" {
		t.Fatalf("unexpected description: %q", status.Description.String())
	}
	if !status.Has(FieldPing) || status.PingMillis < 0 || status.PingMillis > 5000 {
		t.Fatalf("unexpected ping: %d", status.PingMillis)
	}
	if status.Has(FieldSRVRedirect) {
		t.Fatalf("unexpected srv redirect %q", status.SRVRedirect)
	}

	handshake := <-handshakes
	want := buildHandshake(DefaultProtocolVersion, endpoint)
	if !bytes.Equal(handshake, want) {
		t.Fatalf("unexpected handshake % x, want % x", handshake, want)
	}
}

func TestProbeJavaModernExtraSections(t *testing.T) {
	body := `{"version":{"name":"1.20","protocol":763},"players":{"online":1,"max":20},"description":"Hi","modded":true,"forgeData":{"fmlNetworkVersion":3,"mods":[],"channels":[]}}`
	endpoint := serveTCP(t, javaServer(t, statusFrame(body), nil))

	status, err := testClient(nil).ProbeJavaModern(context.Background(), endpoint.String(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(status.Sections) != 2 || status.Sections[0].Key != "modded" || status.Sections[1].Key != "forgeData" {
		t.Fatalf("unexpected sections: %+v", status.Sections)
	}
	if string(status.Sections[0].Value) != "true" {
		t.Fatalf("unexpected modded value: %s", status.Sections[0].Value)
	}
}

func TestProbeJavaModernFrameMismatch(t *testing.T) {
	json := `{"description":"Hi"}`
	body := append([]byte{0x00}, EncodeVarInt(int32(len(json)-1))...)
	body = append(body, json...)
	frame := append(EncodeVarInt(int32(len(body))), body...)
	endpoint := serveTCP(t, javaServer(t, frame, nil))

	_, err := testClient(nil).ProbeJavaModern(context.Background(), endpoint.String(), false)
	if !errors.Is(err, ErrFrameInvalid) {
		t.Fatalf("expected frame invalid, got %v", err)
	}
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected protocol error, got %T", err)
	}
}

func TestProbeJavaModernShortRead(t *testing.T) {
	endpoint := serveTCP(t, func(conn net.Conn) {
		r := bufio.NewReader(conn)
		if _, err := readFrame(r); err != nil {
			return
		}
		_, _ = io.ReadFull(r, make([]byte, 2))
		frame := statusFrame(e2eStatus)
		_, _ = conn.Write(frame[:len(frame)/2])
	})

	_, err := testClient(nil).ProbeJavaModern(context.Background(), endpoint.String(), false)
	if !errors.Is(err, ErrShortRead) {
		t.Fatalf("expected short read, got %v", err)
	}
}

func TestProbeJavaModernBadPong(t *testing.T) {
	endpoint := serveTCP(t, func(conn net.Conn) {
		r := bufio.NewReader(conn)
		if _, err := readFrame(r); err != nil {
			return
		}
		_, _ = io.ReadFull(r, make([]byte, 2))
		_, _ = conn.Write(statusFrame(e2eStatus))
		ping := make([]byte, 10)
		if _, err := io.ReadFull(r, ping); err != nil {
			return
		}
		ping[1] = 0x02
		_, _ = conn.Write(ping)
	})

	_, err := testClient(nil).ProbeJavaModern(context.Background(), endpoint.String(), false)
	if !errors.Is(err, ErrFrameInvalid) {
		t.Fatalf("expected frame invalid, got %v", err)
	}
}

func TestProbeJavaModernServerClockPong(t *testing.T) {
	endpoint := serveTCP(t, func(conn net.Conn) {
		r := bufio.NewReader(conn)
		if _, err := readFrame(r); err != nil {
			return
		}
		_, _ = io.ReadFull(r, make([]byte, 2))
		_, _ = conn.Write(statusFrame(e2eStatus))
		ping := make([]byte, 10)
		if _, err := io.ReadFull(r, ping); err != nil {
			return
		}
		pong := append(append([]byte{}, pingHeader...), WriteLongBE(ReadLongBE(ping[2:])-3)...)
		_, _ = conn.Write(pong)
	})

	status, err := testClient(nil).ProbeJavaModern(context.Background(), endpoint.String(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Has(FieldPing) || status.PingMillis < 3 || status.PingMillis > 5000 {
		t.Fatalf("latency not taken from the pong: %d", status.PingMillis)
	}
}

func TestProbeJavaModernReadTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	endpoint := serveTCP(t, func(conn net.Conn) {
		<-release
	})

	client := NewClient(Config{ConnectTimeout: time.Second, ReadTimeout: 200 * time.Millisecond, SRV: noSRV})
	_, err := client.ProbeJavaModern(context.Background(), endpoint.String(), false)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestProbeJavaModernSRVRedirect(t *testing.T) {
	target := serveTCP(t, javaServer(t, statusFrame(e2eStatus), nil))
	var looked string
	srv := SRVFunc(func(_ context.Context, host string) (Endpoint, bool) {
		looked = host
		return target, true
	})

	status, err := testClient(srv).ProbeJavaModern(context.Background(), "example.com", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if looked != "example.com" {
		t.Fatalf("unexpected srv lookup host %q", looked)
	}
	if !status.Has(FieldSRVRedirect) || status.SRVRedirect != target.String() {
		t.Fatalf("unexpected srv redirect %q, want %q", status.SRVRedirect, target.String())
	}
}

func TestProbeJavaModernSRVFallback(t *testing.T) {
	original := serveTCP(t, javaServer(t, statusFrame(e2eStatus), nil))
	srv := SRVFunc(func(context.Context, string) (Endpoint, bool) {
		return Endpoint{Host: "127.0.0.1", Port: closedPort(t)}, true
	})

	client := testClient(srv)
	client.dial = func(ctx context.Context, endpoint Endpoint, timeout time.Duration) (net.Conn, error) {
		if endpoint.Host == "example.com" {
			if endpoint.Port != DefaultJavaPort {
				t.Errorf("unexpected fallback port %d", endpoint.Port)
			}
			endpoint = original
		}
		return dialTCP(ctx, endpoint, timeout)
	}

	status, err := client.ProbeJavaModern(context.Background(), "example.com", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Has(FieldSRVRedirect) {
		t.Fatalf("fallback record must not carry srv redirect, got %q", status.SRVRedirect)
	}
}

func TestProbeJavaModernSkipsSRV(t *testing.T) {
	endpoint := serveTCP(t, javaServer(t, statusFrame(e2eStatus), nil))
	srv := SRVFunc(func(context.Context, string) (Endpoint, bool) {
		t.Errorf("srv lookup must not run for %s", endpoint)
		return Endpoint{}, false
	})
	if _, err := testClient(srv).ProbeJavaModern(context.Background(), endpoint.String(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
