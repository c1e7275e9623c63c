package cli

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"mcping/internal/ping"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type testApp struct {
	*App
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	config string
}

func newTestApp(t *testing.T, env map[string]string) *testApp {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &testApp{
		App: &App{
			stdout: stdout,
			stderr: stderr,
			getenv: func(key string) string { return env[key] },
			now:    func() time.Time { return testNow },
		},
		stdout: stdout,
		stderr: stderr,
		config: filepath.Join(t.TempDir(), "settings.json"),
	}
}

func (a *testApp) run(args ...string) int {
	base := []string{"--config", a.config, "--read-timeout", "500ms", "--connect-timeout", "1s"}
	return a.Run(append(base, args...))
}

func readVarInt(r *bufio.Reader) (int, error) {
	value := 0
	for shift := 0; shift < 35; shift += 7 {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		value |= int(b&0x7F) << shift
		if b&0x80 == 0 {
			return value, nil
		}
	}
	return 0, io.ErrUnexpectedEOF
}

// serveJava answers one modern status exchange with statusJSON and echoes the ping.
func serveJava(t *testing.T, statusJSON string) string {
	t.Helper()
	return serveTCP(t, func(conn net.Conn) {
		r := bufio.NewReader(conn)
		length, err := readVarInt(r)
		if err != nil {
			return
		}
		if _, err := io.ReadFull(r, make([]byte, length)); err != nil {
			return
		}
		if _, err := io.ReadFull(r, make([]byte, 2)); err != nil {
			return
		}
		body := append([]byte{0x00}, ping.EncodeVarInt(int32(len(statusJSON)))...)
		body = append(body, statusJSON...)
		frame := append(ping.EncodeVarInt(int32(len(body))), body...)
		if _, err := conn.Write(frame); err != nil {
			return
		}
		echo := make([]byte, 10)
		if _, err := io.ReadFull(r, echo); err != nil {
			return
		}
		_, _ = conn.Write(echo)
	})
}

// serveLegacy answers one 1.6 ping from 127.0.0.1 with payload.
func serveLegacy(t *testing.T, payload string) string {
	t.Helper()
	return serveTCP(t, func(conn net.Conn) {
		// header, length, protocol, host length, "127.0.0.1" in UTF-16, port
		if _, err := io.ReadFull(conn, make([]byte, 27+2+1+2+18+4)); err != nil {
			return
		}
		encoded, err := ping.EncodeUTF16BE(payload)
		if err != nil {
			t.Errorf("encode payload: %v", err)
			return
		}
		reply := []byte{0xFF}
		reply = binary.BigEndian.AppendUint16(reply, uint16(len(encoded)/2))
		_, _ = conn.Write(append(reply, encoded...))
	})
}

func serveTCP(t *testing.T, handle func(conn net.Conn)) string {
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
	return "127.0.0.1:" + strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
}

// serveBedrock answers one unconnected ping with advertisement.
func serveBedrock(t *testing.T, advertisement string) string {
	t.Helper()
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = pc.Close() })

	go func() {
		buf := make([]byte, 64)
		n, from, err := pc.ReadFrom(buf)
		if err != nil || n < 9 {
			return
		}
		pong := []byte{0x1C}
		pong = append(pong, buf[1:9]...)
		pong = binary.BigEndian.AppendUint64(pong, 42)
		pong = binary.BigEndian.AppendUint64(pong, 0x00FFFF00FEFEFEFE)
		pong = binary.BigEndian.AppendUint64(pong, 0xFDFDFDFD12345678)
		pong = binary.BigEndian.AppendUint16(pong, uint16(len(advertisement)))
		_, _ = pc.WriteTo(append(pong, advertisement...), from)
	}()
	return "127.0.0.1:" + strconv.Itoa(pc.LocalAddr().(*net.UDPAddr).Port)
}

func closedAddress(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}
