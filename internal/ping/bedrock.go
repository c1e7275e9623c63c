package ping

import (
	"context"
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"mcping/internal/logging"
)

// RakNet offline message data id.
const (
	magicHigh uint64 = 0x00FFFF00FEFEFEFE
	magicLow  uint64 = 0xFDFDFDFD12345678
)

const (
	unconnectedPingID = 0x01
	unconnectedPongID = 0x1C
	pongHeaderLen     = 35
	maxDatagram       = 4096
)

// advertisementFields maps the positions of the `;` separated pong payload.
// Position 6 is not reported.
var advertisementFields = []Field{
	FieldEditionName, FieldMOTD, FieldProtocol, FieldVersionName,
	FieldPlayersOnline, FieldPlayersMax, 0, FieldMOTD2, FieldGameMode,
}

func buildUnconnectedPing(now int64) []byte {
	buf := make([]byte, 0, 27)
	buf = append(buf, unconnectedPingID)
	buf = binary.BigEndian.AppendUint64(buf, uint64(now))
	buf = binary.BigEndian.AppendUint64(buf, magicHigh)
	buf = binary.BigEndian.AppendUint64(buf, magicLow)
	return append(buf, 0x00, 0x00)
}

func (c *Client) pingBedrock(ctx context.Context, endpoint Endpoint) (*Status, error) {
	conn, remote, err := listenUDP(ctx, endpoint, c.config.BedrockLocalPort)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	_ = conn.SetDeadline(c.ioDeadline(ctx))

	if _, err := conn.WriteToUDP(buildUnconnectedPing(time.Now().UnixMilli()), remote); err != nil {
		return nil, ioError("send unconnected ping", err)
	}

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			return nil, ioError("read unconnected pong", err)
		}
		if from.AddrPort().Addr().Unmap() != remote.AddrPort().Addr().Unmap() || from.Port != remote.Port {
			logging.Logger().Debug("ignoring datagram from unexpected peer", "from", from.String())
			continue
		}
		return parsePong(buf[:n], time.Now().UnixMilli())
	}
}

func parsePong(buf []byte, now int64) (*Status, error) {
	if len(buf) < pongHeaderLen {
		return nil, protocolError(ErrFrameInvalid, "pong too short: %d bytes", len(buf))
	}
	if buf[0] != unconnectedPongID {
		return nil, protocolError(ErrFrameInvalid, "unexpected packet id 0x%02x", buf[0])
	}
	if binary.BigEndian.Uint64(buf[17:25]) != magicHigh || binary.BigEndian.Uint64(buf[25:33]) != magicLow {
		return nil, protocolError(ErrMagicMismatch, "offline message id % x", buf[17:33])
	}
	payloadLen := int(binary.BigEndian.Uint16(buf[33:35]))
	if payloadLen != len(buf)-pongHeaderLen {
		return nil, protocolError(ErrFrameInvalid, "payload length %d, datagram carries %d", payloadLen, len(buf)-pongHeaderLen)
	}

	status := &Status{
		Edition:    EditionBedrock,
		PingMillis: now - ReadLongBE(buf[1:9]),
		ServerGUID: strconv.FormatInt(ReadLongBE(buf[9:17]), 10),
	}
	status.set(FieldPing | FieldServerGUID)
	status.applyAdvertisement(string(buf[pongHeaderLen:]))
	return status, nil
}

func (s *Status) applyAdvertisement(payload string) {
	values := strings.Split(payload, ";")
	if len(values) < len(advertisementFields)-1 {
		logging.Logger().Warn("short bedrock advertisement", "fields", len(values))
	}
	if len(values) > len(advertisementFields) {
		logging.Logger().Warn("discarding extra bedrock advertisement fields", "extra", values[len(advertisementFields):])
	}
	for i, field := range advertisementFields {
		if i >= len(values) {
			break
		}
		s.setText(field, values[i])
	}
}
