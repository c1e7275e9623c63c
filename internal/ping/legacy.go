package ping

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"strings"
	"time"

	"mcping/internal/logging"
)

// legacyQueryHeader is the 1.6 server list ping prefix: FE 01, plugin
// message FA, then "MC|PingHost" as a length-prefixed UTF-16BE string.
var legacyQueryHeader = []byte{
	0xFE, 0x01, 0xFA, 0x00, 0x0B, 0x00, 0x4D, 0x00, 0x43, 0x00, 0x7C, 0x00, 0x50, 0x00, 0x69, 0x00, 0x6E,
	0x00, 0x67, 0x00, 0x48, 0x00, 0x6F, 0x00, 0x73, 0x00, 0x74,
}

const (
	legacyKickID          = 0xFF
	legacyProtocolVersion = 73
	legacyV1Prefix        = "§1\x00"
)

var legacyV1Fields = []Field{FieldProtocol, FieldVersionName, FieldMOTD, FieldPlayersOnline, FieldPlayersMax}

func buildLegacyRequest(endpoint Endpoint) ([]byte, error) {
	host, err := EncodeUTF16BE(endpoint.Host)
	if err != nil {
		return nil, err
	}
	chars := len(host) / 2

	buf := &bytes.Buffer{}
	buf.Write(legacyQueryHeader)
	_ = binary.Write(buf, binary.BigEndian, uint16(7+2*chars))
	buf.WriteByte(legacyProtocolVersion)
	_ = binary.Write(buf, binary.BigEndian, uint16(chars))
	buf.Write(host)
	_ = binary.Write(buf, binary.BigEndian, uint32(endpoint.Port))
	return buf.Bytes(), nil
}

func (c *Client) pingLegacy(ctx context.Context, endpoint Endpoint) (*Status, error) {
	request, err := buildLegacyRequest(endpoint)
	if err != nil {
		return nil, err
	}

	conn, err := c.dial(ctx, endpoint, c.config.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	_ = conn.SetDeadline(c.ioDeadline(ctx))

	sent := time.Now()
	if _, err := conn.Write(request); err != nil {
		return nil, ioError("send legacy ping", err)
	}

	var header [3]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return nil, ioError("read legacy header", err)
	}
	if header[0] != legacyKickID {
		return nil, protocolError(ErrFrameInvalid, "unexpected packet id 0x%02x", header[0])
	}
	payload := make([]byte, 2*int(binary.BigEndian.Uint16(header[1:3])))
	if _, err := io.ReadFull(conn, payload); err != nil {
		return nil, ioError("read legacy payload", err)
	}
	latency := time.Since(sent).Milliseconds()

	text, err := DecodeUTF16BE(payload)
	if err != nil {
		return nil, err
	}
	status := parseLegacyPayload(text)
	status.PingMillis = latency
	status.set(FieldPing)
	return status, nil
}

func parseLegacyPayload(text string) *Status {
	status := &Status{Edition: EditionLegacy}
	status.set(FieldResponseVersion)

	if rest, ok := strings.CutPrefix(text, legacyV1Prefix); ok {
		status.ResponseVersion = 1
		values := strings.Split(rest, "\x00")
		if len(values) != len(legacyV1Fields) {
			logging.Logger().Warn("unexpected legacy field count", "got", len(values), "want", len(legacyV1Fields))
		}
		for i, field := range legacyV1Fields {
			if i >= len(values) {
				break
			}
			status.setText(field, values[i])
		}
		return status
	}

	status.ResponseVersion = 0
	values := strings.SplitN(text, "§", 4)
	v0Fields := []Field{FieldMOTD, FieldPlayersOnline, FieldPlayersMax}
	if len(values) < len(v0Fields) {
		logging.Logger().Warn("short legacy response", "fields", len(values))
	}
	for i, field := range v0Fields {
		if i >= len(values) {
			break
		}
		status.setText(field, values[i])
	}
	return status
}

func (s *Status) setText(field Field, value string) {
	switch field {
	case FieldMOTD:
		s.MOTD = value
	case FieldMOTD2:
		s.MOTD2 = value
	case FieldVersionName:
		s.VersionName = value
	case FieldProtocol:
		s.Protocol = value
	case FieldPlayersOnline:
		s.PlayersOnline = value
	case FieldPlayersMax:
		s.PlayersMax = value
	case FieldEditionName:
		s.EditionName = value
	case FieldGameMode:
		s.GameMode = value
	default:
		return
	}
	s.set(field)
}
