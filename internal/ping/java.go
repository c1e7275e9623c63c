package ping

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"mcping/internal/logging"
)

const (
	DefaultProtocolVersion = 770
	maxFrameLen            = 1<<21 - 1
	statusResponseID       = 0x00
)

var (
	statusRequest = []byte{0x01, 0x00}
	pingHeader    = []byte{0x09, 0x01}
)

func (c *Client) pingJava(ctx context.Context, endpoint Endpoint) (*Status, error) {
	conn, err := c.dial(ctx, endpoint, c.config.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	_ = conn.SetDeadline(c.ioDeadline(ctx))

	if err := writePacket(conn, buildHandshake(c.config.ProtocolVersion, endpoint)); err != nil {
		return nil, ioError("send handshake", err)
	}
	if _, err := conn.Write(statusRequest); err != nil {
		return nil, ioError("send status request", err)
	}

	reader := bufio.NewReader(conn)
	body, err := readFrame(reader)
	if err != nil {
		return nil, err
	}
	statusJSON, err := statusResponseJSON(body)
	if err != nil {
		return nil, err
	}

	latency, err := exchangePing(conn, reader)
	if err != nil {
		return nil, err
	}

	status, err := parseJavaStatus(statusJSON)
	if err != nil {
		return nil, err
	}
	status.PingMillis = latency
	status.set(FieldPing)
	return status, nil
}

func buildHandshake(protocolVersion int32, endpoint Endpoint) []byte {
	payload := &bytes.Buffer{}
	payload.WriteByte(0x00)
	payload.Write(EncodeVarInt(protocolVersion))
	writeString(payload, endpoint.Host)
	_ = binary.Write(payload, binary.BigEndian, uint16(endpoint.Port))
	payload.WriteByte(0x01)
	return payload.Bytes()
}

// readFrame reads one varint length-prefixed frame and returns its body.
func readFrame(r *bufio.Reader) ([]byte, error) {
	length, err := readVarInt(r)
	if err != nil {
		if errors.Is(err, ErrVarIntOverflow) {
			return nil, err
		}
		return nil, ioError("read frame length", err)
	}
	if length <= 0 || length > maxFrameLen {
		return nil, protocolError(ErrFrameInvalid, "frame length %d", length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, ioError("read frame body", err)
	}
	return body, nil
}

// statusResponseJSON checks that body is exactly a Status Response: id 0x00
// followed by one length-prefixed string filling the rest of the frame.
func statusResponseJSON(body []byte) (string, error) {
	if body[0] != statusResponseID {
		return "", protocolError(ErrFrameInvalid, "unexpected packet id 0x%02x", body[0])
	}
	strLen, n, err := DecodeVarInt(body[1:])
	if err != nil {
		if errors.Is(err, ErrVarIntOverflow) {
			return "", err
		}
		return "", protocolError(ErrFrameInvalid, "status string length missing")
	}
	if strLen < 0 || len(body) != 1+n+int(strLen) {
		return "", protocolError(ErrFrameInvalid, "frame length %d does not match string length %d", len(body), strLen)
	}
	return string(body[1+n:]), nil
}

func exchangePing(w io.Writer, r io.Reader) (int64, error) {
	sent := time.Now().UnixMilli()
	request := append(append([]byte{}, pingHeader...), WriteLongBE(sent)...)
	if _, err := w.Write(request); err != nil {
		return 0, ioError("send ping", err)
	}

	pong := make([]byte, len(request))
	if _, err := io.ReadFull(r, pong); err != nil {
		return 0, ioError("read pong", err)
	}
	if !bytes.Equal(pong[:len(pingHeader)], pingHeader) {
		return 0, protocolError(ErrFrameInvalid, "unexpected pong header % x", pong[:len(pingHeader)])
	}
	return time.Now().UnixMilli() - ReadLongBE(pong[2:]), nil
}

func parseJavaStatus(text string) (*Status, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, protocolError(ErrJSONParse, "%v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, protocolError(ErrJSONParse, "status is not a JSON object")
	}

	status := &Status{Edition: EditionJava}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, protocolError(ErrJSONParse, "%v", err)
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, protocolError(ErrJSONParse, "%s: %v", key, err)
		}
		if err := status.applyJavaKey(key, raw); err != nil {
			return nil, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, protocolError(ErrJSONParse, "%v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, protocolError(ErrJSONParse, "trailing data after status object")
	}
	return status, nil
}

func (s *Status) applyJavaKey(key string, raw json.RawMessage) error {
	switch key {
	case "description":
		s.Description = NewTextComponent(raw)
		s.set(FieldDescription)
	case "version":
		var version struct {
			Name     json.RawMessage `json:"name"`
			Protocol json.RawMessage `json:"protocol"`
		}
		if err := json.Unmarshal(raw, &version); err != nil {
			return protocolError(ErrJSONParse, "version: %v", err)
		}
		if name, ok := scalarText(version.Name); ok {
			s.VersionName = name
			s.set(FieldVersionName)
		}
		if protocol, ok := scalarText(version.Protocol); ok {
			s.Protocol = protocol
			s.set(FieldProtocol)
		}
	case "players":
		var players struct {
			Online json.RawMessage `json:"online"`
			Max    json.RawMessage `json:"max"`
			Sample json.RawMessage `json:"sample"`
		}
		if err := json.Unmarshal(raw, &players); err != nil {
			return protocolError(ErrJSONParse, "players: %v", err)
		}
		if online, ok := scalarText(players.Online); ok {
			s.PlayersOnline = online
			s.set(FieldPlayersOnline)
		}
		if maxPlayers, ok := scalarText(players.Max); ok {
			s.PlayersMax = maxPlayers
			s.set(FieldPlayersMax)
		}
		if sample, ok := parseSample(players.Sample); ok {
			s.PlayersSample = sample
			s.set(FieldPlayersSample)
		}
	case "favicon":
		if favicon, ok := scalarText(raw); ok {
			s.Favicon = favicon
			s.set(FieldFavicon)
		}
	default:
		s.Sections = append(s.Sections, Section{Key: key, Value: raw})
	}
	return nil
}

const (
	unknownPlayerName = "<UNKNOWN NAME>"
	unknownPlayerID   = "<UNKNOWN ID>"
)

// parseSample keeps every entry of players.sample. A name or id that is not
// a scalar is replaced by a placeholder.
func parseSample(raw json.RawMessage) ([]Player, bool) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		logging.Logger().Warn("ignoring players.sample", "err", err)
		return nil, false
	}
	sample := make([]Player, 0, len(entries))
	for _, entry := range entries {
		var fields struct {
			Name json.RawMessage `json:"name"`
			ID   json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(entry, &fields); err != nil {
			logging.Logger().Debug("sample entry is not an object", "entry", string(entry))
		}
		player := Player{Name: unknownPlayerName, ID: unknownPlayerID}
		if name, ok := scalarText(fields.Name); ok {
			player.Name = name
		}
		if id, ok := scalarText(fields.ID); ok {
			player.ID = id
		}
		sample = append(sample, player)
	}
	return sample, true
}

// scalarText renders a JSON string, number or boolean as text.
func scalarText(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		if v {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}

func (c *Client) ioDeadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(c.config.ReadTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		return ctxDeadline
	}
	return deadline
}
