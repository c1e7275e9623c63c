package ping

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

const maxVarIntLen = 5

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// EncodeVarInt returns the 1-5 byte wire form of value, least significant group first.
func EncodeVarInt(value int32) []byte {
	return appendVarInt(make([]byte, 0, maxVarIntLen), value)
}

func appendVarInt(dst []byte, value int32) []byte {
	v := uint32(value)
	for v&^0x7F != 0 {
		dst = append(dst, byte(v&0x7F)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

func writeVarInt(w io.Writer, value int32) error {
	_, err := w.Write(EncodeVarInt(value))
	return err
}

func varIntSize(value int32) int {
	size := 1
	for v := uint32(value); v&^0x7F != 0; v >>= 7 {
		size++
	}
	return size
}

// DecodeVarInt reads a varint from the start of buf and reports how many bytes it used.
func DecodeVarInt(buf []byte) (int32, int, error) {
	var result uint32
	for i := 0; i < maxVarIntLen; i++ {
		if i >= len(buf) {
			return 0, 0, protocolError(ErrShortRead, "varint truncated after %d bytes", i)
		}
		b := buf[i]
		result |= uint32(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return int32(result), i + 1, nil
		}
	}
	return 0, 0, protocolError(ErrVarIntOverflow, "continuation bit set on byte %d", maxVarIntLen)
}

func readVarInt(r io.ByteReader) (int32, error) {
	var result uint32
	for i := 0; i < maxVarIntLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return int32(result), nil
		}
	}
	return 0, protocolError(ErrVarIntOverflow, "continuation bit set on byte %d", maxVarIntLen)
}

func writePacket(w io.Writer, payload []byte) error {
	frame := appendVarInt(make([]byte, 0, len(payload)+maxVarIntLen), int32(len(payload)))
	frame = append(frame, payload...)
	_, err := w.Write(frame)
	return err
}

func writeString(buf *bytes.Buffer, value string) {
	buf.Write(EncodeVarInt(int32(len(value))))
	buf.WriteString(value)
}

func WriteLongBE(value int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(value))
}

func ReadLongBE(buf []byte) int64 {
	return int64(binary.BigEndian.Uint64(buf))
}

// EncodeUTF16BE transcodes UTF-8 text to big-endian UTF-16 without a byte order mark.
func EncodeUTF16BE(s string) ([]byte, error) {
	out, err := utf16BE.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTranscode, err)
	}
	return out, nil
}

func DecodeUTF16BE(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", fmt.Errorf("%w: odd byte count %d", ErrTranscode, len(b))
	}
	out, err := utf16BE.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscode, err)
	}
	return string(out), nil
}

// DataURLToBytes decodes the base64 body of a data URL such as a server
// favicon. Whitespace inside the body is ignored.
func DataURLToBytes(dataURL string) ([]byte, error) {
	idx := strings.IndexByte(dataURL, ',')
	if idx < 0 {
		idx = strings.IndexByte(dataURL, ';')
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: no ',' or ';' delimiter", ErrBadDataURL)
	}
	body := strings.Join(strings.Fields(dataURL[idx+1:]), "")
	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDataURL, err)
	}
	return data, nil
}
