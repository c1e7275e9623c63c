package ping

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

type ForgeInfo struct {
	NetworkVersion string
	Truncated      bool
	Mods           []ForgeMod
	// Channels lists channels not attached to a mod entry.
	Channels []ForgeChannel
}

type ForgeMod struct {
	ID      string
	Version string
	// Unchecked is set when the server skips version checks for the mod.
	Unchecked bool
	Channels  []ForgeChannel
}

type ForgeChannel struct {
	Name     string
	Version  int64
	Required bool
}

type forgeData struct {
	NetworkVersion json.RawMessage `json:"fmlNetworkVersion"`
	Truncated      bool            `json:"truncated"`
	Encoded        *string         `json:"d"`
	Mods           []struct {
		ID     string `json:"modId"`
		Marker string `json:"modmarker"`
	} `json:"mods"`
	Channels []struct {
		Res      string `json:"res"`
		Version  int64  `json:"version"`
		Required bool   `json:"required"`
	} `json:"channels"`
}

// ForgeInfo decodes the forgeData section published by Forge servers.
func (s *Status) ForgeInfo() (*ForgeInfo, bool, error) {
	raw, ok := s.Section("forgeData")
	if !ok {
		return nil, false, nil
	}
	info, err := ParseForgeData(raw)
	return info, true, err
}

func ParseForgeData(raw json.RawMessage) (*ForgeInfo, error) {
	var data forgeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: forgeData: %v", ErrJSONParse, err)
	}

	info := &ForgeInfo{Truncated: data.Truncated}
	info.NetworkVersion, _ = scalarText(data.NetworkVersion)

	if data.Encoded != nil {
		if err := decodeForgeMods(info, *data.Encoded); err != nil {
			return info, err
		}
		return info, nil
	}

	for _, mod := range data.Mods {
		info.Mods = append(info.Mods, ForgeMod{ID: mod.ID, Version: mod.Marker})
	}
	for _, ch := range data.Channels {
		info.Channels = append(info.Channels, ForgeChannel{Name: ch.Res, Version: ch.Version, Required: ch.Required})
	}
	return info, nil
}

// unpackForgeData reverses the compact encoding: each UTF-16 unit carries 15
// payload bits, and the first two units hold the byte length.
func unpackForgeData(encoded string) ([]byte, error) {
	units, err := EncodeUTF16BE(encoded)
	if err != nil {
		return nil, err
	}
	if len(units) < 4 {
		return nil, fmt.Errorf("%w: forge data too short", ErrFrameInvalid)
	}
	unit := func(i int) uint32 {
		return uint32(binary.BigEndian.Uint16(units[2*i:]))
	}
	size := int(unit(0)&0x7FFF | (unit(1)&0x7FFF)<<15)

	capacity := (len(units)/2 - 2) * 15 / 8
	out := make([]byte, 0, min(size, capacity+1))
	var acc uint32
	bits := 0
	for i := 2; i < len(units)/2; i++ {
		for bits >= 8 {
			out = append(out, byte(acc))
			acc >>= 8
			bits -= 8
		}
		acc |= (unit(i) & 0x7FFF) << bits
		bits += 15
	}
	for bits > 0 {
		out = append(out, byte(acc))
		acc >>= 8
		bits -= 8
	}
	if len(out) > size {
		out = out[:size]
	}
	return out, nil
}

func decodeForgeMods(info *ForgeInfo, encoded string) error {
	data, err := unpackForgeData(encoded)
	if err != nil {
		return err
	}
	r := bytes.NewReader(data)

	truncated, err := r.ReadByte()
	if err != nil {
		return forgeReadError(err)
	}
	info.Truncated = truncated != 0

	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return forgeReadError(err)
	}
	for i := 0; i < int(count); i++ {
		flag, err := readVarInt(r)
		if err != nil {
			return forgeReadError(err)
		}
		mod := ForgeMod{Unchecked: flag&1 != 0}
		if mod.ID, err = readForgeString(r); err != nil {
			return err
		}
		if !mod.Unchecked {
			if mod.Version, err = readForgeString(r); err != nil {
				return err
			}
		}
		if mod.Channels, err = readForgeChannels(r, int(uint32(flag)>>1)); err != nil {
			return err
		}
		info.Mods = append(info.Mods, mod)
	}

	if r.Len() == 0 {
		return nil
	}
	extra, err := readVarInt(r)
	if err != nil {
		return forgeReadError(err)
	}
	info.Channels, err = readForgeChannels(r, int(extra))
	return err
}

func readForgeChannels(r *bytes.Reader, count int) ([]ForgeChannel, error) {
	var channels []ForgeChannel
	for i := 0; i < count; i++ {
		name, err := readForgeString(r)
		if err != nil {
			return nil, err
		}
		version, err := readVarInt(r)
		if err != nil {
			return nil, forgeReadError(err)
		}
		required, err := r.ReadByte()
		if err != nil {
			return nil, forgeReadError(err)
		}
		channels = append(channels, ForgeChannel{Name: name, Version: int64(version), Required: required != 0})
	}
	return channels, nil
}

func readForgeString(r *bytes.Reader) (string, error) {
	length, err := readVarInt(r)
	if err != nil {
		return "", forgeReadError(err)
	}
	if length < 0 || int(length) > r.Len() {
		return "", protocolError(ErrFrameInvalid, "forge string length %d", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", forgeReadError(err)
	}
	return string(buf), nil
}

func forgeReadError(err error) error {
	if errors.Is(err, ErrVarIntOverflow) {
		return err
	}
	return protocolError(ErrShortRead, "forge data: %v", err)
}
