package ping

import (
	"bytes"
	"encoding/json"
	"strings"
)

// TextComponent is Minecraft's rich text value: a string, a list of
// components, or an object with text, translatable and extra children.
type TextComponent struct {
	raw json.RawMessage
}

func NewTextComponent(raw json.RawMessage) TextComponent {
	return TextComponent{raw: append(json.RawMessage(nil), raw...)}
}

func (c TextComponent) Raw() json.RawMessage {
	return c.raw
}

func (c TextComponent) IsZero() bool {
	return len(c.raw) == 0
}

// String flattens the component: extra children first, then text, then translatable.
func (c TextComponent) String() string {
	if c.IsZero() {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(c.raw))
	dec.UseNumber()
	var node any
	if err := dec.Decode(&node); err != nil {
		return " "
	}
	return flattenText(node)
}

func (c *TextComponent) UnmarshalJSON(data []byte) error {
	c.raw = append(c.raw[:0], data...)
	return nil
}

func (c TextComponent) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return []byte("null"), nil
	}
	return c.raw, nil
}

func flattenText(node any) string {
	switch v := node.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	case []any:
		var builder strings.Builder
		for _, item := range v {
			builder.WriteString(flattenText(item))
		}
		return builder.String()
	case map[string]any:
		var builder strings.Builder
		if extra, ok := v["extra"].([]any); ok {
			for _, item := range extra {
				builder.WriteString(flattenText(item))
			}
		}
		if text, ok := v["text"].(string); ok {
			builder.WriteString(text)
		}
		if translatable, ok := v["translatable"].(string); ok {
			builder.WriteString(translatable)
		}
		return builder.String()
	default:
		return " "
	}
}
