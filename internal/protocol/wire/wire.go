package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidPayload = errors.New("wire: payload is not a JSON object")

// Message is one decoded relay payload. The relay interprets only the "cmd"
// discriminator; every other field passes through untouched, so the type
// stays a plain map rather than a schema struct.
type Message map[string]any

// Decode parses payload bytes into a Message. Anything that is not a
// top-level JSON object is rejected.
func Decode(payload []byte) (Message, error) {
	var raw any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top-level %T", ErrInvalidPayload, raw)
	}
	return Message(obj), nil
}

// Encode serializes the Message back to JSON bytes.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Cmd peeks the "cmd" discriminator. It reports false when the field is
// absent or not a string; such messages are never local commands.
func (m Message) Cmd() (string, bool) {
	v, ok := m["cmd"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// OK reports whether the message carries a truthy "ok" field.
func (m Message) OK() bool {
	v, ok := m["ok"].(bool)
	return ok && v
}

// ErrorReply is the failure shape sent back on the originating channel.
func ErrorReply(reason string) Message {
	return Message{"ok": false, "error": reason}
}

// String returns a field as a string, or empty when absent or mistyped.
func (m Message) String(key string) string {
	s, _ := m[key].(string)
	return s
}
