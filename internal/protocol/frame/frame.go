package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// PrefixLen is the size of the length prefix on every frame.
const PrefixLen = 4

var (
	ErrShortPrefix     = errors.New("frame: short length prefix")
	ErrEmptyFrame      = errors.New("frame: zero-length frame")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

// StdioLimits bounds browser-side frames at the native-messaging maximum.
func StdioLimits() Limits {
	return Limits{MaxPayloadBytes: 1 * 1024 * 1024}
}

// EngineLimits bounds engine-side frames.
func EngineLimits() Limits {
	return Limits{MaxPayloadBytes: 8 * 1024 * 1024}
}

// Read consumes one length-prefixed frame and returns its payload.
// A zero-length frame returns ErrEmptyFrame; callers treat it as peer
// closure, since legitimate payloads are never empty. A stream that ends
// mid-prefix returns ErrShortPrefix.
func Read(r io.Reader, order binary.ByteOrder, limits Limits) ([]byte, error) {
	var prefix [PrefixLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortPrefix
		}
		return nil, err
	}

	length := order.Uint32(prefix[:])
	if length == 0 {
		return nil, ErrEmptyFrame
	}
	if length > limits.MaxPayloadBytes {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, length, limits.MaxPayloadBytes)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Encode produces one complete frame as a single byte slice so callers can
// hand it to one write call and never interleave a partial frame.
func Encode(payload []byte, order binary.ByteOrder, limits Limits) ([]byte, error) {
	if uint64(len(payload)) > uint64(limits.MaxPayloadBytes) {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), limits.MaxPayloadBytes)
	}
	buf := make([]byte, PrefixLen+len(payload))
	order.PutUint32(buf[:PrefixLen], uint32(len(payload)))
	copy(buf[PrefixLen:], payload)
	return buf, nil
}

// Write encodes payload and writes the frame in one call.
func Write(w io.Writer, payload []byte, order binary.ByteOrder, limits Limits) error {
	buf, err := Encode(payload, order, limits)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return err
	}
	return nil
}

// DecodeLength interprets exactly PrefixLen bytes as a frame length.
func DecodeLength(b []byte, order binary.ByteOrder) (uint32, error) {
	if len(b) != PrefixLen {
		return 0, fmt.Errorf("frame: invalid prefix length: %d", len(b))
	}
	return order.Uint32(b), nil
}
