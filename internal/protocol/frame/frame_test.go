package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"testing/iotest"
)

func TestReadWriteRoundTripBothOrders(t *testing.T) {
	payload := []byte(`{"type":"HANDSHAKE_INIT"}`)
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		var buf bytes.Buffer
		if err := Write(&buf, payload, order, StdioLimits()); err != nil {
			t.Fatalf("write frame (%v): %v", order, err)
		}
		out, err := Read(&buf, order, StdioLimits())
		if err != nil {
			t.Fatalf("read frame (%v): %v", order, err)
		}
		if !bytes.Equal(out, payload) {
			t.Fatalf("payload mismatch (%v): got %q", order, out)
		}
	}
}

func TestEncodePrefixOrderDiffers(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 300)
	le, err := Encode(payload, binary.LittleEndian, StdioLimits())
	if err != nil {
		t.Fatalf("encode little-endian: %v", err)
	}
	be, err := Encode(payload, binary.BigEndian, StdioLimits())
	if err != nil {
		t.Fatalf("encode big-endian: %v", err)
	}
	if bytes.Equal(le[:PrefixLen], be[:PrefixLen]) {
		t.Fatalf("expected distinct prefixes for length %d, got %x", len(payload), le[:PrefixLen])
	}
	if !bytes.Equal(le[PrefixLen:], be[PrefixLen:]) {
		t.Fatalf("payload bytes must not depend on prefix order")
	}
}

func TestReadReassemblesPartialChunks(t *testing.T) {
	payload := []byte(`{"type":"PING","n":1}`)
	var buf bytes.Buffer
	if err := Write(&buf, payload, binary.BigEndian, EngineLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	out, err := Read(iotest.OneByteReader(&buf), binary.BigEndian, EngineLimits())
	if err != nil {
		t.Fatalf("read frame one byte at a time: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatalf("payload mismatch: got %q", out)
	}
}

func TestReadEmptyFrame(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte{0, 0, 0, 0}), binary.LittleEndian, StdioLimits())
	if !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("expected ErrEmptyFrame, got %v", err)
	}
}

func TestReadclosedStreamIsEOF(t *testing.T) {
	_, err := Read(bytes.NewReader(nil), binary.LittleEndian, StdioLimits())
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadShortPrefix(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte{1, 2}), binary.LittleEndian, StdioLimits())
	if !errors.Is(err, ErrShortPrefix) {
		t.Fatalf("expected ErrShortPrefix, got %v", err)
	}
}

func TestReadTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []byte(`{"a":1}`), binary.BigEndian, EngineLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	truncated := buf.Bytes()[:buf.Len()-3]
	_, err := Read(bytes.NewReader(truncated), binary.BigEndian, EngineLimits())
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestReadOversizedLength(t *testing.T) {
	var prefix [PrefixLen]byte
	binary.BigEndian.PutUint32(prefix[:], EngineLimits().MaxPayloadBytes+1)
	_, err := Read(bytes.NewReader(prefix[:]), binary.BigEndian, EngineLimits())
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestEncodeOversizedPayload(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 16)
	_, err := Encode(payload, binary.LittleEndian, Limits{MaxPayloadBytes: 8})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestDecodeLength(t *testing.T) {
	n, err := DecodeLength([]byte{0x18, 0, 0, 0}, binary.LittleEndian)
	if err != nil || n != 24 {
		t.Fatalf("little-endian decode: n=%d err=%v", n, err)
	}
	n, err = DecodeLength([]byte{0, 0, 0, 0x18}, binary.BigEndian)
	if err != nil || n != 24 {
		t.Fatalf("big-endian decode: n=%d err=%v", n, err)
	}
	if _, err := DecodeLength([]byte{1, 2, 3}, binary.BigEndian); err == nil {
		t.Fatalf("expected error for short prefix slice")
	}
}
