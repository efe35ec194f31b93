package channel

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/danmuck/bridgectl/internal/protocol/frame"
	"github.com/danmuck/bridgectl/internal/protocol/wire"
)

// Stdio is the browser-side channel: little-endian framed JSON over the
// process's standard input and output, per the native-messaging host
// protocol.
type Stdio struct {
	r      io.Reader
	w      io.Writer
	limits frame.Limits

	// wmu spans prefix and payload so concurrent writers never interleave
	// a partial frame.
	wmu sync.Mutex
}

func NewStdio(r io.Reader, w io.Writer, limits frame.Limits) *Stdio {
	if limits.MaxPayloadBytes == 0 {
		limits = frame.StdioLimits()
	}
	return &Stdio{r: r, w: w, limits: limits}
}

// ReadMessage blocks for the next frame and decodes its payload. Framing
// errors (io.EOF, frame.ErrShortPrefix, frame.ErrEmptyFrame) mean the
// browser closed the port. A wire.ErrInvalidPayload leaves the stream
// positioned at the next frame; the payload bytes were fully consumed.
func (c *Stdio) ReadMessage() (wire.Message, error) {
	payload, err := frame.Read(c.r, binary.LittleEndian, c.limits)
	if err != nil {
		return nil, err
	}
	return wire.Decode(payload)
}

// WriteMessage serializes and writes one frame in a single write call.
func (c *Stdio) WriteMessage(m wire.Message) error {
	payload, err := wire.Encode(m)
	if err != nil {
		return err
	}
	buf, err := frame.Encode(payload, binary.LittleEndian, c.limits)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err = c.w.Write(buf)
	return err
}
