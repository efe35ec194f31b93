package channel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/bridgectl/internal/protocol/frame"
	"github.com/danmuck/bridgectl/internal/protocol/wire"
)

var ErrNoPeer = errors.New("channel: no engine peer connected")

// acceptRetrySchedule delays successive retries after a transient accept
// failure. Once exhausted, the listener is considered broken.
var acceptRetrySchedule = []time.Duration{
	250 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	2 * time.Second,
	2 * time.Second,
}

// TCP is the engine-side channel: a listening socket that holds at most one
// accepted peer at a time, big-endian framed JSON. The listener lives as
// long as the process; the peer slot is replaced across accept cycles.
type TCP struct {
	ln     net.Listener
	limits frame.Limits

	mu     sync.Mutex
	peer   net.Conn
	peerID string

	wmu sync.Mutex
}

// ListenTCP binds the engine listener. A bind failure here is the one fatal
// infrastructure error in the relay.
func ListenTCP(addr string, limits frame.Limits) (*TCP, error) {
	if limits.MaxPayloadBytes == 0 {
		limits = frame.EngineLimits()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("channel: listen %s: %w", addr, err)
	}
	return &TCP{ln: ln, limits: limits}, nil
}

func (c *TCP) Addr() net.Addr {
	return c.ln.Addr()
}

// AcceptNext blocks until the next peer connects and installs it as the
// active peer. Callers re-invoke it after each disconnect; that sequencing
// is what keeps a single peer active at a time. Returns net.ErrClosed once
// the listener has been shut down.
func (c *TCP) AcceptNext() (net.Conn, string, error) {
	attempt := 0
	for {
		conn, err := c.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil, "", err
			}
			if attempt >= len(acceptRetrySchedule) {
				return nil, "", fmt.Errorf("channel: accept failed: %w", err)
			}
			delay := acceptRetrySchedule[attempt]
			attempt++
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("engine accept failed")
			time.Sleep(delay)
			continue
		}

		id := uuid.NewString()
		c.mu.Lock()
		c.peer = conn
		c.peerID = id
		c.mu.Unlock()
		return conn, id, nil
	}
}

// ReadMessage blocks for the next frame on the given peer connection.
func (c *TCP) ReadMessage(conn net.Conn) (wire.Message, error) {
	payload, err := frame.Read(conn, binary.BigEndian, c.limits)
	if err != nil {
		return nil, err
	}
	return wire.Decode(payload)
}

// WriteMessage forwards one message to the currently connected peer. The
// peer handle is snapshotted under the slot lock and the blocking write
// happens outside it, so a disconnect can never swap the slot mid-write.
func (c *TCP) WriteMessage(m wire.Message) error {
	c.mu.Lock()
	conn := c.peer
	c.mu.Unlock()
	if conn == nil {
		return ErrNoPeer
	}

	payload, err := wire.Encode(m)
	if err != nil {
		return err
	}
	buf, err := frame.Encode(payload, binary.BigEndian, c.limits)
	if err != nil {
		return err
	}

	c.wmu.Lock()
	_, err = conn.Write(buf)
	c.wmu.Unlock()
	if err != nil {
		// Write failure means the peer is gone; drop it so the accept
		// loop can restore service.
		c.ClearPeer(conn)
		return err
	}
	return nil
}

// ClearPeer closes conn and empties the slot, but only if the slot still
// holds that exact connection.
func (c *TCP) ClearPeer(conn net.Conn) {
	c.mu.Lock()
	if c.peer == conn {
		c.peer = nil
		c.peerID = ""
	}
	c.mu.Unlock()
	_ = conn.Close()
}

// Peer reports the active peer ID, if any.
func (c *TCP) Peer() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerID, c.peer != nil
}

// Close shuts the listener and any active peer, unblocking a parked accept
// or read.
func (c *TCP) Close() error {
	err := c.ln.Close()
	c.mu.Lock()
	conn := c.peer
	c.peer = nil
	c.peerID = ""
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	return err
}
