package channel

import (
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmuck/bridgectl/internal/protocol/frame"
	"github.com/danmuck/bridgectl/internal/protocol/wire"
)

type acceptResult struct {
	conn net.Conn
	id   string
	err  error
}

func acceptAsync(c *TCP) chan acceptResult {
	ch := make(chan acceptResult, 1)
	go func() {
		conn, id, err := c.AcceptNext()
		ch <- acceptResult{conn: conn, id: id, err: err}
	}()
	return ch
}

func waitAccept(t *testing.T, ch chan acceptResult) acceptResult {
	t.Helper()
	select {
	case res := <-ch:
		if res.err != nil {
			t.Fatalf("accept: %v", res.err)
		}
		return res
	case <-time.After(2 * time.Second):
		t.Fatalf("accept timed out")
		return acceptResult{}
	}
}

func TestTCPWriteWithoutPeer(t *testing.T) {
	c, err := ListenTCP("127.0.0.1:0", frame.Limits{})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer c.Close()

	if err := c.WriteMessage(wire.Message{"type": "PING"}); !errors.Is(err, ErrNoPeer) {
		t.Fatalf("expected ErrNoPeer, got %v", err)
	}
	if _, connected := c.Peer(); connected {
		t.Fatalf("no peer should be reported before accept")
	}
}

func TestTCPAcceptReadWrite(t *testing.T) {
	c, err := ListenTCP("127.0.0.1:0", frame.Limits{})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer c.Close()

	ch := acceptAsync(c)
	engine, err := net.Dial("tcp", c.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer engine.Close()
	res := waitAccept(t, ch)
	if res.id == "" {
		t.Fatalf("accepted peer has no id")
	}

	// relay -> engine, big-endian on the wire
	if err := c.WriteMessage(wire.Message{"type": "INTENT"}); err != nil {
		t.Fatalf("write to peer: %v", err)
	}
	_ = engine.SetReadDeadline(time.Now().Add(2 * time.Second))
	payload, err := frame.Read(engine, binary.BigEndian, frame.EngineLimits())
	if err != nil {
		t.Fatalf("engine read: %v", err)
	}
	msg, err := wire.Decode(payload)
	if err != nil || msg.String("type") != "INTENT" {
		t.Fatalf("engine got %#v err=%v", msg, err)
	}

	// engine -> relay
	if err := frame.Write(engine, []byte(`{"type":"PONG"}`), binary.BigEndian, frame.EngineLimits()); err != nil {
		t.Fatalf("engine write: %v", err)
	}
	got, err := c.ReadMessage(res.conn)
	if err != nil || got.String("type") != "PONG" {
		t.Fatalf("relay got %#v err=%v", got, err)
	}
}

func TestTCPReconnectCycle(t *testing.T) {
	c, err := ListenTCP("127.0.0.1:0", frame.Limits{})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer c.Close()

	ch := acceptAsync(c)
	first, err := net.Dial("tcp", c.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	res := waitAccept(t, ch)
	firstID := res.id

	first.Close()
	if _, rerr := c.ReadMessage(res.conn); rerr == nil {
		t.Fatalf("expected read failure after peer close")
	}
	c.ClearPeer(res.conn)
	if err := c.WriteMessage(wire.Message{"type": "PING"}); !errors.Is(err, ErrNoPeer) {
		t.Fatalf("expected ErrNoPeer after disconnect, got %v", err)
	}

	ch = acceptAsync(c)
	second, err := net.Dial("tcp", c.Addr().String())
	if err != nil {
		t.Fatalf("second dial: %v", err)
	}
	defer second.Close()
	res = waitAccept(t, ch)
	if res.id == firstID {
		t.Fatalf("replacement peer must get a fresh id")
	}
	if err := c.WriteMessage(wire.Message{"type": "PING"}); err != nil {
		t.Fatalf("write after reconnect: %v", err)
	}
}

func TestTCPCloseUnblocksAccept(t *testing.T) {
	c, err := ListenTCP("127.0.0.1:0", frame.Limits{})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ch := acceptAsync(c)
	c.Close()
	select {
	case res := <-ch:
		if !errors.Is(res.err, net.ErrClosed) {
			t.Fatalf("expected net.ErrClosed, got %v", res.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("accept did not unblock on close")
	}
}
