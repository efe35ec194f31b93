package relay

import (
	"errors"
	"io"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/bridgectl/internal/channel"
	"github.com/danmuck/bridgectl/internal/observability"
	"github.com/danmuck/bridgectl/internal/protocol/frame"
	"github.com/danmuck/bridgectl/internal/protocol/wire"
)

// browserLoop reads framed messages from the browser until the port closes.
// Returns nil on closure; per-message failures are answered inline and the
// loop continues.
func (s *Service) browserLoop() error {
	for {
		msg, err := s.browser.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF),
				errors.Is(err, frame.ErrShortPrefix), errors.Is(err, frame.ErrEmptyFrame):
				// A stream truncated mid-prefix or mid-payload is the browser
				// closing the port, same as a clean EOF.
				log.Info().Msg("browser channel closed")
				return nil
			case errors.Is(err, wire.ErrInvalidPayload):
				observability.RecordFrameError("browser", "parse")
				log.Warn().Err(err).Msg("browser frame rejected")
				if werr := s.browser.WriteMessage(wire.ErrorReply("parse error")); werr != nil {
					return werr
				}
				continue
			case errors.Is(err, frame.ErrPayloadTooLarge):
				// The stream cannot resync past an oversized frame.
				observability.RecordFrameError("browser", "oversize")
				log.Error().Err(err).Msg("browser frame oversized, closing channel")
				_ = s.browser.WriteMessage(wire.ErrorReply("message too large"))
				return nil
			default:
				return err
			}
		}
		if err := s.dispatchFromBrowser(msg); err != nil {
			return err
		}
	}
}

// dispatchFromBrowser applies the ordered dispatch rules for one browser
// message: intercept local commands, otherwise forward to the engine. The
// returned error is only non-nil when the browser-side write path itself
// fails, which ends the process.
func (s *Service) dispatchFromBrowser(msg wire.Message) error {
	if reply, ok := s.handler.Handle(msg); ok {
		cmd, _ := msg.Cmd()
		observability.RecordLocalCommand(cmd, reply.OK())
		return s.replyBrowser(reply)
	}

	if err := s.engine.WriteMessage(msg); err != nil {
		if errors.Is(err, channel.ErrNoPeer) {
			observability.RecordFrameError("browser", "no_peer")
			return s.browser.WriteMessage(wire.ErrorReply("no engine connected"))
		}
		observability.RecordFrameError("engine", "write")
		log.Warn().Err(err).Msg("engine write failed, peer dropped")
		return s.browser.WriteMessage(wire.ErrorReply("engine write failed"))
	}
	observability.RecordForward("browser_to_engine")
	return nil
}

// replyBrowser writes a reply on the browser channel. A reply too large for
// the stdio frame limit never reaches the stream, so it degrades to a
// failure reply instead of ending the process; only a transport failure
// propagates.
func (s *Service) replyBrowser(reply wire.Message) error {
	err := s.browser.WriteMessage(reply)
	if err == nil || !errors.Is(err, frame.ErrPayloadTooLarge) {
		return err
	}
	observability.RecordFrameError("browser", "oversize")
	log.Warn().Err(err).Msg("browser reply oversized, degraded to error reply")
	return s.browser.WriteMessage(wire.ErrorReply("message too large"))
}

// engineLoop accepts one peer at a time and drains it until disconnect,
// then re-arms. Only a listener-level failure escapes.
func (s *Service) engineLoop() error {
	for {
		conn, id, err := s.engine.AcceptNext()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		observability.RecordEngineConnect()
		log.Info().
			Str("peer_id", id).
			Str("remote", conn.RemoteAddr().String()).
			Msg("engine connected")

		s.readEngine(conn)

		s.engine.ClearPeer(conn)
		observability.RecordEngineDisconnect()
		log.Info().Str("peer_id", id).Msg("engine disconnected")
	}
}

// readEngine drains one peer connection, forwarding everything to the
// browser. Any framing or transport failure ends just this connection.
func (s *Service) readEngine(conn net.Conn) {
	for {
		msg, err := s.engine.ReadMessage(conn)
		if err != nil {
			if errors.Is(err, wire.ErrInvalidPayload) {
				observability.RecordFrameError("engine", "parse")
				log.Warn().Err(err).Msg("engine frame rejected")
				if werr := s.engine.WriteMessage(wire.ErrorReply("parse error")); werr != nil {
					return
				}
				continue
			}
			return
		}

		if err := s.browser.WriteMessage(msg); err != nil {
			if errors.Is(err, frame.ErrPayloadTooLarge) {
				// The engine frame limit is wider than the browser's, so a
				// message can read fine and still not fit outbound. The
				// stream is untouched; answer the engine and keep the peer.
				observability.RecordFrameError("engine", "oversize")
				log.Warn().Err(err).Msg("engine message exceeds browser frame limit")
				if werr := s.engine.WriteMessage(wire.ErrorReply("message too large")); werr != nil {
					return
				}
				continue
			}
			log.Error().Err(err).Msg("browser write failed")
			return
		}
		observability.RecordForward("engine_to_browser")
	}
}
