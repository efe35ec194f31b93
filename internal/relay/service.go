package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/bridgectl/internal/admin"
	"github.com/danmuck/bridgectl/internal/channel"
	"github.com/danmuck/bridgectl/internal/localcmd"
	"github.com/danmuck/bridgectl/internal/protocol/frame"
)

var (
	ErrInvalidListenAddr        = errors.New("relay: listen address required")
	ErrInvalidHeartbeatInterval = errors.New("relay: invalid heartbeat interval")
)

// ServiceConfig configures the relay standalone runtime.
type ServiceConfig struct {
	ListenAddr             string
	AdminAddr              string
	AdminCorsOrigins       []string
	ArtifactsDir           string
	MaxBrowserMessageBytes uint32
	MaxEngineMessageBytes  uint32
	HeartbeatInterval      time.Duration
}

// Relay runtime defaults. Port 5678 is the engine's well-known local port.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		ListenAddr:             "127.0.0.1:5678",
		AdminAddr:              "",
		ArtifactsDir:           ".",
		MaxBrowserMessageBytes: frame.StdioLimits().MaxPayloadBytes,
		MaxEngineMessageBytes:  frame.EngineLimits().MaxPayloadBytes,
		HeartbeatInterval:      30 * time.Second,
	}
}

// Service runs the relay lifecycle as a standalone process.
type Service struct {
	cfg     ServiceConfig
	handler *localcmd.Handler
	started time.Time

	browserIn  io.Reader
	browserOut io.Writer

	browser *channel.Stdio
	engine  *channel.TCP
}

// Relay service constructor using default standalone config.
func NewService() *Service {
	return NewServiceWithConfig(DefaultServiceConfig())
}

// Relay service constructor using explicit config.
func NewServiceWithConfig(cfg ServiceConfig) *Service {
	if strings.TrimSpace(cfg.ArtifactsDir) == "" {
		cfg.ArtifactsDir = "."
	}
	return &Service{
		cfg:        cfg,
		browserIn:  os.Stdin,
		browserOut: os.Stdout,
	}
}

// Relay runtime entrypoint that blocks until the browser closes the port or
// a process signal arrives.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.bootstrap(); err != nil {
		return err
	}
	return s.serve(ctx)
}

// EngineAddr reports the bound engine listener address.
func (s *Service) EngineAddr() net.Addr {
	return s.engine.Addr()
}

// Status snapshots the relay for the admin surface.
func (s *Service) Status() admin.Status {
	peerID, connected := s.engine.Peer()
	return admin.Status{
		App:             "bridgectl",
		Uptime:          time.Since(s.started).Truncate(time.Second).String(),
		EngineConnected: connected,
		PeerID:          peerID,
	}
}

func (s *Service) bootstrap() error {
	if strings.TrimSpace(s.cfg.ListenAddr) == "" {
		return ErrInvalidListenAddr
	}
	if s.cfg.HeartbeatInterval <= 0 {
		return ErrInvalidHeartbeatInterval
	}
	if err := os.MkdirAll(s.cfg.ArtifactsDir, 0o755); err != nil {
		return fmt.Errorf("relay: artifacts dir: %w", err)
	}
	s.handler = localcmd.NewHandler(s.cfg.ArtifactsDir)
	s.browser = channel.NewStdio(s.browserIn, s.browserOut, frame.Limits{MaxPayloadBytes: s.cfg.MaxBrowserMessageBytes})

	engine, err := channel.ListenTCP(s.cfg.ListenAddr, frame.Limits{MaxPayloadBytes: s.cfg.MaxEngineMessageBytes})
	if err != nil {
		return err
	}
	s.engine = engine
	s.started = time.Now()

	log.Info().
		Str("listen_addr", engine.Addr().String()).
		Str("artifacts_dir", s.cfg.ArtifactsDir).
		Msg("relay ready")
	return nil
}

// Relay main loop: supervise the two channel loops, the optional admin
// surface, and the heartbeat.
func (s *Service) serve(ctx context.Context) error {
	defer s.engine.Close()

	browserErr := make(chan error, 1)
	go func() {
		browserErr <- s.browserLoop()
	}()

	engineErr := make(chan error, 1)
	go func() {
		engineErr <- s.engineLoop()
	}()

	adminErr := make(chan error, 1)
	if strings.TrimSpace(s.cfg.AdminAddr) != "" {
		go func() {
			router := admin.NewRouter("bridgectl", s.Status, s.cfg.AdminCorsOrigins)
			adminErr <- admin.Serve(ctx, s.cfg.AdminAddr, router)
		}()
	}

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("relay shutdown on signal")
			return nil
		case err := <-browserErr:
			// Browser port closed: stop accepting engine peers and exit
			// cleanly. Any other error from the stdio side is fatal.
			s.engine.Close()
			if err != nil {
				return fmt.Errorf("relay: browser channel: %w", err)
			}
			log.Info().Msg("relay shutdown on browser close")
			return nil
		case err := <-engineErr:
			if err != nil {
				return fmt.Errorf("relay: engine listener: %w", err)
			}
			return nil
		case err := <-adminErr:
			if err != nil {
				return fmt.Errorf("relay: admin surface: %w", err)
			}
		case <-ticker.C:
			peerID, connected := s.engine.Peer()
			log.Info().
				Bool("engine_connected", connected).
				Str("peer_id", peerID).
				Msg("relay heartbeat")
		}
	}
}
