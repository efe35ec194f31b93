package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/bridgectl/internal/observability"
)

// Status is the relay snapshot served on /status.
type Status struct {
	App             string `json:"app"`
	Uptime          string `json:"uptime"`
	EngineConnected bool   `json:"engine_connected"`
	PeerID          string `json:"peer_id,omitempty"`
}

// StatusFunc supplies the current relay snapshot without coupling the admin
// surface to the relay package.
type StatusFunc func() Status

// NewRouter builds the admin router: health/readiness probes, Prometheus
// metrics, and a relay status endpoint.
func NewRouter(service string, status StatusFunc, corsOrigins []string) *gin.Engine {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(service))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.GET("/health", func(c *gin.Context) {
		s := status()
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  s.Uptime,
			"service": s.App,
		})
	})

	r.GET("/ready", func(c *gin.Context) {
		s := status()
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"uptime":  s.Uptime,
			"service": s.App,
		})
	})

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, status())
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// Serve runs the admin server until ctx is cancelled.
func Serve(ctx context.Context, addr string, router *gin.Engine) error {
	srv := &http.Server{Addr: addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", addr).Msg("admin surface listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
