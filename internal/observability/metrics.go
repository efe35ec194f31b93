package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesForwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridgectl",
			Subsystem: "relay",
			Name:      "frames_forwarded_total",
			Help:      "Frames forwarded between the browser and engine channels.",
		},
		[]string{"direction"},
	)
	frameErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridgectl",
			Subsystem: "relay",
			Name:      "frame_errors_total",
			Help:      "Per-message failures answered with an error reply.",
		},
		[]string{"channel", "reason"},
	)
	localCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridgectl",
			Subsystem: "relay",
			Name:      "local_commands_total",
			Help:      "Local commands intercepted on the browser channel.",
		},
		[]string{"cmd", "success"},
	)
	engineConnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bridgectl",
			Subsystem: "relay",
			Name:      "engine_connects_total",
			Help:      "Engine peer connections accepted.",
		},
	)
	engineConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bridgectl",
			Subsystem: "relay",
			Name:      "engine_connected",
			Help:      "Whether an engine peer is currently connected.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bridgectl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bridgectl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesForwarded, frameErrors, localCommands,
			engineConnects, engineConnected,
			httpRequests, httpDuration,
		)
	})
}

func RecordForward(direction string) {
	RegisterMetrics()
	framesForwarded.WithLabelValues(direction).Inc()
}

func RecordFrameError(channel, reason string) {
	RegisterMetrics()
	frameErrors.WithLabelValues(channel, reason).Inc()
}

func RecordLocalCommand(cmd string, success bool) {
	RegisterMetrics()
	localCommands.WithLabelValues(cmd, strconv.FormatBool(success)).Inc()
}

func RecordEngineConnect() {
	RegisterMetrics()
	engineConnects.Inc()
	engineConnected.Set(1)
}

func RecordEngineDisconnect() {
	RegisterMetrics()
	engineConnected.Set(0)
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, statusLabel).Observe(duration.Seconds())
}
