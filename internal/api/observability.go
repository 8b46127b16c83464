package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-player labels to prevent DoS)
var (
	// Arena metrics
	duelsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pit_duels_total",
		Help: "Duels resolved, by outcome reason",
	}, []string{"reason"}) // Bounded: the fixed set of resolution reasons

	capturesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pit_captures_total",
		Help: "Players captured after dropping to zero points",
	})

	revengeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pit_revenge_redeemed_total",
		Help: "Revenge bonuses redeemed",
	})

	onlinePlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pit_players_online",
		Help: "Currently identified players",
	})

	pitOccupancy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pit_occupancy",
		Help: "Players currently in the pit",
	})

	// Clan battle metrics
	battleRoundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clan_battle_rounds_total",
		Help: "Clan battle rounds played",
	})

	battlesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clan_battles_completed_total",
		Help: "Clan battle series completed",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is path pattern, not full URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})
)

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled    bool
	ListenAddr string // MUST be "127.0.0.1:6060" in production
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060", // Localhost only - NEVER expose externally
	}
}

// StartDebugServer starts the internal observability server
// CRITICAL: This MUST bind to localhost only to prevent pprof-based DoS
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	// SECURITY: Validate address is localhost
	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("⚠️ Debug server forced to localhost for security")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	mux := http.NewServeMux()

	// pprof endpoints for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

// RecordDuel counts a resolved duel by its outcome reason, plus the
// capture and revenge events attached to it.
func RecordDuel(reason string, capture, revenge bool) {
	duelsTotal.WithLabelValues(reason).Inc()
	if capture {
		capturesTotal.Inc()
	}
	if revenge {
		revengeTotal.Inc()
	}
}

// RecordBattleRound counts a played clan battle round
func RecordBattleRound() {
	battleRoundsTotal.Inc()
}

// RecordBattleComplete counts a finished clan battle series
func RecordBattleComplete() {
	battlesCompleted.Inc()
}

// UpdateOccupancy updates the online and in-pit gauges
func UpdateOccupancy(online, inPit int) {
	onlinePlayers.Set(float64(online))
	pitOccupancy.Set(float64(inPit))
}

// RecordConnectionRejected increments the rejection counter
// reason must be one of: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
