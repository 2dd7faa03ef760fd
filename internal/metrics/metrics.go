// Package metrics exposes Prometheus instrumentation and the health probe
// for the dashboard backend.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the dashboard backend.
type Metrics struct {
	FetchesTotal   *prometheus.CounterVec // labels: interval, outcome=ok|error
	FetchDur       prometheus.Histogram
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEntries   prometheus.Gauge
	AnalysisDur    prometheus.Histogram
	AnalysisTotal  prometheus.Counter
	DecisionsTotal *prometheus.CounterVec // labels: label=BUY|SELL|HOLD
	ScanDur        prometheus.Histogram
	APIRequests    *prometheus.CounterVec // labels: endpoint, code
	WSClients      prometheus.Gauge
	SessionActive  prometheus.Gauge // 0=logged out, 1=active
	MarketState    prometheus.Gauge // 0=closed, 1=pre, 2=live, 3=post
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_fetches_total",
			Help: "Upstream historical/quote fetches by interval and outcome",
		}, []string{"interval", "outcome"}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_fetch_duration_seconds",
			Help:    "Upstream fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_cache_hits_total",
			Help: "Bar-series cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_cache_misses_total",
			Help: "Bar-series cache misses",
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_cache_entries",
			Help: "Live entries in the bar-series cache",
		}),
		AnalysisDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_analysis_duration_seconds",
			Help:    "Full per-symbol analysis latency (all timeframes)",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		AnalysisTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_analyses_total",
			Help: "Per-symbol analyses completed",
		}),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_decisions_total",
			Help: "Decisions emitted by label",
		}, []string{"label"}),
		ScanDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_scan_duration_seconds",
			Help:    "Universe scan latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_api_requests_total",
			Help: "API requests by endpoint and status code",
		}, []string{"endpoint", "code"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_ws_clients",
			Help: "Connected websocket clients",
		}),
		SessionActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_session_active",
			Help: "Broker session state (0=logged out, 1=active)",
		}),
		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_market_state",
			Help: "Market session phase (0=closed, 1=pre, 2=live, 3=post)",
		}),
	}

	prometheus.MustRegister(
		m.FetchesTotal,
		m.FetchDur,
		m.CacheHits,
		m.CacheMisses,
		m.CacheEntries,
		m.AnalysisDur,
		m.AnalysisTotal,
		m.DecisionsTotal,
		m.ScanDur,
		m.APIRequests,
		m.WSClients,
		m.SessionActive,
		m.MarketState,
	)
	return m
}

// HealthStatus represents backend health for the /healthz probe.
type HealthStatus struct {
	mu sync.RWMutex

	SessionActive  bool      `json:"session_active"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	RedisConnected bool      `json:"redis_connected"`
	RedisEnabled   bool      `json:"redis_enabled"`
	LastFetchTime  time.Time `json:"last_fetch_time"`

	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetSessionActive(v bool) {
	h.mu.Lock()
	h.SessionActive = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedisEnabled(v bool) {
	h.mu.Lock()
	h.RedisEnabled = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastFetchTime(t time.Time) {
	h.mu.Lock()
	h.LastFetchTime = t
	h.mu.Unlock()
}

// CheckSQLite runs a ping and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency probes until ctx ends.
// Nil dependencies are skipped.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if db != nil {
					h.CheckSQLite(probeCtx, db)
				}
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overall := "healthy"
	code := http.StatusOK
	if !h.SQLiteOK || (h.RedisEnabled && !h.RedisConnected) {
		overall = "degraded"
		code = http.StatusServiceUnavailable
	}
	if !h.SessionActive {
		// No broker session limits functionality but the process is fine.
		if overall == "healthy" {
			overall = "awaiting_login"
		}
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		SessionActive   bool    `json:"session_active"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		RedisEnabled    bool    `json:"redis_enabled"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		LastFetchTime   string  `json:"last_fetch_time"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overall,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		SessionActive:   h.SessionActive,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		RedisEnabled:    h.RedisEnabled,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		LastFetchTime:   h.LastFetchTime.Format(time.RFC3339),
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(status)
}

// Server exposes /metrics and /healthz on its own listener, separate from
// the API port so scrapes survive API-side trouble.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates the metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
