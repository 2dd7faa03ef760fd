// The dashboard binary serves the pre-market monitoring API: broker login,
// live quotes, the morning scan, multi-timeframe technical analysis and a
// websocket push feed for the browser frontend.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"premarketdash/config"
	"premarketdash/internal/analysis"
	"premarketdash/internal/api"
	"premarketdash/internal/cache"
	"premarketdash/internal/logger"
	"premarketdash/internal/markethours"
	"premarketdash/internal/marketdata"
	"premarketdash/internal/metrics"
	"premarketdash/internal/session"
	redisstore "premarketdash/internal/store/redis"
	"premarketdash/internal/universe"
	"premarketdash/pkg/kiteconnect"
)

// defaultFocus is the built-in scan list when FOCUS_SYMBOLS is unset and the
// instrument universe has not been refreshed yet.
var defaultFocus = []string{
	"RELIANCE", "TCS", "HDFCBANK", "INFY", "ICICIBANK",
	"SBIN", "BHARTIARTL", "ITC", "LT", "AXISBANK",
	"KOTAKBANK", "HINDUNILVR", "BAJFINANCE", "MARUTI", "TITAN",
}

const (
	broadcastInterval = 30 * time.Second
	probeInterval     = 15 * time.Second
)

func main() {
	cfg := config.Load()
	slogger := logger.Init("dashboard", logger.LevelFromEnv())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	met := metrics.NewMetrics()
	health := metrics.NewHealthStatus()

	// Instrument universe in SQLite.
	uni, err := universe.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[main] universe: %v", err)
	}
	defer uni.Close()
	health.CheckSQLite(ctx, uni.DB())

	// Optional Redis decision journal.
	var journal *redisstore.Journal
	if cfg.RedisAddr != "" {
		journal, err = redisstore.New(redisstore.JournalConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPass})
		if err != nil {
			log.Printf("[main] redis unavailable, journaling disabled: %v", err)
		} else {
			defer journal.Close()
			health.SetRedisEnabled(true)
		}
	}

	// Broker client plus persisted session restore.
	kite := kiteconnect.New(kiteconnect.Config{
		APIKey:    cfg.KiteAPIKey,
		APISecret: cfg.KiteAPISecret,
		Timeout:   cfg.FetchTimeout,
	})
	kite.SessionExpiryHook = func() {
		log.Printf("[main] broker session expired, login required")
		health.SetSessionActive(false)
		met.SessionActive.Set(0)
	}

	sessions := session.NewStore(cfg.SessionFile, cfg.KiteAPISecret)
	if state, err := sessions.Load(); err == nil {
		kite.SetAccessToken(state.AccessToken)
		health.SetSessionActive(true)
		met.SessionActive.Set(1)
		log.Printf("[main] restored session for %s", state.UserID)
	} else if !errors.Is(err, session.ErrNoSession) {
		log.Printf("[main] no restorable session: %v", err)
	}

	// Market data pipeline: source → cache → fetcher → analysis.
	const exchange = "NSE"
	source := marketdata.NewKiteSource(kite, uni, exchange)
	store := cache.New(time.Duration(cfg.CacheTTLMinutes) * time.Minute)
	fetcher := marketdata.NewFetcher(source, store, met, cfg.FetchTimeout, cfg.MaxWorkers)
	svc := analysis.New(fetcher, met, exchange, cfg.Benchmark, cfg.RSPeriod)

	focus := cfg.ParseFocusSymbols()
	if focus == nil {
		focus = defaultFocus
	}

	apiServer := api.NewServer(api.Deps{
		Fetcher:      fetcher,
		Analysis:     svc,
		Kite:         kite,
		Sessions:     sessions,
		Universe:     uni,
		Journal:      journal,
		Metrics:      met,
		Health:       health,
		Exchange:     exchange,
		TOTPSecret:   cfg.KiteTOTPSecret,
		FocusSymbols: focus,
		MinVolume:    cfg.MinVolume,
	})

	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: logger.AccessLog(slogger, mux),
	}

	// Background loops.
	apiServer.StartScanBroadcast(ctx, broadcastInterval)
	if journal != nil {
		health.StartLivenessChecker(ctx, journal.Client(), uni.DB(), probeInterval)
	} else {
		health.StartLivenessChecker(ctx, nil, uni.DB(), probeInterval)
	}
	go trackMarketPhase(ctx, met)

	metricsServer := metrics.NewServer(cfg.MetricsAddr, health)
	metricsServer.Start()

	go func() {
		log.Printf("[main] api listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[main] api server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[main] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	metricsServer.Stop(shutdownCtx)
	log.Printf("[main] bye")
}

// trackMarketPhase keeps the market-state gauge current.
func trackMarketPhase(ctx context.Context, met *metrics.Metrics) {
	phases := map[markethours.Phase]float64{
		markethours.Closed:     0,
		markethours.PreMarket:  1,
		markethours.LiveMarket: 2,
		markethours.PostMarket: 3,
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		met.MarketState.Set(phases[markethours.PhaseAt(time.Now())])
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
