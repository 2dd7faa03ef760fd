package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Zerodha Kite Connect credentials
	KiteAPIKey     string
	KiteAPISecret  string
	KiteTOTPSecret string // optional, surfaces a 2FA code in the session endpoint

	// Infrastructure
	SessionFile string
	SQLitePath  string
	RedisAddr   string // optional decision-log stream; empty disables
	RedisPass   string
	ListenAddr  string
	MetricsAddr string

	// Data fetching
	CacheTTLMinutes int
	FetchTimeout    time.Duration
	MaxWorkers      int

	// Analysis
	Benchmark    string // index symbol used for relative strength
	RSPeriod     int    // trailing bars for relative strength
	MinVolume    int64  // scan volume floor
	FocusSymbols string // comma-separated override of the built-in focus list
}

// Load reads configuration from environment variables with sensible defaults.
// Kite credentials are required; everything else falls back.
func Load() *Config {
	return &Config{
		KiteAPIKey:     mustEnv("KITE_API_KEY"),
		KiteAPISecret:  mustEnv("KITE_API_SECRET"),
		KiteTOTPSecret: getEnv("KITE_TOTP_SECRET", ""),

		SessionFile: getEnv("SESSION_FILE", ".kite_session.json"),
		SQLitePath:  getEnv("SQLITE_PATH", "data/instruments.db"),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisPass:   getEnv("REDIS_PASSWORD", ""),
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),

		CacheTTLMinutes: getEnvInt("CACHE_TTL_MINUTES", 3),
		FetchTimeout:    time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 7)) * time.Second,
		MaxWorkers:      getEnvInt("MAX_FETCH_WORKERS", 10),

		Benchmark:    getEnv("RS_BENCHMARK", "NIFTY 50"),
		RSPeriod:     getEnvInt("RS_PERIOD", 55),
		MinVolume:    int64(getEnvInt("MIN_VOLUME", 75000)),
		FocusSymbols: getEnv("FOCUS_SYMBOLS", ""),
	}
}

// ParseFocusSymbols splits the FOCUS_SYMBOLS override into a clean symbol list.
// Returns nil when unset so callers fall back to the built-in universe.
func (c *Config) ParseFocusSymbols() []string {
	if strings.TrimSpace(c.FocusSymbols) == "" {
		return nil
	}
	parts := strings.Split(c.FocusSymbols, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p == "" {
			continue
		}
		symbols = append(symbols, p)
	}
	return symbols
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] ignoring invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
