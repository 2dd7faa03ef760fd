// Package api serves the dashboard's REST and websocket surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"premarketdash/internal/analysis"
	"premarketdash/internal/markethours"
	"premarketdash/internal/marketdata"
	"premarketdash/internal/metrics"
	"premarketdash/internal/session"
	redisstore "premarketdash/internal/store/redis"
	"premarketdash/internal/universe"
	"premarketdash/pkg/kiteconnect"
)

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// Deps carries everything the handlers need. Journal and Metrics may be nil.
type Deps struct {
	Fetcher  *marketdata.Fetcher
	Analysis *analysis.Service
	Kite     *kiteconnect.Client
	Sessions *session.Store
	Universe *universe.Store
	Journal  *redisstore.Journal
	Metrics  *metrics.Metrics
	Health   *metrics.HealthStatus

	Exchange     string
	TOTPSecret   string
	FocusSymbols []string
	MinVolume    int64
}

// Server is the REST + websocket API.
type Server struct {
	deps  Deps
	hub   *Hub
	start time.Time
}

// NewServer builds the server and its websocket hub.
func NewServer(deps Deps) *Server {
	return &Server{deps: deps, hub: NewHub(), start: time.Now()}
}

// Hub exposes the websocket hub for broadcast loops.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) respond(w http.ResponseWriter, r *http.Request, code int, payload any) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(payload)
	if s.deps.Metrics != nil {
		s.deps.Metrics.APIRequests.WithLabelValues(r.URL.Path, strconv.Itoa(code)).Inc()
	}
}

func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, code int, err error) {
	log.Printf("[api] %s %s: %v", r.Method, r.URL.Path, err)
	s.respond(w, r, code, map[string]string{"error": err.Error()})
}

// preflight answers CORS preflight requests. Returns true when the request
// was an OPTIONS probe and has been handled.
func preflight(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodOptions {
		return false
	}
	SetCORS(w)
	w.WriteHeader(http.StatusNoContent)
	return true
}

// symbolsParam returns the requested symbols, falling back to the
// configured focus list.
func (s *Server) symbolsParam(r *http.Request) []string {
	raw := r.URL.Query().Get("symbols")
	if raw == "" {
		return s.deps.FocusSymbols
	}
	var out []string
	for _, sym := range strings.Split(raw, ",") {
		sym = strings.TrimSpace(strings.ToUpper(sym))
		if sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/login/callback", s.handleLoginCallback)
	mux.HandleFunc("/api/logout", s.handleLogout)
	mux.HandleFunc("/api/session", s.handleSession)

	mux.HandleFunc("/api/quotes", s.handleQuotes)
	mux.HandleFunc("/api/scan", s.handleScan)
	mux.HandleFunc("/api/indices", s.handleIndices)
	mux.HandleFunc("/api/analysis", s.handleAnalysis)
	mux.HandleFunc("/api/export/scan.csv", s.handleScanCSV)

	mux.HandleFunc("/api/market/status", s.handleMarketStatus)
	mux.HandleFunc("/api/universe/refresh", s.handleUniverseRefresh)
	mux.HandleFunc("/api/universe/status", s.handleUniverseStatus)

	mux.HandleFunc("/api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("/api/cache/clear", s.handleCacheClear)

	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
}

// ---- Session ----

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"login_url": s.deps.Kite.LoginURL()}
	if s.deps.TOTPSecret != "" {
		if code, err := session.TOTPCode(s.deps.TOTPSecret); err == nil {
			resp["totp"] = code
		} else {
			log.Printf("[api] totp generation failed: %v", err)
		}
	}
	s.respond(w, r, http.StatusOK, resp)
}

func (s *Server) handleLoginCallback(w http.ResponseWriter, r *http.Request) {
	requestToken := r.URL.Query().Get("request_token")
	if requestToken == "" {
		s.respondErr(w, r, http.StatusBadRequest, errors.New("missing request_token"))
		return
	}

	sess, err := s.deps.Kite.GenerateSession(r.Context(), requestToken)
	if err != nil {
		s.respondErr(w, r, http.StatusBadGateway, err)
		return
	}

	if err := s.deps.Sessions.Save(session.State{
		UserID:      sess.UserID,
		UserName:    sess.UserName,
		AccessToken: sess.AccessToken,
		PublicToken: sess.PublicToken,
		LoginTime:   sess.LoginTime,
	}); err != nil {
		log.Printf("[api] session persist failed: %v", err)
	}

	s.deps.Health.SetSessionActive(true)
	if s.deps.Metrics != nil {
		s.deps.Metrics.SessionActive.Set(1)
	}
	log.Printf("[api] session established for %s", sess.UserID)

	s.respond(w, r, http.StatusOK, map[string]string{
		"status":  "ok",
		"user_id": sess.UserID,
		"user":    sess.UserName,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		s.respondErr(w, r, http.StatusMethodNotAllowed, errors.New("POST required"))
		return
	}

	if err := s.deps.Kite.InvalidateSession(r.Context()); err != nil {
		log.Printf("[api] broker logout failed: %v", err)
	}
	if err := s.deps.Sessions.Clear(); err != nil {
		log.Printf("[api] session file clear failed: %v", err)
	}
	s.deps.Health.SetSessionActive(false)
	if s.deps.Metrics != nil {
		s.deps.Metrics.SessionActive.Set(0)
	}
	s.respond(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.deps.Kite.AccessToken() == "" {
		s.respond(w, r, http.StatusOK, map[string]any{"active": false})
		return
	}
	profile, err := s.deps.Kite.GetProfile(r.Context())
	if err != nil {
		if kiteconnect.IsTokenException(err) {
			s.respond(w, r, http.StatusOK, map[string]any{"active": false, "reason": "token expired"})
			return
		}
		s.respondErr(w, r, http.StatusBadGateway, err)
		return
	}
	s.respond(w, r, http.StatusOK, map[string]any{
		"active":  true,
		"user_id": profile.UserID,
		"user":    profile.UserName,
		"broker":  profile.Broker,
	})
}

// ---- Market data ----

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	symbols := s.symbolsParam(r)
	if len(symbols) == 0 {
		s.respondErr(w, r, http.StatusBadRequest, errors.New("no symbols requested or configured"))
		return
	}
	quotes, err := s.deps.Fetcher.Quotes(r.Context(), symbols)
	if err != nil {
		s.respondErr(w, r, http.StatusBadGateway, err)
		return
	}
	s.deps.Health.SetLastFetchTime(time.Now())
	s.respond(w, r, http.StatusOK, quotes)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	result, err := s.runScan(r)
	if err != nil {
		s.respondErr(w, r, http.StatusBadGateway, err)
		return
	}

	if top := r.URL.Query().Get("top"); top != "" {
		n, err := strconv.Atoi(top)
		if err != nil || n < 1 {
			s.respondErr(w, r, http.StatusBadRequest, errors.New("invalid top"))
			return
		}
		result.Gainers = truncate(result.Gainers, n)
		result.Losers = truncate(result.Losers, n)
		result.VolumeLeaders = truncate(result.VolumeLeaders, n)
	}

	switch view := r.URL.Query().Get("view"); view {
	case "", "all":
		s.respond(w, r, http.StatusOK, result)
	case "gainers":
		s.respond(w, r, http.StatusOK, map[string]any{"rows": result.Gainers, "summary": result.Summary})
	case "losers":
		s.respond(w, r, http.StatusOK, map[string]any{"rows": result.Losers, "summary": result.Summary})
	case "volume":
		s.respond(w, r, http.StatusOK, map[string]any{"rows": result.VolumeLeaders, "summary": result.Summary})
	default:
		s.respondErr(w, r, http.StatusBadRequest, fmt.Errorf("unknown view %q", view))
	}
}

func truncate(rows []marketdata.ScanRow, n int) []marketdata.ScanRow {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}

func (s *Server) runScan(r *http.Request) (marketdata.ScanResult, error) {
	symbols := s.symbolsParam(r)
	if len(symbols) == 0 {
		return marketdata.ScanResult{}, errors.New("no symbols requested or configured")
	}
	return s.scan(r.Context(), symbols)
}

func (s *Server) scan(ctx context.Context, symbols []string) (marketdata.ScanResult, error) {
	start := time.Now()
	quotes, err := s.deps.Fetcher.Quotes(ctx, symbols)
	if err != nil {
		return marketdata.ScanResult{}, err
	}
	result := marketdata.Scan(quotes, s.deps.MinVolume)
	if s.deps.Metrics != nil {
		s.deps.Metrics.ScanDur.Observe(time.Since(start).Seconds())
	}
	s.deps.Health.SetLastFetchTime(time.Now())
	return result, nil
}

func (s *Server) handleIndices(w http.ResponseWriter, r *http.Request) {
	snapshots, at, err := s.deps.Fetcher.Indices(r.Context())
	if err != nil {
		s.respondErr(w, r, http.StatusBadGateway, err)
		return
	}
	s.respond(w, r, http.StatusOK, map[string]any{"indices": snapshots, "as_of": at})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(strings.ToUpper(r.URL.Query().Get("symbol")))
	if symbol == "" {
		s.respondErr(w, r, http.StatusBadRequest, errors.New("missing symbol"))
		return
	}

	benchmark := r.URL.Query().Get("benchmark")
	rsPeriod := 0
	if raw := r.URL.Query().Get("rs_period"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 2 {
			s.respondErr(w, r, http.StatusBadRequest, errors.New("invalid rs_period"))
			return
		}
		rsPeriod = n
	}

	var rep analysis.Report
	if benchmark != "" || rsPeriod != 0 {
		if benchmark == "" {
			benchmark = s.deps.Analysis.Benchmark()
		}
		if rsPeriod == 0 {
			rsPeriod = s.deps.Analysis.RSPeriod()
		}
		rep = s.deps.Analysis.AnalyzeWith(r.Context(), symbol, benchmark, rsPeriod)
	} else {
		rep = s.deps.Analysis.Analyze(r.Context(), symbol)
	}
	s.journalDecision(r, rep)
	s.respond(w, r, http.StatusOK, rep)
}

// journalDecision records the call in Redis, best effort.
func (s *Server) journalDecision(r *http.Request, rep analysis.Report) {
	if s.deps.Journal == nil {
		return
	}
	err := s.deps.Journal.Append(r.Context(), redisstore.Record{
		Symbol:     rep.Symbol,
		Label:      string(rep.Decision.Label),
		Confidence: string(rep.Decision.Confidence),
		Score:      rep.Decision.Score,
		Rationale:  rep.Decision.Rationale,
		Price:      rep.CurrentPrice,
		At:         rep.GeneratedAt,
	})
	if err != nil {
		log.Printf("[api] decision journal failed for %s: %v", rep.Symbol, err)
	}
}

// ---- Calendar, universe, cache ----

func (s *Server) handleMarketStatus(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, markethours.StatusAt(time.Now()))
}

func (s *Server) handleUniverseRefresh(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		s.respondErr(w, r, http.StatusMethodNotAllowed, errors.New("POST required"))
		return
	}

	instruments, err := s.deps.Kite.GetInstruments(r.Context(), s.deps.Exchange)
	if err != nil {
		s.respondErr(w, r, http.StatusBadGateway, err)
		return
	}
	if err := s.deps.Universe.Replace(r.Context(), s.deps.Exchange, instruments); err != nil {
		s.respondErr(w, r, http.StatusInternalServerError, err)
		return
	}

	count, _ := s.deps.Universe.Count(r.Context(), s.deps.Exchange)
	s.respond(w, r, http.StatusOK, map[string]any{"status": "ok", "instruments": count})
}

func (s *Server) handleUniverseStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.deps.Universe.Count(r.Context(), s.deps.Exchange)
	if err != nil {
		s.respondErr(w, r, http.StatusInternalServerError, err)
		return
	}
	refreshed, _ := s.deps.Universe.RefreshedAt(r.Context(), s.deps.Exchange)

	resp := map[string]any{"exchange": s.deps.Exchange, "instruments": count}
	if !refreshed.IsZero() {
		resp["refreshed_at"] = refreshed.Format(time.RFC3339)
	}
	s.respond(w, r, http.StatusOK, resp)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, s.deps.Fetcher.CacheStats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		s.respondErr(w, r, http.StatusMethodNotAllowed, errors.New("POST required"))
		return
	}
	s.deps.Fetcher.InvalidateCache()
	log.Printf("[api] cache cleared by request")
	s.respond(w, r, http.StatusOK, map[string]string{"status": "cleared"})
}

// ---- Health ----

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, map[string]any{
		"status":     "ok",
		"session":    s.deps.Kite.AccessToken() != "",
		"ws_clients": s.hub.ClientCount(),
		"market":     markethours.PhaseAt(time.Now()),
		"uptime_sec": int64(time.Since(s.start).Seconds()),
		"ts":         time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// ---- CSV export ----

func (s *Server) handleScanCSV(w http.ResponseWriter, r *http.Request) {
	result, err := s.runScan(r)
	if err != nil {
		s.respondErr(w, r, http.StatusBadGateway, err)
		return
	}

	SetCORS(w)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="scan-%s.csv"`, time.Now().In(markethours.IST).Format("20060102-1504")))
	if err := WriteScanCSV(w, result); err != nil {
		log.Printf("[api] csv export failed: %v", err)
	}
}
