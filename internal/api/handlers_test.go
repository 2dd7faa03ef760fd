package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"premarketdash/internal/analysis"
	"premarketdash/internal/cache"
	"premarketdash/internal/marketdata"
	"premarketdash/internal/metrics"
	"premarketdash/internal/model"
	"premarketdash/internal/session"
	"premarketdash/pkg/kiteconnect"
)

// fakeSource serves fixed quotes and a short uptrend series.
type fakeSource struct{}

func (fakeSource) Quotes(ctx context.Context, symbols []string) (map[string]model.Quote, error) {
	out := make(map[string]model.Quote, len(symbols))
	for i, sym := range symbols {
		out[sym] = model.Quote{
			Symbol:    sym,
			LastPrice: 10000 + int64(i)*100,
			PrevClose: 10000,
			Volume:    500000,
		}
	}
	return out, nil
}

func (fakeSource) Historical(ctx context.Context, symbol, interval string, from, to time.Time) (model.Series, error) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(model.Series, 150)
	price := 500.0
	for i := range series {
		price *= 1.005
		series[i] = model.Bar{
			TS:     base.Add(time.Duration(i) * 24 * time.Hour),
			Open:   model.Paise(price * 0.995),
			High:   model.Paise(price * 1.01),
			Low:    model.Paise(price * 0.99),
			Close:  model.Paise(price),
			Volume: 100000,
		}
	}
	return series, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	fetch := marketdata.NewFetcher(fakeSource{}, cache.New(time.Minute), nil, time.Second, 4)
	svc := analysis.New(fetch, nil, "NSE", "NIFTY 50", 55)
	kite := kiteconnect.New(kiteconnect.Config{APIKey: "testkey", APISecret: "testsecret"})
	sessions := session.NewStore(t.TempDir()+"/session.enc", "testsecret")

	return NewServer(Deps{
		Fetcher:      fetch,
		Analysis:     svc,
		Kite:         kite,
		Sessions:     sessions,
		Health:       metrics.NewHealthStatus(),
		Exchange:     "NSE",
		FocusSymbols: []string{"RELIANCE", "TCS", "INFY"},
		MinVolume:    75000,
	})
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestLoginReturnsURL(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/api/login")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	want := "https://kite.trade/connect/login?api_key=testkey&v=3"
	if resp["login_url"] != want {
		t.Errorf("login_url: got %s, want %s", resp["login_url"], want)
	}
}

func TestScanUsesFocusSymbols(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/api/scan")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header: %q", got)
	}

	var res marketdata.ScanResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Summary.Scanned != 3 {
		t.Errorf("scanned: got %d, want 3", res.Summary.Scanned)
	}
}

func TestScanCSVExport(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/api/export/scan.csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type: %s", ct)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if lines[0] != "symbol,last_price,change_pct,volume,volume_label" {
		t.Errorf("header row: %s", lines[0])
	}
	if len(lines) != 4 { // header + 3 focus symbols
		t.Errorf("got %d lines, want 4: %v", len(lines), lines)
	}
}

func TestScanViewFilter(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/scan?view=gainers&top=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var view struct {
		Rows []marketdata.ScanRow `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if len(view.Rows) > 1 {
		t.Errorf("top=1 returned %d rows", len(view.Rows))
	}

	if rec := doRequest(t, s, http.MethodGet, "/api/scan?view=bogus"); rec.Code != http.StatusBadRequest {
		t.Errorf("bogus view: got %d, want 400", rec.Code)
	}
}

func TestAnalysisRequiresSymbol(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/api/analysis")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestAnalysisEndpoint(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/api/analysis?symbol=reliance")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	var rep analysis.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Symbol != "RELIANCE" {
		t.Errorf("symbol not uppercased: %s", rep.Symbol)
	}
	if rep.Decision.Label == "" {
		t.Error("missing decision")
	}
}

func TestMarketStatus(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/api/market/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var status struct {
		Phase      string `json:"phase"`
		TradingDay bool   `json:"trading_day"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Phase == "" {
		t.Error("missing phase")
	}
}

func TestCacheClearRequiresPost(t *testing.T) {
	s := newTestServer(t)
	if rec := doRequest(t, s, http.MethodGet, "/api/cache/clear"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status: got %d, want 405", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodPost, "/api/cache/clear"); rec.Code != http.StatusOK {
		t.Errorf("POST status: got %d, want 200", rec.Code)
	}
}

func TestCacheStatsReflectFetches(t *testing.T) {
	s := newTestServer(t)
	doRequest(t, s, http.MethodGet, "/api/analysis?symbol=TCS")

	rec := doRequest(t, s, http.MethodGet, "/api/cache/stats")
	var stats cache.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Entries == 0 {
		t.Errorf("cache empty after analysis: %+v", stats)
	}
}

func TestSessionInactiveWithoutToken(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/api/session")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if active, _ := resp["active"].(bool); active {
		t.Error("session must read inactive before login")
	}
}

func TestHealthEndpoint(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("health payload: %v", resp)
	}
}
