package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"premarketdash/internal/cache"
	"premarketdash/internal/decision"
	"premarketdash/internal/indicator"
	"premarketdash/internal/marketdata"
	"premarketdash/internal/model"
)

// fakeSource serves deterministic series: a steady uptrend for stocks, a
// flat line for the benchmark. Symbols listed in fail error out.
type fakeSource struct {
	fail map[string]bool
}

func (f *fakeSource) Quotes(ctx context.Context, symbols []string) (map[string]model.Quote, error) {
	return map[string]model.Quote{}, nil
}

func (f *fakeSource) Historical(ctx context.Context, symbol, interval string, from, to time.Time) (model.Series, error) {
	if f.fail[symbol] {
		return nil, errors.New("upstream unavailable")
	}

	n := 200
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 24 * time.Hour
	if interval != marketdata.IntervalDay {
		step = 30 * time.Minute
	}

	series := make(model.Series, n)
	price := 1000.0
	for i := 0; i < n; i++ {
		if symbol != "NIFTY 50" {
			price *= 1.01 // steady 1%-per-bar uptrend
		}
		series[i] = model.Bar{
			TS:     base.Add(time.Duration(i) * step),
			Open:   model.Paise(price * 0.995),
			High:   model.Paise(price * 1.005),
			Low:    model.Paise(price * 0.99),
			Close:  model.Paise(price),
			Volume: 100000,
		}
	}
	return series, nil
}

func newTestService(src marketdata.Source) *Service {
	fetch := marketdata.NewFetcher(src, cache.New(time.Minute), nil, time.Second, 4)
	return New(fetch, nil, "NSE", "NIFTY 50", 55)
}

func TestAnalyzeUptrend(t *testing.T) {
	svc := newTestService(&fakeSource{})
	rep := svc.Analyze(context.Background(), "RELIANCE")

	if len(rep.Timeframes) != 4 {
		t.Errorf("timeframes: got %d, want 4 (%v)", len(rep.Timeframes), rep.Errors)
	}

	daily := rep.Timeframes[marketdata.IntervalDay]
	if !daily.RSI.Valid || daily.RSI.V <= 70 {
		t.Errorf("relentless uptrend must read overbought: RSI %+v", daily.RSI)
	}
	if !daily.RelStrength.Valid || daily.RelStrength.Outperformance != "Outperforming" {
		t.Errorf("uptrend vs flat benchmark must outperform: %+v", daily.RelStrength)
	}
	if rep.CurrentPrice <= 0 {
		t.Errorf("current price: %f", rep.CurrentPrice)
	}
	if !strings.Contains(rep.ChartURL, "NSE%3ARELIANCE") {
		t.Errorf("chart URL: %s", rep.ChartURL)
	}
	if rep.Decision.Label == decision.Buy {
		// Overbought RSI (−2) plus overbought intraday confirmation make a
		// buy call impossible here regardless of the trend votes.
		t.Errorf("overbought uptrend must not be a BUY: %+v", rep.Decision)
	}
	if rep.Summary == "" {
		t.Error("empty summary")
	}
}

func TestAnalyzeDailyFetchFailure(t *testing.T) {
	svc := newTestService(&fakeSource{fail: map[string]bool{"DARKSYM": true}})
	rep := svc.Analyze(context.Background(), "DARKSYM")

	d := rep.Decision
	if d.Label != decision.Hold || d.Confidence != decision.Low || d.Score != 0 {
		t.Errorf("decision on dark symbol: %+v", d)
	}
	if d.Rationale != decision.InsufficientData {
		t.Errorf("rationale: got %q", d.Rationale)
	}
	if _, ok := rep.Errors[marketdata.IntervalDay]; !ok {
		t.Errorf("daily failure not recorded: %v", rep.Errors)
	}
}

func TestAnalyzeBenchmarkFailureDegradesOnlyRelStrength(t *testing.T) {
	svc := newTestService(&fakeSource{fail: map[string]bool{"NIFTY 50": true}})
	rep := svc.Analyze(context.Background(), "TCS")

	daily := rep.Timeframes[marketdata.IntervalDay]
	if daily.RelStrength.Valid {
		t.Error("relative strength must be unavailable without a benchmark")
	}
	if !daily.RSI.Valid || !daily.MACD.Valid {
		t.Errorf("other indicators must survive a benchmark failure: %+v", daily)
	}
	if rep.Decision.Rationale == decision.InsufficientData {
		t.Error("decision must still be computed from the remaining indicators")
	}
}

func TestAnalyzeWithBenchmarkOverride(t *testing.T) {
	// TCS and the override benchmark share the same uptrend, so relative
	// strength lands at zero and reads underperforming.
	svc := newTestService(&fakeSource{})
	rep := svc.AnalyzeWith(context.Background(), "TCS", "HDFCBANK", 20)

	rs := rep.Timeframes[marketdata.IntervalDay].RelStrength
	if !rs.Valid {
		t.Fatalf("relative strength invalid: %+v", rs)
	}
	if rs.Value > 0.001 || rs.Value < -0.001 {
		t.Errorf("identical trends must cancel: rs %.4f", rs.Value)
	}
	if rs.Outperformance != indicator.Underperforming {
		t.Errorf("outperformance: %s", rs.Outperformance)
	}
}

func TestAnalyzeBatch(t *testing.T) {
	svc := newTestService(&fakeSource{})
	reports := svc.AnalyzeBatch(context.Background(), []string{"A", "B", "C"})

	if len(reports) != 3 {
		t.Fatalf("got %d reports, want 3", len(reports))
	}
	for i, want := range []string{"A", "B", "C"} {
		if reports[i].Symbol != want {
			t.Errorf("report %d: got %s, want %s", i, reports[i].Symbol, want)
		}
	}
}
