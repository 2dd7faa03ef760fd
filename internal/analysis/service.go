// Package analysis runs the multi-timeframe indicator pass for one symbol
// and produces the dashboard's decision payload.
package analysis

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"premarketdash/internal/decision"
	"premarketdash/internal/indicator"
	"premarketdash/internal/marketdata"
	"premarketdash/internal/metrics"
)

// Report is the full analysis payload for one symbol.
type Report struct {
	Symbol       string                         `json:"symbol"`
	GeneratedAt  time.Time                      `json:"generated_at"`
	CurrentPrice float64                        `json:"current_price"` // rupees, 0 when daily fetch failed
	Timeframes   map[string]indicator.Snapshot  `json:"timeframes"`
	Decision     decision.Decision              `json:"decision"`
	Summary      string                         `json:"summary"`
	ChartURL     string                         `json:"chart_url"`
	Errors       map[string]string              `json:"errors,omitempty"` // per-timeframe fetch failures
}

// Service orchestrates fetch, indicator computation and the decision vote.
type Service struct {
	fetch     *marketdata.Fetcher
	met       *metrics.Metrics // nil disables instrumentation
	exchange  string
	benchmark string
	rsPeriod  int
}

// New builds the service. benchmark is the index symbol for relative
// strength (e.g. "NIFTY 50"); rsPeriod its trailing-return window in bars.
func New(fetch *marketdata.Fetcher, met *metrics.Metrics, exchange, benchmark string, rsPeriod int) *Service {
	return &Service{fetch: fetch, met: met, exchange: exchange, benchmark: benchmark, rsPeriod: rsPeriod}
}

// Benchmark returns the configured relative-strength benchmark symbol.
func (s *Service) Benchmark() string { return s.benchmark }

// RSPeriod returns the configured relative-strength window in bars.
func (s *Service) RSPeriod() int { return s.rsPeriod }

// Analyze runs the full pass for a symbol using the configured benchmark
// and relative-strength period.
func (s *Service) Analyze(ctx context.Context, symbol string) Report {
	return s.AnalyzeWith(ctx, symbol, s.benchmark, s.rsPeriod)
}

// AnalyzeWith runs the full pass with a per-call benchmark and period. The
// daily timeframe is the primary input; intraday timeframes corroborate.
// Fetch failures degrade the report (recorded in Errors) instead of failing
// it, so the decision engine's insufficient-data path handles a fully dark
// upstream.
func (s *Service) AnalyzeWith(ctx context.Context, symbol, benchmark string, rsPeriod int) Report {
	start := time.Now()

	rep := Report{
		Symbol:      symbol,
		GeneratedAt: start,
		Timeframes:  make(map[string]indicator.Snapshot, 4),
		Errors:      make(map[string]string),
		ChartURL:    chartURL(s.exchange, symbol),
	}

	// Primary timeframe: full indicator set plus relative strength.
	daily, err := s.fetch.Series(ctx, symbol, marketdata.IntervalDay)
	var dailySnap indicator.Snapshot
	if err != nil {
		rep.Errors[marketdata.IntervalDay] = err.Error()
		log.Printf("[analysis] %s: daily fetch failed: %v", symbol, err)
	} else {
		dailySnap = indicator.Compute(daily)
		if bench, berr := s.fetch.Series(ctx, benchmark, marketdata.IntervalDay); berr == nil {
			dailySnap = dailySnap.WithRelStrength(daily, bench, rsPeriod)
		} else {
			log.Printf("[analysis] %s: benchmark %s fetch failed: %v", symbol, benchmark, berr)
		}
		rep.CurrentPrice = dailySnap.Close
	}
	rep.Timeframes[marketdata.IntervalDay] = dailySnap

	// 30-minute: RSI for corroboration plus ADX for intraday trend read.
	var intradayRSI indicator.Value
	if s30, err := s.fetch.Series(ctx, symbol, marketdata.Interval30Min); err != nil {
		rep.Errors[marketdata.Interval30Min] = err.Error()
	} else {
		snap := indicator.ComputeRSIOnly(s30)
		snap.ADX = indicator.ADX(s30.Highs(), s30.Lows(), s30.Closes(), indicator.DefaultADXPeriod)
		rep.Timeframes[marketdata.Interval30Min] = snap
		intradayRSI = snap.RSI
	}

	// Short intraday timeframes: RSI only.
	for _, interval := range []string{marketdata.Interval15Min, marketdata.Interval5Min} {
		series, err := s.fetch.Series(ctx, symbol, interval)
		if err != nil {
			rep.Errors[interval] = err.Error()
			continue
		}
		rep.Timeframes[interval] = indicator.ComputeRSIOnly(series)
	}

	rep.Decision = decision.Evaluate(dailySnap, intradayRSI)
	rep.Summary = summarize(symbol, rep.Decision, dailySnap)
	if len(rep.Errors) == 0 {
		rep.Errors = nil
	}

	if s.met != nil {
		s.met.AnalysisDur.Observe(time.Since(start).Seconds())
		s.met.AnalysisTotal.Inc()
		s.met.DecisionsTotal.WithLabelValues(string(rep.Decision.Label)).Inc()
	}
	return rep
}

// AnalyzeBatch runs Analyze for each symbol sequentially. The per-symbol
// series fetches underneath already fan out through the cache, so the
// sequential loop mostly hits warm entries.
func (s *Service) AnalyzeBatch(ctx context.Context, symbols []string) []Report {
	// Warm the daily cache in one bounded burst first.
	s.fetch.BatchSeries(ctx, append([]string{s.benchmark}, symbols...), marketdata.IntervalDay)

	out := make([]Report, 0, len(symbols))
	for _, sym := range symbols {
		if ctx.Err() != nil {
			break
		}
		out = append(out, s.Analyze(ctx, sym))
	}
	return out
}

func summarize(symbol string, d decision.Decision, snap indicator.Snapshot) string {
	price := ""
	if snap.Close > 0 {
		price = fmt.Sprintf(" at ₹%.2f", snap.Close)
	}
	return fmt.Sprintf("%s: %s (%s confidence, score %+d)%s",
		symbol, d.Label, d.Confidence, d.Score, price)
}

func chartURL(exchange, symbol string) string {
	return "https://www.tradingview.com/chart/?symbol=" + url.QueryEscape(exchange+":"+symbol)
}
