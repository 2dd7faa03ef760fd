package marketdata

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"premarketdash/internal/cache"
	"premarketdash/internal/metrics"
	"premarketdash/internal/model"
)

// Result is the per-symbol outcome of a batch fetch.
type Result struct {
	Symbol string
	Series model.Series
	Err    error
}

// Fetcher serves bar series through the cache, falling back to the source
// on miss. Batch fetches fan out over a bounded worker pool.
type Fetcher struct {
	src     Source
	cache   *cache.Store
	met     *metrics.Metrics // nil disables instrumentation
	timeout time.Duration
	workers int
}

// NewFetcher builds a fetcher. met may be nil.
func NewFetcher(src Source, store *cache.Store, met *metrics.Metrics, timeout time.Duration, workers int) *Fetcher {
	if workers < 1 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 7 * time.Second
	}
	return &Fetcher{src: src, cache: store, met: met, timeout: timeout, workers: workers}
}

// Series returns bars for the symbol at the interval, covering the
// interval's indicator lookback. Cached results are served as-is within the
// TTL; a miss costs one upstream call with its own timeout.
func (f *Fetcher) Series(ctx context.Context, symbol, interval string) (model.Series, error) {
	if s, ok := f.cache.Get(symbol, interval); ok {
		if f.met != nil {
			f.met.CacheHits.Inc()
		}
		return s, nil
	}
	if f.met != nil {
		f.met.CacheMisses.Inc()
	}

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	to := time.Now()
	from := to.Add(-LookbackFor(interval))

	start := time.Now()
	series, err := f.src.Historical(callCtx, symbol, interval, from, to)
	if f.met != nil {
		f.met.FetchDur.Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		f.met.FetchesTotal.WithLabelValues(interval, outcome).Inc()
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", symbol, interval, err)
	}

	f.cache.Put(symbol, interval, series)
	if f.met != nil {
		f.met.CacheEntries.Set(float64(f.cache.Stats().Entries))
	}
	return series, nil
}

// BatchSeries fetches every symbol at the interval concurrently, at most
// workers in flight. The batch never fails as a whole; each Result carries
// its own error. Order of results matches the input symbols.
func (f *Fetcher) BatchSeries(ctx context.Context, symbols []string, interval string) []Result {
	results := make([]Result, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			series, err := f.Series(gctx, sym, interval)
			results[i] = Result{Symbol: sym, Series: series, Err: err}
			return nil // per-symbol errors stay in the result
		})
	}
	g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		log.Printf("[marketdata] batch %s: %d/%d symbols failed", interval, failed, len(symbols))
	}
	return results
}

// Quotes proxies to the source with the fetch timeout applied.
func (f *Fetcher) Quotes(ctx context.Context, symbols []string) (map[string]model.Quote, error) {
	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	quotes, err := f.src.Quotes(callCtx, symbols)
	if f.met != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		f.met.FetchesTotal.WithLabelValues("quote", outcome).Inc()
	}
	return quotes, err
}

// InvalidateCache drops all cached series, forcing fresh fetches.
func (f *Fetcher) InvalidateCache() {
	f.cache.Clear()
	if f.met != nil {
		f.met.CacheEntries.Set(0)
	}
}

// CacheStats exposes cache effectiveness for the stats endpoint.
func (f *Fetcher) CacheStats() cache.Stats { return f.cache.Stats() }
