// Package marketdata fetches quotes and bar series from the broker API,
// fronted by a TTL cache and a bounded concurrent batch fetcher.
package marketdata

import (
	"context"
	"fmt"
	"time"

	"premarketdash/internal/model"
	"premarketdash/pkg/kiteconnect"
)

// Bar intervals, matching the upstream API's naming.
const (
	IntervalDay   = "day"
	Interval30Min = "30minute"
	Interval15Min = "15minute"
	Interval5Min  = "5minute"
)

// LookbackFor returns how much history an interval needs for the full
// indicator set.
func LookbackFor(interval string) time.Duration {
	switch interval {
	case IntervalDay:
		return 365 * 24 * time.Hour
	case Interval30Min:
		return 30 * 24 * time.Hour
	case Interval15Min:
		return 15 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// Source supplies market data. The production implementation wraps the Kite
// API; tests substitute fakes.
type Source interface {
	Quotes(ctx context.Context, symbols []string) (map[string]model.Quote, error)
	Historical(ctx context.Context, symbol, interval string, from, to time.Time) (model.Series, error)
}

// TokenResolver maps a tradingsymbol to its instrument token.
type TokenResolver interface {
	Token(ctx context.Context, exchange, symbol string) (int, error)
}

// KiteSource is the production Source backed by the Kite Connect API.
type KiteSource struct {
	client   *kiteconnect.Client
	tokens   TokenResolver
	exchange string
}

// NewKiteSource wires the API client to a token resolver for one exchange.
func NewKiteSource(client *kiteconnect.Client, tokens TokenResolver, exchange string) *KiteSource {
	return &KiteSource{client: client, tokens: tokens, exchange: exchange}
}

// Quotes fetches live quotes for the symbols, keyed by bare symbol.
func (k *KiteSource) Quotes(ctx context.Context, symbols []string) (map[string]model.Quote, error) {
	instruments := make([]string, len(symbols))
	for i, s := range symbols {
		instruments[i] = k.exchange + ":" + s
	}

	raw, err := k.client.GetQuote(ctx, instruments...)
	if err != nil {
		return nil, fmt.Errorf("quotes: %w", err)
	}

	out := make(map[string]model.Quote, len(raw))
	now := time.Now()
	for i, s := range symbols {
		q, ok := raw[instruments[i]]
		if !ok {
			continue
		}
		out[s] = model.Quote{
			Symbol:    s,
			LastPrice: model.Paise(q.LastPrice),
			Open:      model.Paise(q.OHLC.Open),
			High:      model.Paise(q.OHLC.High),
			Low:       model.Paise(q.OHLC.Low),
			PrevClose: model.Paise(q.OHLC.Close),
			Volume:    q.Volume,
			TS:        now,
		}
	}
	return out, nil
}

// Historical fetches bars for [from, to], normalized ascending.
func (k *KiteSource) Historical(ctx context.Context, symbol, interval string, from, to time.Time) (model.Series, error) {
	token, err := k.tokens.Token(ctx, k.exchange, symbol)
	if err != nil {
		return nil, err
	}

	candles, err := k.client.GetHistorical(ctx, token, interval, from, to)
	if err != nil {
		return nil, fmt.Errorf("historical %s %s: %w", symbol, interval, err)
	}

	series := make(model.Series, len(candles))
	for i, c := range candles {
		series[i] = model.Bar{
			TS:     c.TS,
			Open:   model.Paise(c.Open),
			High:   model.Paise(c.High),
			Low:    model.Paise(c.Low),
			Close:  model.Paise(c.Close),
			Volume: c.Volume,
		}
	}
	return series.Normalize(), nil
}
