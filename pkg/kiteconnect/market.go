package kiteconnect

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Quote is the full market quote for one instrument.
type Quote struct {
	InstrumentToken int     `json:"instrument_token"`
	LastPrice       float64 `json:"last_price"`
	Volume          int64   `json:"volume"`
	OHLC            struct {
		Open  float64 `json:"open"`
		High  float64 `json:"high"`
		Low   float64 `json:"low"`
		Close float64 `json:"close"` // previous session close
	} `json:"ohlc"`
}

// GetQuote fetches quotes for instruments named "EXCHANGE:SYMBOL"
// (e.g. "NSE:RELIANCE"). Unknown instruments are simply absent from the map.
func (c *Client) GetQuote(ctx context.Context, instruments ...string) (map[string]Quote, error) {
	q := url.Values{}
	for _, ins := range instruments {
		q.Add("i", ins)
	}
	var out map[string]Quote
	if err := c.doJSON(ctx, http.MethodGet, routes["market.quote"], nil, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Candle is one historical OHLCV bar, prices in rupees.
type Candle struct {
	TS     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// kiteTimeLayout is the timestamp format inside candle arrays.
const kiteTimeLayout = "2006-01-02T15:04:05-0700"

// UnmarshalJSON decodes the positional candle array
// [timestamp, open, high, low, close, volume].
func (cd *Candle) UnmarshalJSON(b []byte) error {
	var row []json.RawMessage
	if err := json.Unmarshal(b, &row); err != nil {
		return err
	}
	if len(row) < 6 {
		return fmt.Errorf("kiteconnect: candle row has %d fields, want 6", len(row))
	}

	var ts string
	if err := json.Unmarshal(row[0], &ts); err != nil {
		return fmt.Errorf("kiteconnect: candle timestamp: %w", err)
	}
	t, err := time.Parse(kiteTimeLayout, ts)
	if err != nil {
		return fmt.Errorf("kiteconnect: candle timestamp %q: %w", ts, err)
	}
	cd.TS = t

	nums := []*float64{&cd.Open, &cd.High, &cd.Low, &cd.Close}
	for i, dst := range nums {
		if err := json.Unmarshal(row[i+1], dst); err != nil {
			return fmt.Errorf("kiteconnect: candle field %d: %w", i+1, err)
		}
	}
	var vol float64
	if err := json.Unmarshal(row[5], &vol); err != nil {
		return fmt.Errorf("kiteconnect: candle volume: %w", err)
	}
	cd.Volume = int64(vol)
	return nil
}

// GetHistorical fetches candles for an instrument token over [from, to].
// Interval is a Kite interval string: "day", "30minute", "15minute",
// "5minute", "minute".
func (c *Client) GetHistorical(ctx context.Context, token int, interval string, from, to time.Time) ([]Candle, error) {
	path := fmt.Sprintf(routes["market.hist"], token, interval)

	q := url.Values{}
	q.Set("from", from.Format("2006-01-02 15:04:05"))
	q.Set("to", to.Format("2006-01-02 15:04:05"))

	var out struct {
		Candles []Candle `json:"candles"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, q, &out); err != nil {
		return nil, err
	}
	return out.Candles, nil
}

// Instrument is one row of the exchange instrument dump.
type Instrument struct {
	InstrumentToken int
	ExchangeToken   int
	Tradingsymbol   string
	Name            string
	Segment         string
	Exchange        string
	InstrumentType  string
	LotSize         int
}

// GetInstruments downloads and parses the CSV instrument dump for an
// exchange ("NSE", "BSE", "NFO", ...). The dump is large; callers are
// expected to persist it rather than refetch per lookup.
func (c *Client) GetInstruments(ctx context.Context, exchange string) ([]Instrument, error) {
	path := fmt.Sprintf(routes["instruments"], exchange)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.rootURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header = c.headers()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kiteconnect: instruments %s: %w", exchange, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &Error{Code: resp.StatusCode, ErrorType: "DataException", Message: string(raw)}
	}

	return parseInstrumentsCSV(resp.Body)
}

func parseInstrumentsCSV(r io.Reader) ([]Instrument, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("kiteconnect: instrument csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"instrument_token", "tradingsymbol", "exchange"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("kiteconnect: instrument csv missing column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var out []Instrument
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("kiteconnect: instrument csv: %w", err)
		}

		token, err := strconv.Atoi(field(row, "instrument_token"))
		if err != nil {
			continue // malformed row, skip
		}
		exToken, _ := strconv.Atoi(field(row, "exchange_token"))
		lot, _ := strconv.Atoi(field(row, "lot_size"))

		out = append(out, Instrument{
			InstrumentToken: token,
			ExchangeToken:   exToken,
			Tradingsymbol:   field(row, "tradingsymbol"),
			Name:            field(row, "name"),
			Segment:         field(row, "segment"),
			Exchange:        field(row, "exchange"),
			InstrumentType:  field(row, "instrument_type"),
			LotSize:         lot,
		})
	}
	return out, nil
}
