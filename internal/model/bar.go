package model

import (
	"sort"
	"time"
)

// Bar represents one OHLCV bar for a single instrument.
// All prices are in paise (int64) to avoid floating-point drift.
type Bar struct {
	TS     time.Time `json:"ts"`     // bar start time, ascending within a series
	Open   int64     `json:"open"`   // paise
	High   int64     `json:"high"`   // paise
	Low    int64     `json:"low"`    // paise
	Close  int64     `json:"close"`  // paise
	Volume int64     `json:"volume"` // traded quantity
}

// Rupees converts a paise amount to rupees.
func Rupees(paise int64) float64 { return float64(paise) / 100.0 }

// Paise converts a rupee price to paise, rounding to the nearest paisa.
func Paise(rupees float64) int64 {
	if rupees < 0 {
		return int64(rupees*100 - 0.5)
	}
	return int64(rupees*100 + 0.5)
}

// Series is an ordered sequence of bars for one symbol, ascending by TS
// with no duplicate timestamps. Normalize enforces the invariant on data
// coming back from the broker.
type Series []Bar

// Normalize sorts the series by timestamp and drops duplicate timestamps,
// keeping the last bar seen for each. Returns the cleaned series.
func (s Series) Normalize() Series {
	if len(s) < 2 {
		return s
	}
	sorted := make(Series, len(s))
	copy(sorted, s)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TS.Before(sorted[j].TS) })

	out := sorted[:1]
	for _, b := range sorted[1:] {
		if b.TS.Equal(out[len(out)-1].TS) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// Last returns the most recent bar. ok is false for an empty series.
func (s Series) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// Closes returns close prices in rupees, oldest first.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = Rupees(b.Close)
	}
	return out
}

// Highs returns high prices in rupees, oldest first.
func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = Rupees(b.High)
	}
	return out
}

// Lows returns low prices in rupees, oldest first.
func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = Rupees(b.Low)
	}
	return out
}

// Tail returns the trailing n bars (the whole series when shorter).
func (s Series) Tail(n int) Series {
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}
