// Package indicator provides technical indicator calculations over OHLCV
// series. Every function takes an ordered price slice (oldest first, rupees)
// and returns a typed result with a Valid flag instead of a NaN sentinel:
// a series shorter than the indicator's minimum window yields Valid=false,
// never an error and never a numeric value.
package indicator

import "math"

// Value is a possibly-unavailable scalar indicator result.
type Value struct {
	V     float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// value wraps a float, marking NaN as unavailable.
func value(v float64) Value {
	if math.IsNaN(v) {
		return Value{}
	}
	return Value{V: v, Valid: true}
}

// sma returns the simple mean of the trailing period values.
// The caller guarantees len(xs) >= period >= 1.
func sma(xs []float64, period int) float64 {
	sum := 0.0
	for _, x := range xs[len(xs)-period:] {
		sum += x
	}
	return sum / float64(period)
}

// stdev returns the population standard deviation of the trailing period
// values (ddof=0, matching the Bollinger middle-band convention).
func stdev(xs []float64, period int) float64 {
	window := xs[len(xs)-period:]
	mean := sma(xs, period)
	sq := 0.0
	for _, x := range window {
		d := x - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(period))
}

// emaSeries computes an exponential moving average seeded with the SMA of
// the first period values. Positions before the seed are NaN.
func emaSeries(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(xs) < period {
		return out
	}

	seed := 0.0
	for _, x := range xs[:period] {
		seed += x
	}
	seed /= float64(period)
	out[period-1] = seed

	mult := 2.0 / float64(period+1)
	for i := period; i < len(xs); i++ {
		out[i] = xs[i]*mult + out[i-1]*(1-mult)
	}
	return out
}

// rollingMean computes a simple moving average series. A window that is
// incomplete or contains NaN inputs yields NaN at that position.
func rollingMean(xs []float64, period int) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		out[i] = math.NaN()
		if i+1 < period {
			continue
		}
		sum := 0.0
		ok := true
		for _, x := range xs[i+1-period : i+1] {
			if math.IsNaN(x) {
				ok = false
				break
			}
			sum += x
		}
		if ok {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// rocSeries computes an n-bar rate of change in percent:
// (close[i]/close[i-n] - 1) * 100. The first n positions are NaN.
func rocSeries(closes []float64, n int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
		if i >= n && closes[i-n] != 0 {
			out[i] = (closes[i]/closes[i-n] - 1) * 100
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
