package indicator

// DefaultRSIPeriod is the conventional RSI lookback.
const DefaultRSIPeriod = 14

// RSI computes the Relative Strength Index over close-to-close deltas using
// Wilder's smoothing: the first average gain/loss is a simple mean of the
// first period deltas, after which avg = (prev*(period-1) + cur) / period.
// Needs at least period+1 closes; the result is bounded in [0, 100].
func RSI(closes []float64, period int) Value {
	if period < 1 || len(closes) < period+1 {
		return Value{}
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	p := float64(period)
	avgGain /= p
	avgLoss /= p

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}

	if avgLoss == 0 {
		return Value{V: 100.0, Valid: true}
	}
	rs := avgGain / avgLoss
	return Value{V: 100.0 - 100.0/(1.0+rs), Valid: true}
}
