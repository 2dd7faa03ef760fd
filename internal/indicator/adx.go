package indicator

import "math"

// DefaultADXPeriod is the conventional ADX lookback.
const DefaultADXPeriod = 14

// ADX computes the Average Directional Index from true range and directional
// movement, all Wilder-smoothed. Needs at least 2*period+1 bars: period
// deltas to seed the smoothed TR/DM sums, then period DX values to seed ADX.
// highs, lows and closes must be the same length.
func ADX(highs, lows, closes []float64, period int) Value {
	n := len(closes)
	if period < 1 || len(highs) != n || len(lows) != n || n < 2*period+1 {
		return Value{}
	}

	// Wilder-smoothed running sums, seeded over the first period deltas.
	smTR, smPlusDM, smMinusDM := 0.0, 0.0, 0.0
	p := float64(period)

	tr := func(i int) float64 {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		return math.Max(hl, math.Max(hc, lc))
	}
	dm := func(i int) (plus, minus float64) {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plus = up
		}
		if down > up && down > 0 {
			minus = down
		}
		return plus, minus
	}

	for i := 1; i <= period; i++ {
		plus, minus := dm(i)
		smTR += tr(i)
		smPlusDM += plus
		smMinusDM += minus
	}

	dx := func() float64 {
		if smTR == 0 {
			return 0
		}
		plusDI := 100 * smPlusDM / smTR
		minusDI := 100 * smMinusDM / smTR
		if plusDI+minusDI == 0 {
			return 0
		}
		return 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}

	// Accumulate the first period DX values for the ADX seed, then switch
	// to Wilder recursion.
	adx := dx()
	count := 1
	for i := period + 1; i < n; i++ {
		plus, minus := dm(i)
		smTR = smTR - smTR/p + tr(i)
		smPlusDM = smPlusDM - smPlusDM/p + plus
		smMinusDM = smMinusDM - smMinusDM/p + minus

		d := dx()
		if count < period {
			adx += d
			count++
			if count == period {
				adx /= p
			}
			continue
		}
		adx = (adx*(p-1) + d) / p
	}

	if count < period {
		return Value{}
	}
	return Value{V: adx, Valid: true}
}
