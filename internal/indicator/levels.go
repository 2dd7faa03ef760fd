package indicator

// DefaultLevelsPeriod is the trailing window for support/resistance.
const DefaultLevelsPeriod = 20

// LevelsResult holds basic support and resistance levels from recent extremes.
type LevelsResult struct {
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
	Valid      bool    `json:"valid"`
}

// SupportResistance takes support as the minimum low and resistance as the
// maximum high over the trailing period bars.
func SupportResistance(highs, lows []float64, period int) LevelsResult {
	if period < 1 || len(highs) < period || len(lows) < period {
		return LevelsResult{}
	}

	support := lows[len(lows)-period]
	for _, l := range lows[len(lows)-period:] {
		if l < support {
			support = l
		}
	}
	resistance := highs[len(highs)-period]
	for _, h := range highs[len(highs)-period:] {
		if h > resistance {
			resistance = h
		}
	}

	return LevelsResult{Support: support, Resistance: resistance, Valid: true}
}
