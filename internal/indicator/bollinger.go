package indicator

// DefaultBollingerPeriod is the conventional Bollinger lookback.
const DefaultBollingerPeriod = 20

// BollingerResult holds the band levels and the last close's position within
// them as a percentage. Position is deliberately NOT clamped to [0, 100]:
// a close outside the bands reads as <0 or >100 and signals a band breakout.
type BollingerResult struct {
	Upper    float64 `json:"upper"`
	Middle   float64 `json:"middle"`
	Lower    float64 `json:"lower"`
	Position float64 `json:"position"`
	Valid    bool    `json:"valid"`
}

// Bollinger computes 20-period bands: middle = SMA, upper/lower = middle ±
// 2 population standard deviations. Needs at least period closes.
func Bollinger(closes []float64, period int) BollingerResult {
	if period < 1 || len(closes) < period {
		return BollingerResult{}
	}

	middle := sma(closes, period)
	sd := stdev(closes, period)
	upper := middle + 2*sd
	lower := middle - 2*sd

	last := closes[len(closes)-1]
	position := 50.0 // degenerate flat window
	if upper != lower {
		position = (last - lower) / (upper - lower) * 100
	}

	return BollingerResult{
		Upper:    upper,
		Middle:   middle,
		Lower:    lower,
		Position: position,
		Valid:    true,
	}
}
