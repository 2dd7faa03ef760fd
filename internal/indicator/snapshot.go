package indicator

import (
	"premarketdash/internal/model"
)

// Snapshot bundles every indicator result for one symbol and timeframe.
// Unavailable indicators carry Valid=false and are skipped downstream; a
// snapshot derived from an empty series has Bars == 0 and nothing valid.
type Snapshot struct {
	RSI         Value             `json:"rsi"`
	ADX         Value             `json:"adx"`
	MACD        MACDResult        `json:"macd"`
	Bollinger   BollingerResult   `json:"bollinger_bands"`
	Levels      LevelsResult      `json:"support_resistance"`
	KST         KSTResult         `json:"kst"`
	RelStrength RelStrengthResult `json:"relative_strength"`

	Close float64 `json:"close"` // last close, rupees; 0 when Bars == 0
	Bars  int     `json:"bars"`
}

// ComputeRSIOnly builds a snapshot carrying just RSI, for secondary
// timeframes that only corroborate the daily read.
func ComputeRSIOnly(s model.Series) Snapshot {
	snap := Snapshot{Bars: len(s)}
	if last, ok := s.Last(); ok {
		snap.Close = model.Rupees(last.Close)
	}
	snap.RSI = RSI(s.Closes(), DefaultRSIPeriod)
	return snap
}

// Compute builds the full snapshot for a primary (daily) timeframe. Relative
// strength needs a benchmark series and is filled separately via
// WithRelStrength since it depends on a second fetch.
func Compute(s model.Series) Snapshot {
	snap := ComputeRSIOnly(s)

	closes := s.Closes()
	highs := s.Highs()
	lows := s.Lows()

	snap.ADX = ADX(highs, lows, closes, DefaultADXPeriod)
	snap.MACD = ComputeMACD(closes)
	snap.Bollinger = Bollinger(closes, DefaultBollingerPeriod)
	snap.Levels = SupportResistance(highs, lows, DefaultLevelsPeriod)
	snap.KST = ComputeKST(closes)
	return snap
}

// WithRelStrength returns a copy of the snapshot with relative strength
// computed against the benchmark series.
func (s Snapshot) WithRelStrength(stock, benchmark model.Series, period int) Snapshot {
	s.RelStrength = RelativeStrength(stock, benchmark, period)
	return s
}

// HasAny reports whether at least one indicator in the snapshot is usable.
func (s Snapshot) HasAny() bool {
	return s.RSI.Valid || s.ADX.Valid || s.MACD.Valid || s.Bollinger.Valid ||
		s.Levels.Valid || s.KST.Valid || s.RelStrength.Valid
}
