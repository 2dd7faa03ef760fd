package indicator

import "math"

// MACD periods: EMA(12) − EMA(26) with an EMA(9) signal line.
const (
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9

	// MinMACDBars: the slow EMA seeds at bar 26, the signal EMA needs 9
	// MACD-line values on top of that.
	MinMACDBars = MACDSlow + MACDSignal
)

// MACDResult holds the MACD line, its signal line and their difference.
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
	Valid     bool    `json:"valid"`
}

// ComputeMACD computes MACD over the close series. All three EMAs are seeded
// with a simple average, so the full result needs MinMACDBars closes.
func ComputeMACD(closes []float64) MACDResult {
	if len(closes) < MinMACDBars {
		return MACDResult{}
	}

	fast := emaSeries(closes, MACDFast)
	slow := emaSeries(closes, MACDSlow)

	line := make([]float64, 0, len(closes)-MACDSlow+1)
	for i := MACDSlow - 1; i < len(closes); i++ {
		line = append(line, fast[i]-slow[i])
	}

	signal := emaSeries(line, MACDSignal)
	last := len(line) - 1
	if math.IsNaN(signal[last]) {
		return MACDResult{}
	}
	return MACDResult{
		MACD:      line[last],
		Signal:    signal[last],
		Histogram: line[last] - signal[last],
		Valid:     true,
	}
}
