package indicator

import (
	"premarketdash/internal/model"
)

// Outperformance labels for relative strength.
const (
	Outperforming   = "Outperforming"
	Underperforming = "Underperforming"
)

// RelStrengthResult compares a stock's trailing return against a benchmark's
// over the same aligned window.
type RelStrengthResult struct {
	Value           float64 `json:"relative_strength"` // stock return − benchmark return, pct points
	Rank            float64 `json:"rs_rank"`           // 0..100
	Outperformance  string  `json:"outperformance"`
	StockReturn     float64 `json:"stock_return"`
	BenchmarkReturn float64 `json:"benchmark_return"`
	Valid           bool    `json:"valid"`
}

// RelativeStrength aligns the two series on common timestamps and compares
// trailing-period percentage returns. Fewer than period common bars is an
// alignment failure and yields Valid=false.
func RelativeStrength(stock, benchmark model.Series, period int) RelStrengthResult {
	if period < 2 || len(stock) == 0 || len(benchmark) == 0 {
		return RelStrengthResult{}
	}

	benchByTS := make(map[int64]int64, len(benchmark))
	for _, b := range benchmark {
		benchByTS[b.TS.Unix()] = b.Close
	}

	var stockCloses, benchCloses []float64
	for _, b := range stock {
		bc, ok := benchByTS[b.TS.Unix()]
		if !ok {
			continue
		}
		stockCloses = append(stockCloses, model.Rupees(b.Close))
		benchCloses = append(benchCloses, model.Rupees(bc))
	}
	if len(stockCloses) < period {
		return RelStrengthResult{}
	}

	last := len(stockCloses) - 1
	base := len(stockCloses) - period
	if stockCloses[base] == 0 || benchCloses[base] == 0 {
		return RelStrengthResult{}
	}

	stockRet := (stockCloses[last]/stockCloses[base] - 1) * 100
	benchRet := (benchCloses[last]/benchCloses[base] - 1) * 100
	rs := stockRet - benchRet

	out := Underperforming
	if rs > 0 {
		out = Outperforming
	}

	return RelStrengthResult{
		Value:           rs,
		Rank:            clamp(50+rs/2, 0, 100),
		Outperformance:  out,
		StockReturn:     stockRet,
		BenchmarkReturn: benchRet,
		Valid:           true,
	}
}
