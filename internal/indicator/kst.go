package indicator

import "math"

// MinKSTBars is the minimum series length for the KST oscillator. The math
// settles well before 100 bars, but shorter histories give an unstable
// signal line, so the cutoff is kept deliberately high.
const MinKSTBars = 100

// KST parameterization: four rate-of-change lookbacks, each smoothed by a
// moving average and combined with increasing weights.
var (
	kstROCPeriods = [4]int{10, 15, 20, 30}
	kstMAPeriods  = [4]int{10, 10, 10, 15}
	kstWeights    = [4]float64{1, 2, 3, 4}
)

const kstSignalPeriod = 9

// KSTResult holds the Know Sure Thing oscillator, its signal line and their
// difference.
type KSTResult struct {
	KST       float64 `json:"kst"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
	Valid     bool    `json:"valid"`
}

// ComputeKST computes the weighted multi-period rate-of-change oscillator:
// kst = Σ weight_i · SMA(ROC(close, roc_i), ma_i), signal = SMA(kst, 9).
func ComputeKST(closes []float64) KSTResult {
	if len(closes) < MinKSTBars {
		return KSTResult{}
	}

	kst := make([]float64, len(closes))
	for i := range kst {
		kst[i] = 0
	}
	for c := 0; c < 4; c++ {
		smoothed := rollingMean(rocSeries(closes, kstROCPeriods[c]), kstMAPeriods[c])
		for i := range kst {
			kst[i] += kstWeights[c] * smoothed[i] // NaN propagates through the warmup
		}
	}

	signal := rollingMean(kst, kstSignalPeriod)
	last := len(closes) - 1
	if math.IsNaN(kst[last]) || math.IsNaN(signal[last]) {
		return KSTResult{}
	}
	return KSTResult{
		KST:       kst[last],
		Signal:    signal[last],
		Histogram: kst[last] - signal[last],
		Valid:     true,
	}
}
