package indicator

import (
	"math"
	"testing"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// rising returns n closes growing by pct percent per bar from start.
func rising(start float64, pct float64, n int) []float64 {
	out := make([]float64, n)
	v := start
	for i := 0; i < n; i++ {
		out[i] = v
		v *= 1 + pct/100
	}
	return out
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// ────────────────────────────────────────────────────────────
// RSI
// ────────────────────────────────────────────────────────────

func TestRSI_InsufficientWindow(t *testing.T) {
	// Needs period+1 closes; one short must yield unavailable, not a number.
	closes := rising(100, 1, DefaultRSIPeriod)
	if got := RSI(closes, DefaultRSIPeriod); got.Valid {
		t.Errorf("RSI on %d closes: expected Valid=false, got %.4f", len(closes), got.V)
	}
	if got := RSI(nil, DefaultRSIPeriod); got.Valid {
		t.Error("RSI on empty series: expected Valid=false")
	}
}

func TestRSI_Correctness_Period3(t *testing.T) {
	// Hand-calculated Wilder RSI(3) for closes 100, 101, 102, 101, 103:
	// deltas +1, +1, −1, +2
	// seed: avgGain = 2/3, avgLoss = 1/3
	// after +2: avgGain = (2/3·2 + 2)/3 = 1.111111, avgLoss = (1/3·2)/3 = 0.222222
	// RS = 5 → RSI = 100 − 100/6 = 83.333333
	got := RSI([]float64{100, 101, 102, 101, 103}, 3)
	if !got.Valid {
		t.Fatal("expected valid RSI")
	}
	assertClose(t, "RSI(3)", got.V, 83.333333, 0.0001)
}

func TestRSI_Bounds(t *testing.T) {
	// All gains → 100; all losses → 0; mixed stays inside [0, 100].
	up := RSI(rising(100, 1, 30), DefaultRSIPeriod)
	if !up.Valid || up.V != 100.0 {
		t.Errorf("all-gain RSI: got %.4f valid=%v, want exactly 100", up.V, up.Valid)
	}

	down := RSI(rising(100, -1, 30), DefaultRSIPeriod)
	if !down.Valid {
		t.Fatal("expected valid RSI on falling series")
	}
	assertClose(t, "all-loss RSI", down.V, 0.0, 0.0001)

	mixed := []float64{50, 52, 51, 53, 50, 54, 52, 55, 51, 56, 53, 57, 52, 58, 54, 59, 55}
	v := RSI(mixed, DefaultRSIPeriod)
	if !v.Valid || v.V < 0 || v.V > 100 {
		t.Errorf("mixed RSI out of bounds: %.4f valid=%v", v.V, v.Valid)
	}
}

func TestRSI_RisingOnePercentIsOverbought(t *testing.T) {
	// 30 closes rising 1% per bar: every delta is a gain, RSI must read
	// above the 70 overbought line.
	got := RSI(rising(100, 1, 30), DefaultRSIPeriod)
	if !got.Valid || got.V <= 70 {
		t.Errorf("expected overbought RSI (>70), got %.4f valid=%v", got.V, got.Valid)
	}
}

// ────────────────────────────────────────────────────────────
// ADX
// ────────────────────────────────────────────────────────────

func adxInput(closes []float64) (highs, lows []float64) {
	highs = make([]float64, len(closes))
	lows = make([]float64, len(closes))
	for i, c := range closes {
		highs[i] = c + 1
		lows[i] = c - 1
	}
	return highs, lows
}

func TestADX_InsufficientWindow(t *testing.T) {
	closes := rising(100, 1, 2*DefaultADXPeriod) // one bar short of 2·period+1
	highs, lows := adxInput(closes)
	if got := ADX(highs, lows, closes, DefaultADXPeriod); got.Valid {
		t.Errorf("ADX on %d bars: expected Valid=false, got %.4f", len(closes), got.V)
	}
}

func TestADX_StrongTrendReadsHigh(t *testing.T) {
	// A clean one-directional trend (higher highs, higher lows every bar)
	// drives DI− to zero and ADX toward 100.
	closes := rising(100, 2, 60)
	highs, lows := adxInput(closes)
	got := ADX(highs, lows, closes, DefaultADXPeriod)
	if !got.Valid {
		t.Fatal("expected valid ADX")
	}
	if got.V <= 25 {
		t.Errorf("strong trend ADX: got %.4f, want > 25", got.V)
	}
	if got.V < 0 || got.V > 100 {
		t.Errorf("ADX out of bounds: %.4f", got.V)
	}
}

func TestADX_FlatSeriesReadsZero(t *testing.T) {
	closes := constant(100, 60)
	highs, lows := adxInput(closes)
	got := ADX(highs, lows, closes, DefaultADXPeriod)
	if !got.Valid {
		t.Fatal("expected valid ADX on flat series")
	}
	assertClose(t, "flat ADX", got.V, 0.0, 0.0001)
}

// ────────────────────────────────────────────────────────────
// MACD
// ────────────────────────────────────────────────────────────

func TestMACD_InsufficientWindow(t *testing.T) {
	if got := ComputeMACD(rising(100, 1, MinMACDBars-1)); got.Valid {
		t.Errorf("MACD on %d closes: expected Valid=false", MinMACDBars-1)
	}
}

func TestMACD_FlatSeriesIsZero(t *testing.T) {
	got := ComputeMACD(constant(250, 60))
	if !got.Valid {
		t.Fatal("expected valid MACD")
	}
	assertClose(t, "flat MACD line", got.MACD, 0.0, 0.0001)
	assertClose(t, "flat MACD signal", got.Signal, 0.0, 0.0001)
	assertClose(t, "flat MACD histogram", got.Histogram, 0.0, 0.0001)
}

func TestMACD_UptrendIsPositive(t *testing.T) {
	// In a sustained uptrend the fast EMA sits above the slow EMA.
	got := ComputeMACD(rising(100, 1, 80))
	if !got.Valid || got.MACD <= 0 {
		t.Errorf("uptrend MACD: got %.4f valid=%v, want > 0", got.MACD, got.Valid)
	}
}

// ────────────────────────────────────────────────────────────
// Bollinger Bands
// ────────────────────────────────────────────────────────────

func TestBollinger_InsufficientWindow(t *testing.T) {
	if got := Bollinger(rising(100, 1, DefaultBollingerPeriod-1), DefaultBollingerPeriod); got.Valid {
		t.Error("Bollinger on short series: expected Valid=false")
	}
}

func TestBollinger_Correctness_Period3(t *testing.T) {
	// closes 1, 2, 3: middle = 2, population stdev = √(2/3) = 0.816497
	// upper = 3.632993, lower = 0.367007
	// position = (3 − 0.367007)/3.265986 · 100 = 80.6186
	got := Bollinger([]float64{1, 2, 3}, 3)
	if !got.Valid {
		t.Fatal("expected valid bands")
	}
	assertClose(t, "middle", got.Middle, 2.0, 0.0001)
	assertClose(t, "upper", got.Upper, 3.632993, 0.0001)
	assertClose(t, "lower", got.Lower, 0.367007, 0.0001)
	assertClose(t, "position", got.Position, 80.6186, 0.001)
}

func TestBollinger_FlatWindowPositionIs50(t *testing.T) {
	got := Bollinger(constant(10, 25), DefaultBollingerPeriod)
	if !got.Valid {
		t.Fatal("expected valid bands")
	}
	assertClose(t, "flat position", got.Position, 50.0, 0.0001)
}

func TestBollinger_PositionTracksTrend(t *testing.T) {
	// Strictly increasing closes keep the last close near the upper band;
	// strictly decreasing closes keep it near the lower band.
	inc := make([]float64, 40)
	dec := make([]float64, 40)
	for i := range inc {
		inc[i] = 100 + float64(i)
		dec[i] = 100 - float64(i)
	}

	up := Bollinger(inc, DefaultBollingerPeriod)
	if !up.Valid || up.Position <= 80 {
		t.Errorf("rising closes: position %.2f, want > 80", up.Position)
	}
	down := Bollinger(dec, DefaultBollingerPeriod)
	if !down.Valid || down.Position >= 20 {
		t.Errorf("falling closes: position %.2f, want < 20", down.Position)
	}
}

// ────────────────────────────────────────────────────────────
// Support / Resistance
// ────────────────────────────────────────────────────────────

func TestSupportResistance_TrailingExtremes(t *testing.T) {
	highs := make([]float64, 30)
	lows := make([]float64, 30)
	for i := range highs {
		highs[i] = 100 + float64(i%7)
		lows[i] = 90 - float64(i%5)
	}
	// Only the last 20 bars count. Within them the cycles still hit the
	// same extremes: max high = 106, min low = 86.
	got := SupportResistance(highs, lows, DefaultLevelsPeriod)
	if !got.Valid {
		t.Fatal("expected valid levels")
	}
	assertClose(t, "resistance", got.Resistance, 106.0, 0.0001)
	assertClose(t, "support", got.Support, 86.0, 0.0001)
}

func TestSupportResistance_InsufficientWindow(t *testing.T) {
	if got := SupportResistance(rising(100, 1, 10), rising(90, 1, 10), DefaultLevelsPeriod); got.Valid {
		t.Error("expected Valid=false on 10 bars")
	}
}

// ────────────────────────────────────────────────────────────
// KST
// ────────────────────────────────────────────────────────────

func TestKST_InsufficientWindow(t *testing.T) {
	if got := ComputeKST(rising(100, 1, MinKSTBars-1)); got.Valid {
		t.Error("KST below the 100-bar floor: expected Valid=false")
	}
}

func TestKST_FlatSeriesIsZero(t *testing.T) {
	got := ComputeKST(constant(500, 120))
	if !got.Valid {
		t.Fatal("expected valid KST")
	}
	assertClose(t, "flat KST", got.KST, 0.0, 0.0001)
	assertClose(t, "flat KST signal", got.Signal, 0.0, 0.0001)
}

func TestKST_UptrendIsPositive(t *testing.T) {
	got := ComputeKST(rising(100, 1, 150))
	if !got.Valid || got.KST <= 0 {
		t.Errorf("uptrend KST: got %.4f valid=%v, want > 0", got.KST, got.Valid)
	}
}
