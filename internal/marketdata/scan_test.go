package marketdata

import (
	"testing"

	"premarketdash/internal/model"
)

func quote(symbol string, last, prev int64, volume int64) model.Quote {
	return model.Quote{Symbol: symbol, LastPrice: last, PrevClose: prev, Volume: volume}
}

func TestScanFiltersIlliquidAndZeroPrevClose(t *testing.T) {
	quotes := map[string]model.Quote{
		"LIQUID":   quote("LIQUID", 10100, 10000, 500000),
		"THIN":     quote("THIN", 5000, 4900, 10000), // below min volume
		"NEWLIST":  quote("NEWLIST", 9000, 0, 900000),
		"DECLINER": quote("DECLINER", 9500, 10000, 200000),
	}

	res := Scan(quotes, 75000)
	if len(res.Rows) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(res.Rows), res.Rows)
	}
	for _, r := range res.Rows {
		if r.Symbol == "THIN" || r.Symbol == "NEWLIST" {
			t.Errorf("filtered symbol leaked into scan: %s", r.Symbol)
		}
	}
}

func TestScanLeaderboards(t *testing.T) {
	quotes := map[string]model.Quote{
		"UP2":  quote("UP2", 10200, 10000, 100000), // +2%
		"UP5":  quote("UP5", 10500, 10000, 200000), // +5%
		"DN3":  quote("DN3", 9700, 10000, 300000),  // −3%
		"DN1":  quote("DN1", 9900, 10000, 400000),  // −1%
		"FLAT": quote("FLAT", 10000, 10000, 900000),
	}

	res := Scan(quotes, 75000)

	if len(res.Gainers) != 2 || res.Gainers[0].Symbol != "UP5" || res.Gainers[1].Symbol != "UP2" {
		t.Errorf("gainers: %+v", res.Gainers)
	}
	if len(res.Losers) != 2 || res.Losers[0].Symbol != "DN3" || res.Losers[1].Symbol != "DN1" {
		t.Errorf("losers: %+v", res.Losers)
	}
	if len(res.VolumeLeaders) == 0 || res.VolumeLeaders[0].Symbol != "FLAT" {
		t.Errorf("volume leaders: %+v", res.VolumeLeaders)
	}

	sum := res.Summary
	if sum.Scanned != 5 || sum.Advancing != 2 || sum.Declining != 2 || sum.Unchanged != 1 {
		t.Errorf("summary: %+v", sum)
	}
}

func TestFormatVolume(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{500, "500"},
		{7_500, "7.5K"},
		{2_50_000, "2.50L"},
		{1_20_00_000, "1.20Cr"},
	}
	for _, tc := range cases {
		if got := FormatVolume(tc.in); got != tc.want {
			t.Errorf("FormatVolume(%d): got %s, want %s", tc.in, got, tc.want)
		}
	}
}
