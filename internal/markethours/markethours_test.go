package markethours

import (
	"testing"
	"time"
)

// A regular Wednesday, no holiday nearby.
func wednesday(h, m int) time.Time {
	return time.Date(2026, time.September, 2, h, m, 0, 0, IST)
}

func TestPhaseAt(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want Phase
	}{
		{"before pre-open", wednesday(8, 59), Closed},
		{"pre-market start", wednesday(9, 0), PreMarket},
		{"pre-market end", wednesday(9, 14), PreMarket},
		{"open bell", wednesday(9, 15), LiveMarket},
		{"midday", wednesday(12, 30), LiveMarket},
		{"last minute", wednesday(15, 29), LiveMarket},
		{"close bell", wednesday(15, 30), PostMarket},
		{"post-market end", wednesday(16, 0), Closed},
		{"saturday", time.Date(2026, time.September, 5, 11, 0, 0, 0, IST), Closed},
		{"republic day", time.Date(2026, time.January, 26, 11, 0, 0, 0, IST), Closed},
	}
	for _, tc := range cases {
		if got := PhaseAt(tc.at); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestPhaseIsTimezoneAgnostic(t *testing.T) {
	// 12:30 IST expressed as 07:00 UTC must still read as live market.
	utc := time.Date(2026, time.September, 2, 7, 0, 0, 0, time.UTC)
	if got := PhaseAt(utc); got != LiveMarket {
		t.Errorf("UTC input: got %s, want %s", got, LiveMarket)
	}
}

func TestNextOpen(t *testing.T) {
	// Before the bell on a trading day: same day.
	got := NextOpen(wednesday(8, 0))
	if got.Day() != 2 || got.Hour() != 9 || got.Minute() != 15 {
		t.Errorf("same-day open: got %v", got)
	}

	// After close on Friday Sep 4 2026: Monday Sep 7.
	fri := time.Date(2026, time.September, 4, 16, 0, 0, 0, IST)
	got = NextOpen(fri)
	if got.Weekday() != time.Monday || got.Day() != 7 {
		t.Errorf("weekend skip: got %v", got)
	}
}

func TestNextOpenSkipsHolidays(t *testing.T) {
	// Friday Jan 23 2026 after close; Monday Jan 26 is Republic Day, so the
	// next open is Tuesday Jan 27.
	at := time.Date(2026, time.January, 23, 17, 0, 0, 0, IST)
	got := NextOpen(at)
	if got.Day() != 27 || got.Month() != time.January {
		t.Errorf("holiday skip: got %v", got)
	}
}

func TestStatusAt(t *testing.T) {
	st := StatusAt(wednesday(10, 0))
	if st.Phase != LiveMarket || !st.TradingDay {
		t.Errorf("live status: %+v", st)
	}
	if st.Detail == "" || st.NowIST == "" {
		t.Errorf("missing detail fields: %+v", st)
	}

	st = StatusAt(time.Date(2026, time.September, 5, 11, 0, 0, 0, IST))
	if st.Phase != Closed || st.TradingDay {
		t.Errorf("saturday status: %+v", st)
	}
}
