// Package markethours classifies wall-clock time against the NSE trading
// calendar. All reasoning happens in IST regardless of server timezone.
package markethours

import (
	"fmt"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// Session boundaries in IST.
const (
	PreOpenHour   = 9
	PreOpenMinute = 0
	OpenHour      = 9
	OpenMinute    = 15
	CloseHour     = 15
	CloseMinute   = 30
	PostCloseHour = 16
	PostCloseMin  = 0
)

// Phase names a slice of the trading day.
type Phase string

const (
	Closed     Phase = "closed"
	PreMarket  Phase = "pre_market"  // 9:00–9:15 IST, pre-open auction window
	LiveMarket Phase = "live_market" // 9:15–15:30 IST
	PostMarket Phase = "post_market" // 15:30–16:00 IST
)

// Status is the calendar view served to the dashboard.
type Status struct {
	Phase      Phase     `json:"phase"`
	TradingDay bool      `json:"trading_day"`
	NextOpen   time.Time `json:"next_open"`
	NowIST     string    `json:"now_ist"`
	Detail     string    `json:"detail"`
}

// PhaseAt classifies t within the NSE trading day.
func PhaseAt(t time.Time) Phase {
	ist := t.In(IST)
	if !IsTradingDay(ist) {
		return Closed
	}
	hm := ist.Hour()*60 + ist.Minute()
	switch {
	case hm >= PreOpenHour*60+PreOpenMinute && hm < OpenHour*60+OpenMinute:
		return PreMarket
	case hm >= OpenHour*60+OpenMinute && hm < CloseHour*60+CloseMinute:
		return LiveMarket
	case hm >= CloseHour*60+CloseMinute && hm < PostCloseHour*60+PostCloseMin:
		return PostMarket
	default:
		return Closed
	}
}

// IsMarketOpen reports whether t falls inside live NSE trading hours.
func IsMarketOpen(t time.Time) bool {
	return PhaseAt(t) == LiveMarket
}

// IsTradingDay reports whether t is a weekday and not an NSE holiday.
func IsTradingDay(t time.Time) bool {
	ist := t.In(IST)
	wd := ist.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !IsHoliday(ist)
}

// NextOpen returns the next 9:15 IST open at or after t. On a trading day
// before the open it returns that same day's open.
func NextOpen(t time.Time) time.Time {
	ist := t.In(IST)

	todayOpen := time.Date(ist.Year(), ist.Month(), ist.Day(), OpenHour, OpenMinute, 0, 0, IST)
	if ist.Before(todayOpen) && IsTradingDay(ist) {
		return todayOpen
	}

	d := ist.AddDate(0, 0, 1)
	for i := 0; i < 10; i++ { // covers any weekend+holiday cluster
		if IsTradingDay(d) {
			return time.Date(d.Year(), d.Month(), d.Day(), OpenHour, OpenMinute, 0, 0, IST)
		}
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(ist.Year(), ist.Month(), ist.Day()+1, OpenHour, OpenMinute, 0, 0, IST)
}

// StatusAt builds the full calendar status for t.
func StatusAt(t time.Time) Status {
	ist := t.In(IST)
	phase := PhaseAt(ist)
	next := NextOpen(ist)

	var detail string
	switch phase {
	case LiveMarket:
		close := time.Date(ist.Year(), ist.Month(), ist.Day(), CloseHour, CloseMinute, 0, 0, IST)
		detail = fmt.Sprintf("Market open, closes in %s", fmtDur(close.Sub(ist)))
	case PreMarket:
		detail = fmt.Sprintf("Pre-market session, opens in %s", fmtDur(next.Sub(ist)))
	case PostMarket:
		detail = "Post-market session"
	default:
		detail = fmt.Sprintf("Market closed, opens %s %s IST",
			next.Weekday().String()[:3], next.Format("02 Jan 15:04"))
	}

	return Status{
		Phase:      phase,
		TradingDay: IsTradingDay(ist),
		NextOpen:   next,
		NowIST:     ist.Format("2006-01-02 15:04:05"),
		Detail:     detail,
	}
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
