package model

import "time"

// Quote is a last-traded snapshot for one instrument, as returned by the
// broker quote endpoint. Prices in paise.
type Quote struct {
	Symbol    string    `json:"symbol"`
	LastPrice int64     `json:"last_price"`
	Open      int64     `json:"open"`
	High      int64     `json:"high"`
	Low       int64     `json:"low"`
	PrevClose int64     `json:"prev_close"`
	Volume    int64     `json:"volume"`
	TS        time.Time `json:"ts"`
}

// Change returns the absolute price change vs the previous close, in rupees.
func (q Quote) Change() float64 {
	return Rupees(q.LastPrice - q.PrevClose)
}

// ChangePct returns the percentage change vs the previous close.
// Returns 0 when the previous close is unknown.
func (q Quote) ChangePct() float64 {
	if q.PrevClose == 0 {
		return 0
	}
	return float64(q.LastPrice-q.PrevClose) / float64(q.PrevClose) * 100
}
