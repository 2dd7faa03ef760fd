package marketdata

import (
	"fmt"
	"sort"
	"time"

	"premarketdash/internal/model"
)

// ScanRow is one symbol's line in the market scan table.
type ScanRow struct {
	Symbol      string  `json:"symbol"`
	LastPrice   float64 `json:"last_price"` // rupees
	ChangePct   float64 `json:"change_pct"`
	Volume      int64   `json:"volume"`
	VolumeLabel string  `json:"volume_label"` // Indian notation: K / L / Cr
}

// ScanSummary aggregates the scan for the dashboard header.
type ScanSummary struct {
	Scanned   int     `json:"scanned"`
	Advancing int     `json:"advancing"`
	Declining int     `json:"declining"`
	Unchanged int     `json:"unchanged"`
	AvgChange float64 `json:"avg_change_pct"`
}

// ScanResult is the full market scan payload.
type ScanResult struct {
	GeneratedAt   time.Time   `json:"generated_at"`
	Rows          []ScanRow   `json:"rows"`
	Gainers       []ScanRow   `json:"top_gainers"`
	Losers        []ScanRow   `json:"top_losers"`
	VolumeLeaders []ScanRow   `json:"volume_leaders"`
	Summary       ScanSummary `json:"summary"`
}

// topN is how many rows each leaderboard carries.
const topN = 10

// Scan filters quotes to liquid names (volume >= minVolume) and builds the
// leaderboards. Symbols with a zero previous close are dropped since their
// change percentage is meaningless.
func Scan(quotes map[string]model.Quote, minVolume int64) ScanResult {
	rows := make([]ScanRow, 0, len(quotes))
	for _, q := range quotes {
		if q.Volume < minVolume || q.PrevClose == 0 {
			continue
		}
		rows = append(rows, ScanRow{
			Symbol:      q.Symbol,
			LastPrice:   model.Rupees(q.LastPrice),
			ChangePct:   q.ChangePct(),
			Volume:      q.Volume,
			VolumeLabel: FormatVolume(q.Volume),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })

	byChange := append([]ScanRow(nil), rows...)
	sort.SliceStable(byChange, func(i, j int) bool { return byChange[i].ChangePct > byChange[j].ChangePct })

	gainers := make([]ScanRow, 0, topN)
	for _, r := range byChange {
		if r.ChangePct <= 0 || len(gainers) == topN {
			break
		}
		gainers = append(gainers, r)
	}
	losers := make([]ScanRow, 0, topN)
	for i := len(byChange) - 1; i >= 0; i-- {
		if byChange[i].ChangePct >= 0 || len(losers) == topN {
			break
		}
		losers = append(losers, byChange[i])
	}

	byVolume := append([]ScanRow(nil), rows...)
	sort.SliceStable(byVolume, func(i, j int) bool { return byVolume[i].Volume > byVolume[j].Volume })
	if len(byVolume) > topN {
		byVolume = byVolume[:topN]
	}

	var sum ScanSummary
	sum.Scanned = len(rows)
	var totalChange float64
	for _, r := range rows {
		totalChange += r.ChangePct
		switch {
		case r.ChangePct > 0:
			sum.Advancing++
		case r.ChangePct < 0:
			sum.Declining++
		default:
			sum.Unchanged++
		}
	}
	if len(rows) > 0 {
		sum.AvgChange = totalChange / float64(len(rows))
	}

	return ScanResult{
		GeneratedAt:   time.Now(),
		Rows:          rows,
		Gainers:       gainers,
		Losers:        losers,
		VolumeLeaders: byVolume,
		Summary:       sum,
	}
}

// FormatVolume renders share counts in Indian market notation:
// thousands (K), lakhs (L, 1e5) and crores (Cr, 1e7).
func FormatVolume(v int64) string {
	switch {
	case v >= 1_00_00_000:
		return fmt.Sprintf("%.2fCr", float64(v)/1_00_00_000)
	case v >= 1_00_000:
		return fmt.Sprintf("%.2fL", float64(v)/1_00_000)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", float64(v)/1_000)
	default:
		return fmt.Sprintf("%d", v)
	}
}
