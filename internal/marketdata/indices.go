package marketdata

import (
	"context"
	"time"

	"premarketdash/internal/model"
)

// Index symbols tracked on the dashboard header. Indices trade under the
// NSE segment with spaced names.
var TrackedIndices = []string{"NIFTY 50", "NIFTY BANK", "NIFTY IT", "NIFTY MIDCAP 100"}

// IndexSnapshot is one index's live state.
type IndexSnapshot struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"` // index points, rupee-scaled upstream
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
}

// Indices fetches the tracked index quotes. Missing indices (e.g. outside
// market hours on some feeds) are skipped rather than erroring the set.
func (f *Fetcher) Indices(ctx context.Context) ([]IndexSnapshot, time.Time, error) {
	quotes, err := f.Quotes(ctx, TrackedIndices)
	if err != nil {
		return nil, time.Time{}, err
	}

	out := make([]IndexSnapshot, 0, len(TrackedIndices))
	for _, name := range TrackedIndices {
		q, ok := quotes[name]
		if !ok {
			continue
		}
		out = append(out, IndexSnapshot{
			Name:      name,
			Value:     model.Rupees(q.LastPrice),
			Change:    q.Change(),
			ChangePct: q.ChangePct(),
		})
	}
	return out, time.Now(), nil
}
