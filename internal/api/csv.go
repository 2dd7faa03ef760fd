package api

import (
	"encoding/csv"
	"io"
	"strconv"

	"premarketdash/internal/marketdata"
)

// WriteScanCSV writes the scan rows as CSV, one row per surviving symbol.
func WriteScanCSV(w io.Writer, res marketdata.ScanResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"symbol", "last_price", "change_pct", "volume", "volume_label"}); err != nil {
		return err
	}
	for _, row := range res.Rows {
		rec := []string{
			row.Symbol,
			strconv.FormatFloat(row.LastPrice, 'f', 2, 64),
			strconv.FormatFloat(row.ChangePct, 'f', 2, 64),
			strconv.FormatInt(row.Volume, 10),
			row.VolumeLabel,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
