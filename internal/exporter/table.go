// Package exporter serializes canonical daily and window records to flat
// delimited text with a fixed column order. Nil metrics render as empty
// cells, never the literal text "null".
package exporter

import (
	"encoding/csv"
	"strconv"
	"strings"

	"perpscope/pkg/contracts/domain"
)

// Fixed artifact names for one export run.
const (
	DailyFileName  = "volume_efficiency_daily.csv"
	WindowFileName = "volume_efficiency_windows.csv"
)

// DailyColumns is the exported column order for the daily table.
var DailyColumns = []string{
	"date",
	"protocol_slug",
	"protocol_name",
	"coin_id",
	"coin_symbol",
	"coin_name",
	"fees",
	"revenue",
	"volume",
	"open_interest",
	"market_cap",
	"fdv",
	"fee_per_million_volume",
	"revenue_per_million_volume",
	"take_rate",
	"market_cap_per_volume",
	"fdv_per_volume",
	"oi_per_volume",
	"fee_per_open_interest",
	"revenue_per_open_interest",
}

// WindowColumns is the daily order with window_days inserted after date.
var WindowColumns = windowColumns()

func windowColumns() []string {
	out := []string{DailyColumns[0], "window_days"}
	return append(out, DailyColumns[1:]...)
}

// formatFloat renders a nullable metric; absent values become empty cells.
func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// formatString renders a nullable string; absent values become empty cells.
func formatString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// dailyCells renders a daily record in DailyColumns order.
func dailyCells(rec domain.DailyRecord) []string {
	return []string{
		rec.Date,
		rec.ProtocolSlug,
		rec.ProtocolName,
		formatString(rec.CoinID),
		formatString(rec.CoinSymbol),
		formatString(rec.CoinName),
		formatFloat(rec.Fees),
		formatFloat(rec.Revenue),
		formatFloat(rec.Volume),
		formatFloat(rec.OpenInterest),
		formatFloat(rec.MarketCap),
		formatFloat(rec.FDV),
		formatFloat(rec.FeePerMillionVolume),
		formatFloat(rec.RevenuePerMillionVolume),
		formatFloat(rec.TakeRate),
		formatFloat(rec.MarketCapPerVolume),
		formatFloat(rec.FDVPerVolume),
		formatFloat(rec.OIPerVolume),
		formatFloat(rec.FeePerOpenInterest),
		formatFloat(rec.RevenuePerOpenInterest),
	}
}

// windowCells renders a window record in WindowColumns order.
func windowCells(rec domain.WindowRecord) []string {
	daily := dailyCells(rec.DailyRecord)
	out := []string{daily[0], strconv.Itoa(rec.WindowDays)}
	return append(out, daily[1:]...)
}

// render writes a header plus rows through encoding/csv, which applies the
// required escaping (quotes around cells containing commas, quotes, or
// newlines, with embedded quotes doubled).
func render(header []string, rows [][]string) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(header); err != nil {
		return "", err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// DailyCSV renders the daily table. Records are emitted in input order;
// callers pass them pre-sorted by (slug, date).
func DailyCSV(records []domain.DailyRecord) (string, error) {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, dailyCells(rec))
	}
	return render(DailyColumns, rows)
}

// WindowCSV renders the window table in input order, pre-sorted by
// (slug, window_days, date).
func WindowCSV(records []domain.WindowRecord) (string, error) {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, windowCells(rec))
	}
	return render(WindowColumns, rows)
}
