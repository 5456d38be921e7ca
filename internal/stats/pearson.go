// Package stats computes the cross-sectional statistics served alongside the
// series: pairwise Pearson correlations over configured metric pairs and
// per-metric leaderboards over the latest snapshots.
package stats

import (
	"math"

	"perpscope/internal/derive"
	"perpscope/pkg/contracts/domain"
)

// MetricPair names two series-point metrics whose correlation is reported.
type MetricPair struct {
	Key   string
	X     string
	Y     string
	Label string
}

// DefaultPairs are the metric pairs shown on the dashboard scatter plots.
var DefaultPairs = []MetricPair{
	{Key: "fees_volume", X: "fees", Y: "volume", Label: "Fees vs Volume"},
	{Key: "take_volume", X: "takeRate", Y: "volume", Label: "Take Rate vs Volume"},
	{Key: "take_mcap", X: "takeRate", Y: "marketCap", Label: "Take Rate vs MCAP"},
	{Key: "oi_volume", X: "openInterest", Y: "volume", Label: "OI vs Volume"},
	{Key: "oi_take", X: "openInterest", Y: "takeRate", Label: "OI vs Take Rate"},
	{Key: "oi_mcap", X: "openInterest", Y: "marketCap", Label: "OI vs MCAP"},
}

// pointMetric reads a named metric off a series point.
func pointMetric(p domain.SeriesPoint, name string) *float64 {
	switch name {
	case "volume":
		return p.Volume
	case "fees":
		return p.Fees
	case "openInterest":
		return p.OpenInterest
	case "marketCap":
		return p.MarketCap
	case "takeRate":
		return p.TakeRate
	default:
		return nil
	}
}

// Pearson returns the Pearson correlation coefficient of the paired samples,
// or nil when fewer than two pairs exist or either variance is zero. The
// result is always finite and within [-1, 1].
func Pearson(xs, ys []float64) *float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return nil
	}
	n := float64(len(xs))
	var meanX, meanY float64
	for i := range xs {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= n
	meanY /= n

	var sumXY, sumXX, sumYY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		sumXY += dx * dy
		sumXX += dx * dx
		sumYY += dy * dy
	}
	if sumXX == 0 || sumYY == 0 {
		return nil
	}
	r := sumXY / math.Sqrt(sumXX*sumYY)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return nil
	}
	return domain.Float(r)
}

// Correlations scans every daily point across all protocols and reports the
// correlation of each configured pair, keeping only points where both metrics
// are present and finite.
func Correlations(protocols []domain.ProtocolSeries, pairs []MetricPair) []domain.CorrelationResult {
	out := make([]domain.CorrelationResult, 0, len(pairs))
	for _, pair := range pairs {
		var xs, ys []float64
		for _, protocol := range protocols {
			for _, point := range protocol.Points {
				x := pointMetric(point, pair.X)
				y := pointMetric(point, pair.Y)
				if x == nil || y == nil {
					continue
				}
				if math.IsNaN(*x) || math.IsInf(*x, 0) || math.IsNaN(*y) || math.IsInf(*y, 0) {
					continue
				}
				xs = append(xs, *x)
				ys = append(ys, *y)
			}
		}
		out = append(out, domain.CorrelationResult{
			Key:         pair.Key,
			Label:       pair.Label,
			X:           pair.X,
			Y:           pair.Y,
			Points:      len(xs),
			Correlation: Pearson(xs, ys),
		})
	}
	return out
}

// LatestSnapshot returns the most recent point of a protocol carrying any
// present metric, with take rate and P/F recomputed. Nil when every point is
// empty.
func LatestSnapshot(protocol domain.ProtocolSeries) *domain.SnapshotRow {
	for i := len(protocol.Points) - 1; i >= 0; i-- {
		point := protocol.Points[i]
		if point.Volume == nil && point.Fees == nil && point.OpenInterest == nil && point.MarketCap == nil {
			continue
		}
		takeRate := point.TakeRate
		if takeRate == nil {
			takeRate = derive.SafeDivide(point.Fees, point.Volume)
		}
		return &domain.SnapshotRow{
			Slug:         protocol.Slug,
			Name:         protocol.Name,
			Symbol:       protocol.Symbol,
			Date:         point.Date,
			Volume:       point.Volume,
			Fees:         point.Fees,
			OpenInterest: point.OpenInterest,
			MarketCap:    point.MarketCap,
			TakeRate:     takeRate,
			PF:           derive.SafeDivide(point.MarketCap, point.Fees),
		}
	}
	return nil
}

// Totals sums present metrics across all protocols per date, ordered by date
// ascending.
func Totals(protocols []domain.ProtocolSeries) []domain.TotalsPoint {
	byDate := make(map[string]*domain.TotalsPoint)
	var dates []string
	for _, protocol := range protocols {
		for _, point := range protocol.Points {
			entry, ok := byDate[point.Date]
			if !ok {
				entry = &domain.TotalsPoint{Date: point.Date}
				byDate[point.Date] = entry
				dates = append(dates, point.Date)
			}
			if point.Volume != nil {
				entry.Volume += *point.Volume
			}
			if point.Fees != nil {
				entry.Fees += *point.Fees
			}
			if point.OpenInterest != nil {
				entry.OpenInterest += *point.OpenInterest
			}
			if point.MarketCap != nil {
				entry.MarketCap += *point.MarketCap
			}
		}
	}
	sortStrings(dates)
	out := make([]domain.TotalsPoint, 0, len(dates))
	for _, date := range dates {
		out = append(out, *byDate[date])
	}
	return out
}
