package domain

import "time"

// SeriesPoint is one daily point of a protocol's merged series as served to
// the rendering layer.
type SeriesPoint struct {
	Date         string   `json:"date"`
	Volume       *float64 `json:"volume"`
	Fees         *float64 `json:"fees"`
	OpenInterest *float64 `json:"openInterest"`
	MarketCap    *float64 `json:"marketCap"`
	TakeRate     *float64 `json:"takeRate"`
}

// ProtocolSeries is one protocol's identity plus its daily points, ordered by
// date ascending.
type ProtocolSeries struct {
	Slug      string        `json:"slug"`
	Name      string        `json:"name"`
	Symbol    *string       `json:"symbol,omitempty"`
	CoinID    *string       `json:"gecko_id,omitempty"`
	Volume30d *float64      `json:"volume_30d,omitempty"`
	Points    []SeriesPoint `json:"points"`
}

// SeriesPayload is the composite response of a full series build. Warnings
// carry recovered upstream failures; they never abort the build.
type SeriesPayload struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	StartDate   string           `json:"startDate"`
	Protocols   []ProtocolSeries `json:"protocols"`
	Warnings    []string         `json:"warnings,omitempty"`
}

// SnapshotRow is the latest point per protocol carrying any present metric,
// with take rate and P/F recomputed. Feeds the leaderboards.
type SnapshotRow struct {
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	Symbol       *string  `json:"symbol,omitempty"`
	Date         string   `json:"date"`
	Volume       *float64 `json:"volume"`
	Fees         *float64 `json:"fees"`
	OpenInterest *float64 `json:"openInterest"`
	MarketCap    *float64 `json:"marketCap"`
	TakeRate     *float64 `json:"takeRate"`
	PF           *float64 `json:"pf"`
}

// CorrelationResult is the Pearson correlation of one configured metric pair
// over every daily point across all protocols. Correlation is nil when fewer
// than two paired points exist or either variance is zero.
type CorrelationResult struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	X           string   `json:"x"`
	Y           string   `json:"y"`
	Points      int      `json:"points"`
	Correlation *float64 `json:"correlation"`
}

// Leader is the protocol holding the maximum of one metric in the latest
// snapshot set.
type Leader struct {
	Metric string       `json:"metric"`
	Label  string       `json:"label"`
	Row    *SnapshotRow `json:"row,omitempty"`
	Value  *float64     `json:"value"`
}

// Summary bundles the cross-sectional statistics for one protocol set.
type Summary struct {
	GeneratedAt  time.Time           `json:"generatedAt"`
	LatestDate   string              `json:"latestDate,omitempty"`
	Snapshots    []SnapshotRow       `json:"snapshots"`
	Totals       []TotalsPoint       `json:"totals"`
	Correlations []CorrelationResult `json:"correlations"`
	Leaders      []Leader            `json:"leaders"`
}

// TotalsPoint is the cross-protocol sum of present metrics for one date.
type TotalsPoint struct {
	Date         string  `json:"date"`
	Volume       float64 `json:"volume"`
	Fees         float64 `json:"fees"`
	OpenInterest float64 `json:"openInterest"`
	MarketCap    float64 `json:"marketCap"`
}
