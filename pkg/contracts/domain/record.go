package domain

// DateKeyLayout is the canonical day key: UTC calendar date, zero-padded.
const DateKeyLayout = "2006-01-02"

// Float returns a pointer to v. Nullable metrics are *float64 throughout;
// absence is nil, never zero.
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}

// DailyRecord is one protocol-day of reconciled base metrics plus the
// derived ratios. Base metrics are nullable; ratios are recomputed from the
// bases by derive.ApplyRatios and are nil whenever a ratio is undefined.
type DailyRecord struct {
	Date         string  `json:"date"`
	ProtocolSlug string  `json:"protocol_slug"`
	ProtocolName string  `json:"protocol_name"`
	CoinID       *string `json:"coin_id,omitempty"`
	CoinSymbol   *string `json:"coin_symbol,omitempty"`
	CoinName     *string `json:"coin_name,omitempty"`

	Fees         *float64 `json:"fees"`
	Revenue      *float64 `json:"revenue"`
	Volume       *float64 `json:"volume"`
	OpenInterest *float64 `json:"open_interest"`
	MarketCap    *float64 `json:"market_cap"`
	FDV          *float64 `json:"fdv"`

	FeePerMillionVolume     *float64 `json:"fee_per_million_volume"`
	RevenuePerMillionVolume *float64 `json:"revenue_per_million_volume"`
	TakeRate                *float64 `json:"take_rate"`
	MarketCapPerVolume      *float64 `json:"market_cap_per_volume"`
	FDVPerVolume            *float64 `json:"fdv_per_volume"`
	OIPerVolume             *float64 `json:"oi_per_volume"`
	FeePerOpenInterest      *float64 `json:"fee_per_open_interest"`
	RevenuePerOpenInterest  *float64 `json:"revenue_per_open_interest"`
}

// WindowRecord is a trailing-window aggregate over a protocol's daily
// records. The embedded record holds the aggregated metrics with Date set to
// the window's end date; WindowDays is the window length.
type WindowRecord struct {
	DailyRecord
	WindowDays int `json:"window_days"`
}
