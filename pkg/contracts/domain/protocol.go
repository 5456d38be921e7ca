package domain

// ProtocolIdentity describes one perpetual-exchange protocol as reconciled
// across the two upstream providers. The slug is the only stable join key;
// names are a matching fallback only and are compared case-folded.
type ProtocolIdentity struct {
	Slug       string   `json:"slug" validate:"required"`
	Name       string   `json:"name" validate:"required"`
	Symbol     *string  `json:"symbol,omitempty"`
	CoinID     *string  `json:"coin_id,omitempty"`
	CoinSymbol *string  `json:"coin_symbol,omitempty"`
	CoinName   *string  `json:"coin_name,omitempty"`
	Volume30d  *float64 `json:"volume_30d,omitempty"`
}

// ProtocolRow is one row of the protocol listing: overview volumes joined
// with listing metadata, sorted by 30d volume descending.
type ProtocolRow struct {
	Slug          string   `json:"slug"`
	Name          string   `json:"name"`
	Volume24h     *float64 `json:"volume_24h"`
	Volume7d      *float64 `json:"volume_7d"`
	Volume30d     *float64 `json:"volume_30d"`
	VolumeAllTime *float64 `json:"volume_all_time"`
	Symbol        *string  `json:"symbol"`
	CoinID        *string  `json:"coin_id"`
}

// AssetCandidate is one result of a market-data provider search, used by the
// identity resolver to pick an external asset id for a protocol.
type AssetCandidate struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank *int   `json:"market_cap_rank,omitempty"`
}

// MarketPoint is a point-in-time market snapshot for one external asset.
type MarketPoint struct {
	MarketCap *float64
	FDV       *float64
}
