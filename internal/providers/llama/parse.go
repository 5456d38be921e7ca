package llama

// Parsing helpers for the provider's two protocol-list shapes. The overview
// endpoint historically returned protocols as an array of objects and later
// as a map keyed by slug; both are accepted, with the field aliases each
// shape uses.

import "sort"

// OverviewEntry is one protocol row from an overview response.
type OverviewEntry struct {
	Slug          string
	Name          string
	Volume24h     *float64
	Volume7d      *float64
	Volume30d     *float64
	VolumeAllTime *float64
}

// OverviewEntries extracts protocol rows from an overview payload, accepting
// both the array shape and the map-keyed-by-slug shape.
func OverviewEntries(payload any) []OverviewEntry {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil
	}

	switch protocols := obj["protocols"].(type) {
	case []any:
		var out []OverviewEntry
		for _, item := range protocols {
			row, ok := item.(map[string]any)
			if !ok {
				continue
			}
			slug := fieldString(row, "slug", "id", "name")
			if slug == "" {
				continue
			}
			name := fieldString(row, "name", "displayName")
			if name == "" {
				name = slug
			}
			out = append(out, OverviewEntry{
				Slug:          slug,
				Name:          name,
				Volume24h:     fieldFloat(row, "total24h"),
				Volume7d:      fieldFloat(row, "total7d"),
				Volume30d:     fieldFloat(row, "total30d"),
				VolumeAllTime: fieldFloat(row, "totalAllTime"),
			})
		}
		return out
	case map[string]any:
		// Sorted keys keep entry order deterministic across calls.
		slugs := make([]string, 0, len(protocols))
		for slug := range protocols {
			slugs = append(slugs, slug)
		}
		sort.Strings(slugs)

		var out []OverviewEntry
		for _, slug := range slugs {
			info, _ := protocols[slug].(map[string]any)
			name := slug
			if info != nil {
				if n := fieldString(info, "name"); n != "" {
					name = n
				}
			}
			entry := OverviewEntry{Slug: slug, Name: name}
			if info != nil {
				entry.Volume24h = fieldFloat(info, "volume24h")
				entry.Volume7d = fieldFloat(info, "volume7d")
				entry.Volume30d = fieldFloat(info, "volume30d")
				entry.VolumeAllTime = fieldFloat(info, "totalVolume")
			}
			out = append(out, entry)
		}
		return out
	default:
		return nil
	}
}

// ProtocolMeta is one protocol from the full listing endpoint.
type ProtocolMeta struct {
	Slug    string
	Name    string
	Symbol  *string
	GeckoID *string
}

// ProtocolMetas extracts listing metadata. The listing is either a bare
// array or wrapped in a protocols field.
func ProtocolMetas(payload any) []ProtocolMeta {
	var items []any
	switch v := payload.(type) {
	case []any:
		items = v
	case map[string]any:
		items, _ = v["protocols"].([]any)
	}

	var out []ProtocolMeta
	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			continue
		}
		slug := fieldString(row, "slug", "id", "name")
		if slug == "" {
			continue
		}
		name := fieldString(row, "name", "displayName")
		if name == "" {
			name = slug
		}
		meta := ProtocolMeta{Slug: slug, Name: name}
		if symbol := fieldString(row, "symbol", "tokenSymbol"); symbol != "" {
			meta.Symbol = &symbol
		}
		if id := fieldString(row, "gecko_id", "geckoId", "geckoID"); id != "" {
			meta.GeckoID = &id
		}
		out = append(out, meta)
	}
	return out
}

// BreakdownChart returns the per-protocol breakdown chart from an overview
// payload, or nil when absent.
func BreakdownChart(payload any) any {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	return obj["totalDataChartBreakdown"]
}

func fieldString(obj map[string]any, aliases ...string) string {
	for _, alias := range aliases {
		if s, ok := obj[alias].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func fieldFloat(obj map[string]any, key string) *float64 {
	if v, ok := obj[key].(float64); ok {
		return &v
	}
	return nil
}
