package normalize

// Timestamp field aliases accepted on object-array records.
var timestampAliases = []string{"date", "timestamp", "time"}

// Open-interest field aliases accepted on object-array records, first
// present non-null alias wins.
var openInterestAliases = []string{"openInterest", "openInterestUsd", "open_interest"}

// VolumeOI is one day's volume and open interest for a single protocol.
type VolumeOI struct {
	Volume       *float64
	OpenInterest *float64
}

// PairSeries normalizes a [timestamp, value] sequence into date → value.
// Timestamps may be seconds or milliseconds. Later points overwrite earlier
// ones landing on the same day.
func PairSeries(raw any, cutoff Cutoff) map[string]float64 {
	out := make(map[string]float64)
	entries, ok := raw.([]any)
	if !ok {
		return out
	}
	for _, entry := range entries {
		pair, ok := entry.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		ts, ok := strictNumber(pair[0])
		if !ok {
			continue
		}
		value, ok := strictNumber(pair[1])
		if !ok {
			continue
		}
		dateKey := DateKey(ts)
		if !cutoff.Keep(dateKey) {
			continue
		}
		out[dateKey] = value
	}
	return out
}

// PairSeriesMillis normalizes a pair sequence whose timestamps are always
// milliseconds (market-chart responses).
func PairSeriesMillis(raw any, cutoff Cutoff) map[string]float64 {
	out := make(map[string]float64)
	entries, ok := raw.([]any)
	if !ok {
		return out
	}
	for _, entry := range entries {
		pair, ok := entry.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		ts, ok := strictNumber(pair[0])
		if !ok {
			continue
		}
		value, ok := strictNumber(pair[1])
		if !ok {
			continue
		}
		dateKey := DateKeyMillis(ts)
		if !cutoff.Keep(dateKey) {
			continue
		}
		out[dateKey] = value
	}
	return out
}

// ObjectVolumeOI normalizes an object-array sequence carrying volume and
// open-interest fields into date → VolumeOI.
func ObjectVolumeOI(raw any, cutoff Cutoff) map[string]VolumeOI {
	out := make(map[string]VolumeOI)
	entries, ok := raw.([]any)
	if !ok {
		return out
	}
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		ts, ok := fieldNumber(obj, timestampAliases...)
		if !ok {
			continue
		}
		dateKey := DateKey(ts)
		if !cutoff.Keep(dateKey) {
			continue
		}
		day := out[dateKey]
		if v, ok := fieldNumber(obj, "volume"); ok {
			day.Volume = &v
		}
		if oi, ok := fieldNumber(obj, openInterestAliases...); ok {
			day.OpenInterest = &oi
		}
		out[dateKey] = day
	}
	return out
}

// objectSeries normalizes an object-array sequence into date → value using
// the given value aliases. Records missing every alias are dropped.
func objectSeries(raw any, cutoff Cutoff, valueAliases ...string) map[string]float64 {
	out := make(map[string]float64)
	entries, ok := raw.([]any)
	if !ok {
		return out
	}
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		ts, ok := fieldNumber(obj, timestampAliases...)
		if !ok {
			continue
		}
		value, ok := fieldNumber(obj, valueAliases...)
		if !ok {
			continue
		}
		dateKey := DateKey(ts)
		if !cutoff.Keep(dateKey) {
			continue
		}
		out[dateKey] = value
	}
	return out
}

// NameResolver maps an entity display name from a breakdown map to its
// canonical slug. The second return is false when the name is unknown.
type NameResolver func(name string) (string, bool)

// Breakdown normalizes a [timestamp, {entity: value}] sequence into
// slug → date → value. Unresolved entity names are dropped silently; values
// landing on the same (slug, date) are summed.
func Breakdown(raw any, resolve NameResolver, cutoff Cutoff) map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	entries, ok := raw.([]any)
	if !ok {
		return out
	}
	for _, entry := range entries {
		pair, ok := entry.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		ts, ok := strictNumber(pair[0])
		if !ok {
			continue
		}
		values, ok := pair[1].(map[string]any)
		if !ok {
			continue
		}
		dateKey := DateKey(ts)
		if !cutoff.Keep(dateKey) {
			continue
		}
		for name, raw := range values {
			slug, ok := resolve(name)
			if !ok {
				continue
			}
			value, ok := asNumber(raw)
			if !ok {
				continue
			}
			if out[slug] == nil {
				out[slug] = make(map[string]float64)
			}
			out[slug][dateKey] += value
		}
	}
	return out
}
