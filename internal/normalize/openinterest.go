package normalize

import "strings"

// Derivatives merges a per-protocol summary payload into date → VolumeOI.
// The volume series comes from a dailyVolume object-array when present,
// otherwise from a totalDataChart pair series; open interest is discovered
// anywhere in the payload tree.
func Derivatives(payload any, cutoff Cutoff) map[string]VolumeOI {
	out := make(map[string]VolumeOI)

	if obj, ok := payload.(map[string]any); ok {
		if daily, ok := obj["dailyVolume"].([]any); ok {
			out = ObjectVolumeOI(daily, cutoff)
		} else if chart, ok := obj["totalDataChart"].([]any); ok {
			for date, value := range PairSeries(chart, cutoff) {
				out[date] = VolumeOI{Volume: floatPtr(value)}
			}
		}
	}

	for date, value := range ExtractOpenInterest(payload, cutoff) {
		day := out[date]
		day.OpenInterest = floatPtr(value)
		out[date] = day
	}

	return out
}

// ExtractOpenInterest searches an arbitrarily nested payload for an
// open-interest series when its exact location is unknown. Keys are matched
// case-insensitively ignoring separators; pair-array and object-array shapes
// are both accepted. When several candidate series surface, the one covering
// the most dates wins.
func ExtractOpenInterest(payload any, cutoff Cutoff) map[string]float64 {
	var candidates []map[string]float64

	var walk func(node any, keyHint string)
	walk = func(node any, keyHint string) {
		switch n := node.(type) {
		case []any:
			if len(n) == 0 {
				return
			}
			if _, ok := n[0].(map[string]any); ok {
				if parsed := objectSeries(n, cutoff, openInterestAliases...); len(parsed) > 0 {
					candidates = append(candidates, parsed)
				}
			} else if isPairSeries(n) && strings.Contains(strings.ToLower(keyHint), "open") {
				if parsed := PairSeries(n, cutoff); len(parsed) > 0 {
					candidates = append(candidates, parsed)
				}
			}
		case map[string]any:
			for key, value := range n {
				if isOpenInterestKey(key) {
					if arr, ok := value.([]any); ok {
						var parsed map[string]float64
						if isPairSeries(arr) {
							parsed = PairSeries(arr, cutoff)
						} else {
							parsed = objectSeries(arr, cutoff, openInterestAliases...)
						}
						if len(parsed) > 0 {
							candidates = append(candidates, parsed)
						}
					}
				}
				walk(value, key)
			}
		}
	}
	walk(payload, "")

	best := map[string]float64{}
	for _, candidate := range candidates {
		if len(candidate) > len(best) {
			best = candidate
		}
	}
	return best
}

// isOpenInterestKey matches key names containing "open interest" regardless
// of case or separator style (openInterest, open_interest, open-interest...).
func isOpenInterestKey(key string) bool {
	folded := strings.ToLower(key)
	folded = strings.NewReplacer("_", "", "-", "", " ", "").Replace(folded)
	return strings.Contains(folded, "openinterest")
}

func floatPtr(v float64) *float64 { return &v }
