package normalize

import (
	"math"
	"strconv"
)

// Shape tags the raw series encodings the providers are known to emit.
type Shape int

const (
	ShapeUnknown Shape = iota
	// ShapePair is a sequence of [timestamp, value] pairs.
	ShapePair
	// ShapeObject is a sequence of records with named timestamp/value fields.
	ShapeObject
	// ShapeBreakdown is a sequence of [timestamp, {entity: value}] pairs.
	ShapeBreakdown
)

// Detect classifies a decoded JSON value into one of the known series
// shapes. Empty or non-array values are ShapeUnknown.
func Detect(v any) Shape {
	entries, ok := v.([]any)
	if !ok || len(entries) == 0 {
		return ShapeUnknown
	}
	switch first := entries[0].(type) {
	case []any:
		if len(first) < 2 {
			return ShapeUnknown
		}
		if _, ok := asNumber(first[0]); !ok {
			return ShapeUnknown
		}
		if _, ok := asNumber(first[1]); ok {
			return ShapePair
		}
		if _, ok := first[1].(map[string]any); ok {
			return ShapeBreakdown
		}
		return ShapeUnknown
	case map[string]any:
		return ShapeObject
	default:
		return ShapeUnknown
	}
}

// isPairSeries reports whether v is a non-empty [timestamp, number] sequence.
func isPairSeries(v any) bool {
	return Detect(v) == ShapePair
}

// asNumber extracts a finite float from a decoded JSON value. Numeric strings
// are accepted (the breakdown maps occasionally carry them); anything else is
// rejected.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// strictNumber extracts a finite float only from a JSON number, rejecting
// numeric strings. Timestamps and plain pair values use this rule.
func strictNumber(v any) (float64, bool) {
	n, ok := v.(float64)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// fieldNumber returns the first present, finite numeric field among aliases.
func fieldNumber(obj map[string]any, aliases ...string) (float64, bool) {
	for _, alias := range aliases {
		if raw, ok := obj[alias]; ok {
			if n, ok := strictNumber(raw); ok {
				return n, true
			}
		}
	}
	return 0, false
}
