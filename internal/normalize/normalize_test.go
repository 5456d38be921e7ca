package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decode unmarshals a JSON literal into the any-shape the providers hand us.
func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestDateKeySecondsAndMillisAgree(t *testing.T) {
	seconds := DateKey(1700000000)
	millis := DateKey(1700000000000)
	assert.Equal(t, seconds, millis)
	assert.Equal(t, "2023-11-14", seconds)
}

func TestDateKeyMillis(t *testing.T) {
	assert.Equal(t, "2023-11-14", DateKeyMillis(1700000000000))
}

func TestCutoffLookback(t *testing.T) {
	now := time.Date(2024, 6, 10, 15, 30, 0, 0, time.UTC)
	cutoff := CutoffLookback(90, now)

	assert.Equal(t, "2024-03-13", cutoff.Min())
	assert.True(t, cutoff.Keep("2024-03-13"))
	assert.False(t, cutoff.Keep("2024-03-12"))
	assert.True(t, cutoff.Keep("2024-06-10"))
}

func TestCutoffZeroValueKeepsEverything(t *testing.T) {
	var cutoff Cutoff
	assert.True(t, cutoff.Keep("1970-01-01"))
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Shape
	}{
		{"pair", `[[1700000000, 5.0]]`, ShapePair},
		{"object", `[{"date": 1700000000, "volume": 5}]`, ShapeObject},
		{"breakdown", `[[1700000000, {"dYdX V4": 5}]]`, ShapeBreakdown},
		{"empty", `[]`, ShapeUnknown},
		{"scalar", `5`, ShapeUnknown},
		{"short pair", `[[1700000000]]`, ShapeUnknown},
		{"non numeric ts", `[["x", 5]]`, ShapeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(decode(t, tt.raw)))
		})
	}
}

func TestPairSeries(t *testing.T) {
	raw := decode(t, `[
		[1700000000, 5.0],
		[1700086400, 6.5],
		[1700086400000, 7.0],
		["bad", 1],
		[1700172800, "bad"],
		[1700172800]
	]`)

	got := PairSeries(raw, Cutoff{})

	// The millisecond point lands on the same day as the second one before it
	// and overwrites it.
	assert.Equal(t, map[string]float64{
		"2023-11-14": 5.0,
		"2023-11-15": 7.0,
	}, got)
}

func TestPairSeriesCutoff(t *testing.T) {
	raw := decode(t, `[[1700000000, 5.0], [1700086400, 6.5]]`)
	cutoff := CutoffFromStart(time.Date(2023, 11, 15, 0, 0, 0, 0, time.UTC))

	got := PairSeries(raw, cutoff)

	assert.Equal(t, map[string]float64{"2023-11-15": 6.5}, got)
}

func TestObjectVolumeOIAliases(t *testing.T) {
	raw := decode(t, `[
		{"date": 1700000000, "volume": 100, "openInterest": 40},
		{"timestamp": 1700086400, "volume": 110, "openInterestUsd": 42},
		{"time": 1700172800, "open_interest": 44},
		{"volume": 120},
		{"date": "not-a-number", "volume": 130}
	]`)

	got := ObjectVolumeOI(raw, Cutoff{})

	require.Len(t, got, 3)
	require.NotNil(t, got["2023-11-14"].Volume)
	assert.Equal(t, 100.0, *got["2023-11-14"].Volume)
	require.NotNil(t, got["2023-11-14"].OpenInterest)
	assert.Equal(t, 40.0, *got["2023-11-14"].OpenInterest)
	require.NotNil(t, got["2023-11-15"].OpenInterest)
	assert.Equal(t, 42.0, *got["2023-11-15"].OpenInterest)
	assert.Nil(t, got["2023-11-16"].Volume)
	require.NotNil(t, got["2023-11-16"].OpenInterest)
	assert.Equal(t, 44.0, *got["2023-11-16"].OpenInterest)
}

func newTestResolver() NameResolver {
	byName := map[string]string{
		"dYdX V4": "dydx-v4",
		"dydx v4": "dydx-v4",
		"Drift":   "drift-trade",
		"drift":   "drift-trade",
	}
	slugs := map[string]bool{"dydx-v4": true, "drift-trade": true}
	return func(name string) (string, bool) {
		if slug, ok := byName[name]; ok {
			return slug, true
		}
		if slug, ok := byName[lower(name)]; ok {
			return slug, true
		}
		if slugs[name] {
			return name, true
		}
		return "", false
	}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func TestBreakdownResolvesAndSums(t *testing.T) {
	raw := decode(t, `[
		[1700000000, {"dYdX V4": 10, "Drift": 3, "Unknown DEX": 99}],
		[1700000500, {"DYDX V4": 2.5}],
		[1700086400, {"dydx-v4": 7}]
	]`)

	got := Breakdown(raw, newTestResolver(), Cutoff{})

	// Unknown name dropped; same slug+date summed; known slug passes through.
	assert.Equal(t, map[string]map[string]float64{
		"dydx-v4": {
			"2023-11-14": 12.5,
			"2023-11-15": 7,
		},
		"drift-trade": {
			"2023-11-14": 3,
		},
	}, got)
}

func TestBreakdownNumericStringValues(t *testing.T) {
	raw := decode(t, `[[1700000000, {"dYdX V4": "12.5", "Drift": "oops"}]]`)

	got := Breakdown(raw, newTestResolver(), Cutoff{})

	assert.Equal(t, map[string]map[string]float64{
		"dydx-v4": {"2023-11-14": 12.5},
	}, got)
}

func TestDerivativesPrefersDailyVolume(t *testing.T) {
	raw := decode(t, `{
		"dailyVolume": [
			{"date": 1700000000, "volume": 100, "openInterest": 40}
		],
		"totalDataChart": [[1700000000, 999]]
	}`)

	got := Derivatives(raw, Cutoff{})

	require.Len(t, got, 1)
	require.NotNil(t, got["2023-11-14"].Volume)
	assert.Equal(t, 100.0, *got["2023-11-14"].Volume)
}

func TestDerivativesFallsBackToTotalDataChart(t *testing.T) {
	raw := decode(t, `{"totalDataChart": [[1700000000, 999]]}`)

	got := Derivatives(raw, Cutoff{})

	require.Len(t, got, 1)
	require.NotNil(t, got["2023-11-14"].Volume)
	assert.Equal(t, 999.0, *got["2023-11-14"].Volume)
	assert.Nil(t, got["2023-11-14"].OpenInterest)
}

func TestExtractOpenInterestPairUnderNamedKey(t *testing.T) {
	raw := decode(t, `{
		"summary": {
			"open_interest": [[1700000000, 40], [1700086400, 42]]
		}
	}`)

	got := ExtractOpenInterest(raw, Cutoff{})

	assert.Equal(t, map[string]float64{
		"2023-11-14": 40,
		"2023-11-15": 42,
	}, got)
}

func TestExtractOpenInterestObjectArray(t *testing.T) {
	raw := decode(t, `{
		"data": [
			{"date": 1700000000, "openInterestUsd": 40},
			{"date": 1700086400, "openInterestUsd": 42}
		]
	}`)

	got := ExtractOpenInterest(raw, Cutoff{})

	assert.Equal(t, map[string]float64{
		"2023-11-14": 40,
		"2023-11-15": 42,
	}, got)
}

func TestExtractOpenInterestPicksMostPopulated(t *testing.T) {
	raw := decode(t, `{
		"openInterest": [[1700000000, 1]],
		"nested": {
			"openInterestHistory": [[1700000000, 40], [1700086400, 42], [1700172800, 44]]
		}
	}`)

	got := ExtractOpenInterest(raw, Cutoff{})

	assert.Len(t, got, 3)
	assert.Equal(t, 44.0, got["2023-11-16"])
}

func TestExtractOpenInterestSeparatorStyles(t *testing.T) {
	for _, key := range []string{"openInterest", "open_interest", "open-interest", "OPEN INTEREST"} {
		raw := map[string]any{key: decode(t, `[[1700000000, 40]]`)}
		got := ExtractOpenInterest(raw, Cutoff{})
		assert.Equal(t, map[string]float64{"2023-11-14": 40}, got, "key %q", key)
	}
}

func TestExtractOpenInterestIgnoresUnrelatedPairSeries(t *testing.T) {
	raw := decode(t, `{"totalDataChart": [[1700000000, 999]]}`)

	got := ExtractOpenInterest(raw, Cutoff{})

	assert.Empty(t, got)
}
