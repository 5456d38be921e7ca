// Package normalize converts the raw heterogeneous series payloads returned
// by the upstream providers into canonical slug → date → value maps. Shape
// detection is duck-typed over decoded JSON values; malformed points are
// dropped per-point, never per-series.
package normalize

import (
	"time"

	"perpscope/pkg/contracts/domain"
)

// millisThreshold disambiguates second vs millisecond timestamps: anything
// above 10^12 is read as milliseconds.
const millisThreshold = 1e12

// DateKey converts a unix timestamp in seconds or milliseconds to the UTC
// calendar-day key.
func DateKey(ts float64) string {
	millis := int64(ts)
	if ts <= millisThreshold {
		millis = int64(ts) * 1000
	}
	return time.UnixMilli(millis).UTC().Format(domain.DateKeyLayout)
}

// DateKeyMillis converts a millisecond timestamp to the UTC calendar-day key.
// Used for sources that always report milliseconds regardless of magnitude.
func DateKeyMillis(ms float64) string {
	return time.UnixMilli(int64(ms)).UTC().Format(domain.DateKeyLayout)
}

// Cutoff is the earliest calendar date whose points are retained. The zero
// value retains everything.
type Cutoff struct {
	min string
}

// CutoffFromStart retains points on or after the given instant's UTC day.
func CutoffFromStart(start time.Time) Cutoff {
	return Cutoff{min: start.UTC().Format(domain.DateKeyLayout)}
}

// CutoffLookback retains the trailing days-day range ending at now's UTC day,
// inclusive on both ends.
func CutoffLookback(days int, now time.Time) Cutoff {
	day := now.UTC().Truncate(24 * time.Hour)
	min := day.AddDate(0, 0, -(days - 1))
	return Cutoff{min: min.Format(domain.DateKeyLayout)}
}

// Keep reports whether a date key is on or after the cutoff. Date keys are
// ISO days, so lexicographic comparison is chronological.
func (c Cutoff) Keep(dateKey string) bool {
	return c.min == "" || dateKey >= c.min
}

// Min returns the earliest retained date key, or "" when unbounded.
func (c Cutoff) Min() string { return c.min }
