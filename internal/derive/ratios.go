// Package derive computes the derived financial ratios shared by daily and
// window records. All division goes through SafeDivide: absence of a
// meaningful ratio is always a nil pointer, never infinity, NaN, or zero.
package derive

import (
	"math"

	"perpscope/pkg/contracts/domain"
)

const millionScale = 1_000_000

// SafeDivide returns numer/denom, or nil when either operand is absent or
// non-finite, or when denom <= 0. It never panics and never yields Inf/NaN.
func SafeDivide(numer, denom *float64) *float64 {
	if numer == nil || denom == nil {
		return nil
	}
	n, d := *numer, *denom
	if math.IsNaN(n) || math.IsInf(n, 0) || math.IsNaN(d) || math.IsInf(d, 0) {
		return nil
	}
	if d <= 0 {
		return nil
	}
	// The quotient of two finite values can still overflow.
	q := n / d
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return nil
	}
	return domain.Float(q)
}

// scale multiplies a nullable value in place, preserving nil.
func scale(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	return domain.Float(*v * factor)
}

// ApplyRatios recomputes every derived ratio on rec from its own base
// metrics, replacing whatever was there before.
func ApplyRatios(rec *domain.DailyRecord) {
	rec.FeePerMillionVolume = scale(SafeDivide(rec.Fees, rec.Volume), millionScale)
	rec.RevenuePerMillionVolume = scale(SafeDivide(rec.Revenue, rec.Volume), millionScale)
	rec.TakeRate = SafeDivide(rec.Fees, rec.Volume)
	rec.MarketCapPerVolume = SafeDivide(rec.MarketCap, rec.Volume)
	rec.FDVPerVolume = SafeDivide(rec.FDV, rec.Volume)
	rec.OIPerVolume = SafeDivide(rec.OpenInterest, rec.Volume)
	rec.FeePerOpenInterest = SafeDivide(rec.Fees, rec.OpenInterest)
	rec.RevenuePerOpenInterest = SafeDivide(rec.Revenue, rec.OpenInterest)
}
