package derive

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpscope/pkg/contracts/domain"
)

func TestSafeDivide(t *testing.T) {
	tests := []struct {
		name  string
		numer *float64
		denom *float64
		want  *float64
	}{
		{"both present", domain.Float(10), domain.Float(4), domain.Float(2.5)},
		{"nil numerator", nil, domain.Float(4), nil},
		{"nil denominator", domain.Float(10), nil, nil},
		{"zero denominator", domain.Float(10), domain.Float(0), nil},
		{"negative denominator", domain.Float(10), domain.Float(-5), nil},
		{"negative numerator ok", domain.Float(-10), domain.Float(5), domain.Float(-2)},
		{"nan numerator", domain.Float(math.NaN()), domain.Float(5), nil},
		{"nan denominator", domain.Float(5), domain.Float(math.NaN()), nil},
		{"inf numerator", domain.Float(math.Inf(1)), domain.Float(5), nil},
		{"inf denominator", domain.Float(5), domain.Float(math.Inf(1)), nil},
		{"tiny positive denominator", domain.Float(1), domain.Float(1e-12), domain.Float(1e12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeDivide(tt.numer, tt.denom)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestSafeDivideNeverReturnsNonFinite(t *testing.T) {
	// MaxFloat64 / SmallestNonzeroFloat64 overflows even though both
	// operands are finite.
	got := SafeDivide(domain.Float(math.MaxFloat64), domain.Float(math.SmallestNonzeroFloat64))
	assert.Nil(t, got)

	got = SafeDivide(domain.Float(-math.MaxFloat64), domain.Float(math.SmallestNonzeroFloat64))
	assert.Nil(t, got)
}

func TestApplyRatios(t *testing.T) {
	rec := &domain.DailyRecord{
		Date:         "2024-06-01",
		ProtocolSlug: "dydx-v4",
		Fees:         domain.Float(500),
		Revenue:      domain.Float(200),
		Volume:       domain.Float(1_000_000),
		OpenInterest: domain.Float(250_000),
		MarketCap:    domain.Float(2_000_000),
		FDV:          domain.Float(4_000_000),
	}

	ApplyRatios(rec)

	require.NotNil(t, rec.FeePerMillionVolume)
	assert.InDelta(t, 500, *rec.FeePerMillionVolume, 1e-9)
	require.NotNil(t, rec.RevenuePerMillionVolume)
	assert.InDelta(t, 200, *rec.RevenuePerMillionVolume, 1e-9)
	require.NotNil(t, rec.TakeRate)
	assert.InDelta(t, 0.0005, *rec.TakeRate, 1e-12)
	require.NotNil(t, rec.MarketCapPerVolume)
	assert.InDelta(t, 2, *rec.MarketCapPerVolume, 1e-9)
	require.NotNil(t, rec.FDVPerVolume)
	assert.InDelta(t, 4, *rec.FDVPerVolume, 1e-9)
	require.NotNil(t, rec.OIPerVolume)
	assert.InDelta(t, 0.25, *rec.OIPerVolume, 1e-9)
	require.NotNil(t, rec.FeePerOpenInterest)
	assert.InDelta(t, 0.002, *rec.FeePerOpenInterest, 1e-12)
	require.NotNil(t, rec.RevenuePerOpenInterest)
	assert.InDelta(t, 0.0008, *rec.RevenuePerOpenInterest, 1e-12)
}

func TestApplyRatiosMissingDenominators(t *testing.T) {
	rec := &domain.DailyRecord{
		Date:         "2024-06-01",
		ProtocolSlug: "gmx-v1-perps",
		Fees:         domain.Float(500),
		Revenue:      domain.Float(200),
	}

	ApplyRatios(rec)

	assert.Nil(t, rec.FeePerMillionVolume)
	assert.Nil(t, rec.RevenuePerMillionVolume)
	assert.Nil(t, rec.TakeRate)
	assert.Nil(t, rec.MarketCapPerVolume)
	assert.Nil(t, rec.FDVPerVolume)
	assert.Nil(t, rec.OIPerVolume)
	assert.Nil(t, rec.FeePerOpenInterest)
	assert.Nil(t, rec.RevenuePerOpenInterest)
}

func TestApplyRatiosReplacesStaleValues(t *testing.T) {
	rec := &domain.DailyRecord{
		Date:         "2024-06-01",
		ProtocolSlug: "aevo-perps",
		TakeRate:     domain.Float(0.9),
	}

	ApplyRatios(rec)

	assert.Nil(t, rec.TakeRate, "stale ratio must be recomputed, not copied")
}
