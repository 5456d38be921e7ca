package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpscope/pkg/contracts/domain"
)

func day(slug, date string) domain.DailyRecord {
	return domain.DailyRecord{Date: date, ProtocolSlug: slug, ProtocolName: slug}
}

func TestBuildSumsFullWindow(t *testing.T) {
	recs := []domain.DailyRecord{
		day("dydx-v4", "2024-06-01"),
		day("dydx-v4", "2024-06-02"),
		day("dydx-v4", "2024-06-03"),
	}
	recs[0].Fees = domain.Float(10)
	recs[1].Fees = domain.Float(20)
	recs[2].Fees = domain.Float(30)

	got := Build(recs, []int{3})

	require.Len(t, got, 1)
	assert.Equal(t, "2024-06-03", got[0].Date)
	assert.Equal(t, 3, got[0].WindowDays)
	require.NotNil(t, got[0].Fees)
	assert.Equal(t, 60.0, *got[0].Fees)
}

func TestBuildNoPartialWindows(t *testing.T) {
	recs := []domain.DailyRecord{
		day("dydx-v4", "2024-06-01"),
		day("dydx-v4", "2024-06-02"),
	}
	recs[0].Fees = domain.Float(10)
	recs[1].Fees = domain.Float(20)

	got := Build(recs, []int{3})

	assert.Empty(t, got)
}

func TestBuildMeanOverPresentValuesOnly(t *testing.T) {
	recs := []domain.DailyRecord{
		day("dydx-v4", "2024-06-01"),
		day("dydx-v4", "2024-06-02"),
		day("dydx-v4", "2024-06-03"),
	}
	recs[1].OpenInterest = domain.Float(100)
	recs[2].OpenInterest = domain.Float(200)

	got := Build(recs, []int{3})

	require.Len(t, got, 1)
	require.NotNil(t, got[0].OpenInterest)
	assert.Equal(t, 150.0, *got[0].OpenInterest, "nulls are excluded, not zero-substituted")
}

func TestBuildAllNilWindowIsNil(t *testing.T) {
	recs := []domain.DailyRecord{
		day("dydx-v4", "2024-06-01"),
		day("dydx-v4", "2024-06-02"),
		day("dydx-v4", "2024-06-03"),
	}

	got := Build(recs, []int{3})

	require.Len(t, got, 1)
	assert.Nil(t, got[0].Fees)
	assert.Nil(t, got[0].Volume)
	assert.Nil(t, got[0].OpenInterest)
	assert.Nil(t, got[0].MarketCap)
}

func TestBuildFDVCarriedFromEndRecord(t *testing.T) {
	recs := []domain.DailyRecord{
		day("dydx-v4", "2024-06-01"),
		day("dydx-v4", "2024-06-02"),
		day("dydx-v4", "2024-06-03"),
	}
	recs[0].FDV = domain.Float(111)
	recs[1].FDV = domain.Float(222)
	recs[2].FDV = domain.Float(333)

	got := Build(recs, []int{3})

	require.Len(t, got, 1)
	require.NotNil(t, got[0].FDV)
	assert.Equal(t, 333.0, *got[0].FDV)
}

func TestBuildRatiosRecomputedOnAggregates(t *testing.T) {
	recs := []domain.DailyRecord{
		day("dydx-v4", "2024-06-01"),
		day("dydx-v4", "2024-06-02"),
	}
	recs[0].Fees = domain.Float(10)
	recs[0].Volume = domain.Float(1000)
	recs[0].TakeRate = domain.Float(0.01)
	recs[1].Fees = domain.Float(30)
	recs[1].Volume = domain.Float(1000)
	recs[1].TakeRate = domain.Float(0.03)

	got := Build(recs, []int{2})

	require.Len(t, got, 1)
	require.NotNil(t, got[0].TakeRate)
	// 40 fees over 2000 volume, not a copy of either daily take rate.
	assert.InDelta(t, 0.02, *got[0].TakeRate, 1e-12)
}

func TestBuildOrdering(t *testing.T) {
	recs := []domain.DailyRecord{
		day("gmx-v1-perps", "2024-06-01"),
		day("gmx-v1-perps", "2024-06-02"),
		day("aevo-perps", "2024-06-01"),
		day("aevo-perps", "2024-06-02"),
	}
	for i := range recs {
		recs[i].Fees = domain.Float(1)
	}

	got := Build(recs, []int{2, 1})

	require.Len(t, got, 6)
	type key struct {
		slug   string
		window int
		date   string
	}
	var order []key
	for _, rec := range got {
		order = append(order, key{rec.ProtocolSlug, rec.WindowDays, rec.Date})
	}
	assert.Equal(t, []key{
		{"aevo-perps", 1, "2024-06-01"},
		{"aevo-perps", 1, "2024-06-02"},
		{"aevo-perps", 2, "2024-06-02"},
		{"gmx-v1-perps", 1, "2024-06-01"},
		{"gmx-v1-perps", 1, "2024-06-02"},
		{"gmx-v1-perps", 2, "2024-06-02"},
	}, order)
}

func TestBuildMultipleWindows(t *testing.T) {
	var recs []domain.DailyRecord
	dates := []string{"2024-06-01", "2024-06-02", "2024-06-03", "2024-06-04"}
	for i, d := range dates {
		rec := day("dydx-v4", d)
		rec.Volume = domain.Float(float64((i + 1) * 10))
		recs = append(recs, rec)
	}

	got := Build(recs, []int{2, 4})

	// Three 2-day windows plus one 4-day window.
	require.Len(t, got, 4)
	require.NotNil(t, got[3].Volume)
	assert.Equal(t, 100.0, *got[3].Volume)
	assert.Equal(t, 4, got[3].WindowDays)
}
