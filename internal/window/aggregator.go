// Package window rolls daily records into fixed trailing windows. Flow
// metrics (fees, revenue, volume) are summed, stock metrics (open interest,
// market cap) averaged over present values, FDV carried from the window's
// end-date record, and every ratio recomputed on the aggregates.
package window

import (
	"math"
	"sort"

	"perpscope/internal/derive"
	"perpscope/pkg/contracts/domain"
)

// sumPresent adds the finite values among vs. It returns nil only when no
// value is present: a partially populated window sums what is there.
func sumPresent(vs []*float64) *float64 {
	var total float64
	count := 0
	for _, v := range vs {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}
		total += *v
		count++
	}
	if count == 0 {
		return nil
	}
	return domain.Float(total)
}

// meanPresent averages the finite values among vs, dividing by the count of
// present values rather than the window length.
func meanPresent(vs []*float64) *float64 {
	var total float64
	count := 0
	for _, v := range vs {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}
		total += *v
		count++
	}
	if count == 0 {
		return nil
	}
	return domain.Float(total / float64(count))
}

// collect extracts one metric across a slice of daily records.
func collect(slice []domain.DailyRecord, get func(domain.DailyRecord) *float64) []*float64 {
	out := make([]*float64, len(slice))
	for i, rec := range slice {
		out[i] = get(rec)
	}
	return out
}

// Build produces window records for every protocol, window length, and end
// date with at least windowDays daily records available. No partial windows
// are emitted. Output is ordered by (slug, window_days, date) ascending.
func Build(daily []domain.DailyRecord, windows []int) []domain.WindowRecord {
	bySlug := make(map[string][]domain.DailyRecord)
	var slugs []string
	for _, rec := range daily {
		if _, seen := bySlug[rec.ProtocolSlug]; !seen {
			slugs = append(slugs, rec.ProtocolSlug)
		}
		bySlug[rec.ProtocolSlug] = append(bySlug[rec.ProtocolSlug], rec)
	}
	sort.Strings(slugs)

	sortedWindows := append([]int(nil), windows...)
	sort.Ints(sortedWindows)

	var out []domain.WindowRecord
	for _, slug := range slugs {
		group := bySlug[slug]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Date < group[j].Date })

		for _, w := range sortedWindows {
			if w <= 0 {
				continue
			}
			for i := range group {
				if i+1 < w {
					continue
				}
				slice := group[i+1-w : i+1]
				out = append(out, buildOne(slice, group[i], w))
			}
		}
	}
	return out
}

// buildOne rolls a single window slice ending at the given daily record.
func buildOne(slice []domain.DailyRecord, end domain.DailyRecord, windowDays int) domain.WindowRecord {
	rec := domain.WindowRecord{
		DailyRecord: end,
		WindowDays:  windowDays,
	}
	rec.Fees = sumPresent(collect(slice, func(r domain.DailyRecord) *float64 { return r.Fees }))
	rec.Revenue = sumPresent(collect(slice, func(r domain.DailyRecord) *float64 { return r.Revenue }))
	rec.Volume = sumPresent(collect(slice, func(r domain.DailyRecord) *float64 { return r.Volume }))
	rec.OpenInterest = meanPresent(collect(slice, func(r domain.DailyRecord) *float64 { return r.OpenInterest }))
	rec.MarketCap = meanPresent(collect(slice, func(r domain.DailyRecord) *float64 { return r.MarketCap }))
	// FDV is a point value: carried from the end-date record, never aggregated.
	rec.FDV = end.FDV

	derive.ApplyRatios(&rec.DailyRecord)
	return rec
}
