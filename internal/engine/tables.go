package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"perpscope/internal/derive"
	"perpscope/internal/exporter"
	"perpscope/internal/normalize"
	"perpscope/internal/providers/llama"
	"perpscope/internal/window"
	"perpscope/pkg/contracts/domain"
)

// Tables is the output of a full snapshot build: the daily and window record
// sets plus their rendered CSV payloads.
type Tables struct {
	GeneratedAt time.Time             `json:"generatedAt"`
	DailyRows   []domain.DailyRecord  `json:"daily_rows"`
	WindowRows  []domain.WindowRecord `json:"window_rows"`
	DailyCSV    string                `json:"-"`
	WindowCSV   string                `json:"-"`
	Warnings    []string              `json:"warnings,omitempty"`
}

// BuildTables assembles the reconciled daily table over the configured
// lookback, rolls the trailing windows and renders both CSV artifacts.
// Per-protocol open-interest failures become warnings; overview fetches and
// the market snapshot are fatal.
func (e *Engine) BuildTables(ctx context.Context) (*Tables, error) {
	started := e.now()

	var derivOverview, feesOverview, revenueOverview, listing any
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		derivOverview, err = e.protocols.DerivativesOverview(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		feesOverview, err = e.protocols.FeesOverview(gctx, "dailyFees")
		return err
	})
	g.Go(func() error {
		var err error
		revenueOverview, err = e.protocols.FeesOverview(gctx, "dailyRevenue")
		return err
	})
	g.Go(func() error {
		var err error
		listing, err = e.protocols.Protocols(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch overviews: %w", err)
	}

	entries := llama.OverviewEntries(derivOverview)
	if len(entries) == 0 {
		return nil, errors.New("no derivatives protocols resolved")
	}

	validSlugs := make(map[string]bool, len(entries))
	nameBySlug := make(map[string]string, len(entries))
	bySlugName := make(map[string]string, len(entries)*2)
	for _, entry := range entries {
		validSlugs[entry.Slug] = true
		nameBySlug[entry.Slug] = entry.Name
		bySlugName[entry.Name] = entry.Slug
		bySlugName[strings.ToLower(entry.Name)] = entry.Slug
	}
	resolve := func(name string) (string, bool) {
		if slug, ok := bySlugName[name]; ok {
			return slug, true
		}
		if slug, ok := bySlugName[strings.ToLower(name)]; ok {
			return slug, true
		}
		// breakdown entries sometimes carry the slug itself
		if validSlugs[name] {
			return name, true
		}
		return "", false
	}

	cutoff := normalize.CutoffLookback(e.cfg.LookbackDays, e.now())
	feesData := normalize.Breakdown(llama.BreakdownChart(feesOverview), resolve, cutoff)
	revenueData := normalize.Breakdown(llama.BreakdownChart(revenueOverview), resolve, cutoff)
	volumeData := normalize.Breakdown(llama.BreakdownChart(derivOverview), resolve, cutoff)

	topSlugs := topByVolume(volumeData, e.cfg.TopN)

	var warnings []string
	openInterest := make(map[string]map[string]float64, len(topSlugs))
	results := mapLimit(ctx, topSlugs, e.cfg.OIWorkers, func(ctx context.Context, slug string) (map[string]float64, error) {
		payload, err := e.protocols.DerivativesSummary(ctx, slug)
		if err != nil {
			return nil, err
		}
		series := make(map[string]float64)
		for date, vo := range normalize.ObjectVolumeOI(field(payload, "dailyVolume"), cutoff) {
			if vo.OpenInterest != nil {
				series[date] = *vo.OpenInterest
			}
		}
		return series, nil
	})
	for i, res := range results {
		if res.Err != nil {
			warnings = append(warnings, fmt.Sprintf("open interest fetch failed for %s: %v", topSlugs[i], res.Err))
			continue
		}
		if len(res.Value) > 0 {
			openInterest[topSlugs[i]] = res.Value
		}
	}

	meta := make(map[string]domain.ProtocolIdentity, len(entries))
	for _, m := range llama.ProtocolMetas(listing) {
		if !validSlugs[m.Slug] {
			continue
		}
		ident := domain.ProtocolIdentity{Slug: m.Slug, Name: m.Name}
		ident.CoinID = m.GeckoID
		ident.CoinSymbol = m.Symbol
		ident.CoinName = domain.String(m.Name)
		meta[m.Slug] = ident
	}
	for slug := range validSlugs {
		if _, ok := meta[slug]; !ok {
			meta[slug] = domain.ProtocolIdentity{Slug: slug, Name: nameBySlug[slug]}
		}
	}

	coinIDs := make([]string, 0, len(meta))
	seen := make(map[string]bool)
	for _, ident := range meta {
		if ident.CoinID != nil && !seen[*ident.CoinID] {
			seen[*ident.CoinID] = true
			coinIDs = append(coinIDs, *ident.CoinID)
		}
	}
	sort.Strings(coinIDs)

	markets := map[string]domain.MarketPoint{}
	if len(coinIDs) > 0 {
		var err error
		markets, err = e.markets.Markets(ctx, coinIDs)
		if err != nil {
			return nil, fmt.Errorf("fetch market snapshot: %w", err)
		}
	}

	daily := buildDailyRecords(meta, feesData, revenueData, volumeData, openInterest, markets)
	windows := window.Build(daily, e.cfg.Windows)

	dailyCSV, err := exporter.DailyCSV(daily)
	if err != nil {
		return nil, fmt.Errorf("render daily table: %w", err)
	}
	windowCSV, err := exporter.WindowCSV(windows)
	if err != nil {
		return nil, fmt.Errorf("render window table: %w", err)
	}

	e.metrics.BuildDuration.WithLabelValues("tables").Observe(time.Since(started).Seconds())
	e.logger.InfoContext(ctx, "snapshot build completed",
		slog.Int("protocols", len(meta)),
		slog.Int("daily_rows", len(daily)),
		slog.Int("window_rows", len(windows)),
		slog.Duration("duration", time.Since(started)))

	return &Tables{
		GeneratedAt: started.UTC(),
		DailyRows:   daily,
		WindowRows:  windows,
		DailyCSV:    dailyCSV,
		WindowCSV:   windowCSV,
		Warnings:    warnings,
	}, nil
}

// topByVolume ranks slugs by their summed breakdown volume and keeps the
// first n.
func topByVolume(volume map[string]map[string]float64, n int) []string {
	type total struct {
		slug  string
		value float64
	}
	totals := make([]total, 0, len(volume))
	for slug, series := range volume {
		var sum float64
		for _, v := range series {
			sum += v
		}
		totals = append(totals, total{slug: slug, value: sum})
	}
	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].value == totals[j].value {
			return totals[i].slug < totals[j].slug
		}
		return totals[i].value > totals[j].value
	})
	if len(totals) > n {
		totals = totals[:n]
	}
	out := make([]string, len(totals))
	for i, t := range totals {
		out[i] = t.slug
	}
	return out
}

func buildDailyRecords(
	meta map[string]domain.ProtocolIdentity,
	fees, revenue, volume map[string]map[string]float64,
	openInterest map[string]map[string]float64,
	markets map[string]domain.MarketPoint,
) []domain.DailyRecord {
	slugs := make([]string, 0, len(meta))
	for slug := range meta {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	var rows []domain.DailyRecord
	for _, slug := range slugs {
		ident := meta[slug]

		dates := make(map[string]struct{})
		for date := range fees[slug] {
			dates[date] = struct{}{}
		}
		for date := range revenue[slug] {
			dates[date] = struct{}{}
		}
		for date := range volume[slug] {
			dates[date] = struct{}{}
		}
		for date := range openInterest[slug] {
			dates[date] = struct{}{}
		}
		sorted := make([]string, 0, len(dates))
		for date := range dates {
			sorted = append(sorted, date)
		}
		sort.Strings(sorted)

		var market domain.MarketPoint
		if ident.CoinID != nil {
			market = markets[*ident.CoinID]
		}

		for _, date := range sorted {
			rec := domain.DailyRecord{
				Date:         date,
				ProtocolSlug: slug,
				ProtocolName: ident.Name,
				CoinID:       ident.CoinID,
				CoinSymbol:   ident.CoinSymbol,
				CoinName:     ident.CoinName,
				Fees:         lookup(fees[slug], date),
				Revenue:      lookup(revenue[slug], date),
				Volume:       lookup(volume[slug], date),
				OpenInterest: lookup(openInterest[slug], date),
				MarketCap:    market.MarketCap,
				FDV:          market.FDV,
			}
			derive.ApplyRatios(&rec)
			rows = append(rows, rec)
		}
	}
	return rows
}

func lookup(series map[string]float64, date string) *float64 {
	if series == nil {
		return nil
	}
	if v, ok := series[date]; ok {
		return &v
	}
	return nil
}
