package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"perpscope/internal/derive"
	"perpscope/internal/normalize"
	"perpscope/internal/providers/llama"
	"perpscope/pkg/contracts/domain"
)

// SeriesRequest selects the protocols of a series build. When Slugs is
// non-empty it wins over Limit; Fresh bypasses the payload cache.
type SeriesRequest struct {
	Slugs []string
	Limit int
	Fresh bool
}

func (r SeriesRequest) cacheKey(limit int) string {
	return "series:" + strings.Join(r.Slugs, ",") + ":" + strconv.Itoa(limit)
}

// BuildSeries assembles merged daily series for the selected protocols.
// Upstream failures on individual protocols become warnings in the payload;
// only the initial overview and listing fetches are fatal.
func (e *Engine) BuildSeries(ctx context.Context, req SeriesRequest) (*domain.SeriesPayload, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}

	key := req.cacheKey(limit)
	if !req.Fresh {
		if payload, ok := e.seriesCache.Get(key); ok {
			e.metrics.CacheHits.WithLabelValues("series").Inc()
			return payload, nil
		}
		e.metrics.CacheMisses.WithLabelValues("series").Inc()
	}

	started := e.now()

	var overview, listing any
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		overview, err = e.protocols.DerivativesOverview(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		listing, err = e.protocols.Protocols(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch protocol overview: %w", err)
	}

	candidates := e.candidates(overview, listing)
	selected := selectProtocols(candidates, req.Slugs, limit)

	var warnings []string
	resolved := mapLimit(ctx, selected, e.cfg.ResolveWorkers, func(ctx context.Context, p domain.ProtocolIdentity) (domain.ProtocolIdentity, error) {
		id, err := e.resolver.Resolve(ctx, p)
		if err != nil {
			return p, err
		}
		if id != nil {
			p.CoinID = id
		}
		return p, nil
	})
	for i, res := range resolved {
		selected[i] = res.Value
		if res.Err != nil {
			warnings = append(warnings, fmt.Sprintf("identity resolution failed for %s: %v", res.Value.Slug, res.Err))
		}
	}

	cutoff := normalize.CutoffFromStart(e.cfg.StartTime())
	fallbackVolume := normalize.Breakdown(llama.BreakdownChart(overview), nameResolver(candidates), cutoff)

	type protoResult struct {
		series   domain.ProtocolSeries
		warnings []string
	}
	results := mapLimit(ctx, selected, e.cfg.SeriesWorkers, func(ctx context.Context, p domain.ProtocolIdentity) (protoResult, error) {
		series, w := e.buildProtocolSeries(ctx, p, fallbackVolume[p.Slug], cutoff)
		return protoResult{series: series, warnings: w}, nil
	})

	protocols := make([]domain.ProtocolSeries, 0, len(results))
	for _, res := range results {
		protocols = append(protocols, res.Value.series)
		warnings = append(warnings, res.Value.warnings...)
	}

	payload := &domain.SeriesPayload{
		GeneratedAt: started.UTC(),
		StartDate:   e.cfg.StartDate,
		Protocols:   protocols,
		Warnings:    warnings,
	}
	e.seriesCache.Set(key, payload)
	e.metrics.BuildDuration.WithLabelValues("series").Observe(time.Since(started).Seconds())
	e.logger.InfoContext(ctx, "series build completed",
		slog.Int("protocols", len(protocols)),
		slog.Int("warnings", len(warnings)),
		slog.Duration("duration", time.Since(started)))

	return payload, nil
}

// candidates joins overview rows with listing metadata and sorts by 30d
// volume descending.
func (e *Engine) candidates(overview, listing any) []domain.ProtocolIdentity {
	metaBySlug := make(map[string]llama.ProtocolMeta)
	for _, meta := range llama.ProtocolMetas(listing) {
		metaBySlug[meta.Slug] = meta
	}

	entries := llama.OverviewEntries(overview)
	out := make([]domain.ProtocolIdentity, 0, len(entries))
	for _, entry := range entries {
		ident := domain.ProtocolIdentity{
			Slug:      entry.Slug,
			Name:      entry.Name,
			Volume30d: entry.Volume30d,
		}
		if meta, ok := metaBySlug[entry.Slug]; ok {
			if meta.Name != "" {
				ident.Name = meta.Name
			}
			ident.Symbol = meta.Symbol
			ident.CoinID = meta.GeckoID
		}
		out = append(out, ident)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return deref(out[i].Volume30d) > deref(out[j].Volume30d)
	})
	return out
}

func selectProtocols(candidates []domain.ProtocolIdentity, slugs []string, limit int) []domain.ProtocolIdentity {
	if len(slugs) > 0 {
		requested := make(map[string]bool, len(slugs))
		for _, s := range slugs {
			if s = strings.TrimSpace(s); s != "" {
				requested[s] = true
			}
		}
		var out []domain.ProtocolIdentity
		for _, c := range candidates {
			if requested[c.Slug] {
				out = append(out, c)
			}
		}
		return out
	}
	if len(candidates) > limit {
		return append([]domain.ProtocolIdentity(nil), candidates[:limit]...)
	}
	return append([]domain.ProtocolIdentity(nil), candidates...)
}

// nameResolver maps breakdown entry names back to slugs, exact first then
// case-folded.
func nameResolver(candidates []domain.ProtocolIdentity) normalize.NameResolver {
	bySlugName := make(map[string]string, len(candidates)*2)
	for _, c := range candidates {
		bySlugName[c.Name] = c.Slug
		bySlugName[strings.ToLower(c.Name)] = c.Slug
	}
	return func(name string) (string, bool) {
		if slug, ok := bySlugName[name]; ok {
			return slug, true
		}
		slug, ok := bySlugName[strings.ToLower(name)]
		return slug, ok
	}
}

func (e *Engine) buildProtocolSeries(ctx context.Context, p domain.ProtocolIdentity, fallbackVolume map[string]float64, cutoff normalize.Cutoff) (domain.ProtocolSeries, []string) {
	var warnings []string

	derivs, err := e.protocols.DerivativesSummary(ctx, p.Slug)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("derivatives fetch failed for %s: %v", p.Slug, err))
	}
	feesPayload, err := e.protocols.FeesSummary(ctx, p.Slug, "dailyFees")
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("fees fetch failed for %s: %v", p.Slug, err))
	}
	var capPairs [][]float64
	if p.CoinID != nil {
		capPairs, err = e.markets.MarketCapRange(ctx, *p.CoinID, e.cfg.StartTime(), e.now())
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("market cap fetch failed for %s: %v", p.Slug, err))
		}
	}

	volumeSeries := normalize.Derivatives(derivs, cutoff)
	if len(volumeSeries) == 0 && len(fallbackVolume) > 0 {
		volumeSeries = make(map[string]normalize.VolumeOI, len(fallbackVolume))
		for date, value := range fallbackVolume {
			value := value
			volumeSeries[date] = normalize.VolumeOI{Volume: &value}
		}
	}
	feesSeries := normalize.PairSeries(field(feesPayload, "totalDataChart"), cutoff)

	caps := make(map[string]float64, len(capPairs))
	for _, pair := range capPairs {
		if len(pair) < 2 {
			continue
		}
		dateKey := normalize.DateKeyMillis(pair[0])
		if !cutoff.Keep(dateKey) {
			continue
		}
		caps[dateKey] = pair[1]
	}

	dates := make(map[string]struct{})
	for date := range volumeSeries {
		dates[date] = struct{}{}
	}
	for date := range feesSeries {
		dates[date] = struct{}{}
	}
	for date := range caps {
		dates[date] = struct{}{}
	}
	sorted := make([]string, 0, len(dates))
	for date := range dates {
		sorted = append(sorted, date)
	}
	sort.Strings(sorted)

	points := make([]domain.SeriesPoint, 0, len(sorted))
	for _, date := range sorted {
		point := domain.SeriesPoint{Date: date}
		if vo, ok := volumeSeries[date]; ok {
			point.Volume = vo.Volume
			point.OpenInterest = vo.OpenInterest
		}
		if v, ok := feesSeries[date]; ok {
			v := v
			point.Fees = &v
		}
		if v, ok := caps[date]; ok {
			v := v
			point.MarketCap = &v
		}
		point.TakeRate = derive.SafeDivide(point.Fees, point.Volume)
		points = append(points, point)
	}

	return domain.ProtocolSeries{
		Slug:      p.Slug,
		Name:      p.Name,
		Symbol:    p.Symbol,
		CoinID:    p.CoinID,
		Volume30d: p.Volume30d,
		Points:    points,
	}, warnings
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
