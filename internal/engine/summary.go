package engine

import (
	"context"

	"perpscope/internal/stats"
	"perpscope/pkg/contracts/domain"
)

// BuildSummary computes the cross-sectional view over an already built
// series payload: latest snapshots, Pearson correlations over the default
// metric pairs, and the metric leaderboards.
func (e *Engine) BuildSummary(ctx context.Context, req SeriesRequest) (*domain.Summary, error) {
	payload, err := e.BuildSeries(ctx, req)
	if err != nil {
		return nil, err
	}
	return e.Summarize(payload), nil
}

// Summarize derives the summary from a payload without touching upstream.
func (e *Engine) Summarize(payload *domain.SeriesPayload) *domain.Summary {
	snapshots := stats.Snapshots(payload.Protocols)

	var latest string
	for _, row := range snapshots {
		if row.Date > latest {
			latest = row.Date
		}
	}

	return &domain.Summary{
		GeneratedAt:  e.now().UTC(),
		LatestDate:   latest,
		Snapshots:    snapshots,
		Totals:       stats.Totals(payload.Protocols),
		Correlations: stats.Correlations(payload.Protocols, stats.DefaultPairs),
		Leaders:      stats.Leaders(snapshots),
	}
}
