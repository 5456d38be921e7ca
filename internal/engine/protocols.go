package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"perpscope/internal/providers/llama"
	"perpscope/pkg/contracts/domain"
)

// ProtocolList is the protocol listing: overview volumes joined with listing
// metadata, sorted by 30d volume descending.
type ProtocolList struct {
	GeneratedAt time.Time            `json:"generatedAt"`
	Protocols   []domain.ProtocolRow `json:"protocols"`
}

// BuildProtocols assembles the protocol listing.
func (e *Engine) BuildProtocols(ctx context.Context) (*ProtocolList, error) {
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

	metaBySlug := make(map[string]llama.ProtocolMeta)
	for _, meta := range llama.ProtocolMetas(listing) {
		metaBySlug[meta.Slug] = meta
	}

	entries := llama.OverviewEntries(overview)
	rows := make([]domain.ProtocolRow, 0, len(entries))
	for _, entry := range entries {
		row := domain.ProtocolRow{
			Slug:          entry.Slug,
			Name:          entry.Name,
			Volume24h:     entry.Volume24h,
			Volume7d:      entry.Volume7d,
			Volume30d:     entry.Volume30d,
			VolumeAllTime: entry.VolumeAllTime,
		}
		if meta, ok := metaBySlug[entry.Slug]; ok {
			row.Symbol = meta.Symbol
			row.CoinID = meta.GeckoID
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return deref(rows[i].Volume30d) > deref(rows[j].Volume30d)
	})

	return &ProtocolList{GeneratedAt: e.now().UTC(), Protocols: rows}, nil
}
