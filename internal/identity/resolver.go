// Package identity resolves a protocol's external market-data asset id from
// provider search results. Resolution outcomes are cached with a long TTL
// keyed by slug; a failed search call is never cached so it retries on the
// next invocation.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"perpscope/internal/cache"
	"perpscope/pkg/contracts/domain"
)

// Searcher is the market-data provider's search call.
type Searcher interface {
	SearchAssets(ctx context.Context, query string) ([]domain.AssetCandidate, error)
}

// Resolver maps protocols to external asset ids.
type Resolver struct {
	search    Searcher
	cache     *cache.TTL[*string]
	overrides map[string]string
	logger    *slog.Logger
}

// NewResolver creates a resolver. overrides maps protocol slugs directly to
// asset ids and wins over cache and search.
func NewResolver(search Searcher, c *cache.TTL[*string], overrides map[string]string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		search:    search,
		cache:     c,
		overrides: overrides,
		logger:    logger,
	}
}

// Resolve returns the best-guess external asset id for the protocol, or nil
// when none can be determined. A nil result from an empty candidate list is
// cached; a nil caused by a failed search call is returned with the error and
// not cached.
func (r *Resolver) Resolve(ctx context.Context, protocol domain.ProtocolIdentity) (*string, error) {
	if protocol.CoinID != nil && *protocol.CoinID != "" {
		return protocol.CoinID, nil
	}
	if id, ok := r.overrides[protocol.Slug]; ok && id != "" {
		return domain.String(id), nil
	}

	if cached, ok := r.cache.Get(protocol.Slug); ok {
		return cached, nil
	}

	candidates, err := r.search.SearchAssets(ctx, protocol.Name)
	if err != nil {
		return nil, fmt.Errorf("search assets for %s: %w", protocol.Slug, err)
	}

	id := Pick(protocol, candidates)
	r.cache.Set(protocol.Slug, id)
	if id == nil {
		r.logger.WarnContext(ctx, "no asset id resolved",
			slog.String("slug", protocol.Slug),
			slog.Int("candidates", len(candidates)))
	}
	return id, nil
}

// Pick selects the best candidate in strict priority order: exact symbol
// match, exact name match, name containment, then best market-cap rank
// falling back to the first candidate. All comparisons are case-folded.
// Returns nil for an empty candidate list.
func Pick(protocol domain.ProtocolIdentity, candidates []domain.AssetCandidate) *string {
	if len(candidates) == 0 {
		return nil
	}

	symbol := ""
	if protocol.Symbol != nil {
		symbol = strings.ToLower(*protocol.Symbol)
	}
	name := strings.ToLower(protocol.Name)

	if symbol != "" {
		for _, c := range candidates {
			if strings.ToLower(c.Symbol) == symbol {
				return domain.String(c.ID)
			}
		}
	}
	for _, c := range candidates {
		if strings.ToLower(c.Name) == name {
			return domain.String(c.ID)
		}
	}
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Name), name) {
			return domain.String(c.ID)
		}
	}

	ranked := make([]domain.AssetCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.MarketCapRank != nil {
			ranked = append(ranked, c)
		}
	}
	if len(ranked) > 0 {
		sort.SliceStable(ranked, func(i, j int) bool {
			return *ranked[i].MarketCapRank < *ranked[j].MarketCapRank
		})
		return domain.String(ranked[0].ID)
	}
	return domain.String(candidates[0].ID)
}
