// Package engine reconciles the two upstream providers into merged daily
// series, derived-ratio tables and cross-sectional summaries. All heavy
// lifting on raw payload shapes is delegated to the normalize package; the
// engine owns candidate selection, fan-out and caching.
package engine

import (
	"context"
	"log/slog"
	"time"

	"perpscope/internal/cache"
	"perpscope/internal/config"
	"perpscope/internal/identity"
	"perpscope/internal/infrastructure"
	"perpscope/pkg/contracts/domain"
)

// ProtocolAPI is the slice of the protocol-analytics client the engine needs.
type ProtocolAPI interface {
	Configured() bool
	DerivativesOverview(ctx context.Context) (any, error)
	FeesOverview(ctx context.Context, dataType string) (any, error)
	Protocols(ctx context.Context) (any, error)
	DerivativesSummary(ctx context.Context, slug string) (any, error)
	FeesSummary(ctx context.Context, slug, dataType string) (any, error)
}

// MarketAPI is the slice of the market-data client the engine needs.
type MarketAPI interface {
	Configured() bool
	SearchAssets(ctx context.Context, query string) ([]domain.AssetCandidate, error)
	Markets(ctx context.Context, ids []string) (map[string]domain.MarketPoint, error)
	MarketCapRange(ctx context.Context, id string, from, to time.Time) ([][]float64, error)
}

// Engine builds datasets from the two providers.
type Engine struct {
	cfg         config.EngineConfig
	protocols   ProtocolAPI
	markets     MarketAPI
	resolver    *identity.Resolver
	seriesCache *cache.TTL[*domain.SeriesPayload]
	metrics     *infrastructure.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// New assembles an Engine with its identity resolver and caches.
func New(cfg config.EngineConfig, protocols ProtocolAPI, markets MarketAPI, metrics *infrastructure.Metrics, logger *slog.Logger) *Engine {
	resolveCache := cache.New[*string](cfg.ResolveCacheTTL, time.Now)
	return &Engine{
		cfg:         cfg,
		protocols:   protocols,
		markets:     markets,
		resolver:    identity.NewResolver(markets, resolveCache, cfg.CoinIDOverrides, logger),
		seriesCache: cache.New[*domain.SeriesPayload](cfg.SeriesCacheTTL, time.Now),
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the engine clock. Tests only.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func field(payload any, key string) any {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil
	}
	return obj[key]
}
