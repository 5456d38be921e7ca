// Package gecko is the client for the market-data provider: asset search,
// bulk market snapshots and historical market-cap ranges.
package gecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"perpscope/internal/config"
	"perpscope/internal/infrastructure"
	"perpscope/pkg/contracts/domain"
)

// ErrMissingAPIKey is returned when the client is used without a configured key.
var ErrMissingAPIKey = errors.New("gecko: api key not configured")

const providerLabel = "gecko"

// Client talks to the market-data API. The key travels in a configurable
// request header.
type Client struct {
	baseURL   string
	apiKey    string
	keyHeader string
	chunkSize int
	http      *http.Client
	limiter   *rate.Limiter
	metrics   *infrastructure.Metrics
	logger    *slog.Logger
}

// NewClient builds a Client from configuration. chunkSize bounds how many
// asset ids go into a single markets call.
func NewClient(cfg config.GeckoConfig, chunkSize int, metrics *infrastructure.Metrics, logger *slog.Logger) *Client {
	if chunkSize <= 0 {
		chunkSize = 200
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		keyHeader: cfg.KeyHeader,
		chunkSize: chunkSize,
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		metrics:   metrics,
		logger:    logger,
	}
}

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool { return c.apiKey != "" }

// SearchAssets looks up asset candidates for a free-text query. Implements
// the identity resolver's Searcher.
func (c *Client) SearchAssets(ctx context.Context, query string) ([]domain.AssetCandidate, error) {
	var payload struct {
		Coins []struct {
			ID            string  `json:"id"`
			Name          string  `json:"name"`
			Symbol        string  `json:"symbol"`
			MarketCapRank *int    `json:"market_cap_rank"`
		} `json:"coins"`
	}
	if err := c.fetch(ctx, "search", "/search", url.Values{"query": {query}}, &payload); err != nil {
		return nil, err
	}

	candidates := make([]domain.AssetCandidate, 0, len(payload.Coins))
	for _, coin := range payload.Coins {
		candidates = append(candidates, domain.AssetCandidate{
			ID:            coin.ID,
			Name:          coin.Name,
			Symbol:        coin.Symbol,
			MarketCapRank: coin.MarketCapRank,
		})
	}
	return candidates, nil
}

// Markets fetches the latest market cap and fully diluted valuation for the
// given asset ids, chunking requests to the configured size.
func (c *Client) Markets(ctx context.Context, ids []string) (map[string]domain.MarketPoint, error) {
	out := make(map[string]domain.MarketPoint, len(ids))
	for start := 0; start < len(ids); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		var payload []struct {
			ID        string   `json:"id"`
			MarketCap *float64 `json:"market_cap"`
			FDV       *float64 `json:"fully_diluted_valuation"`
		}
		err := c.fetch(ctx, "markets", "/coins/markets", url.Values{
			"vs_currency": {"usd"},
			"ids":         {strings.Join(batch, ",")},
		}, &payload)
		if err != nil {
			return nil, err
		}

		for _, entry := range payload {
			if entry.ID == "" {
				continue
			}
			out[entry.ID] = domain.MarketPoint{
				MarketCap: entry.MarketCap,
				FDV:       entry.FDV,
			}
		}
	}
	return out, nil
}

// MarketCapRange fetches the historical market-cap pair series for one
// asset between the given instants. Timestamps in the result are
// milliseconds.
func (c *Client) MarketCapRange(ctx context.Context, id string, from, to time.Time) ([][]float64, error) {
	var payload struct {
		MarketCaps [][]float64 `json:"market_caps"`
	}
	path := "/coins/" + url.PathEscape(id) + "/market_chart/range"
	err := c.fetch(ctx, "market_chart_range", path, url.Values{
		"vs_currency": {"usd"},
		"from":        {strconv.FormatInt(from.Unix(), 10)},
		"to":          {strconv.FormatInt(to.Unix(), 10)},
	}, &payload)
	if err != nil {
		return nil, err
	}
	return payload.MarketCaps, nil
}

func (c *Client) fetch(ctx context.Context, endpoint, path string, params url.Values, dest any) error {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("gecko: invalid url %s: %w", path, err)
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("gecko: build request %s: %w", path, err)
	}
	req.Header.Set(c.keyHeader, c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ProviderDuration.WithLabelValues(providerLabel, endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, endpoint, "error").Inc()
		return fmt.Errorf("gecko: %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	c.metrics.ProviderRequests.WithLabelValues(providerLabel, endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gecko: %s failed: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("gecko: decode %s: %w", path, err)
	}

	c.logger.DebugContext(ctx, "provider request completed",
		slog.String("provider", providerLabel),
		slog.String("endpoint", endpoint),
		slog.Duration("duration", time.Since(start)))

	return nil
}
