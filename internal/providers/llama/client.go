// Package llama is the client for the protocol-analytics provider. All
// responses are decoded into plain any trees so the normalize package can
// sort out the provider's shifting payload shapes.
package llama

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
)

// ErrMissingAPIKey is returned when the client is used without a configured key.
var ErrMissingAPIKey = errors.New("llama: api key not configured")

const providerLabel = "llama"

// Client talks to the protocol-analytics API. The API key rides in the URL
// path by default; the header mode sends it as x-api-key instead.
type Client struct {
	baseURL   string
	apiKey    string
	keyInPath bool
	http      *http.Client
	limiter   *rate.Limiter
	metrics   *infrastructure.Metrics
	logger    *slog.Logger
}

// NewClient builds a Client from configuration.
func NewClient(cfg config.LlamaConfig, metrics *infrastructure.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		keyInPath: cfg.KeyInPath,
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		metrics:   metrics,
		logger:    logger,
	}
}

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool { return c.apiKey != "" }

// DerivativesOverview fetches the cross-protocol derivatives overview,
// including the per-protocol breakdown chart.
func (c *Client) DerivativesOverview(ctx context.Context) (any, error) {
	return c.fetch(ctx, "overview/derivatives", "/api/overview/derivatives", nil)
}

// FeesOverview fetches the fees overview for the given dataType
// (dailyFees or dailyRevenue).
func (c *Client) FeesOverview(ctx context.Context, dataType string) (any, error) {
	return c.fetch(ctx, "overview/fees", "/api/overview/fees", url.Values{"dataType": {dataType}})
}

// Protocols fetches the full protocol listing with symbols and external
// asset ids.
func (c *Client) Protocols(ctx context.Context) (any, error) {
	return c.fetch(ctx, "protocols", "/api/protocols", nil)
}

// DerivativesSummary fetches the per-protocol derivatives summary.
func (c *Client) DerivativesSummary(ctx context.Context, slug string) (any, error) {
	return c.fetch(ctx, "summary/derivatives", "/api/summary/derivatives/"+url.PathEscape(slug), nil)
}

// FeesSummary fetches the per-protocol fees summary for the given dataType.
func (c *Client) FeesSummary(ctx context.Context, slug, dataType string) (any, error) {
	return c.fetch(ctx, "summary/fees", "/api/summary/fees/"+url.PathEscape(slug),
		url.Values{"dataType": {dataType}})
}

func (c *Client) fetch(ctx context.Context, endpoint, path string, params url.Values) (any, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	target := c.baseURL + path
	if c.keyInPath {
		target = c.baseURL + "/" + c.apiKey + path
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("llama: invalid url %s: %w", path, err)
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("llama: build request %s: %w", path, err)
	}
	if !c.keyInPath {
		req.Header.Set("x-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ProviderDuration.WithLabelValues(providerLabel, endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(providerLabel, endpoint, "error").Inc()
		return nil, fmt.Errorf("llama: %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	c.metrics.ProviderRequests.WithLabelValues(providerLabel, endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llama: %s failed: status %d", path, resp.StatusCode)
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("llama: decode %s: %w", path, err)
	}

	c.logger.DebugContext(ctx, "provider request completed",
		slog.String("provider", providerLabel),
		slog.String("endpoint", endpoint),
		slog.Duration("duration", time.Since(start)))

	return payload, nil
}
