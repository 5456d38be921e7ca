package gecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpscope/internal/config"
	"perpscope/internal/infrastructure"
)

func newTestClient(t *testing.T, handler http.Handler, chunkSize int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.GeckoConfig{
		BaseURL:   srv.URL,
		APIKey:    "gecko-key",
		KeyHeader: "x-cg-pro-api-key",
		Timeout:   5 * time.Second,
		RPS:       100,
		Burst:     100,
	}
	metrics := infrastructure.NewMetrics(prometheus.NewRegistry())
	return NewClient(cfg, chunkSize, metrics, infrastructure.GetLogger())
}

func TestSearchAssets(t *testing.T) {
	var gotHeader, gotQuery string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("x-cg-pro-api-key")
		gotQuery = r.URL.Query().Get("query")
		w.Write([]byte(`{"coins":[
			{"id":"gmx","name":"GMX","symbol":"gmx","market_cap_rank":120},
			{"id":"gmx-clone","name":"GMX Clone","symbol":"gmxc"}
		]}`))
	}), 200)

	candidates, err := client.SearchAssets(context.Background(), "GMX")
	require.NoError(t, err)
	assert.Equal(t, "gecko-key", gotHeader)
	assert.Equal(t, "GMX", gotQuery)
	require.Len(t, candidates, 2)
	assert.Equal(t, "gmx", candidates[0].ID)
	require.NotNil(t, candidates[0].MarketCapRank)
	assert.Equal(t, 120, *candidates[0].MarketCapRank)
	assert.Nil(t, candidates[1].MarketCapRank)
}

func TestMarketsChunks(t *testing.T) {
	var calls []string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query().Get("ids")
		calls = append(calls, ids)
		first := strings.Split(ids, ",")[0]
		w.Write([]byte(`[{"id":"` + first + `","market_cap":100,"fully_diluted_valuation":200}]`))
	}), 2)

	points, err := client.Markets(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a,b", "c"}, calls)
	require.Contains(t, points, "a")
	require.NotNil(t, points["a"].MarketCap)
	assert.Equal(t, 100.0, *points["a"].MarketCap)
	require.NotNil(t, points["a"].FDV)
	assert.Equal(t, 200.0, *points["a"].FDV)
}

func TestMarketsNullFields(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"dydx","market_cap":null,"fully_diluted_valuation":null}]`))
	}), 200)

	points, err := client.Markets(context.Background(), []string{"dydx"})
	require.NoError(t, err)
	require.Contains(t, points, "dydx")
	assert.Nil(t, points["dydx"].MarketCap)
	assert.Nil(t, points["dydx"].FDV)
}

func TestMarketCapRange(t *testing.T) {
	var gotPath, gotFrom, gotTo string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFrom = r.URL.Query().Get("from")
		gotTo = r.URL.Query().Get("to")
		w.Write([]byte(`{"market_caps":[[1700000000000,123.45]]}`))
	}), 200)

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	pairs, err := client.MarketCapRange(context.Background(), "gmx", from, to)
	require.NoError(t, err)
	assert.Equal(t, "/coins/gmx/market_chart/range", gotPath)
	assert.Equal(t, "1672531200", gotFrom)
	assert.Equal(t, "1701388800", gotTo)
	require.Len(t, pairs, 1)
	assert.Equal(t, []float64{1700000000000, 123.45}, pairs[0])
}

func TestMissingAPIKey(t *testing.T) {
	cfg := config.GeckoConfig{BaseURL: "http://localhost", KeyHeader: "x-cg-pro-api-key", Timeout: time.Second, RPS: 1, Burst: 1}
	client := NewClient(cfg, 0, infrastructure.NewMetrics(prometheus.NewRegistry()), infrastructure.GetLogger())

	assert.False(t, client.Configured())
	_, err := client.SearchAssets(context.Background(), "gmx")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNonOKStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}), 200)

	_, err := client.SearchAssets(context.Background(), "gmx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}
