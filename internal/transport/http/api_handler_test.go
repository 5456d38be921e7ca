package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpscope/internal/config"
	"perpscope/internal/engine"
	"perpscope/internal/infrastructure"
	"perpscope/internal/providers/llama"
	"perpscope/pkg/contracts/domain"
)

type fakeEngine struct {
	seriesReq engine.SeriesRequest
	series    *domain.SeriesPayload
	seriesErr error
	tables    *engine.Tables
	tablesErr error
}

func (f *fakeEngine) BuildSeries(ctx context.Context, req engine.SeriesRequest) (*domain.SeriesPayload, error) {
	f.seriesReq = req
	return f.series, f.seriesErr
}

func (f *fakeEngine) BuildProtocols(ctx context.Context) (*engine.ProtocolList, error) {
	return &engine.ProtocolList{GeneratedAt: time.Now()}, nil
}

func (f *fakeEngine) BuildSummary(ctx context.Context, req engine.SeriesRequest) (*domain.Summary, error) {
	if f.seriesErr != nil {
		return nil, f.seriesErr
	}
	return &domain.Summary{GeneratedAt: time.Now()}, nil
}

func (f *fakeEngine) BuildTables(ctx context.Context) (*engine.Tables, error) {
	return f.tables, f.tablesErr
}

func newTestRouter(eng EngineService) chi.Router {
	api := NewAPIHandler(eng, infrastructure.GetLogger())
	r := chi.NewRouter()
	r.Mount("/api", api.Routes())
	return r
}

func TestGetSeriesParsesQuery(t *testing.T) {
	eng := &fakeEngine{series: &domain.SeriesPayload{StartDate: "2023-01-01"}}
	router := newTestRouter(eng)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/series?slugs=gmx,%20dydx&limit=3&fresh=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"gmx", "dydx"}, eng.seriesReq.Slugs)
	assert.Equal(t, 3, eng.seriesReq.Limit)
	assert.True(t, eng.seriesReq.Fresh)

	var payload domain.SeriesPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "2023-01-01", payload.StartDate)
}

func TestGetSeriesRejectsBadLimit(t *testing.T) {
	router := newTestRouter(&fakeEngine{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/series?limit=zero", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
}

func TestGetSeriesMissingAPIKey(t *testing.T) {
	router := newTestRouter(&fakeEngine{seriesErr: llama.ErrMissingAPIKey})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/series", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "CONFIGURATION_MISSING")
}

func TestGetSeriesUpstreamFailure(t *testing.T) {
	router := newTestRouter(&fakeEngine{seriesErr: assert.AnError})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/series", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "UPSTREAM_UNAVAILABLE")
}

func TestGetTableDaily(t *testing.T) {
	eng := &fakeEngine{tables: &engine.Tables{
		DailyCSV:  "date,protocol_slug\n2023-11-14,gmx",
		WindowCSV: "date,window_days\n2023-11-15,7",
	}}
	router := newTestRouter(eng)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tables/daily", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "volume_efficiency_daily.csv")
	assert.Equal(t, eng.tables.DailyCSV, rec.Body.String())
}

func TestGetTableWindows(t *testing.T) {
	eng := &fakeEngine{tables: &engine.Tables{WindowCSV: "date,window_days\n"}}
	router := newTestRouter(eng)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tables/windows", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "volume_efficiency_windows.csv")
}

func TestGetTableInvalidKind(t *testing.T) {
	router := newTestRouter(&fakeEngine{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tables/monthly", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestRouterWiring(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := infrastructure.NewMetrics(reg)
	api := NewAPIHandler(&fakeEngine{series: &domain.SeriesPayload{}}, infrastructure.GetLogger())
	cfg := config.Default().Server

	router := NewRouter(cfg, api, metrics, reg, infrastructure.GetLogger())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
