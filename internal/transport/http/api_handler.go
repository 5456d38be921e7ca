// Package http exposes the engine over a chi router: series, protocol
// listing, summary and CSV table endpoints.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"perpscope/internal/engine"
	apierrors "perpscope/internal/errors"
	"perpscope/internal/providers/gecko"
	"perpscope/internal/providers/llama"
	"perpscope/pkg/contracts/domain"
)

// EngineService is the slice of the engine the API handler needs.
type EngineService interface {
	BuildSeries(ctx context.Context, req engine.SeriesRequest) (*domain.SeriesPayload, error)
	BuildProtocols(ctx context.Context) (*engine.ProtocolList, error)
	BuildSummary(ctx context.Context, req engine.SeriesRequest) (*domain.Summary, error)
	BuildTables(ctx context.Context) (*engine.Tables, error)
}

// APIHandler handles all dataset HTTP requests.
type APIHandler struct {
	engine EngineService
	logger *slog.Logger
}

// NewAPIHandler creates the dataset handler.
func NewAPIHandler(engine EngineService, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		engine: engine,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// Routes returns the dataset routes.
func (h *APIHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/series", h.GetSeries)
		r.Get("/protocols", h.GetProtocols)
		r.Get("/summary", h.GetSummary)
	})

	r.Get("/tables/{kind}", h.GetTable)

	return r
}

// GetSeries handles GET /api/series.
func (h *APIHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	req, apiErr := seriesRequest(r)
	if apiErr != nil {
		h.renderError(w, r, apiErr)
		return
	}

	payload, err := h.engine.BuildSeries(r.Context(), req)
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}

	render.JSON(w, r, payload)
}

// GetProtocols handles GET /api/protocols.
func (h *APIHandler) GetProtocols(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.BuildProtocols(r.Context())
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}

	render.JSON(w, r, list)
}

// GetSummary handles GET /api/summary.
func (h *APIHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	req, apiErr := seriesRequest(r)
	if apiErr != nil {
		h.renderError(w, r, apiErr)
		return
	}

	summary, err := h.engine.BuildSummary(r.Context(), req)
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}

	render.JSON(w, r, summary)
}

// GetTable handles GET /api/tables/{kind} where kind is daily or windows.
// The response body is the rendered CSV.
func (h *APIHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if kind != "daily" && kind != "windows" {
		h.renderError(w, r, apierrors.ErrValidation("kind", "table kind must be daily or windows"))
		return
	}

	tables, err := h.engine.BuildTables(r.Context())
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}

	body := tables.DailyCSV
	filename := "volume_efficiency_daily.csv"
	if kind == "windows" {
		body = tables.WindowCSV
		filename = "volume_efficiency_windows.csv"
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func seriesRequest(r *http.Request) (engine.SeriesRequest, *apierrors.APIError) {
	req := engine.SeriesRequest{}

	if slugs := r.URL.Query().Get("slugs"); slugs != "" {
		for _, slug := range strings.Split(slugs, ",") {
			if slug = strings.TrimSpace(slug); slug != "" {
				req.Slugs = append(req.Slugs, slug)
			}
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return req, apierrors.ErrValidation("limit", "limit must be a positive integer")
		}
		req.Limit = limit
	}
	req.Fresh = r.URL.Query().Get("fresh") == "1"

	return req, nil
}

func (h *APIHandler) handleEngineError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "dataset build failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))

	switch {
	case errors.Is(err, llama.ErrMissingAPIKey):
		h.renderError(w, r, apierrors.ConfigurationMissingError("protocol analytics"))
	case errors.Is(err, gecko.ErrMissingAPIKey):
		h.renderError(w, r, apierrors.ConfigurationMissingError("market data"))
	default:
		h.renderError(w, r, apierrors.UpstreamError("upstream", err))
	}
}

func (h *APIHandler) renderError(w http.ResponseWriter, r *http.Request, apiErr *apierrors.APIError) {
	if err := render.Render(w, r, apierrors.NewErrorResponse(apiErr)); err != nil {
		apierrors.WriteError(w, apiErr)
	}
}
