package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"perpscope/internal/config"
	"perpscope/internal/infrastructure"
	"perpscope/internal/middleware"
)

// NewRouter assembles the full middleware chain and mounts the API routes.
func NewRouter(cfg config.ServerConfig, api *APIHandler, metrics *infrastructure.Metrics, gatherer prometheus.Gatherer, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Compress(5))
	r.Use(chimw.Timeout(cfg.WriteTimeout))

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	r.Use(limiter.Handler)

	r.Get("/healthz", Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Mount("/api", api.Routes())

	return r
}

// NewServer wraps the router in an http.Server with the configured timeouts.
func NewServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
