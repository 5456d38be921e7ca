// Package app wires configuration, logging, metrics, the provider clients,
// the engine and the HTTP server into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"perpscope/internal/config"
	"perpscope/internal/engine"
	"perpscope/internal/infrastructure"
	"perpscope/internal/providers/gecko"
	"perpscope/internal/providers/llama"
	transport "perpscope/internal/transport/http"
	"perpscope/pkg/contracts"
)

// Application holds the assembled server and its dependencies.
type Application struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *engine.Engine
	server *http.Server
}

// NewApplication loads configuration and assembles the full dependency graph.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := infrastructure.NewMetrics(registry)

	llamaClient := llama.NewClient(cfg.Llama, metrics, logger)
	geckoClient := gecko.NewClient(cfg.Gecko, cfg.Engine.MarketChunkSize, metrics, logger)
	eng := engine.New(cfg.Engine, llamaClient, geckoClient, metrics, logger)

	api := transport.NewAPIHandler(eng, logger)
	router := transport.NewRouter(cfg.Server, api, metrics, registry, logger)
	server := transport.NewServer(cfg.Server, router)

	if !llamaClient.Configured() {
		logger.Warn("protocol analytics API key not configured, dataset endpoints will fail")
	}
	if !geckoClient.Configured() {
		logger.Warn("market data API key not configured, identity resolution and market caps disabled")
	}

	return &Application{
		cfg:    cfg,
		logger: logger,
		engine: eng,
		server: server,
	}, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (a *Application) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening",
			slog.String("addr", a.server.Addr),
			slog.String("version", contracts.Version))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		a.logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	infrastructure.CloseLogFile()
	a.logger.Info("server stopped")
	return nil
}
