// Command snapshot runs one batch build of the derived tables: it pulls the
// overviews, reconciles the daily and window records, writes both CSV
// artifacts to disk and optionally uploads them to object storage.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"perpscope/internal/config"
	"perpscope/internal/engine"
	"perpscope/internal/exporter"
	"perpscope/internal/infrastructure"
	"perpscope/internal/providers/gecko"
	"perpscope/internal/providers/llama"
	"perpscope/internal/store"
)

func main() {
	outDir := flag.String("out", "", "output directory for CSV files (defaults to the configured export dir)")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall build timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	if *outDir == "" {
		*outDir = cfg.Export.Dir
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	metrics := infrastructure.NewMetrics(prometheus.NewRegistry())
	llamaClient := llama.NewClient(cfg.Llama, metrics, logger)
	geckoClient := gecko.NewClient(cfg.Gecko, cfg.Engine.MarketChunkSize, metrics, logger)
	eng := engine.New(cfg.Engine, llamaClient, geckoClient, metrics, logger)

	logger.Info("Starting snapshot build",
		slog.String("output_dir", *outDir),
		slog.Int("lookback_days", cfg.Engine.LookbackDays),
		slog.Int("top_n", cfg.Engine.TopN))

	tables, err := eng.BuildTables(ctx)
	if err != nil {
		logger.Error("Snapshot build failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	for _, warning := range tables.Warnings {
		logger.Warn("snapshot warning", slog.String("detail", warning))
	}

	writer := exporter.NewWriter(*outDir, logger)
	if _, err := writer.Write(exporter.DailyFileName, tables.DailyCSV); err != nil {
		logger.Error("Failed to write daily table", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if _, err := writer.Write(exporter.WindowFileName, tables.WindowCSV); err != nil {
		logger.Error("Failed to write window table", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.Export.S3Bucket != "" {
		uploader, err := store.NewUploader(ctx, cfg.Export.S3Bucket, cfg.Export.S3Prefix, logger)
		if err != nil {
			logger.Error("Failed to build uploader", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if _, err := uploader.UploadCSV(ctx, exporter.DailyFileName, tables.DailyCSV); err != nil {
			logger.Error("Failed to upload daily table", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if _, err := uploader.UploadCSV(ctx, exporter.WindowFileName, tables.WindowCSV); err != nil {
			logger.Error("Failed to upload window table", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("Snapshot build completed",
		slog.Int("daily_rows", len(tables.DailyRows)),
		slog.Int("window_rows", len(tables.WindowRows)))
}
