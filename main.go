package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotel-rate-scraper/config"
	"hotel-rate-scraper/engine"
	"hotel-rate-scraper/scheduler"
	"hotel-rate-scraper/scraper"
	"hotel-rate-scraper/scraper/booking"
	"hotel-rate-scraper/server"
	"hotel-rate-scraper/storage"
	"hotel-rate-scraper/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Hotel Rate Scraping Engine starting ===")
	logger.Info("Config — windows: %s (%s) | delay: %.0f-%.0fs | concurrency: %d | session cap: %dm",
		cfg.ScrapeWindows, cfg.Timezone, cfg.MinDelaySeconds, cfg.MaxDelaySeconds,
		cfg.MaxConcurrency, cfg.MaxSessionMinutes)

	windows, err := scheduler.ParseWindows(cfg.ScrapeWindows)
	if err != nil {
		logger.Error("Invalid SCRAPE_WINDOWS: %v", err)
		os.Exit(1)
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("Invalid SCHEDULE_TIMEZONE %q: %v", cfg.Timezone, err)
		os.Exit(1)
	}

	store, err := storage.NewPostgresStore(cfg.DSN(), cfg.MaxRetries, logger)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure Docker is running: docker compose up -d")
		os.Exit(1)
	}
	defer store.Close()

	var exporter storage.SnapshotExporter
	if cfg.CSVOutputPath != "" {
		csvExporter, err := storage.NewCSVExporter(cfg.CSVOutputPath)
		if err != nil {
			logger.Error("Failed to create CSV exporter: %v", err)
			os.Exit(1)
		}
		defer csvExporter.Close()
		exporter = csvExporter
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := scraper.NewRateLimiter(cfg.MinDelaySeconds, cfg.MaxDelaySeconds)
	extractor := booking.New(cfg, logger, limiter)
	defer extractor.Close()

	orch := engine.New(ctx, cfg, store, extractor, exporter, logger)

	// Close any run a previous process left open before the scheduler can
	// consult the single-run invariant.
	if err := orch.Reconcile(ctx); err != nil {
		logger.Error("Startup reconciliation failed: %v", err)
		os.Exit(1)
	}

	sched := scheduler.New(windows, loc, logger)

	go func() {
		if err := server.New(orch, store, logger).Run(ctx, cfg.ControlAddr); err != nil {
			logger.Error("Control server stopped: %v", err)
		}
	}()

	sched.Run(ctx, func() error {
		return orch.TriggerNow("scheduled window")
	})

	logger.Info("Shutdown signal received — waiting for in-flight session")
	orch.Wait()
	logger.Info("=== Hotel Rate Scraping Engine stopped ===")
}
