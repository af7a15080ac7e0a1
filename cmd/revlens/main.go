package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	corecfg "github.com/revlens-lab/revlens/internal/core/config"
	"github.com/revlens-lab/revlens/internal/core/storage/postgres"
	"github.com/revlens-lab/revlens/internal/migrations"
	"github.com/revlens-lab/revlens/internal/reporting"
	"github.com/revlens-lab/revlens/internal/rollup"
	"github.com/revlens-lab/revlens/internal/server"
)

func main() {
	configPath := flag.String("config", "revlens.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "config", cfg)

	tickInterval, err := cfg.Rollup.TickDuration()
	if err != nil {
		slog.Error("Invalid rollup tick interval", "value", cfg.Rollup.TickInterval, "error", err)
		os.Exit(1)
	}
	retryBackoff, err := cfg.Rollup.BackoffDuration()
	if err != nil {
		slog.Error("Invalid rollup retry backoff", "value", cfg.Rollup.RetryBackoff, "error", err)
		os.Exit(1)
	}

	// 2. Initialize the rollup store (PostgreSQL, owned by this service)
	rollupDB, err := postgres.Open(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize rollup store", "error", err)
		os.Exit(1)
	}
	defer rollupDB.Close()

	// 2.1. Run Database Migrations (rollup schema only)
	if err := migrations.RunMigrations(rollupDB, cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	rollupStore := postgres.NewRollupAdapter(rollupDB)

	// 3. Initialize the read-only upstream transaction adapter
	upstream, err := postgres.NewTransactionAdapter(
		cfg.Upstream.DSN,
		cfg.Upstream.MaxOpenConns,
		cfg.Upstream.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize upstream transaction store", "error", err)
		os.Exit(1)
	}
	defer upstream.Close()

	// 4. Initialize the rollup engine and boundary scheduler
	engine := rollup.NewEngine(upstream, rollupStore)
	scheduler := rollup.NewScheduler(engine, rollup.SchedulerParameter{
		TickInterval: tickInterval,
		BackfillDays: cfg.Rollup.BackfillDays,
		MaxRetries:   cfg.Rollup.MaxRetries,
		RetryBackoff: retryBackoff,
	})

	slog.Info("Rollup scheduler initialized",
		"tick_interval", tickInterval,
		"backfill_days", cfg.Rollup.BackfillDays,
		"max_retries", cfg.Rollup.MaxRetries,
		"enabled", cfg.Rollup.Enabled,
	)

	// 5. Initialize the reporting service (query API)
	reportingSvc := reporting.NewService(rollupStore, engine)

	// 6. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), rollupDB, cfg.Server.Mode)
	reportingSvc.RegisterRoutes(srv.Engine)

	// 7. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Rollup.Enabled {
		go func() {
			if err := scheduler.Start(ctx); err != nil {
				slog.Error("Scheduler stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Rollup scheduler disabled by config")
	}

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
