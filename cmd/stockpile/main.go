package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aevon-lab/stockpile/internal/aggregation"
	"github.com/aevon-lab/stockpile/internal/artifact"
	"github.com/aevon-lab/stockpile/internal/blob"
	corecfg "github.com/aevon-lab/stockpile/internal/core/config"
	"github.com/aevon-lab/stockpile/internal/core/storage/postgres"
	"github.com/aevon-lab/stockpile/internal/ingestion"
	"github.com/aevon-lab/stockpile/internal/migrations"
	"github.com/aevon-lab/stockpile/internal/projection"
	"github.com/aevon-lab/stockpile/internal/scheduler"
	"github.com/aevon-lab/stockpile/internal/server"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	handlerOpts := &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, handlerOpts)
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("Loaded config",
		"blob_backend", cfg.Blob.Backend,
		"source_container", cfg.Blob.SourceContainer,
		"processed_container", cfg.Blob.ProcessedContainer,
		"scheduler_mode", cfg.Scheduler.Mode(),
		"worker_count", cfg.Scheduler.WorkerCount)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		false,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 3.1. Run Database Migrations
	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	if err := dbAdapter.ValidateSchema(ctx); err != nil {
		slog.Error("Database schema is not ready", "error", err)
		os.Exit(1)
	}
	salesStore := postgres.NewSalesAdapter(dbAdapter.DB())

	// 4. Initialize Blob Storage
	var objects blob.ObjectStore
	switch cfg.Blob.Backend {
	case "azure":
		azure, err := blob.NewAzureStore(cfg.Blob.ConnectionString)
		if err != nil {
			slog.Error("Failed to initialize blob storage", "error", err)
			os.Exit(1)
		}
		objects = azure
	case "dir":
		objects = blob.NewDirStore(cfg.Blob.DirRoot)
	}
	gateway := blob.NewGateway(objects, blob.Options{
		SourceContainer:    cfg.Blob.SourceContainer,
		ProcessedContainer: cfg.Blob.ProcessedContainer,
		PollInterval:       cfg.Blob.PollInterval,
		CopyTimeout:        cfg.Blob.CopyTimeout,
	})
	if err := gateway.EnsureContainers(ctx); err != nil {
		slog.Error("Failed to prepare blob containers", "error", err)
		os.Exit(1)
	}

	// 5. Initialize Artifacts and Aggregates
	artifacts, err := artifact.NewStore(cfg.Artifacts.Dir, cfg.Artifacts.Keep)
	if err != nil {
		slog.Error("Failed to initialize artifact store", "error", err)
		os.Exit(1)
	}
	aggregates := aggregation.NewStore(salesStore, aggregation.Options{
		Dir:            cfg.Artifacts.Dir,
		SummaryWindow:  cfg.Artifacts.SummaryWindow(),
		RetentionYears: cfg.Retention.CanonicalYears,
	})
	aggregates.PurgeExpired(ctx)

	// 6. Initialize Projection (rollup cache + query API)
	cache, err := projection.OpenCache(cfg.Cache.SQLitePath)
	if err != nil {
		slog.Error("Failed to open rollup cache", "error", err)
		os.Exit(1)
	}
	defer cache.Close()
	projectionSvc := projection.NewService(salesStore, cache)

	// 7. Initialize Ingestion and Scheduler
	pipeline := ingestion.NewPipeline(gateway, artifacts, aggregates, projectionSvc, ingestion.Options{
		HeaderRows: cfg.Ingest.HeaderRows,
		WorkDir:    cfg.Ingest.WorkDir,
	})

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		slog.Error("Invalid scheduler timezone", "error", err)
		os.Exit(1)
	}
	sched := scheduler.NewScheduler(gateway, pipeline, scheduler.Options{
		Mode:        scheduler.Mode(cfg.Scheduler.Mode()),
		Interval:    cfg.Scheduler.Interval,
		CronSpec:    cfg.Scheduler.CronSpec,
		Location:    loc,
		WorkerCount: cfg.Scheduler.WorkerCount,
	})

	// 8. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), cfg.Server.Mode, map[string]server.HealthChecker{
		"database": dbAdapter.DB(),
		"cache":    cache.DB(),
	})
	pipeline.RegisterRoutes(srv.Engine)
	projectionSvc.RegisterRoutes(srv.Engine)
	scheduler.NewHandler(sched, gateway).RegisterRoutes(srv.Engine)

	// 9. Start Services
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Start(ctx); err != nil {
			slog.Error("Scheduler stopped with error", "error", err)
			cancel()
		}
	}()

	// Signal handler -> triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("Signal received, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
		cancel()
	}

	// Let an in-progress file finish before closing the stores.
	<-schedDone
	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
