package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"dicom-indexer/dedup"
	"dicom-indexer/iptk"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts dedup.Options
	opts.ProjectID = cfg.ProjectID
	if cfg.DedupPasswordSecret != "" {
		pw, err := loadDedupPassword(ctx, cfg.ProjectID, cfg.DedupPasswordSecret)
		if err != nil {
			slog.Error("Failed to load dedup store password", "error", err)
			os.Exit(1)
		}
		opts.Password = pw
	}

	tracker, err := dedup.Open(ctx, cfg.DedupStore, opts)
	if err != nil {
		slog.Error("Failed to open dedup store", "kind", dedup.Kind(cfg.DedupStore), "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := tracker.Close(); err != nil {
			slog.Error("Error closing dedup store", "error", err)
		}
	}()

	api := iptk.NewClient(cfg.APIEndpoint, cfg.HTTPClientTimeout)
	poller := &Poller{
		Changes:   api,
		Tracker:   tracker,
		Handler:   NewIndexer(api),
		PageSize:  cfg.PageSize,
		IdleDelay: cfg.PollIdleDelay,
		Cursor:    cfg.StartCursor,
	}

	slog.Info("DICOM indexer starting", "api", cfg.APIEndpoint, "dedup", dedup.Kind(cfg.DedupStore), "schema", SchemaID)
	if err := poller.Run(ctx); err != nil {
		slog.Error("Poller stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("DICOM indexer exiting")
}
