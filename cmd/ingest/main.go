// Command ingest scrapes one storefront collection page and loads the
// products into Qdrant as multi-vector points.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/config"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/ingest"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/scraper"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/semantic"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/pkg/vectorize"
)

func main() {
	var (
		collectionURL = flag.String("url", "", "storefront collection page to ingest")
		limit         = flag.Int("limit", 0, "max product URLs (0 uses the configured default)")
		jsonOut       = flag.Bool("json", false, "print the run report as JSON")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *collectionURL == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest -url https://shop.example/collections/all [-limit 50]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	if *limit <= 0 {
		*limit = cfg.Ingest.URLLimit
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		logger.Error("qdrant connect failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	embedder := vectorize.New(cfg.Embedder.BaseURL, cfg.Embedder.TextModel, cfg.Embedder.ImageModel)
	embedder.SetTimeout(cfg.Embedder.Timeout)

	dims, err := embedder.Dimensions(ctx)
	if err != nil {
		logger.Error("embedding gateway unreachable", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureCollection(ctx, dims.Text, dims.Image); err != nil {
		logger.Error("ensure collection failed", "error", err)
		os.Exit(1)
	}
	store.EnsurePayloadIndexes(ctx, logger)
	logger.Info("collection ready",
		"collection", cfg.Qdrant.Collection,
		"text_dim", dims.Text,
		"image_dim", dims.Image,
	)

	controller := ingest.NewController(ingest.Deps{
		Enumerator:  scraper.NewEnumerator(scraper.DefaultFetchTimeout),
		Fetcher:     scraper.NewFetcher(scraper.DefaultFetchTimeout),
		Embedder:    embedder,
		Store:       store,
		Logger:      logger,
		BatchSize:   cfg.Ingest.BatchSize,
		CommitPause: cfg.Ingest.CommitPause,
	})

	report, err := controller.Run(ctx, *collectionURL, *limit)
	if err != nil {
		logger.Error("ingestion aborted", "error", err)
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(report)
	}

	logger.Info("ingestion finished",
		"enumerated", report.Enumerated,
		"attempted", report.Attempted,
		"persisted", report.Persisted,
		"failures", len(report.Failures),
	)
	if report.Persisted == 0 && report.Attempted > 0 {
		os.Exit(1)
	}
}
