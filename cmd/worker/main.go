// Command worker consumes ingestion jobs from NATS and runs them through
// the scraping and embedding pipeline into Qdrant.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/config"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/ingest"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/scraper"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/semantic"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/pkg/fn"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/pkg/metrics"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/pkg/vectorize"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		logger.Error("qdrant connect failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	embedder := vectorize.New(cfg.Embedder.BaseURL, cfg.Embedder.TextModel, cfg.Embedder.ImageModel)
	embedder.SetTimeout(cfg.Embedder.Timeout)

	// The gateway may still be starting; probe with backoff.
	dimsResult := fn.Retry(ctx, fn.DefaultRetry, func(ctx context.Context) fn.Result[vectorize.Dimensions] {
		return fn.FromPair(embedder.Dimensions(ctx))
	})
	dims, err := dimsResult.Unwrap()
	if err != nil {
		logger.Error("embedding gateway unreachable", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureCollection(ctx, dims.Text, dims.Image); err != nil {
		logger.Error("ensure collection failed", "error", err)
		os.Exit(1)
	}
	store.EnsurePayloadIndexes(ctx, logger)

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("catalog-ingest-worker"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		logger.Error("nats connect failed", "error", err)
		os.Exit(1)
	}
	defer nc.Drain()

	met := metrics.New()
	met.ServeAsync(9091)

	controller := ingest.NewController(ingest.Deps{
		Enumerator:  scraper.NewEnumerator(scraper.DefaultFetchTimeout),
		Fetcher:     scraper.NewFetcher(scraper.DefaultFetchTimeout),
		Embedder:    embedder,
		Store:       store,
		Logger:      logger,
		Metrics:     met,
		BatchSize:   cfg.Ingest.BatchSize,
		CommitPause: cfg.Ingest.CommitPause,
	})

	sub, err := ingest.StartConsumer(nc, controller, logger)
	if err != nil {
		logger.Error("subscribe failed", "error", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	logger.Info("worker ready",
		"subject", ingest.JobSubject,
		"collection", cfg.Qdrant.Collection,
	)
	<-ctx.Done()
	logger.Info("shutting down")
}
