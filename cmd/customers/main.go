// Command customers seeds the customers collection with synthetic profiles
// whose interests are embedded as preference vectors.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/config"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/customer"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/domain"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/semantic"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/pkg/vectorize"
)

func main() {
	var (
		n          = flag.Int("n", 10, "number of synthetic profiles")
		collection = flag.String("collection", customer.DefaultCollection, "target collection")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := semantic.New(cfg.Qdrant.Addr, *collection)
	if err != nil {
		logger.Error("qdrant connect failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	embedder := vectorize.New(cfg.Embedder.BaseURL, cfg.Embedder.TextModel, cfg.Embedder.ImageModel)
	embedder.SetTimeout(cfg.Embedder.Timeout)

	dim, err := embedder.Dimension(ctx, "text")
	if err != nil {
		logger.Error("embedding gateway unreachable", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureNamedCollection(ctx, map[string]int{domain.VectorText: dim}); err != nil {
		logger.Error("ensure collection failed", "error", err)
		os.Exit(1)
	}

	profiles := customer.Generate(*n)
	count, err := customer.Ingest(ctx, embedder, store, profiles, logger)
	if err != nil {
		logger.Error("customer ingest failed", "error", err)
		os.Exit(1)
	}
	logger.Info("customer profiles seeded", "collection", *collection, "count", count)
}
