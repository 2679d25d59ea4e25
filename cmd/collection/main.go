// Command collection administers the Qdrant product collection: creation
// with the named-vector schema, payload indexes, HNSW tuning, and teardown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/config"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/semantic"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/pkg/vectorize"
)

const usage = `usage: collection <command> [flags]

commands:
  list      print all collections on the server
  ensure    create the collection and payload indexes if missing
  hnsw      update HNSW parameters (-m, -ef)
  drop      delete the collection
`

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		logger.Error("qdrant connect failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	switch os.Args[1] {
	case "list":
		names, err := store.ListCollections(ctx)
		if err != nil {
			logger.Error("list failed", "error", err)
			os.Exit(1)
		}
		for _, name := range names {
			fmt.Println(name)
		}

	case "ensure":
		embedder := vectorize.New(cfg.Embedder.BaseURL, cfg.Embedder.TextModel, cfg.Embedder.ImageModel)
		embedder.SetTimeout(cfg.Embedder.Timeout)
		dims, err := embedder.Dimensions(ctx)
		if err != nil {
			logger.Error("embedding gateway unreachable", "error", err)
			os.Exit(1)
		}
		if err := store.EnsureCollection(ctx, dims.Text, dims.Image); err != nil {
			logger.Error("ensure failed", "error", err)
			os.Exit(1)
		}
		store.EnsurePayloadIndexes(ctx, logger)
		logger.Info("collection ready",
			"collection", store.Collection(),
			"text_dim", dims.Text,
			"image_dim", dims.Image,
		)

	case "hnsw":
		fs := flag.NewFlagSet("hnsw", flag.ExitOnError)
		m := fs.Uint64("m", semantic.HnswM, "HNSW graph connectivity")
		ef := fs.Uint64("ef", semantic.HnswEfConstruct, "HNSW build-time beam width")
		fs.Parse(os.Args[2:])
		if err := store.UpdateHnsw(ctx, *m, *ef); err != nil {
			logger.Error("hnsw update failed", "error", err)
			os.Exit(1)
		}
		logger.Info("hnsw updated", "m", *m, "ef_construct", *ef)

	case "drop":
		if err := store.DeleteCollection(ctx); err != nil {
			logger.Error("drop failed", "error", err)
			os.Exit(1)
		}
		logger.Info("collection dropped", "collection", store.Collection())

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}
