// Package main implements the catalog search API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/config"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/domain"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/ingest"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/search"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/semantic"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/pkg/natsutil"
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

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := semantic.New(cfg.Qdrant.Addr, cfg.Qdrant.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	embedder := vectorize.New(cfg.Embedder.BaseURL, cfg.Embedder.TextModel, cfg.Embedder.ImageModel)
	embedder.SetTimeout(cfg.Embedder.Timeout)

	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	router := setupRouter(cfg, &handler{
		store:    store,
		embedder: embedder,
		nc:       nc,
		logger:   logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      otelhttp.NewHandler(router, "catalog-api"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Server.Port, "collection", cfg.Qdrant.Collection)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func setupRouter(cfg *config.Config, h *handler) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	router.GET("/health", h.health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/search", h.search)
		v1.POST("/search/:collection", h.search)
		v1.POST("/ingest", h.enqueueIngest)
	}
	return router
}

type handler struct {
	store    *semantic.VectorStore
	embedder *vectorize.Client
	nc       *nats.Conn
	logger   *slog.Logger
}

func (h *handler) health(c *gin.Context) {
	collections, err := h.store.ListCollections(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "vector store unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "collections": collections})
}

// search embeds the query and returns deduplicated ranked products. The
// optional :collection path parameter overrides the configured collection.
func (h *handler) search(c *gin.Context) {
	var req search.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	store := h.store
	if name := c.Param("collection"); name != "" {
		store = store.WithCollection(name)
	}

	svc := search.New(h.embedder, search.QuerierFunc(
		func(ctx context.Context, spec semantic.QuerySpec) (any, error) {
			return store.Query(ctx, spec)
		},
	), h.logger)

	items, err := svc.Search(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyQuery):
			c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		case errors.Is(err, domain.ErrEmbedding):
			h.logger.Error("query embedding failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "embedding service unavailable"})
		default:
			h.logger.Error("search failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   req.Query,
		"count":   len(items),
		"results": items,
	})
}

// enqueueIngest publishes an ingestion job for the worker to pick up.
func (h *handler) enqueueIngest(c *gin.Context) {
	var job ingest.Job
	if err := c.ShouldBindJSON(&job); err != nil || job.CollectionURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "collection_url is required"})
		return
	}

	if err := natsutil.Publish(c.Request.Context(), h.nc, ingest.JobSubject, job); err != nil {
		h.logger.Error("job publish failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "job queue unavailable"})
		return
	}

	h.logger.Info("ingest job queued", "collection_url", job.CollectionURL, "limit", job.Limit)
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "subject": ingest.JobSubject})
}
