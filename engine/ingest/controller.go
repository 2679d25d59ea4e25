// Package ingest drives collection ingestion: URL enumeration, per-item
// scrape/embed/assemble stages, and batched persistence with commit-failure
// isolation.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/domain"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/scraper"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/semantic"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/pkg/fn"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/pkg/metrics"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/pkg/resilience"
)

const (
	// DefaultBatchSize is the point count that triggers a batch commit.
	DefaultBatchSize = 16
	// DefaultCommitPause bounds request pressure on the store between
	// batch commits.
	DefaultCommitPause = 600 * time.Millisecond
)

// Deps holds the external collaborators of the ingestion controller.
type Deps struct {
	Enumerator Enumerator
	Fetcher    Fetcher
	Embedder   Embedder
	Store      Upserter
	Logger     *slog.Logger
	// Metrics receives per-stage counters; a fresh unexposed registry is
	// used when nil.
	Metrics *metrics.Registry
	// BatchSize defaults to DefaultBatchSize when zero.
	BatchSize int
	// CommitPause defaults to DefaultCommitPause when negative; zero
	// disables pacing.
	CommitPause time.Duration
}

// Controller runs ingestion end to end. Items are processed sequentially
// and independently: one failing URL never aborts the run.
type Controller struct {
	enum      Enumerator
	fetch     Fetcher
	embed     Embedder
	store     Upserter
	log       *slog.Logger
	met       *metrics.Registry
	breaker   *resilience.Breaker
	batchSize int
	limiter   *rate.Limiter
}

// NewController wires a Controller from its dependencies.
func NewController(deps Deps) *Controller {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	pause := deps.CommitPause
	if pause < 0 {
		pause = DefaultCommitPause
	}
	met := deps.Metrics
	if met == nil {
		met = metrics.New()
	}
	return &Controller{
		enum:      deps.Enumerator,
		fetch:     deps.Fetcher,
		embed:     deps.Embedder,
		store:     deps.Store,
		log:       log,
		met:       met,
		breaker:   resilience.NewBreaker(resilience.DefaultBreakerOpts),
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Every(pause), 1),
	}
}

// Run ingests up to limit products from the collection page. Enumeration
// failure aborts the run; everything after that degrades per item or per
// point and lands in the report.
func (c *Controller) Run(ctx context.Context, collectionURL string, limit int) (*Report, error) {
	urls, err := c.enum.ProductURLs(collectionURL, limit)
	if err != nil {
		return nil, err
	}

	report := &Report{CollectionURL: collectionURL, Enumerated: len(urls)}
	c.log.Info("ingest: run start", "collection_url", collectionURL, "urls", len(urls))

	pipeline := c.itemPipeline()
	batch := make([]semantic.Point, 0, c.batchSize)

	mItemDur := c.met.Histogram("catalog_ingest_item_duration_seconds", "Per-item pipeline time", nil)

	for i, url := range urls {
		report.Attempted++
		c.met.Counter("catalog_ingest_items_total", "Product URLs attempted").Inc()
		c.log.Info("ingest: processing", "url", url, "n", i+1, "total", len(urls))

		itemStart := time.Now()
		result := pipeline(ctx, url)
		mItemDur.Since(itemStart)
		if result.IsErr() {
			_, itemErr := result.Unwrap()
			stage := StageEmbedText
			if isFetchErr(itemErr) {
				stage = StageFetch
			}
			report.Failures = append(report.Failures, Failure{
				Stage: stage,
				URL:   url,
				Err:   itemErr.Error(),
			})
			c.met.Counter(metrics.WithLabels("catalog_ingest_errors_total", "stage", stage), "Items failed by stage").Inc()
			c.log.Warn("ingest: item skipped", "url", url, "stage", stage, "error", itemErr)
			continue
		}

		point, _ := result.Unwrap()
		batch = append(batch, point)
		if len(batch) >= c.batchSize {
			c.commit(ctx, batch, report)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		c.commit(ctx, batch, report)
	}

	c.log.Info("ingest: run done",
		"collection_url", collectionURL,
		"persisted", report.Persisted,
		"failures", len(report.Failures),
	)
	return report, nil
}

// itemPipeline builds the per-URL stage chain:
// fetch+extract → embed → point assembly.
func (c *Controller) itemPipeline() fn.Stage[string, semantic.Point] {
	extract := fn.Traced("scrape", func(ctx context.Context, url string) fn.Result[domain.ProductRecord] {
		markup, err := c.fetch.Fetch(ctx, url)
		if err != nil {
			return fn.Err[domain.ProductRecord](err)
		}
		return fn.Ok(scraper.Extract(url, markup))
	})

	embed := fn.Traced("embed", func(ctx context.Context, rec domain.ProductRecord) fn.Result[semantic.Point] {
		textVec, err := c.embed.EmbedText(ctx, rec.EmbeddingText())
		if err != nil {
			return fn.Err[semantic.Point](err)
		}

		vectors := map[string][]float32{domain.VectorText: textVec}
		if len(rec.Images) > 0 {
			imageVec, err := c.embed.EmbedImage(ctx, rec.Images[0])
			if err != nil {
				// Image embedding is best-effort: the point ships
				// with a text vector only.
				c.log.Warn("ingest: image embedding failed",
					"url", rec.URL, "image", rec.Images[0], "error", err)
			} else {
				vectors[domain.VectorImage] = imageVec
			}
		}

		return fn.Ok(semantic.Point{
			ID:      uuid.NewString(),
			Vectors: vectors,
			Payload: rec.Payload(),
		})
	})

	// The breaker trips after consecutive embedding-gateway failures so a
	// dead gateway fails the remaining items fast instead of timing out
	// one by one.
	return fn.Then(extract, resilience.BreakerStage(c.breaker, embed))
}

// commit writes one batch. A failed batch is not discarded: every point is
// retried individually so one malformed point cannot sink its batch-mates.
// Persisted counts only what the store acknowledged.
func (c *Controller) commit(ctx context.Context, batch []semantic.Point, report *Report) {
	if err := c.limiter.Wait(ctx); err != nil {
		c.recordBatchFailure(batch, report, err)
		return
	}

	err := c.store.Upsert(ctx, batch)
	if err == nil {
		report.Persisted += len(batch)
		c.met.Counter("catalog_ingest_points_persisted_total", "Points acknowledged by the store").Add(int64(len(batch)))
		c.log.Info("ingest: batch committed", "points", len(batch), "total", report.Persisted)
		return
	}

	c.log.Warn("ingest: batch commit failed, retrying per point",
		"points", len(batch), "error", err)
	for _, p := range batch {
		if err := c.store.Upsert(ctx, []semantic.Point{p}); err != nil {
			report.Failures = append(report.Failures, Failure{
				Stage:   StageUpsert,
				URL:     payloadURL(p),
				PointID: p.ID,
				Err:     err.Error(),
			})
			c.met.Counter(metrics.WithLabels("catalog_ingest_errors_total", "stage", StageUpsert), "Items failed by stage").Inc()
			c.log.Warn("ingest: point upsert failed", "point_id", p.ID, "error", err)
			continue
		}
		report.Persisted++
		c.met.Counter("catalog_ingest_points_persisted_total", "Points acknowledged by the store").Inc()
	}
}

func (c *Controller) recordBatchFailure(batch []semantic.Point, report *Report, err error) {
	for _, p := range batch {
		report.Failures = append(report.Failures, Failure{
			Stage:   StageUpsert,
			URL:     payloadURL(p),
			PointID: p.ID,
			Err:     err.Error(),
		})
	}
}

func isFetchErr(err error) bool {
	return errors.Is(err, domain.ErrFetch)
}

func payloadURL(p semantic.Point) string {
	if url, ok := p.Payload["product_url"].(string); ok {
		return url
	}
	return ""
}
