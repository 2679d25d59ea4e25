package ingest

import (
	"context"

	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/semantic"
)

// Enumerator lists product URLs found on a collection page, deduplicated and
// capped, in page order.
type Enumerator interface {
	ProductURLs(collectionURL string, limit int) ([]string, error)
}

// Fetcher downloads one page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Embedder is the embedding gateway surface the controller consumes.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, imageURL string) ([]float32, error)
}

// Upserter commits points to the vector store.
type Upserter interface {
	Upsert(ctx context.Context, points []semantic.Point) error
}

// Failure stages.
const (
	StageFetch     = "fetch"
	StageEmbedText = "embed-text"
	StageUpsert    = "upsert"
)

// Failure records one failed item or point with enough context to replay it.
type Failure struct {
	Stage   string `json:"stage"`
	URL     string `json:"url,omitempty"`
	PointID string `json:"point_id,omitempty"`
	Err     string `json:"error"`
}

// Report is the outcome of one ingestion run. Persisted counts only points
// the store acknowledged, including those recovered by per-point retry.
type Report struct {
	CollectionURL string    `json:"collection_url"`
	Enumerated    int       `json:"enumerated"`
	Attempted     int       `json:"attempted"`
	Persisted     int       `json:"persisted"`
	Failures      []Failure `json:"failures"`
}
