package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/domain"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/semantic"
)

// OverFetchFloor is the minimum candidate count requested from the store.
// Dedupe collapses entries before truncation, so the raw query always asks
// for at least this many.
const OverFetchFloor = 50

// DefaultLimit applies when the caller requests no result count.
const DefaultLimit = 5

// Embedder embeds the query text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Querier runs a vector query and returns the raw response in whatever shape
// the underlying client produced.
type Querier interface {
	Query(ctx context.Context, spec semantic.QuerySpec) (any, error)
}

// QuerierFunc adapts a function to the Querier interface.
type QuerierFunc func(ctx context.Context, spec semantic.QuerySpec) (any, error)

func (f QuerierFunc) Query(ctx context.Context, spec semantic.QuerySpec) (any, error) {
	return f(ctx, spec)
}

// Request is one semantic search call.
type Request struct {
	Query      string            `json:"query"`
	Limit      int               `json:"limit"`
	VectorName string            `json:"vector_name"`
	Filter     map[string]string `json:"query_filter,omitempty"`
	Exact      bool              `json:"exact"`
}

// Service embeds a query, over-fetches candidates from the store, and
// normalizes the response. Neither embedding nor store failures are retried
// here; each surfaces under its own error category.
type Service struct {
	embed  Embedder
	store  Querier
	logger *slog.Logger
}

// New creates a search Service.
func New(embed Embedder, store Querier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{embed: embed, store: store, logger: logger}
}

// Search validates the query, embeds it, queries the store with over-fetch,
// and returns the deduplicated ranked items.
func (s *Service) Search(ctx context.Context, req Request) ([]Item, error) {
	if err := domain.ValidateQuery(req.Query); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	vectorName := req.VectorName
	if vectorName == "" {
		vectorName = domain.VectorText
	}

	vec, err := s.embed.EmbedText(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("search: embed query: %w: %w", domain.ErrEmbedding, err)
	}

	overFetch := limit
	if overFetch < OverFetchFloor {
		overFetch = OverFetchFloor
	}

	resp, err := s.store.Query(ctx, semantic.QuerySpec{
		Vector: vec,
		Using:  vectorName,
		Limit:  uint64(overFetch),
		Filter: req.Filter,
		Exact:  req.Exact,
	})
	if err != nil {
		return nil, fmt.Errorf("search: store query: %w: %w", domain.ErrStoreQuery, err)
	}

	items := Normalize(resp, limit)
	s.logger.Info("search done", "query_len", len(req.Query), "results", len(items))
	return items, nil
}
