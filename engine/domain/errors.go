package domain

import "errors"

// Sentinel errors. Each names a failure category surfaced to callers; wrap
// them with fmt.Errorf("...: %w", ...) to add context.
var (
	// ErrFetch marks a product or collection page that could not be
	// retrieved. Fatal to the item being processed.
	ErrFetch = errors.New("page fetch failed")

	// ErrEmptyQuery rejects blank search input before any remote call.
	ErrEmptyQuery = errors.New("empty query")

	// ErrEmbedding marks an embedding gateway failure on the query path.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStoreQuery marks a vector store query failure.
	ErrStoreQuery = errors.New("vector store query failed")
)
