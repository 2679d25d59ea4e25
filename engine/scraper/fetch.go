// Package scraper turns storefront pages into structured product records.
// It enumerates product URLs from collection pages and extracts per-product
// fields through layered heuristics: embedded structured data first, social
// meta tags second, theme CSS selectors third, raw-markup scans last.
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/domain"
)

// UserAgent identifies the scraper to storefronts.
const UserAgent = "Mozilla/5.0 (CatalogBot/1.0)"

// DefaultFetchTimeout bounds a single page download.
const DefaultFetchTimeout = 15 * time.Second

// FetchError reports a page that could not be retrieved. Status is zero for
// transport-level failures.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("scraper: fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("scraper: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return domain.ErrFetch }

// Fetcher downloads pages with a fixed per-request timeout.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher. A non-positive timeout falls back to
// DefaultFetchTimeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch returns the raw markup of the page at url, or a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	return body, nil
}
