package scraper

import (
	"time"

	"github.com/gocolly/colly/v2"
)

// DefaultURLLimit caps enumeration when the caller passes no limit.
const DefaultURLLimit = 50

// Enumerator walks a collection page and harvests product-page links.
type Enumerator struct {
	timeout time.Duration
}

// NewEnumerator creates an Enumerator with the given request timeout.
func NewEnumerator(timeout time.Duration) *Enumerator {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Enumerator{timeout: timeout}
}

// ProductURLs returns up to limit absolute product URLs found on the
// collection page, deduplicated preserving first-seen order. A page that
// cannot be fetched yields a *FetchError. JS-rendered collections that expose
// no anchors return an empty slice, not an error.
func (e *Enumerator) ProductURLs(collectionURL string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultURLLimit
	}

	c := colly.NewCollector(colly.UserAgent(UserAgent))
	c.SetRequestTimeout(e.timeout)

	var urls []string
	c.OnHTML(`a[href*="/products/"]`, func(el *colly.HTMLElement) {
		if full := el.Request.AbsoluteURL(el.Attr("href")); full != "" {
			urls = append(urls, full)
		}
	})

	var fetchErr error
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = &FetchError{URL: collectionURL, Status: r.StatusCode, Err: err}
	})

	if err := c.Visit(collectionURL); err != nil && fetchErr == nil {
		fetchErr = &FetchError{URL: collectionURL, Err: err}
	}
	if fetchErr != nil {
		return nil, fetchErr
	}

	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
