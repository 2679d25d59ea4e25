// Package domain defines the core product types and error taxonomy shared by
// the scraper, ingestion, and search engines.
package domain

import "strings"

// Named vector slots on a stored point.
const (
	VectorText  = "text"
	VectorImage = "image"
)

// ProductRecord is the structured result of scraping one product page.
// URL always reflects the fetched page, regardless of how much extraction
// succeeded. Title and Description are empty strings when unknown; Price is
// nil when no usable price was found.
type ProductRecord struct {
	URL         string   `json:"product_url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       *float64 `json:"price,omitempty"`
	Images      []string `json:"images"`
}

// EmbeddingText returns the text to embed for the record: title and
// description joined, falling back to "product" so the text vector is never
// built from an empty string.
func (r ProductRecord) EmbeddingText() string {
	text := strings.TrimSpace(r.Title + " " + r.Description)
	if text == "" {
		return "product"
	}
	return text
}

// Payload returns the record as a vector point payload.
func (r ProductRecord) Payload() map[string]any {
	p := map[string]any{
		"title":       r.Title,
		"description": r.Description,
		"product_url": r.URL,
		"images":      r.Images,
	}
	if r.Price != nil {
		p["price"] = *r.Price
	}
	return p
}
