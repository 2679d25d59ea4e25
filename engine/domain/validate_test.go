package domain

import (
	"errors"
	"testing"
)

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"normal", "vegan moisturizer", false},
		{"empty", "", true},
		{"whitespace only", "   \t\n ", true},
		{"leading whitespace ok", "  serum", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.query)
			if tt.wantErr {
				if !errors.Is(err, ErrEmptyQuery) {
					t.Fatalf("expected ErrEmptyQuery, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestEmbeddingText(t *testing.T) {
	r := ProductRecord{Title: "Night Cream", Description: "Rich repair formula"}
	if got := r.EmbeddingText(); got != "Night Cream Rich repair formula" {
		t.Errorf("unexpected embedding text: %q", got)
	}

	empty := ProductRecord{URL: "https://shop.example/products/x"}
	if got := empty.EmbeddingText(); got != "product" {
		t.Errorf("expected fallback text, got %q", got)
	}
}

func TestPayloadOmitsNilPrice(t *testing.T) {
	r := ProductRecord{URL: "u", Title: "t", Images: []string{"a"}}
	p := r.Payload()
	if _, ok := p["price"]; ok {
		t.Error("nil price should not appear in payload")
	}

	price := 12.5
	r.Price = &price
	if got := r.Payload()["price"]; got != 12.5 {
		t.Errorf("price = %v, want 12.5", got)
	}
}
