package search

import (
	"reflect"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
)

func strPtr(s string) *string { return &s }

func entry(id string, score float64, url string) map[string]any {
	payload := map[string]any{"title": "t-" + id}
	if url != "" {
		payload["product_url"] = url
	}
	return map[string]any{"id": id, "score": score, "payload": payload}
}

type listerResp struct{ points []any }

func (l listerResp) ListPoints() []any { return l.points }

func TestExtractPointsShapes(t *testing.T) {
	scored := []*pb.ScoredPoint{{
		Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "u1"}},
		Score: 0.9,
	}}

	tests := []struct {
		name string
		resp any
		want int
	}{
		{"nil response", nil, 0},
		{"typed scored points", scored, 1},
		{"map keyed result", map[string]any{"result": []any{entry("a", 1, "")}}, 1},
		{"map keyed points", map[string]any{"points": []any{entry("a", 1, ""), entry("b", 2, "")}}, 2},
		{"bare sequence", []any{entry("a", 1, "")}, 1},
		{"point lister", listerResp{points: []any{entry("a", 1, "")}}, 1},
		{"unknown map keys", map[string]any{"hits": []any{entry("a", 1, "")}}, 0},
		{"unrecognized type", 42, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractPoints(tt.resp); len(got) != tt.want {
				t.Errorf("got %d entries, want %d", len(got), tt.want)
			}
		})
	}
}

func TestNormalizeEntryMap(t *testing.T) {
	item, ok := NormalizeEntry(map[string]any{
		"id":    7,
		"score": "0.75",
		"payload": map[string]any{
			"title":       "Glow Serum",
			"price":       19.99,
			"product_url": "https://shop.example/products/glow",
			"images":      []any{"https://cdn.example/a.jpg"},
		},
	})
	if !ok {
		t.Fatal("expected normalization to succeed")
	}
	if item.ID != "7" {
		t.Errorf("id = %q, want stringified", item.ID)
	}
	if item.Score != 0.75 {
		t.Errorf("score = %v", item.Score)
	}
	if item.Title == nil || *item.Title != "Glow Serum" {
		t.Errorf("title = %v", item.Title)
	}
	if item.Price == nil || *item.Price != 19.99 {
		t.Errorf("price = %v", item.Price)
	}
	if len(item.Images) != 1 {
		t.Errorf("images = %v", item.Images)
	}
}

func TestNormalizeEntryNestedPoint(t *testing.T) {
	item, ok := NormalizeEntry(map[string]any{
		"point": map[string]any{
			"id":      "inner-id",
			"payload": map[string]any{"title": "nested"},
		},
		"score": 0.5,
	})
	if !ok {
		t.Fatal("expected ok")
	}
	if item.ID != "inner-id" {
		t.Errorf("id = %q, want id from nested point", item.ID)
	}
	if item.Title == nil || *item.Title != "nested" {
		t.Errorf("title = %v", item.Title)
	}
}

func TestNormalizeEntryDefaults(t *testing.T) {
	item, ok := NormalizeEntry(map[string]any{"id": "x"})
	if !ok {
		t.Fatal("expected ok")
	}
	if item.Score != 0 {
		t.Errorf("missing score should default to 0, got %v", item.Score)
	}
	if item.Title != nil || item.Description != nil || item.Price != nil || item.ProductURL != nil {
		t.Error("missing payload fields should stay null")
	}
}

func TestNormalizeEntryScoredPoint(t *testing.T) {
	p := &pb.ScoredPoint{
		Id:    &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: 12}},
		Score: 0.25,
	}
	item, ok := NormalizeEntry(p)
	if !ok {
		t.Fatal("expected ok")
	}
	if item.ID != "12" {
		t.Errorf("id = %q", item.ID)
	}
	if item.Score != 0.25 {
		t.Errorf("score = %v", item.Score)
	}
}

func TestDedupeKeepsHigherScore(t *testing.T) {
	url := "https://shop.example/products/glow"
	out := Dedupe([]Item{
		{ID: "low", Score: 0.3, ProductURL: strPtr(url)},
		{ID: "high", Score: 0.9, ProductURL: strPtr(url)},
	})
	if len(out) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(out))
	}
	if out[0].ID != "high" {
		t.Errorf("kept %q, want the higher-scoring entry", out[0].ID)
	}
}

func TestDedupeFallbackGroupNeverCollapses(t *testing.T) {
	out := Dedupe([]Item{
		{ID: "a", Score: 0.5},
		{ID: "b", Score: 0.5},
		{ID: "c", Score: 0.1},
	})
	if len(out) != 3 {
		t.Fatalf("URL-less entries must not collapse, got %d", len(out))
	}
}

func TestNormalizeLimitWithNoURLs(t *testing.T) {
	resp := []any{entry("a", 0.9, ""), entry("b", 0.8, ""), entry("c", 0.7, "")}

	out := Normalize(resp, 2)
	if len(out) != 2 {
		t.Fatalf("output count = %d, want min(limit, distinct)", len(out))
	}
	out = Normalize(resp, 10)
	if len(out) != 3 {
		t.Fatalf("output count = %d, want all 3 distinct entries", len(out))
	}
}

func TestNormalizeScenarioEightCandidatesTwoDupPairs(t *testing.T) {
	resp := []any{
		entry("1", 0.95, "https://s.example/products/a"),
		entry("2", 0.90, "https://s.example/products/b"),
		entry("3", 0.85, "https://s.example/products/a"), // dup of 1, lower
		entry("4", 0.80, "https://s.example/products/c"),
		entry("5", 0.99, "https://s.example/products/b"), // dup of 2, higher
		entry("6", 0.70, "https://s.example/products/d"),
		entry("7", 0.60, "https://s.example/products/e"),
		entry("8", 0.50, "https://s.example/products/f"),
	}

	out := Normalize(resp, 5)
	if len(out) > 5 {
		t.Fatalf("got %d entries, want <= 5", len(out))
	}
	seen := map[string]bool{}
	for i, item := range out {
		if item.ProductURL != nil {
			if seen[*item.ProductURL] {
				t.Errorf("duplicate canonical URL in output: %s", *item.ProductURL)
			}
			seen[*item.ProductURL] = true
		}
		if i > 0 && out[i-1].Score < item.Score {
			t.Errorf("output not sorted by descending score at %d", i)
		}
	}
	if out[0].ID != "5" {
		t.Errorf("top hit = %s, want the higher-scoring duplicate", out[0].ID)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	resp := []any{
		entry("1", 0.9, "https://s.example/products/a"),
		entry("2", 0.8, "https://s.example/products/b"),
		entry("3", 0.7, ""),
	}

	once := Normalize(resp, 10)
	twice := Rank(Dedupe(append([]Item(nil), once...)), 10)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("re-applying dedupe/rank changed output:\n%v\n%v", once, twice)
	}
}
