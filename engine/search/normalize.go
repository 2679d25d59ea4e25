// Package search converts raw vector-store query responses into a canonical,
// deduplicated, ranked product list and hosts the semantic search service.
package search

import (
	"fmt"
	"sort"
	"strconv"

	pb "github.com/qdrant/go-client/qdrant"

	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/semantic"
)

// Item is one normalized search hit. Payload fields are pointers so a field
// the point never carried stays null in the response.
type Item struct {
	ID          string   `json:"id"`
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	ProductURL  *string  `json:"product_url"`
	Images      []string `json:"images"`
	Score       float64  `json:"score"`
}

// PointLister is the attribute-bearing response shape: any container that
// can hand over its raw points.
type PointLister interface {
	ListPoints() []any
}

// ExtractPoints returns the raw scored entries from the response shapes the
// store client may produce: typed scored points, a map keyed "result" or
// "points", a bare sequence, or a PointLister. Anything else normalizes to
// an empty slice, never an error.
func ExtractPoints(resp any) []any {
	switch r := resp.(type) {
	case nil:
		return nil
	case []*pb.ScoredPoint:
		out := make([]any, len(r))
		for i, p := range r {
			out[i] = p
		}
		return out
	case map[string]any:
		for _, key := range []string{"result", "points"} {
			if v, ok := r[key]; ok {
				if list, ok := v.([]any); ok {
					return list
				}
				return nil
			}
		}
		return nil
	case []any:
		return r
	}
	if lister, ok := resp.(PointLister); ok {
		return lister.ListPoints()
	}
	return nil
}

// NormalizeEntry converts one raw scored entry into an Item. Map entries may
// nest the real data one level deeper under a "point" key. The second return
// is false for entries no normalization rule covers.
func NormalizeEntry(raw any) (Item, bool) {
	switch p := raw.(type) {
	case *pb.ScoredPoint:
		item := Item{ID: pointIDString(p.GetId()), Score: float64(p.GetScore())}
		fillPayload(&item, semantic.FromPayload(p.GetPayload()))
		return item, true
	case map[string]any:
		inner, _ := p["point"].(map[string]any)

		id := p["id"]
		if id == nil && inner != nil {
			id = inner["id"]
		}

		payload, _ := p["payload"].(map[string]any)
		if payload == nil && inner != nil {
			payload, _ = inner["payload"].(map[string]any)
		}

		item := Item{ID: stringify(id), Score: scoreOf(p["score"])}
		fillPayload(&item, payload)
		return item, true
	}
	return Item{}, false
}

// Dedupe collapses entries sharing a canonical product URL to the one with
// the strictly higher score. Entries without a URL are never compared against
// each other; they form a fallback group appended after the deduplicated set.
func Dedupe(items []Item) []Item {
	byURL := make(map[string]int)
	var keyed []Item
	var fallback []Item

	for _, item := range items {
		if item.ProductURL == nil || *item.ProductURL == "" {
			fallback = append(fallback, item)
			continue
		}
		url := *item.ProductURL
		if i, ok := byURL[url]; ok {
			if item.Score > keyed[i].Score {
				keyed[i] = item
			}
			continue
		}
		byURL[url] = len(keyed)
		keyed = append(keyed, item)
	}
	return append(keyed, fallback...)
}

// Rank sorts by score descending, stable on ties, and truncates to limit.
func Rank(items []Item, limit int) []Item {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	if limit >= 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Normalize runs the full pipeline on one raw response: extract, normalize
// entries, dedupe by canonical URL, rank, truncate.
func Normalize(resp any, limit int) []Item {
	raw := ExtractPoints(resp)
	items := make([]Item, 0, len(raw))
	for _, entry := range raw {
		if item, ok := NormalizeEntry(entry); ok {
			items = append(items, item)
		}
	}
	return Rank(Dedupe(items), limit)
}

func fillPayload(item *Item, payload map[string]any) {
	if payload == nil {
		return
	}
	if v, ok := payload["title"].(string); ok {
		item.Title = &v
	}
	if v, ok := payload["description"].(string); ok {
		item.Description = &v
	}
	if v, ok := toFloat(payload["price"]); ok {
		item.Price = &v
	}
	if v, ok := payload["product_url"].(string); ok {
		item.ProductURL = &v
	}
	switch imgs := payload["images"].(type) {
	case []string:
		item.Images = imgs
	case []any:
		for _, img := range imgs {
			if s, ok := img.(string); ok {
				item.Images = append(item.Images, s)
			}
		}
	}
}

func pointIDString(id *pb.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// scoreOf coerces a raw score to float64, defaulting to 0 when absent or
// unusable.
func scoreOf(v any) float64 {
	f, ok := toFloat(v)
	if !ok {
		return 0
	}
	return f
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
