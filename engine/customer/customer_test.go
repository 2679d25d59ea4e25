package customer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/domain"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/semantic"
)

func TestGenerate(t *testing.T) {
	profiles := Generate(10)
	if len(profiles) != 10 {
		t.Fatalf("got %d profiles", len(profiles))
	}
	seen := map[string]bool{}
	for _, p := range profiles {
		if p.ID == "" || seen[p.ID] {
			t.Errorf("profile id %q not unique", p.ID)
		}
		seen[p.ID] = true
		if p.Name == "" || p.Email == "" {
			t.Errorf("profile missing identity: %+v", p)
		}
		if len(p.Interests) < 2 || len(p.Interests) > 4 {
			t.Errorf("interests = %v, want 2-4", p.Interests)
		}
		interestSet := map[string]bool{}
		for _, kw := range p.Interests {
			if interestSet[kw] {
				t.Errorf("duplicate interest %q in %v", kw, p.Interests)
			}
			interestSet[kw] = true
		}
		if p.InterestText() != strings.Join(p.Interests, " ") {
			t.Errorf("interest text = %q", p.InterestText())
		}
	}
}

type embedFunc func(context.Context, string) ([]float32, error)

func (f embedFunc) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

type captureStore struct {
	points []semantic.Point
	err    error
}

func (s *captureStore) Upsert(_ context.Context, points []semantic.Point) error {
	if s.err != nil {
		return s.err
	}
	s.points = append(s.points, points...)
	return nil
}

func TestIngest(t *testing.T) {
	profiles := Generate(3)
	store := &captureStore{}
	ok := embedFunc(func(context.Context, string) ([]float32, error) {
		return []float32{0.1, 0.2}, nil
	})

	n, err := Ingest(context.Background(), ok, store, profiles, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 || len(store.points) != 3 {
		t.Fatalf("ingested %d, stored %d", n, len(store.points))
	}
	for i, p := range store.points {
		if p.ID != profiles[i].ID {
			t.Errorf("point id = %q, want profile id %q", p.ID, profiles[i].ID)
		}
		if _, ok := p.Vectors[domain.VectorText]; !ok {
			t.Error("missing text vector")
		}
		if email, _ := p.Payload["email"].(string); email != profiles[i].Email {
			t.Errorf("payload email = %q", email)
		}
	}
}

func TestIngestSkipsFailedEmbeddings(t *testing.T) {
	profiles := Generate(3)
	store := &captureStore{}
	calls := 0
	flaky := embedFunc(func(context.Context, string) ([]float32, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("gateway down")
		}
		return []float32{0.1}, nil
	})

	n, err := Ingest(context.Background(), flaky, store, profiles, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("ingested %d, want 2", n)
	}
}

func TestIngestEmptyBatchSkipsStore(t *testing.T) {
	store := &captureStore{err: errors.New("must not be called")}
	bad := embedFunc(func(context.Context, string) ([]float32, error) {
		return nil, errors.New("gateway down")
	})

	n, err := Ingest(context.Background(), bad, store, Generate(2), nil)
	if err != nil || n != 0 {
		t.Fatalf("n = %d, err = %v", n, err)
	}
}
