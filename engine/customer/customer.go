// Package customer generates synthetic customer profiles with embedded
// interest vectors, used to seed a customers collection for
// preference-based product matching demos.
package customer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/domain"
	"github.com/hkhajgiwale/dust-qdrant-ecommerce-app/engine/semantic"
)

// DefaultCollection is the Qdrant collection for customer profiles.
const DefaultCollection = "customers"

// interestKeywords is the vocabulary synthetic profiles sample from.
var interestKeywords = []string{
	"hydration", "anti-aging", "sunscreen", "brightening", "vitamin C",
	"retinol", "cleanser", "exfoliator", "serum", "vegan skincare",
	"moisturizer", "fragrance-free", "acne care", "sensitive skin",
}

// Profile is one customer with sampled interests.
type Profile struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Interests []string `json:"interests"`
}

// InterestText returns the text embedded as the profile's preference vector.
func (p Profile) InterestText() string {
	return strings.Join(p.Interests, " ")
}

// Generate returns n synthetic profiles, each with 2-4 sampled interests.
func Generate(n int) []Profile {
	profiles := make([]Profile, n)
	for i := range profiles {
		k := 2 + rand.Intn(3)
		perm := rand.Perm(len(interestKeywords))
		interests := make([]string, k)
		for j := 0; j < k; j++ {
			interests[j] = interestKeywords[perm[j]]
		}
		profiles[i] = Profile{
			ID:        uuid.NewString(),
			Name:      gofakeit.Name(),
			Email:     gofakeit.Email(),
			Interests: interests,
		}
	}
	return profiles
}

// Embedder embeds interest text.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Upserter commits profile points.
type Upserter interface {
	Upsert(ctx context.Context, points []semantic.Point) error
}

// Ingest embeds each profile's interests and upserts one text-vector point
// per profile. A profile whose embedding fails is logged and skipped.
func Ingest(ctx context.Context, embed Embedder, store Upserter, profiles []Profile, log *slog.Logger) (int, error) {
	if log == nil {
		log = slog.Default()
	}

	points := make([]semantic.Point, 0, len(profiles))
	for _, p := range profiles {
		vec, err := embed.EmbedText(ctx, p.InterestText())
		if err != nil {
			log.Warn("customer: embedding failed", "name", p.Name, "error", err)
			continue
		}
		points = append(points, semantic.Point{
			ID:      p.ID,
			Vectors: map[string][]float32{domain.VectorText: vec},
			Payload: map[string]any{
				"name":      p.Name,
				"email":     p.Email,
				"interests": p.Interests,
			},
		})
	}
	if len(points) == 0 {
		return 0, nil
	}
	if err := store.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("customer: upsert %d profiles: %w", len(points), err)
	}
	return len(points), nil
}
