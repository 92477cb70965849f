package gorm

import (
	"context"
	"math"

	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"gorm.io/gorm"
)

// Embedder is the subset of the chat provider client this index depends on, kept as an interface
// here so the persistence package does not import the ai provider package directly.
type Embedder interface {
	Embed(ctx context.Context, query string) ([]float32, error)
}

// NutritionIndex implements outbound.NutritionIndex as a brute-force cosine-similarity scan over
// two Postgres tables of pre-computed embeddings. No pack library exposes a pgvector client, so
// candidate scoring is done in Go rather than pushed into a vector-index SQL operator — acceptable
// at the corpus sizes (curated ingredients, USDA reference data) §4.4 targets.
type NutritionIndex struct {
	db       *gorm.DB
	embedder Embedder
}

// NewNutritionIndex creates the vector-backed nutrition lookup adapter.
func NewNutritionIndex(db *gorm.DB, embedder Embedder) outbound.NutritionIndex {
	return &NutritionIndex{db: db, embedder: embedder}
}

// Embed implements outbound.NutritionIndex.
func (n *NutritionIndex) Embed(ctx context.Context, query string) ([]float32, error) {
	return n.embedder.Embed(ctx, query)
}

// QueryIngredients implements outbound.NutritionIndex against the curated ingredients table.
func (n *NutritionIndex) QueryIngredients(ctx context.Context, vec []float32) (float64, *outbound.NutritionRecord, error) {
	var rows []IngredientEmbeddingModel
	if err := n.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return 0, nil, err
	}
	return bestMatch(vec, rows, func(m IngredientEmbeddingModel) (Float32Slice, string, float64, float64, float64, float64, *float64) {
		return m.Embedding, m.Name, m.Calories, m.Protein, m.Carbs, m.Fat, m.Fiber
	})
}

// QueryUsda implements outbound.NutritionIndex against the USDA reference table.
func (n *NutritionIndex) QueryUsda(ctx context.Context, vec []float32) (float64, *outbound.NutritionRecord, error) {
	var rows []UsdaEmbeddingModel
	if err := n.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return 0, nil, err
	}
	return bestMatch(vec, rows, func(m UsdaEmbeddingModel) (Float32Slice, string, float64, float64, float64, float64, *float64) {
		return m.Embedding, m.Name, m.Calories, m.Protein, m.Carbs, m.Fat, m.Fiber
	})
}

// bestMatch scans rows for the highest cosine similarity against vec, generic over either
// embedding table's row shape via the accessor closure.
func bestMatch[T any](vec []float32, rows []T, fields func(T) (Float32Slice, string, float64, float64, float64, float64, *float64)) (float64, *outbound.NutritionRecord, error) {
	var bestScore float64 = -1
	var best *outbound.NutritionRecord

	for _, row := range rows {
		embedding, name, calories, protein, carbs, fat, fiber := fields(row)
		score := cosineSimilarity(vec, embedding)
		if score > bestScore {
			bestScore = score
			best = &outbound.NutritionRecord{
				Name: name, Calories: calories, Protein: protein, Carbs: carbs, Fat: fat, Fiber: fiber,
			}
		}
	}

	if best == nil {
		return 0, nil, nil
	}
	return bestScore, best, nil
}

func cosineSimilarity(a []float32, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
