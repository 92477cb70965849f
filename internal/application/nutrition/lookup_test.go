package nutrition

import (
	"context"
	"errors"
	"testing"

	"github.com/alchemorsel/nutricore/internal/domain/meal"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeIndex struct {
	embedErr error

	ingScore  float64
	ingRecord *outbound.NutritionRecord
	ingErr    error

	usdaScore  float64
	usdaRecord *outbound.NutritionRecord
	usdaErr    error
}

func (f *fakeIndex) Embed(ctx context.Context, query string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return []float32{0.1, 0.2}, nil
}

func (f *fakeIndex) QueryIngredients(ctx context.Context, vec []float32) (float64, *outbound.NutritionRecord, error) {
	return f.ingScore, f.ingRecord, f.ingErr
}

func (f *fakeIndex) QueryUsda(ctx context.Context, vec []float32) (float64, *outbound.NutritionRecord, error) {
	return f.usdaScore, f.usdaRecord, f.usdaErr
}

func newLookup(idx outbound.NutritionIndex) *Lookup {
	return NewLookup(idx, zap.NewNop())
}

func TestGramsFor_KnownUnitsConvert(t *testing.T) {
	assert.Equal(t, 150.0, GramsFor(150, "g"))
	assert.Equal(t, 2000.0, GramsFor(2, "kg"))
	assert.Equal(t, 480.0, GramsFor(2, "cup"))
}

func TestGramsFor_UnknownUnit_FallsBackTo100Grams(t *testing.T) {
	assert.Equal(t, 100.0, GramsFor(1, "bushel"))
	assert.Equal(t, 100.0, GramsFor(5, ""))
}

func TestResolve_EmbedFails_ReturnsError(t *testing.T) {
	l := newLookup(&fakeIndex{embedErr: errors.New("embed service down")})

	n, provenance, err := l.Resolve(context.Background(), "rice", 150, "g")
	assert.Error(t, err)
	assert.Nil(t, n)
	assert.Equal(t, meal.ProvenanceNone, provenance)
}

func TestResolve_IngredientsScoreAboveAcceptThreshold_WinsOutright(t *testing.T) {
	idx := &fakeIndex{
		ingScore:  0.9,
		ingRecord: &outbound.NutritionRecord{Name: "rice", Calories: 130, Protein: 2.7, Carbs: 28, Fat: 0.3},
	}
	l := newLookup(idx)

	n, provenance, err := l.Resolve(context.Background(), "rice", 150, "g")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, meal.ProvenanceIngredients, provenance)
	assert.InDelta(t, 195.0, n.Calories, 0.01) // 130 * 1.5
}

func TestResolve_MidBand_ComparesIngredientsAgainstUsda(t *testing.T) {
	idx := &fakeIndex{
		ingScore:  0.5,
		ingRecord: &outbound.NutritionRecord{Name: "rice (ingredients)", Calories: 130},
		usdaScore: 0.8,
		usdaRecord: &outbound.NutritionRecord{Name: "rice (usda)", Calories: 128},
	}
	l := newLookup(idx)

	n, provenance, err := l.Resolve(context.Background(), "rice", 100, "g")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, meal.ProvenanceUSDA, provenance)
	assert.Equal(t, 128.0, n.Calories)
}

func TestResolve_MidBand_IngredientsWinsWhenUsdaScoreLower(t *testing.T) {
	idx := &fakeIndex{
		ingScore:  0.5,
		ingRecord: &outbound.NutritionRecord{Name: "rice (ingredients)", Calories: 130},
		usdaScore: 0.4,
		usdaRecord: &outbound.NutritionRecord{Name: "rice (usda)", Calories: 128},
	}
	l := newLookup(idx)

	_, provenance, err := l.Resolve(context.Background(), "rice", 100, "g")
	require.NoError(t, err)
	assert.Equal(t, meal.ProvenanceIngredients, provenance)
}

func TestResolve_BelowConsiderThreshold_FallsThroughToUsda(t *testing.T) {
	idx := &fakeIndex{
		ingScore:   0.1,
		usdaScore:  0.5,
		usdaRecord: &outbound.NutritionRecord{Name: "rice (usda)", Calories: 128},
	}
	l := newLookup(idx)

	n, provenance, err := l.Resolve(context.Background(), "rice", 100, "g")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, meal.ProvenanceUSDA, provenance)
}

func TestResolve_BelowBothThresholds_ReturnsNilWithoutError(t *testing.T) {
	idx := &fakeIndex{ingScore: 0.1, usdaScore: 0.2}
	l := newLookup(idx)

	n, provenance, err := l.Resolve(context.Background(), "mystery food", 100, "g")
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Equal(t, meal.ProvenanceNone, provenance)
}

func TestResolve_IngredientsQueryErrors_DegradesToUsdaPath(t *testing.T) {
	idx := &fakeIndex{
		ingErr:     errors.New("ingredients index unavailable"),
		usdaScore:  0.5,
		usdaRecord: &outbound.NutritionRecord{Name: "rice (usda)", Calories: 128},
	}
	l := newLookup(idx)

	n, provenance, err := l.Resolve(context.Background(), "rice", 100, "g")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, meal.ProvenanceUSDA, provenance)
}

func TestResolve_ScalesFiberWhenPresent(t *testing.T) {
	fiber := 2.0
	idx := &fakeIndex{
		ingScore:  0.9,
		ingRecord: &outbound.NutritionRecord{Name: "broccoli", Calories: 34, Fiber: &fiber},
	}
	l := newLookup(idx)

	n, _, err := l.Resolve(context.Background(), "broccoli", 200, "g")
	require.NoError(t, err)
	require.NotNil(t, n.FiberGrams)
	assert.InDelta(t, 4.0, *n.FiberGrams, 0.01)
}
