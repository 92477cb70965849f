// Package nutrition implements the ingredient nutrition lookup of §4.4: a threshold cascade
// across two vector indices, and the unit-to-grams conversion table of §4.4.1.
package nutrition

import (
	"context"
	"time"

	"github.com/alchemorsel/nutricore/internal/domain/meal"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"go.uber.org/zap"
)

const (
	ingredientsAcceptThreshold = 0.60
	usdaConsiderThreshold      = 0.35
	// lookupTimeout bounds the embed call and both index queries of one Resolve together.
	lookupTimeout = 5 * time.Second
)

// unitToGrams implements the §4.4.1 unit table. Unknown or empty units fall back to 100 g.
var unitToGrams = map[string]float64{
	"g":       1,
	"kg":      1000,
	"oz":      28.3495,
	"lb":      453.592,
	"cup":     240,
	"tbsp":    15,
	"tsp":     5,
	"ml":      1,
	"serving": 100,
}

// GramsFor converts a unit-qualified portion into grams, per §4.4.1.
func GramsFor(quantity float64, unit string) float64 {
	perUnit, ok := unitToGrams[unit]
	if !ok {
		return 100
	}
	return quantity * perUnit
}

// Lookup implements NutritionIndex-backed ingredient resolution.
type Lookup struct {
	index  outbound.NutritionIndex
	logger *zap.Logger
}

// NewLookup creates a new ingredient nutrition lookup.
func NewLookup(index outbound.NutritionIndex, logger *zap.Logger) *Lookup {
	return &Lookup{index: index, logger: logger.Named("nutrition-lookup")}
}

// Resolve implements the §4.4 Lookup(query, portion) algorithm: embed once, query the curated
// ingredients index, fall back to usda by score, and scale the winning per-100g record to the
// requested portion. Returns a nil Nutrition with ProvenanceNone and a nil error if no hit
// qualifies (an index query cut off by lookupTimeout counts as no hit); an embedding failure is
// returned as an error. Either way the caller keeps its model estimate.
func (l *Lookup) Resolve(ctx context.Context, query string, quantity float64, unit string) (*meal.Nutrition, meal.Provenance, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	vec, err := l.index.Embed(ctx, query)
	if err != nil {
		return nil, meal.ProvenanceNone, err
	}

	ingScore, ingRecord, err := l.index.QueryIngredients(ctx, vec)
	if err != nil {
		l.logger.Warn("ingredients index query failed", zap.Error(err))
		ingScore, ingRecord = 0, nil
	}

	var winner *outbound.NutritionRecord
	var provenance meal.Provenance

	switch {
	case ingScore >= ingredientsAcceptThreshold:
		winner, provenance = ingRecord, meal.ProvenanceIngredients
	case ingScore >= usdaConsiderThreshold:
		usdaScore, usdaRecord, err := l.index.QueryUsda(ctx, vec)
		if err != nil {
			l.logger.Warn("usda index query failed", zap.Error(err))
			winner, provenance = ingRecord, meal.ProvenanceIngredients
			break
		}
		if usdaScore > ingScore {
			winner, provenance = usdaRecord, meal.ProvenanceUSDA
		} else {
			winner, provenance = ingRecord, meal.ProvenanceIngredients
		}
	default:
		usdaScore, usdaRecord, err := l.index.QueryUsda(ctx, vec)
		if err != nil {
			l.logger.Warn("usda index query failed", zap.Error(err))
			return nil, meal.ProvenanceNone, nil
		}
		if usdaScore >= usdaConsiderThreshold {
			winner, provenance = usdaRecord, meal.ProvenanceUSDA
		}
	}

	if winner == nil {
		return nil, meal.ProvenanceNone, nil
	}

	grams := GramsFor(quantity, unit)
	factor := grams / 100
	n := meal.Nutrition{
		Calories:        winner.Calories * factor,
		ProteinGrams:    winner.Protein * factor,
		CarbsGrams:      winner.Carbs * factor,
		FatGrams:        winner.Fat * factor,
		ConfidenceScore: provenance.ConfidenceWeight(),
	}
	if winner.Fiber != nil {
		f := *winner.Fiber * factor
		n.FiberGrams = &f
	}
	return &n, provenance, nil
}
