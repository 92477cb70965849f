package meal

import (
	"errors"
	"math"
)

// Value Objects - immutable pieces of a meal aggregate.

// Nutrition is the aggregate nutrition breakdown of a meal or food item.
type Nutrition struct {
	Calories        float64
	ProteinGrams    float64
	CarbsGrams      float64
	FatGrams        float64
	FiberGrams      *float64
	ConfidenceScore float64 // [0,1]
}

// Validate checks the nonnegativity and range invariants of §3.1.
func (n Nutrition) Validate() error {
	if n.Calories < 0 || n.ProteinGrams < 0 || n.CarbsGrams < 0 || n.FatGrams < 0 {
		return ErrNegativeMacro
	}
	if n.FiberGrams != nil && *n.FiberGrams < 0 {
		return ErrNegativeMacro
	}
	if n.ConfidenceScore < 0 || n.ConfidenceScore > 1 {
		return ErrInvalidConfidence
	}
	return nil
}

// Scale multiplies every macro by factor, used for portion-multiplier suggestion acceptance.
func (n Nutrition) Scale(factor float64) Nutrition {
	scaled := Nutrition{
		Calories:        n.Calories * factor,
		ProteinGrams:    n.ProteinGrams * factor,
		CarbsGrams:      n.CarbsGrams * factor,
		FatGrams:        n.FatGrams * factor,
		ConfidenceScore: n.ConfidenceScore,
	}
	if n.FiberGrams != nil {
		f := *n.FiberGrams * factor
		scaled.FiberGrams = &f
	}
	return scaled
}

// Add combines two nutrition values, taking the minimum confidence of the two (provenance is
// only as good as its weakest contributor, per §3.1).
func (n Nutrition) Add(other Nutrition) Nutrition {
	sum := Nutrition{
		Calories:        n.Calories + other.Calories,
		ProteinGrams:    n.ProteinGrams + other.ProteinGrams,
		CarbsGrams:      n.CarbsGrams + other.CarbsGrams,
		FatGrams:        n.FatGrams + other.FatGrams,
		ConfidenceScore: math.Min(n.ConfidenceScore, other.ConfidenceScore),
	}
	if n.FiberGrams != nil || other.FiberGrams != nil {
		var a, b float64
		if n.FiberGrams != nil {
			a = *n.FiberGrams
		}
		if other.FiberGrams != nil {
			b = *other.FiberGrams
		}
		f := a + b
		sum.FiberGrams = &f
	}
	return sum
}

// WithinTolerance reports whether sum reconciles with n within the 1% rounding tolerance of §3.1
// invariant 2 (per macro, |sum - aggregate| <= 0.01 * aggregate).
func (n Nutrition) WithinTolerance(sum Nutrition) bool {
	check := func(aggregate, actual float64) bool {
		if aggregate == 0 {
			return actual == 0
		}
		return math.Abs(actual-aggregate) <= 0.01*math.Abs(aggregate)
	}
	return check(n.Calories, sum.Calories) &&
		check(n.ProteinGrams, sum.ProteinGrams) &&
		check(n.CarbsGrams, sum.CarbsGrams) &&
		check(n.FatGrams, sum.FatGrams)
}

// Provenance records where a nutrient value originated, used to derive confidence scores.
type Provenance string

const (
	ProvenanceUSDA        Provenance = "usda"
	ProvenanceIngredients Provenance = "ingredients"
	ProvenanceModel       Provenance = "model"
	ProvenanceNone        Provenance = "none"
)

// ConfidenceWeight maps a provenance tag to the minimum confidence it contributes: the curated
// ingredients index 0.95, the USDA index 0.75, a model-only estimate 0.5, anything else 0.3.
func (p Provenance) ConfidenceWeight() float64 {
	switch p {
	case ProvenanceIngredients:
		return 0.95
	case ProvenanceUSDA:
		return 0.75
	case ProvenanceModel:
		return 0.5
	default:
		return 0.3
	}
}

func (p Provenance) confidenceWeight() float64 { return p.ConfidenceWeight() }

// FoodItem is a single identified food within a meal.
type FoodItem struct {
	Name       string
	Quantity   float64
	Unit       string
	FdcID      *string
	IsCustom   bool
	Calories   float64
	Protein    float64
	Carbs      float64
	Fat        float64
	Fiber      *float64
	Provenance Provenance
}

// Validate enforces the basic structural invariants on a food item.
func (f FoodItem) Validate() error {
	if f.Name == "" {
		return ErrEmptyFoodName
	}
	if f.Quantity < 0 {
		return ErrNegativeQuantity
	}
	if f.Calories < 0 || f.Protein < 0 || f.Carbs < 0 || f.Fat < 0 {
		return ErrNegativeMacro
	}
	return nil
}

// Nutrition projects the food item's macros into a Nutrition value carrying its own provenance
// confidence.
func (f FoodItem) Nutrition() Nutrition {
	return Nutrition{
		Calories:        f.Calories,
		ProteinGrams:    f.Protein,
		CarbsGrams:      f.Carbs,
		FatGrams:        f.Fat,
		FiberGrams:      f.Fiber,
		ConfidenceScore: f.Provenance.confidenceWeight(),
	}
}

// AnalysisStrategy names which §4.2.1 vision-analysis strategy produced a meal's breakdown.
type AnalysisStrategy string

const (
	StrategyBasic             AnalysisStrategy = "basic"
	StrategyPortionAware      AnalysisStrategy = "portion_aware"
	StrategyIngredientAware   AnalysisStrategy = "ingredient_aware"
	StrategyWeightAware       AnalysisStrategy = "weight_aware"
	StrategyUserContextAware  AnalysisStrategy = "user_context_aware"
	StrategyCombined          AnalysisStrategy = "combined"
)

// AnalysisHints carries the optional caller-supplied context that selects an analysis strategy.
type AnalysisHints struct {
	PortionHint   string
	KnownFoods    []string
	TotalWeightG  *float64
	Description   string
}

// SelectStrategy implements the selection table of §4.2.1.
func SelectStrategy(h AnalysisHints) AnalysisStrategy {
	var active []AnalysisStrategy
	if h.PortionHint != "" {
		active = append(active, StrategyPortionAware)
	}
	if len(h.KnownFoods) > 0 {
		active = append(active, StrategyIngredientAware)
	}
	if h.TotalWeightG != nil {
		active = append(active, StrategyWeightAware)
	}
	if h.Description != "" {
		active = append(active, StrategyUserContextAware)
	}
	switch len(active) {
	case 0:
		return StrategyBasic
	case 1:
		return active[0]
	default:
		return StrategyCombined
	}
}

var (
	ErrNegativeMacro     = errors.New("macro values must be non-negative")
	ErrInvalidConfidence = errors.New("confidence score must be within [0,1]")
	ErrEmptyFoodName     = errors.New("food item name is required")
	ErrNegativeQuantity  = errors.New("food item quantity cannot be negative")
)
