// Package testutil provides seeded test-data factories shared across application and domain
// tests, in the same spirit as the teacher's test/testutils factories.
package testutil

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/alchemorsel/nutricore/internal/domain/meal"
)

// MealFactory generates randomized but valid meal.FoodItem values for property-style tests
// that want many distinct inputs rather than one hand-picked literal.
type MealFactory struct {
	faker *gofakeit.Faker
}

// NewMealFactory creates a factory seeded for reproducible test runs.
func NewMealFactory(seed int64) *MealFactory {
	return &MealFactory{faker: gofakeit.New(seed)}
}

var units = []string{"g", "ml", "piece", "cup", "tbsp"}

// RandomFoodItem returns a FoodItem with a plausible name and macro split that sums
// approximately to its calorie count, provenance chosen uniformly at random.
func (f *MealFactory) RandomFoodItem() meal.FoodItem {
	protein := float64(f.faker.Float32Range(0, 40))
	carbs := float64(f.faker.Float32Range(0, 80))
	fat := float64(f.faker.Float32Range(0, 30))
	calories := protein*4 + carbs*4 + fat*9

	provenances := []meal.Provenance{meal.ProvenanceModel, meal.ProvenanceIngredients, meal.ProvenanceUSDA}

	return meal.FoodItem{
		Name:       f.faker.Food(),
		Quantity:   float64(f.faker.Float32Range(10, 500)),
		Unit:       units[f.faker.IntRange(0, len(units)-1)],
		Calories:   calories,
		Protein:    protein,
		Carbs:      carbs,
		Fat:        fat,
		Provenance: provenances[f.faker.IntRange(0, len(provenances)-1)],
	}
}

// NewRandomMeal builds a ready meal owned by a random user, backed by n random food items.
func (f *MealFactory) NewRandomMeal(n int) *meal.Meal {
	items := make([]meal.FoodItem, 0, n)
	var agg meal.Nutrition
	for i := 0; i < n; i++ {
		item := f.RandomFoodItem()
		items = append(items, item)
		agg.Calories += item.Calories
		agg.ProteinGrams += item.Protein
		agg.CarbsGrams += item.Carbs
		agg.FatGrams += item.Fat
	}
	agg.ConfidenceScore = float64(f.faker.Float32Range(0.5, 1.0))

	m := meal.NewFromUpload(uuid.New(), uuid.New(), uuid.New().String(), meal.StrategyBasic, time.Now())
	_ = m.BeginAnalyzing()
	_ = m.BeginEnriching()
	_ = m.Complete(f.faker.Sentence(4), items, agg, time.Now())
	return m
}
