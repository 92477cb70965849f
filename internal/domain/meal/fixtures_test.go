package meal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alchemorsel/nutricore/internal/domain/meal"
	"github.com/alchemorsel/nutricore/internal/testutil"
)

// TestRandomMeals_AlwaysReadyWithAggregatedNutrition runs the happy-path state machine over
// many randomly generated food-item combinations rather than one hand-picked literal, guarding
// against macro-aggregation bugs that a single fixture wouldn't surface.
func TestRandomMeals_AlwaysReadyWithAggregatedNutrition(t *testing.T) {
	factory := testutil.NewMealFactory(42)

	for i := 0; i < 20; i++ {
		n := i%4 + 1
		m := factory.NewRandomMeal(n)

		require.Equal(t, meal.StatusReady, m.Status())
		require.NotNil(t, m.Nutrition())
		assert.Len(t, m.FoodItems(), n)
		assert.GreaterOrEqual(t, m.Nutrition().Calories, 0.0)
	}
}
