// Package inbound defines the interfaces for inbound ports (primary/driving adapters): the use
// cases HTTP handlers and other driving adapters invoke against the core.
package inbound

import (
	"context"
	"time"

	"github.com/alchemorsel/nutricore/internal/domain/meal"
	"github.com/google/uuid"
)

// MealService is the primary port for the meal-analysis pipeline of §4.2.
type MealService interface {
	UploadMealImage(ctx context.Context, cmd UploadMealImageCommand) (MealDTO, error)
	EditMeal(ctx context.Context, cmd EditMealCommand) (MealDTO, error)
	DeleteMeal(ctx context.Context, userID, mealID uuid.UUID) error
	GetMeal(ctx context.Context, userID, mealID uuid.UUID) (MealDTO, error)
	ListMealsByDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]MealDTO, error)
	// CreateManualMeal materializes a Meal directly from known food items, bypassing vision
	// analysis. The suggestion orchestrator's AcceptSuggestion uses this path (§4.3).
	CreateManualMeal(ctx context.Context, cmd CreateManualMealCommand) (MealDTO, error)
}

// UploadMealImageCommand carries the raw upload plus any optional hints used to pick an
// analysis strategy (§4.2.1).
type UploadMealImageCommand struct {
	UserID      uuid.UUID
	ImageBytes  []byte
	ContentType string
	ConsumedAt  time.Time

	PortionHint  string
	KnownFoods   []string
	TotalWeightG *float64
	Description  string
}

// EditMealCommand carries one of the four edit kinds of §4.2's EditMeal.
type EditMealCommand struct {
	UserID      uuid.UUID
	MealID      uuid.UUID
	Kind        meal.EditKind
	Item        FoodItemDTO
	TargetIndex int
	NewQuantity float64
}

// CreateManualMealCommand materializes a meal from already-known food items (e.g. an accepted
// suggestion), scaled by a portion multiplier.
type CreateManualMealCommand struct {
	UserID     uuid.UUID
	DishName   string
	FoodItems  []FoodItemDTO
	Multiplier int
	ConsumedAt time.Time
}

// FoodItemDTO is the transport shape of a meal.FoodItem.
type FoodItemDTO struct {
	Name       string   `json:"name"`
	Quantity   float64  `json:"quantity"`
	Unit       string   `json:"unit"`
	FdcID      *string  `json:"fdc_id,omitempty"`
	IsCustom   bool     `json:"is_custom"`
	Calories   float64  `json:"calories"`
	Protein    float64  `json:"protein"`
	Carbs      float64  `json:"carbs"`
	Fat        float64  `json:"fat"`
	Fiber      *float64 `json:"fiber,omitempty"`
	Provenance string   `json:"provenance"`
}

// NutritionDTO is the transport shape of a meal.Nutrition.
type NutritionDTO struct {
	Calories        float64  `json:"calories"`
	ProteinGrams    float64  `json:"protein_grams"`
	CarbsGrams      float64  `json:"carbs_grams"`
	FatGrams        float64  `json:"fat_grams"`
	FiberGrams      *float64 `json:"fiber_grams,omitempty"`
	ConfidenceScore float64  `json:"confidence_score"`
}

// MealDTO is the data transfer object returned to driving adapters.
type MealDTO struct {
	ID           uuid.UUID     `json:"id"`
	UserID       uuid.UUID     `json:"user_id"`
	Status       meal.Status   `json:"status"`
	Strategy     meal.AnalysisStrategy `json:"strategy"`
	DishName     *string       `json:"dish_name,omitempty"`
	Nutrition    *NutritionDTO `json:"nutrition,omitempty"`
	FoodItems    []FoodItemDTO `json:"food_items,omitempty"`
	ConsumedAt   time.Time     `json:"consumed_at"`
	ReadyAt      *time.Time    `json:"ready_at,omitempty"`
	ErrorMessage *string       `json:"error_message,omitempty"`
	EditCount    int           `json:"edit_count"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
