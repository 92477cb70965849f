// Package meal contains the core domain logic for the meal aggregate: the
// image-upload-to-nutrition state machine and the food items it owns.
package meal

import (
	"time"

	"github.com/alchemorsel/nutricore/internal/domain/shared"
	"github.com/google/uuid"
)

// Status is the meal's position in the analysis state machine (§4.2).
type Status string

const (
	StatusProcessing Status = "PROCESSING"
	StatusAnalyzing  Status = "ANALYZING"
	StatusEnriching  Status = "ENRICHING"
	StatusReady      Status = "READY"
	StatusFailed     Status = "FAILED"
	StatusInactive   Status = "INACTIVE"
)

// forwardTransitions enumerates the only allowed non-terminal advances of §4.2; FAILED is
// reachable from any non-terminal status and INACTIVE from any status, both checked separately.
var forwardTransitions = map[Status]Status{
	StatusProcessing: StatusAnalyzing,
	StatusAnalyzing:  StatusEnriching,
	StatusEnriching:  StatusReady,
}

// Meal is the central aggregate root of the nutrition-tracking domain.
type Meal struct {
	shared.AggregateRoot

	id       uuid.UUID
	userID   uuid.UUID
	status   Status
	strategy AnalysisStrategy

	dishName     *string
	imageRef     *string
	nutrition    *Nutrition
	foodItems    []FoodItem
	consumedAt   time.Time
	readyAt      *time.Time
	errorMessage *string

	editCount    int
	lastEditedAt *time.Time

	createdAt time.Time
	updatedAt time.Time
}

// NewFromUpload creates a meal in PROCESSING status immediately after an image upload, per §4.2's
// UploadMealImage operation. The response does not wait for analysis.
func NewFromUpload(id, userID uuid.UUID, imageRef string, strategy AnalysisStrategy, consumedAt time.Time) *Meal {
	now := time.Now().UTC()
	m := &Meal{
		id:         id,
		userID:     userID,
		status:     StatusProcessing,
		strategy:   strategy,
		consumedAt: consumedAt,
		createdAt:  now,
		updatedAt:  now,
	}
	if imageRef != "" {
		m.imageRef = &imageRef
	}
	return m
}

// NewManual constructs a meal that skips vision analysis entirely, going straight to READY with
// caller-supplied food items. This is the "CreateManualMeal" path §4.3's AcceptSuggestion uses to
// materialize an accepted suggestion, and is also suitable for direct manual-entry meal logging.
func NewManual(id, userID uuid.UUID, dishName string, foodItems []FoodItem, consumedAt, now time.Time) (*Meal, error) {
	m := NewFromUpload(id, userID, "", StrategyBasic, consumedAt)
	m.createdAt = now
	m.updatedAt = now
	if err := m.BeginAnalyzing(); err != nil {
		return nil, err
	}
	if err := m.BeginEnriching(); err != nil {
		return nil, err
	}
	var nutrition Nutrition
	first := true
	for _, item := range foodItems {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		if first {
			nutrition = item.Nutrition()
			first = false
			continue
		}
		nutrition = nutrition.Add(item.Nutrition())
	}
	if err := m.Complete(dishName, foodItems, nutrition, now); err != nil {
		return nil, err
	}
	m.Events() // manual creation does not raise Analyzed; caller raises CreatedFromSuggestion itself
	return m, nil
}

// Rehydrate reconstructs a Meal from persisted state without raising events or re-validating
// upload-time invariants; repositories use this to build aggregates from stored rows.
func Rehydrate(
	id, userID uuid.UUID,
	status Status,
	strategy AnalysisStrategy,
	dishName, imageRef, errorMessage *string,
	nutrition *Nutrition,
	foodItems []FoodItem,
	consumedAt time.Time,
	readyAt *time.Time,
	editCount int,
	lastEditedAt *time.Time,
	createdAt, updatedAt time.Time,
) *Meal {
	return &Meal{
		id:           id,
		userID:       userID,
		status:       status,
		strategy:     strategy,
		dishName:     dishName,
		imageRef:     imageRef,
		errorMessage: errorMessage,
		nutrition:    nutrition,
		foodItems:    foodItems,
		consumedAt:   consumedAt,
		readyAt:      readyAt,
		editCount:    editCount,
		lastEditedAt: lastEditedAt,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (m *Meal) ID() uuid.UUID             { return m.id }
func (m *Meal) UserID() uuid.UUID         { return m.userID }
func (m *Meal) Status() Status            { return m.status }
func (m *Meal) Strategy() AnalysisStrategy { return m.strategy }
func (m *Meal) DishName() *string         { return m.dishName }
func (m *Meal) ImageRef() *string         { return m.imageRef }
func (m *Meal) Nutrition() *Nutrition     { return m.nutrition }
func (m *Meal) FoodItems() []FoodItem     { return m.foodItems }
func (m *Meal) ConsumedAt() time.Time     { return m.consumedAt }
func (m *Meal) ReadyAt() *time.Time       { return m.readyAt }
func (m *Meal) ErrorMessage() *string     { return m.errorMessage }
func (m *Meal) EditCount() int            { return m.editCount }
func (m *Meal) LastEditedAt() *time.Time  { return m.lastEditedAt }
func (m *Meal) CreatedAt() time.Time      { return m.createdAt }
func (m *Meal) UpdatedAt() time.Time      { return m.updatedAt }

// OwnedBy implements the user-isolation check required before every meal-scoped command/query.
func (m *Meal) OwnedBy(userID uuid.UUID) bool {
	return m.userID == userID
}

// BeginAnalyzing advances PROCESSING -> ANALYZING. Callers perform this transition under a
// conditional write (§4.2's "WHERE status = 'PROCESSING'"); the error returned for a meal no
// longer in PROCESSING lets them short-circuit before issuing the conditional update.
func (m *Meal) BeginAnalyzing() error {
	return m.advance(StatusProcessing, StatusAnalyzing)
}

// BeginEnriching advances ANALYZING -> ENRICHING.
func (m *Meal) BeginEnriching() error {
	return m.advance(StatusAnalyzing, StatusEnriching)
}

// Complete advances ENRICHING -> READY, setting the final nutrition and raising Analyzed.
func (m *Meal) Complete(dishName string, foodItems []FoodItem, nutrition Nutrition, now time.Time) error {
	if m.status != StatusEnriching {
		return ErrInvalidStatusTransition
	}
	if err := nutrition.Validate(); err != nil {
		return err
	}
	m.status = StatusReady
	if dishName != "" {
		m.dishName = &dishName
	}
	m.foodItems = foodItems
	m.nutrition = &nutrition
	m.readyAt = &now
	m.updatedAt = now

	m.AddEvent(Analyzed{
		MealID:    m.id.String(),
		UserID:    m.userID.String(),
		Nutrition: nutrition,
		ReadyAt:   now,
	})
	return nil
}

// Fail transitions the meal to FAILED from any non-terminal status and records the reason.
func (m *Meal) Fail(reason string, now time.Time) error {
	if m.status == StatusReady || m.status == StatusFailed || m.status == StatusInactive {
		return ErrInvalidStatusTransition
	}
	m.status = StatusFailed
	m.errorMessage = &reason
	m.updatedAt = now

	m.AddEvent(AnalysisFailed{
		MealID: m.id.String(),
		UserID: m.userID.String(),
		Reason: reason,
		At:     now,
	})
	return nil
}

// SoftDelete transitions a meal in any status to INACTIVE. Idempotent: deleting an already
// inactive meal is a no-op success, matching §8.2's round-trip law.
func (m *Meal) SoftDelete(now time.Time) {
	if m.status == StatusInactive {
		return
	}
	m.status = StatusInactive
	m.updatedAt = now
	m.AddEvent(Deleted{MealID: m.id.String(), UserID: m.userID.String(), At: now})
}

// advance implements a single forward transition, enforcing monotonicity (§3.3).
func (m *Meal) advance(from, to Status) error {
	if m.status != from {
		return ErrInvalidStatusTransition
	}
	if forwardTransitions[from] != to {
		return ErrInvalidStatusTransition
	}
	m.status = to
	m.updatedAt = time.Now().UTC()
	return nil
}

// EditKind enumerates the edit operations of §4.2's EditMeal.
type EditKind string

const (
	EditAddItem        EditKind = "add_item"
	EditRemoveItem      EditKind = "remove_item"
	EditReplaceItem     EditKind = "replace_item"
	EditAdjustQuantity  EditKind = "adjust_quantity"
)

// Edit is a sum-type value describing one EditMeal mutation.
type Edit struct {
	Kind        EditKind
	Item        FoodItem // used by AddItem and ReplaceItem (new value)
	TargetIndex int      // used by RemoveItem, ReplaceItem, AdjustQuantity
	NewQuantity float64  // used by AdjustQuantity
}

// ApplyEdit requires the meal to be READY, applies the edit, recomputes aggregate nutrition from
// the food items, increments edit_count, and raises Edited with the nutrition delta.
func (m *Meal) ApplyEdit(edit Edit, now time.Time) error {
	if m.status != StatusReady {
		return ErrNotReady
	}
	before := Nutrition{}
	if m.nutrition != nil {
		before = *m.nutrition
	}

	switch edit.Kind {
	case EditAddItem:
		if err := edit.Item.Validate(); err != nil {
			return err
		}
		m.foodItems = append(m.foodItems, edit.Item)
	case EditRemoveItem:
		if edit.TargetIndex < 0 || edit.TargetIndex >= len(m.foodItems) {
			return ErrFoodItemNotFound
		}
		m.foodItems = append(m.foodItems[:edit.TargetIndex], m.foodItems[edit.TargetIndex+1:]...)
	case EditReplaceItem:
		if edit.TargetIndex < 0 || edit.TargetIndex >= len(m.foodItems) {
			return ErrFoodItemNotFound
		}
		if err := edit.Item.Validate(); err != nil {
			return err
		}
		m.foodItems[edit.TargetIndex] = edit.Item
	case EditAdjustQuantity:
		if edit.TargetIndex < 0 || edit.TargetIndex >= len(m.foodItems) {
			return ErrFoodItemNotFound
		}
		if edit.NewQuantity < 0 {
			return ErrNegativeQuantity
		}
		item := m.foodItems[edit.TargetIndex]
		if item.Quantity > 0 {
			factor := edit.NewQuantity / item.Quantity
			item.Calories *= factor
			item.Protein *= factor
			item.Carbs *= factor
			item.Fat *= factor
			if item.Fiber != nil {
				f := *item.Fiber * factor
				item.Fiber = &f
			}
		}
		item.Quantity = edit.NewQuantity
		m.foodItems[edit.TargetIndex] = item
	default:
		return ErrInvalidStatusTransition
	}

	recomputed := m.recomputeNutrition()
	m.nutrition = &recomputed
	m.editCount++
	m.lastEditedAt = &now
	m.updatedAt = now

	delta := Nutrition{
		Calories:     recomputed.Calories - before.Calories,
		ProteinGrams: recomputed.ProteinGrams - before.ProteinGrams,
		CarbsGrams:   recomputed.CarbsGrams - before.CarbsGrams,
		FatGrams:     recomputed.FatGrams - before.FatGrams,
	}
	m.AddEvent(Edited{
		MealID:         m.id.String(),
		UserID:         m.userID.String(),
		NutritionDelta: delta,
		At:             now,
	})
	return nil
}

// recomputeNutrition sums the current food items into an aggregate Nutrition, per §4.2's
// "recomputes aggregate nutrition by summing items".
func (m *Meal) recomputeNutrition() Nutrition {
	var sum Nutrition
	first := true
	for _, item := range m.foodItems {
		n := item.Nutrition()
		if first {
			sum = n
			first = false
			continue
		}
		sum = sum.Add(n)
	}
	if !first {
		// Add uses min(); recompute confidence as the minimum across all items explicitly so a
		// single-item meal doesn't accidentally adopt Add's pairwise identity behavior.
		conf := 1.0
		for _, item := range m.foodItems {
			if w := item.Provenance.confidenceWeight(); w < conf {
				conf = w
			}
		}
		sum.ConfidenceScore = conf
	}
	return sum
}
