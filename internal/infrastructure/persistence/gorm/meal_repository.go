package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/nutricore/internal/domain/meal"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MealRepository implements outbound.MealRepository using GORM.
type MealRepository struct {
	db *gorm.DB
}

// NewMealRepository creates a new meal repository.
func NewMealRepository(db *gorm.DB) outbound.MealRepository {
	return &MealRepository{db: db}
}

// Create inserts a brand-new meal row, fresh off NewFromUpload.
func (r *MealRepository) Create(ctx context.Context, m *meal.Meal) error {
	model, err := MealToModel(m)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// Update persists the aggregate's current state. When expectedStatus is non-empty, the write is
// conditional on the row's current status still matching it — the "at-most-one-flight" mechanism
// of §3.3/§4.2 ("WHERE status = 'PROCESSING'", then "WHERE status = 'ANALYZING'"). A second
// subscriber invocation for the same event finds zero rows affected and must treat that as a
// precondition failure, not a fatal error.
func (r *MealRepository) Update(ctx context.Context, m *meal.Meal, expectedStatus meal.Status) error {
	model, err := MealToModel(m)
	if err != nil {
		return err
	}

	query := r.db.WithContext(ctx).Model(&MealModel{}).Where("id = ?", model.ID)
	if expectedStatus != "" {
		query = query.Where("status = ?", string(expectedStatus))
	}

	result := query.Updates(map[string]interface{}{
		"status":         model.Status,
		"dish_name":      model.DishName,
		"error_message":  model.ErrorMessage,
		"nutrition":      model.Nutrition,
		"food_items":     model.FoodItems,
		"ready_at":       model.ReadyAt,
		"edit_count":     model.EditCount,
		"last_edited_at": model.LastEditedAt,
		"updated_at":     model.UpdatedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return outbound.ErrPreconditionFailed
	}
	return nil
}

// Get loads a meal by id.
func (r *MealRepository) Get(ctx context.Context, id uuid.UUID) (*meal.Meal, error) {
	var row MealModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, meal.ErrMealNotFound
		}
		return nil, err
	}
	return ModelToMeal(&row)
}

// SoftDelete marks a meal INACTIVE without loading the full aggregate first.
func (r *MealRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&MealModel{}).
		Where("id = ? AND status != ?", id, string(meal.StatusInactive)).
		Updates(map[string]interface{}{"status": string(meal.StatusInactive), "updated_at": time.Now().UTC()})
	return result.Error
}

// ListByUserDate returns every meal consumed by userID on the given local calendar date.
func (r *MealRepository) ListByUserDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*meal.Meal, error) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	end := start.Add(24 * time.Hour)

	var rows []MealModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND consumed_at >= ? AND consumed_at < ? AND status != ?", userID, start, end, string(meal.StatusInactive)).
		Order("consumed_at asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	meals := make([]*meal.Meal, 0, len(rows))
	for i := range rows {
		m, err := ModelToMeal(&rows[i])
		if err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, nil
}
