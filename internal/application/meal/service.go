// Package meal implements the meal-analysis pipeline's application layer: the synchronous
// command surface of §4.2, and the background subscribers that drive PROCESSING through to READY.
package meal

import (
	"context"
	"time"

	"github.com/alchemorsel/nutricore/internal/domain/meal"
	"github.com/alchemorsel/nutricore/internal/ports/inbound"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	apperrors "github.com/alchemorsel/nutricore/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxImageBytes = 10 * 1024 * 1024 // 10 MiB, §4.2's UploadMealImage size limit

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Service implements inbound.MealService.
type Service struct {
	meals     outbound.MealRepository
	images    outbound.ImageStore
	ids       outbound.IDGenerator
	clock     outbound.Clock
	publisher outbound.EventPublisher
	logger    *zap.Logger
}

// NewService creates a new meal application service.
func NewService(
	meals outbound.MealRepository,
	images outbound.ImageStore,
	ids outbound.IDGenerator,
	clock outbound.Clock,
	publisher outbound.EventPublisher,
	logger *zap.Logger,
) inbound.MealService {
	return &Service{
		meals:     meals,
		images:    images,
		ids:       ids,
		clock:     clock,
		publisher: publisher,
		logger:    logger.Named("meal-service"),
	}
}

// UploadMealImage validates, stores, and persists a meal in PROCESSING, publishing the event the
// background analysis subscriber picks up. It returns immediately — analysis runs in background
// (§4.2).
func (s *Service) UploadMealImage(ctx context.Context, cmd inbound.UploadMealImageCommand) (inbound.MealDTO, error) {
	if !allowedContentTypes[cmd.ContentType] {
		return inbound.MealDTO{}, apperrors.NewInvalidInputError("content type must be image/jpeg or image/png")
	}
	if len(cmd.ImageBytes) == 0 || len(cmd.ImageBytes) > maxImageBytes {
		return inbound.MealDTO{}, apperrors.NewInvalidInputError("image must be non-empty and at most 10 MiB")
	}

	imageRef, err := s.images.Put(ctx, cmd.ImageBytes, cmd.ContentType)
	if err != nil {
		return inbound.MealDTO{}, apperrors.NewUpstreamUnavailableError("image store", err)
	}

	hints := meal.AnalysisHints{
		PortionHint:  cmd.PortionHint,
		KnownFoods:   cmd.KnownFoods,
		TotalWeightG: cmd.TotalWeightG,
		Description:  cmd.Description,
	}
	strategy := meal.SelectStrategy(hints)

	consumedAt := cmd.ConsumedAt
	if consumedAt.IsZero() {
		consumedAt = s.clock.Now()
	}

	id := uuid.New()
	m := meal.NewFromUpload(id, cmd.UserID, imageRef, strategy, consumedAt)
	if err := s.meals.Create(ctx, m); err != nil {
		return inbound.MealDTO{}, err
	}

	s.publisher.Publish(ctx, meal.ImageUploaded{
		MealID:   m.ID().String(),
		UserID:   m.UserID().String(),
		ImageRef: imageRef,
		Strategy: strategy,
		Hints:    hints,
		At:       s.clock.Now(),
	})

	return toMealDTO(m), nil
}

// EditMeal requires the meal be READY, applies the edit, and publishes MealEdited.
func (s *Service) EditMeal(ctx context.Context, cmd inbound.EditMealCommand) (inbound.MealDTO, error) {
	m, err := s.meals.Get(ctx, cmd.MealID)
	if err != nil {
		return inbound.MealDTO{}, err
	}
	if !m.OwnedBy(cmd.UserID) {
		return inbound.MealDTO{}, apperrors.NewForbiddenOwnershipError("meal")
	}

	edit := meal.Edit{
		Kind:        cmd.Kind,
		Item:        fromFoodItemDTO(cmd.Item),
		TargetIndex: cmd.TargetIndex,
		NewQuantity: cmd.NewQuantity,
	}
	if err := m.ApplyEdit(edit, s.clock.Now()); err != nil {
		return inbound.MealDTO{}, err
	}

	if err := s.meals.Update(ctx, m, ""); err != nil {
		return inbound.MealDTO{}, err
	}
	s.publisher.Publish(ctx, m.Events()...)

	return toMealDTO(m), nil
}

// DeleteMeal soft-deletes a meal; idempotent.
func (s *Service) DeleteMeal(ctx context.Context, userID, mealID uuid.UUID) error {
	m, err := s.meals.Get(ctx, mealID)
	if err != nil {
		return err
	}
	if !m.OwnedBy(userID) {
		return apperrors.NewForbiddenOwnershipError("meal")
	}
	m.SoftDelete(s.clock.Now())
	if err := s.meals.SoftDelete(ctx, mealID); err != nil {
		return err
	}
	s.publisher.Publish(ctx, m.Events()...)
	return nil
}

// GetMeal loads a meal, enforcing user isolation.
func (s *Service) GetMeal(ctx context.Context, userID, mealID uuid.UUID) (inbound.MealDTO, error) {
	m, err := s.meals.Get(ctx, mealID)
	if err != nil {
		return inbound.MealDTO{}, err
	}
	if !m.OwnedBy(userID) {
		return inbound.MealDTO{}, apperrors.NewForbiddenOwnershipError("meal")
	}
	return toMealDTO(m), nil
}

// ListMealsByDate returns a user's meals consumed on the given local date.
func (s *Service) ListMealsByDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]inbound.MealDTO, error) {
	meals, err := s.meals.ListByUserDate(ctx, userID, date)
	if err != nil {
		return nil, err
	}
	dtos := make([]inbound.MealDTO, 0, len(meals))
	for _, m := range meals {
		dtos = append(dtos, toMealDTO(m))
	}
	return dtos, nil
}

// CreateManualMeal materializes a meal directly from known food items, used by the suggestion
// orchestrator's AcceptSuggestion path (§4.3) and any client-driven manual entry.
func (s *Service) CreateManualMeal(ctx context.Context, cmd inbound.CreateManualMealCommand) (inbound.MealDTO, error) {
	items := make([]meal.FoodItem, 0, len(cmd.FoodItems))
	for _, dto := range cmd.FoodItems {
		items = append(items, fromFoodItemDTO(dto))
	}

	multiplier := cmd.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	scaled := make([]meal.FoodItem, len(items))
	for i, item := range items {
		n := item.Nutrition().Scale(float64(multiplier))
		item.Quantity *= float64(multiplier)
		item.Calories = n.Calories
		item.Protein = n.ProteinGrams
		item.Carbs = n.CarbsGrams
		item.Fat = n.FatGrams
		item.Fiber = n.FiberGrams
		scaled[i] = item
	}

	consumedAt := cmd.ConsumedAt
	if consumedAt.IsZero() {
		consumedAt = s.clock.Now()
	}

	m, err := meal.NewManual(uuid.New(), cmd.UserID, cmd.DishName, scaled, consumedAt, s.clock.Now())
	if err != nil {
		return inbound.MealDTO{}, apperrors.NewInvalidInputError(err.Error())
	}
	if err := s.meals.Create(ctx, m); err != nil {
		return inbound.MealDTO{}, err
	}
	return toMealDTO(m), nil
}

func fromFoodItemDTO(dto inbound.FoodItemDTO) meal.FoodItem {
	return meal.FoodItem{
		Name:       dto.Name,
		Quantity:   dto.Quantity,
		Unit:       dto.Unit,
		FdcID:      dto.FdcID,
		IsCustom:   dto.IsCustom,
		Calories:   dto.Calories,
		Protein:    dto.Protein,
		Carbs:      dto.Carbs,
		Fat:        dto.Fat,
		Fiber:      dto.Fiber,
		Provenance: meal.Provenance(dto.Provenance),
	}
}

func toFoodItemDTO(item meal.FoodItem) inbound.FoodItemDTO {
	return inbound.FoodItemDTO{
		Name:       item.Name,
		Quantity:   item.Quantity,
		Unit:       item.Unit,
		FdcID:      item.FdcID,
		IsCustom:   item.IsCustom,
		Calories:   item.Calories,
		Protein:    item.Protein,
		Carbs:      item.Carbs,
		Fat:        item.Fat,
		Fiber:      item.Fiber,
		Provenance: string(item.Provenance),
	}
}

func toMealDTO(m *meal.Meal) inbound.MealDTO {
	items := make([]inbound.FoodItemDTO, 0, len(m.FoodItems()))
	for _, it := range m.FoodItems() {
		items = append(items, toFoodItemDTO(it))
	}
	var nutrition *inbound.NutritionDTO
	if n := m.Nutrition(); n != nil {
		nutrition = &inbound.NutritionDTO{
			Calories:        n.Calories,
			ProteinGrams:    n.ProteinGrams,
			CarbsGrams:      n.CarbsGrams,
			FatGrams:        n.FatGrams,
			FiberGrams:      n.FiberGrams,
			ConfidenceScore: n.ConfidenceScore,
		}
	}
	return inbound.MealDTO{
		ID:           m.ID(),
		UserID:       m.UserID(),
		Status:       m.Status(),
		Strategy:     m.Strategy(),
		DishName:     m.DishName(),
		Nutrition:    nutrition,
		FoodItems:    items,
		ConsumedAt:   m.ConsumedAt(),
		ReadyAt:      m.ReadyAt(),
		ErrorMessage: m.ErrorMessage(),
		EditCount:    m.EditCount(),
		CreatedAt:    m.CreatedAt(),
		UpdatedAt:    m.UpdatedAt(),
	}
}
