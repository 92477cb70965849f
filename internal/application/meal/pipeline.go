package meal

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alchemorsel/nutricore/internal/domain/meal"
	"github.com/alchemorsel/nutricore/internal/domain/shared"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// minConfidentNameLen is the minimum characters a parsed item's name must carry before the
// pipeline bothers enriching it through the nutrition index; empty or whitespace-only names
// retain the model estimate untouched.
const minConfidentNameLen = 1

// visionTimeout is the hard limit on one VisionModel.Analyze call; on expiry the meal is failed
// with meal.ErrAnalysisTimeout.
const visionTimeout = 60 * time.Second

// NutritionResolver is the subset of nutrition.Lookup the pipeline depends on, kept as an
// interface here so the meal package does not import the nutrition application package directly.
type NutritionResolver interface {
	Resolve(ctx context.Context, query string, quantity float64, unit string) (*meal.Nutrition, meal.Provenance, error)
}

// AnalysisPipeline implements the background subscriber contract of §4.2: OnMealImageUploaded
// drives PROCESSING through ANALYZING/ENRICHING to READY or FAILED.
type AnalysisPipeline struct {
	meals     outbound.MealRepository
	vision    outbound.VisionModel
	nutrition NutritionResolver
	publisher outbound.EventPublisher
	clock     outbound.Clock
	logger    *zap.Logger
}

// NewAnalysisPipeline creates the meal-analysis background subscriber.
func NewAnalysisPipeline(
	meals outbound.MealRepository,
	vision outbound.VisionModel,
	nutrition NutritionResolver,
	publisher outbound.EventPublisher,
	clock outbound.Clock,
	logger *zap.Logger,
) *AnalysisPipeline {
	return &AnalysisPipeline{
		meals:     meals,
		vision:    vision,
		nutrition: nutrition,
		publisher: publisher,
		clock:     clock,
		logger:    logger.Named("meal-analysis-pipeline"),
	}
}

// OnMealImageUploaded is registered against meal.ImageUploaded on the event bus; it runs the
// full analysis, enrichment, and completion sequence for one meal.
func (p *AnalysisPipeline) OnMealImageUploaded(ctx context.Context, event shared.DomainEvent) error {
	uploaded, ok := event.(meal.ImageUploaded)
	if !ok {
		return nil
	}

	mealID, err := uuid.Parse(uploaded.MealID)
	if err != nil {
		p.logger.Error("meal.image_uploaded carried an unparsable meal id", zap.String("meal_id", uploaded.MealID))
		return nil
	}

	m, err := p.meals.Get(ctx, mealID)
	if err != nil {
		p.logger.Error("could not load meal for analysis", zap.String("meal_id", uploaded.MealID), zap.Error(err))
		return err
	}

	if err := m.BeginAnalyzing(); err != nil {
		// Another invocation already moved this meal past PROCESSING; at-most-one-flight holds.
		return nil
	}
	if err := p.meals.Update(ctx, m, meal.StatusProcessing); err != nil {
		if errors.Is(err, outbound.ErrPreconditionFailed) {
			return nil
		}
		return err
	}

	dishName, parsedItems, visionErr := p.runVision(ctx, m, uploaded)
	if visionErr != nil {
		return p.fail(ctx, m, visionErr.Error())
	}

	if err := m.BeginEnriching(); err != nil {
		return p.fail(ctx, m, "could not begin enrichment")
	}
	if err := p.meals.Update(ctx, m, meal.StatusAnalyzing); err != nil {
		if errors.Is(err, outbound.ErrPreconditionFailed) {
			return nil
		}
		return p.fail(ctx, m, err.Error())
	}

	items, aggregate, err := p.enrich(ctx, parsedItems)
	if err != nil {
		return p.fail(ctx, m, err.Error())
	}

	if err := m.Complete(dishName, items, aggregate, p.clock.Now()); err != nil {
		return p.fail(ctx, m, err.Error())
	}
	if err := p.meals.Update(ctx, m, meal.StatusEnriching); err != nil {
		if errors.Is(err, outbound.ErrPreconditionFailed) {
			return nil
		}
		return p.fail(ctx, m, err.Error())
	}

	p.publisher.Publish(ctx, m.Events()...)
	return nil
}

// runVision calls the vision model and parses its response, classifying refusals and unparsable
// output distinctly so fail() can record a meaningful reason.
func (p *AnalysisPipeline) runVision(ctx context.Context, m *meal.Meal, uploaded meal.ImageUploaded) (string, []ParsedResponseItem, error) {
	hint := outbound.AnalysisHint{
		PortionHint:  uploaded.Hints.PortionHint,
		KnownFoods:   uploaded.Hints.KnownFoods,
		TotalWeightG: uploaded.Hints.TotalWeightG,
		Description:  uploaded.Hints.Description,
	}
	visionCtx, cancel := context.WithTimeout(ctx, visionTimeout)
	defer cancel()
	dishName, parsedFromModel, err := p.vision.Analyze(visionCtx, uploaded.ImageRef, uploaded.Strategy, hint)
	if err != nil {
		if errors.Is(err, meal.ErrContentBlocked) {
			return "", nil, meal.ErrContentBlocked
		}
		if errors.Is(visionCtx.Err(), context.DeadlineExceeded) {
			return "", nil, meal.ErrAnalysisTimeout
		}
		return "", nil, err
	}

	items := make([]ParsedResponseItem, 0, len(parsedFromModel))
	for _, it := range parsedFromModel {
		items = append(items, ParsedResponseItem{
			Name: it.Name, Quantity: it.Quantity, Unit: it.Unit,
			Calories: it.Calories, Protein: it.Protein, Carbs: it.Carbs, Fat: it.Fat, Fiber: it.Fiber,
		})
	}
	if len(items) == 0 {
		return "", nil, meal.ErrNoFoodDetected
	}
	return dishName, items, nil
}

// enrich upgrades each parsed item's provenance via the nutrition index (§4.2 step 4), falling
// back to the model's own estimate when no item name is confident or the index has no hit, and
// sums the result into an aggregate Nutrition.
func (p *AnalysisPipeline) enrich(ctx context.Context, parsed []ParsedResponseItem) ([]meal.FoodItem, meal.Nutrition, error) {
	items := make([]meal.FoodItem, 0, len(parsed))
	var aggregate meal.Nutrition
	first := true

	for _, src := range parsed {
		item := meal.FoodItem{
			Name:       src.Name,
			Quantity:   src.Quantity,
			Unit:       src.Unit,
			Calories:   src.Calories,
			Protein:    src.Protein,
			Carbs:      src.Carbs,
			Fat:        src.Fat,
			Fiber:      src.Fiber,
			Provenance: meal.ProvenanceModel,
		}

		if len(strings.TrimSpace(src.Name)) >= minConfidentNameLen && p.nutrition != nil {
			resolved, provenance, err := p.nutrition.Resolve(ctx, src.Name, src.Quantity, src.Unit)
			if err != nil {
				p.logger.Warn("nutrition index lookup failed, keeping model estimate",
					zap.String("item", src.Name), zap.Error(err))
			} else if resolved != nil {
				item.Calories = resolved.Calories
				item.Protein = resolved.ProteinGrams
				item.Carbs = resolved.CarbsGrams
				item.Fat = resolved.FatGrams
				item.Fiber = resolved.FiberGrams
				item.Provenance = provenance
			}
		}

		if err := item.Validate(); err != nil {
			continue
		}
		items = append(items, item)

		n := item.Nutrition()
		if first {
			aggregate = n
			first = false
			continue
		}
		aggregate = aggregate.Add(n)
	}

	if len(items) == 0 {
		return nil, meal.Nutrition{}, meal.ErrNoFoodDetected
	}
	return items, aggregate, nil
}

// fail writes FAILED with the given reason and publishes AnalysisFailed, swallowing a subsequent
// precondition-failed error since that means a concurrent invocation already finalized the meal.
func (p *AnalysisPipeline) fail(ctx context.Context, m *meal.Meal, reason string) error {
	expected := m.Status()
	if err := m.Fail(reason, p.clock.Now()); err != nil {
		return nil
	}
	if err := p.meals.Update(ctx, m, expected); err != nil {
		if errors.Is(err, outbound.ErrPreconditionFailed) {
			return nil
		}
		return err
	}
	p.publisher.Publish(ctx, m.Events()...)
	return nil
}
