package meal

import (
	"context"
	"errors"
	"testing"
	"time"

	domainmeal "github.com/alchemorsel/nutricore/internal/domain/meal"
	"github.com/alchemorsel/nutricore/internal/domain/shared"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMealRepo struct {
	meals      map[uuid.UUID]*domainmeal.Meal
	updateErrs []error // consumed one per Update call, nil once exhausted
	updates    int
}

func newFakeMealRepo(m *domainmeal.Meal) *fakeMealRepo {
	return &fakeMealRepo{meals: map[uuid.UUID]*domainmeal.Meal{m.ID(): m}}
}

func (r *fakeMealRepo) Create(ctx context.Context, m *domainmeal.Meal) error {
	r.meals[m.ID()] = m
	return nil
}

func (r *fakeMealRepo) Update(ctx context.Context, m *domainmeal.Meal, expectedStatus domainmeal.Status) error {
	r.updates++
	if len(r.updateErrs) > 0 {
		err := r.updateErrs[0]
		r.updateErrs = r.updateErrs[1:]
		if err != nil {
			return err
		}
	}
	r.meals[m.ID()] = m
	return nil
}

func (r *fakeMealRepo) Get(ctx context.Context, id uuid.UUID) (*domainmeal.Meal, error) {
	m, ok := r.meals[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return m, nil
}

func (r *fakeMealRepo) SoftDelete(ctx context.Context, id uuid.UUID) error { return nil }

func (r *fakeMealRepo) ListByUserDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*domainmeal.Meal, error) {
	return nil, nil
}

type fakeVisionModel struct {
	dishName string
	items    []outbound.ParsedFoodItem
	err      error
}

func (f *fakeVisionModel) Analyze(ctx context.Context, imageRef string, strategy domainmeal.AnalysisStrategy, hint outbound.AnalysisHint) (string, []outbound.ParsedFoodItem, error) {
	return f.dishName, f.items, f.err
}

type fakeNutritionResolver struct {
	nutrition  *domainmeal.Nutrition
	provenance domainmeal.Provenance
	err        error
}

func (f *fakeNutritionResolver) Resolve(ctx context.Context, query string, quantity float64, unit string) (*domainmeal.Nutrition, domainmeal.Provenance, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.nutrition, f.provenance, nil
}

type fakePublisher struct {
	published []shared.DomainEvent
}

func (f *fakePublisher) Publish(ctx context.Context, events ...shared.DomainEvent) {
	f.published = append(f.published, events...)
}

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }
func (f *fakeClock) InZone(instant time.Time, iana string) (time.Time, error) {
	return instant, nil
}

func newUploadedMeal() *domainmeal.Meal {
	return domainmeal.NewFromUpload(uuid.New(), uuid.New(), "ref-1", domainmeal.StrategyBasic, time.Now())
}

func newPipeline(repo outbound.MealRepository, vision outbound.VisionModel, resolver NutritionResolver, pub outbound.EventPublisher) *AnalysisPipeline {
	return NewAnalysisPipeline(repo, vision, resolver, pub, &fakeClock{now: time.Now()}, zap.NewNop())
}

func uploadedEvent(m *domainmeal.Meal) domainmeal.ImageUploaded {
	return domainmeal.ImageUploaded{
		MealID:   m.ID().String(),
		UserID:   m.UserID().String(),
		ImageRef: "ref-1",
		Strategy: domainmeal.StrategyBasic,
		At:       time.Now(),
	}
}

func TestPipeline_HappyPath_ReachesReadyAndPublishesAnalyzed(t *testing.T) {
	m := newUploadedMeal()
	repo := newFakeMealRepo(m)
	vision := &fakeVisionModel{dishName: "Rice bowl", items: []outbound.ParsedFoodItem{
		{Name: "rice", Quantity: 150, Unit: "g", Calories: 200, Protein: 4, Carbs: 44, Fat: 1},
	}}
	pub := &fakePublisher{}
	pipeline := newPipeline(repo, vision, nil, pub)

	err := pipeline.OnMealImageUploaded(context.Background(), uploadedEvent(m))
	require.NoError(t, err)

	stored, _ := repo.Get(context.Background(), m.ID())
	assert.Equal(t, domainmeal.StatusReady, stored.Status())
	require.Len(t, pub.published, 1)
	_, ok := pub.published[0].(domainmeal.Analyzed)
	assert.True(t, ok)
}

func TestPipeline_NonImageUploadedEvent_IsIgnored(t *testing.T) {
	pipeline := newPipeline(newFakeMealRepo(newUploadedMeal()), &fakeVisionModel{}, nil, &fakePublisher{})

	err := pipeline.OnMealImageUploaded(context.Background(), domainmeal.Analyzed{})
	assert.NoError(t, err)
}

func TestPipeline_AtMostOneFlight_AlreadyAnalyzingShortCircuits(t *testing.T) {
	m := newUploadedMeal()
	require.NoError(t, m.BeginAnalyzing()) // pre-advance past PROCESSING
	repo := newFakeMealRepo(m)
	vision := &fakeVisionModel{dishName: "x", items: []outbound.ParsedFoodItem{{Name: "rice", Quantity: 1, Unit: "g"}}}
	pub := &fakePublisher{}
	pipeline := newPipeline(repo, vision, nil, pub)

	err := pipeline.OnMealImageUploaded(context.Background(), uploadedEvent(m))
	assert.NoError(t, err)
	assert.Empty(t, pub.published)
	assert.Zero(t, repo.updates)
}

func TestPipeline_PreconditionFailedOnProcessingUpdate_IsSwallowed(t *testing.T) {
	m := newUploadedMeal()
	repo := newFakeMealRepo(m)
	repo.updateErrs = []error{outbound.ErrPreconditionFailed}
	pipeline := newPipeline(repo, &fakeVisionModel{}, nil, &fakePublisher{})

	err := pipeline.OnMealImageUploaded(context.Background(), uploadedEvent(m))
	assert.NoError(t, err)
}

func TestPipeline_VisionContentBlocked_FailsMealWithReason(t *testing.T) {
	m := newUploadedMeal()
	repo := newFakeMealRepo(m)
	vision := &fakeVisionModel{err: domainmeal.ErrContentBlocked}
	pub := &fakePublisher{}
	pipeline := newPipeline(repo, vision, nil, pub)

	err := pipeline.OnMealImageUploaded(context.Background(), uploadedEvent(m))
	require.NoError(t, err)

	stored, _ := repo.Get(context.Background(), m.ID())
	assert.Equal(t, domainmeal.StatusFailed, stored.Status())
	require.NotNil(t, stored.ErrorMessage())
	assert.Equal(t, domainmeal.ErrContentBlocked.Error(), *stored.ErrorMessage())
}

func TestPipeline_VisionReturnsNoItems_FailsWithNoFoodDetected(t *testing.T) {
	m := newUploadedMeal()
	repo := newFakeMealRepo(m)
	vision := &fakeVisionModel{dishName: "", items: nil}
	pipeline := newPipeline(repo, vision, nil, &fakePublisher{})

	err := pipeline.OnMealImageUploaded(context.Background(), uploadedEvent(m))
	require.NoError(t, err)

	stored, _ := repo.Get(context.Background(), m.ID())
	assert.Equal(t, domainmeal.StatusFailed, stored.Status())
	assert.Equal(t, domainmeal.ErrNoFoodDetected.Error(), *stored.ErrorMessage())
}

func TestPipeline_Enrich_NilResolver_KeepsModelEstimate(t *testing.T) {
	m := newUploadedMeal()
	repo := newFakeMealRepo(m)
	vision := &fakeVisionModel{dishName: "Egg", items: []outbound.ParsedFoodItem{
		{Name: "egg", Quantity: 50, Unit: "g", Calories: 70, Protein: 6, Carbs: 1, Fat: 5},
	}}
	pipeline := newPipeline(repo, vision, nil, &fakePublisher{})

	err := pipeline.OnMealImageUploaded(context.Background(), uploadedEvent(m))
	require.NoError(t, err)

	stored, _ := repo.Get(context.Background(), m.ID())
	require.Len(t, stored.FoodItems(), 1)
	assert.Equal(t, domainmeal.ProvenanceModel, stored.FoodItems()[0].Provenance)
	assert.Equal(t, 70.0, stored.FoodItems()[0].Calories)
}

func TestPipeline_Enrich_ResolverHit_UpgradesProvenanceAndMacros(t *testing.T) {
	m := newUploadedMeal()
	repo := newFakeMealRepo(m)
	vision := &fakeVisionModel{dishName: "Rice", items: []outbound.ParsedFoodItem{
		{Name: "rice", Quantity: 150, Unit: "g", Calories: 190, Protein: 3, Carbs: 40, Fat: 1},
	}}
	resolver := &fakeNutritionResolver{
		nutrition:  &domainmeal.Nutrition{Calories: 195, ProteinGrams: 4, CarbsGrams: 42, FatGrams: 0.5, ConfidenceScore: 0.9},
		provenance: domainmeal.ProvenanceUSDA,
	}
	pipeline := newPipeline(repo, vision, resolver, &fakePublisher{})

	err := pipeline.OnMealImageUploaded(context.Background(), uploadedEvent(m))
	require.NoError(t, err)

	stored, _ := repo.Get(context.Background(), m.ID())
	require.Len(t, stored.FoodItems(), 1)
	assert.Equal(t, domainmeal.ProvenanceUSDA, stored.FoodItems()[0].Provenance)
	assert.Equal(t, 195.0, stored.FoodItems()[0].Calories)
}

func TestPipeline_Enrich_ResolverError_KeepsModelEstimate(t *testing.T) {
	m := newUploadedMeal()
	repo := newFakeMealRepo(m)
	vision := &fakeVisionModel{dishName: "Rice", items: []outbound.ParsedFoodItem{
		{Name: "rice", Quantity: 150, Unit: "g", Calories: 190, Protein: 3, Carbs: 40, Fat: 1},
	}}
	resolver := &fakeNutritionResolver{err: errors.New("index unavailable")}
	pipeline := newPipeline(repo, vision, resolver, &fakePublisher{})

	err := pipeline.OnMealImageUploaded(context.Background(), uploadedEvent(m))
	require.NoError(t, err)

	stored, _ := repo.Get(context.Background(), m.ID())
	require.Len(t, stored.FoodItems(), 1)
	assert.Equal(t, domainmeal.ProvenanceModel, stored.FoodItems()[0].Provenance)
}

func TestPipeline_Enrich_InvalidItemsAreDropped_RemainderSurvive(t *testing.T) {
	m := newUploadedMeal()
	repo := newFakeMealRepo(m)
	vision := &fakeVisionModel{dishName: "Mixed", items: []outbound.ParsedFoodItem{
		{Name: "", Quantity: 10, Unit: "g", Calories: 10},      // invalid: empty name, dropped
		{Name: "rice", Quantity: 150, Unit: "g", Calories: 190, Protein: 3, Carbs: 40, Fat: 1},
	}}
	pipeline := newPipeline(repo, vision, nil, &fakePublisher{})

	err := pipeline.OnMealImageUploaded(context.Background(), uploadedEvent(m))
	require.NoError(t, err)

	stored, _ := repo.Get(context.Background(), m.ID())
	require.Len(t, stored.FoodItems(), 1)
	assert.Equal(t, "rice", stored.FoodItems()[0].Name)
}

func TestPipeline_Enrich_AllItemsInvalid_FailsWithNoFoodDetected(t *testing.T) {
	m := newUploadedMeal()
	repo := newFakeMealRepo(m)
	vision := &fakeVisionModel{dishName: "Bad", items: []outbound.ParsedFoodItem{
		{Name: "", Quantity: 10, Unit: "g"},
	}}
	pipeline := newPipeline(repo, vision, nil, &fakePublisher{})

	err := pipeline.OnMealImageUploaded(context.Background(), uploadedEvent(m))
	require.NoError(t, err)

	stored, _ := repo.Get(context.Background(), m.ID())
	assert.Equal(t, domainmeal.StatusFailed, stored.Status())
	assert.Equal(t, domainmeal.ErrNoFoodDetected.Error(), *stored.ErrorMessage())
}

func TestPipeline_Fail_AlreadyTerminalMeal_IsIdempotent(t *testing.T) {
	m := newUploadedMeal()
	require.NoError(t, m.BeginAnalyzing())
	require.NoError(t, m.Fail("no_food_detected", time.Now()))
	m.ClearEvents()

	repo := newFakeMealRepo(m)
	pub := &fakePublisher{}
	pipeline := newPipeline(repo, &fakeVisionModel{}, nil, pub)

	err := pipeline.fail(context.Background(), m, "second failure reason")
	assert.NoError(t, err)
	assert.Empty(t, pub.published)
	assert.Zero(t, repo.updates)
}
