package suggestion

import (
	"context"
	"errors"
	"testing"
	"time"

	domainsuggestion "github.com/alchemorsel/nutricore/internal/domain/suggestion"
	"github.com/alchemorsel/nutricore/internal/domain/shared"
	"github.com/alchemorsel/nutricore/internal/domain/user"
	"github.com/alchemorsel/nutricore/internal/ports/inbound"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	apperrors "github.com/alchemorsel/nutricore/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSessionStore struct {
	sessions map[string]*domainsuggestion.Session
	// casConflictsRemaining makes the next N CasUpdate calls fail with ErrVersionConflict.
	casConflictsRemaining int
	casCalls              int
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]*domainsuggestion.Session{}}
}

func (f *fakeSessionStore) Put(ctx context.Context, s *domainsuggestion.Session, ttl time.Duration) error {
	f.sessions[s.ID()] = s
	return nil
}

func (f *fakeSessionStore) Get(ctx context.Context, sessionID string) (*domainsuggestion.Session, error) {
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, domainsuggestion.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) CasUpdate(ctx context.Context, s *domainsuggestion.Session, expectedVersion int) error {
	f.casCalls++
	if f.casConflictsRemaining > 0 {
		f.casConflictsRemaining--
		return domainsuggestion.ErrVersionConflict
	}
	f.sessions[s.ID()] = s
	return nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, sessionID string) error {
	delete(f.sessions, sessionID)
	return nil
}

type fakeUserRepo struct{ profile user.Profile }

func (f *fakeUserRepo) Get(ctx context.Context, userID uuid.UUID) (*user.User, error) { return nil, nil }
func (f *fakeUserRepo) Create(ctx context.Context, u *user.User) error                 { return nil }
func (f *fakeUserRepo) Update(ctx context.Context, u *user.User) error                 { return nil }
func (f *fakeUserRepo) GetProfile(ctx context.Context, userID uuid.UUID) (user.Profile, error) {
	return f.profile, nil
}
func (f *fakeUserRepo) GetNotificationPrefs(ctx context.Context, userID uuid.UUID) (user.NotificationPrefs, error) {
	return user.NotificationPrefs{}, nil
}
func (f *fakeUserRepo) UpsertNotificationPrefs(ctx context.Context, prefs user.NotificationPrefs) error {
	return nil
}
func (f *fakeUserRepo) ListActiveFcmTokens(ctx context.Context, userID uuid.UUID) ([]user.FcmToken, error) {
	return nil, nil
}
func (f *fakeUserRepo) UpsertFcmToken(ctx context.Context, userID uuid.UUID, token string, platform user.Platform) error {
	return nil
}
func (f *fakeUserRepo) MarkTokenInactive(ctx context.Context, token string) error { return nil }
func (f *fakeUserRepo) StreamEnabledPrefs(ctx context.Context, batchSize int, fn func([]user.NotificationPrefs) error) error {
	return nil
}

type fakeChatModel struct {
	response string
	err      error
	delay    time.Duration
}

func (f *fakeChatModel) Complete(ctx context.Context, prompt string) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, prompt string) (<-chan outbound.StreamDelta, error) {
	return nil, errors.New("not implemented")
}

type fakeMealService struct {
	lastCmd inbound.CreateManualMealCommand
}

func (f *fakeMealService) UploadMealImage(ctx context.Context, cmd inbound.UploadMealImageCommand) (inbound.MealDTO, error) {
	return inbound.MealDTO{}, nil
}
func (f *fakeMealService) EditMeal(ctx context.Context, cmd inbound.EditMealCommand) (inbound.MealDTO, error) {
	return inbound.MealDTO{}, nil
}
func (f *fakeMealService) DeleteMeal(ctx context.Context, userID, mealID uuid.UUID) error { return nil }
func (f *fakeMealService) GetMeal(ctx context.Context, userID, mealID uuid.UUID) (inbound.MealDTO, error) {
	return inbound.MealDTO{}, nil
}
func (f *fakeMealService) ListMealsByDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]inbound.MealDTO, error) {
	return nil, nil
}
func (f *fakeMealService) CreateManualMeal(ctx context.Context, cmd inbound.CreateManualMealCommand) (inbound.MealDTO, error) {
	f.lastCmd = cmd
	return inbound.MealDTO{ID: uuid.New(), UserID: cmd.UserID, DishName: &cmd.DishName}, nil
}

func testProfile() user.Profile {
	return user.Profile{
		AgeYears: 30, Sex: user.SexMale, HeightCM: 180, WeightKG: 80,
		Activity: user.ActivityModerate, Goal: user.GoalCut,
		Timezone: "UTC", Language: "en",
	}
}

func newTestService(t *testing.T, store *fakeSessionStore, users *fakeUserRepo, chat *fakeChatModel, meals *fakeMealService) *Service {
	t.Helper()
	return &Service{
		sessions:  store,
		users:     users,
		chat:      chat,
		meals:     meals,
		publisher: noopPublisher{},
		ids:       idGen{},
		clock:     fixedClock{now: time.Now()},
		logger:    zap.NewNop(),
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) {}

type idGen struct{}

func (idGen) New() string { return uuid.New().String() }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }
func (c fixedClock) InZone(instant time.Time, iana string) (time.Time, error) {
	return instant, nil
}

func validGenerationResponse() string {
	return `{"items":[
		{"name":"Grilled chicken salad","description":"d","portion_type":"bowl","calories":400,"protein":35,"carbs":20,"fat":15,"dietary_flags":["omnivore"],"principal_ingredients":["chicken","lettuce"]},
		{"name":"Veggie stir fry","description":"d","portion_type":"bowl","calories":350,"protein":15,"carbs":45,"fat":10,"dietary_flags":["vegetarian"],"principal_ingredients":["tofu","vegetables"]},
		{"name":"Salmon and quinoa","description":"d","portion_type":"plate","calories":500,"protein":32,"carbs":38,"fat":20,"dietary_flags":["pescatarian"],"principal_ingredients":["salmon","quinoa"]}
	]}`
}

func TestGenerateSuggestions_ModelSucceeds_UsesModelSource(t *testing.T) {
	store := newFakeSessionStore()
	users := &fakeUserRepo{profile: testProfile()}
	chat := &fakeChatModel{response: validGenerationResponse()}
	svc := newTestService(t, store, users, chat, &fakeMealService{})

	dto, err := svc.GenerateSuggestions(context.Background(), inbound.GenerateSuggestionsCommand{
		UserID: uuid.New().String(), Language: "en", Count: 3,
	})
	require.NoError(t, err)
	require.Len(t, dto.Active, 3)
	assert.Equal(t, domainsuggestion.SourceModel, dto.Active[0].Source)
}

func TestGenerateSuggestions_ChatModelErrors_FallsBack(t *testing.T) {
	store := newFakeSessionStore()
	users := &fakeUserRepo{profile: testProfile()}
	chat := &fakeChatModel{err: errors.New("upstream unavailable")}
	svc := newTestService(t, store, users, chat, &fakeMealService{})

	dto, err := svc.GenerateSuggestions(context.Background(), inbound.GenerateSuggestionsCommand{
		UserID: uuid.New().String(), Language: "en", Count: 3,
	})
	require.NoError(t, err)
	require.Len(t, dto.Active, 3)
	for _, sg := range dto.Active {
		assert.Equal(t, domainsuggestion.SourceFallback, sg.Source)
	}
}

func TestGenerateSuggestions_UnparsableResponse_FallsBack(t *testing.T) {
	store := newFakeSessionStore()
	users := &fakeUserRepo{profile: testProfile()}
	chat := &fakeChatModel{response: "not json at all"}
	svc := newTestService(t, store, users, chat, &fakeMealService{})

	dto, err := svc.GenerateSuggestions(context.Background(), inbound.GenerateSuggestionsCommand{
		UserID: uuid.New().String(), Language: "en", Count: 2,
	})
	require.NoError(t, err)
	require.Len(t, dto.Active, 2)
	assert.Equal(t, domainsuggestion.SourceFallback, dto.Active[0].Source)
}

func TestGenerateSuggestions_UnknownUser_ReturnsUserNotFound(t *testing.T) {
	store := newFakeSessionStore()
	users := &fakeUserRepo{}
	chat := &fakeChatModel{}
	svc := newTestService(t, store, users, chat, &fakeMealService{})
	svc.users = &erroringUserRepo{}

	_, err := svc.GenerateSuggestions(context.Background(), inbound.GenerateSuggestionsCommand{
		UserID: uuid.New().String(), Language: "en", Count: 3,
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeUserNotFound, appErr.Code)
}

type erroringUserRepo struct{ fakeUserRepo }

func (e *erroringUserRepo) GetProfile(ctx context.Context, userID uuid.UUID) (user.Profile, error) {
	return user.Profile{}, errors.New("no such user")
}

func TestWithCas_RetriesOnVersionConflictThenSucceeds(t *testing.T) {
	store := newFakeSessionStore()
	store.casConflictsRemaining = 1
	users := &fakeUserRepo{profile: testProfile()}
	svc := newTestService(t, store, users, &fakeChatModel{}, &fakeMealService{})

	sess := domainsuggestion.New(uuid.New().String(), uuid.New().String(), "en", time.Now())
	store.sessions[sess.ID()] = sess

	calls := 0
	err := svc.withCas(context.Background(), sess, func(current *domainsuggestion.Session) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, store.casCalls)
	assert.Equal(t, 2, calls)
}

func TestWithCas_ExhaustsRetries_ReturnsConflictError(t *testing.T) {
	store := newFakeSessionStore()
	store.casConflictsRemaining = maxCasRetries
	users := &fakeUserRepo{profile: testProfile()}
	svc := newTestService(t, store, users, &fakeChatModel{}, &fakeMealService{})

	sess := domainsuggestion.New(uuid.New().String(), uuid.New().String(), "en", time.Now())
	store.sessions[sess.ID()] = sess

	err := svc.withCas(context.Background(), sess, func(current *domainsuggestion.Session) error {
		return nil
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeConflict, appErr.Code)
}

func TestAcceptSuggestion_ScalesMacrosAndCreatesMeal(t *testing.T) {
	store := newFakeSessionStore()
	users := &fakeUserRepo{profile: testProfile()}
	meals := &fakeMealService{}
	svc := newTestService(t, store, users, &fakeChatModel{}, meals)

	userID := uuid.New().String()
	sess := domainsuggestion.New(uuid.New().String(), userID, "en", time.Now())
	require.NoError(t, sess.SetActive([]domainsuggestion.Suggestion{
		{SuggestionID: "sg-1", Fingerprint: "fp-1", Name: "Rice bowl", MacroEstimate: domainsuggestion.MacroEstimate{Calories: 100, Protein: 10, Carbs: 20, Fat: 5}},
	}))
	store.sessions[sess.ID()] = sess

	dto, err := svc.AcceptSuggestion(context.Background(), inbound.AcceptSuggestionCommand{
		UserID: userID, SessionID: sess.ID(), SuggestionID: "sg-1", Multiplier: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 200.0, meals.lastCmd.FoodItems[0].Calories)
	assert.NotEqual(t, uuid.Nil, dto.ID)
}

func TestLoadOwned_WrongUser_ReturnsForbidden(t *testing.T) {
	store := newFakeSessionStore()
	users := &fakeUserRepo{profile: testProfile()}
	svc := newTestService(t, store, users, &fakeChatModel{}, &fakeMealService{})

	sess := domainsuggestion.New(uuid.New().String(), uuid.New().String(), "en", time.Now())
	store.sessions[sess.ID()] = sess

	_, err := svc.loadOwned(context.Background(), uuid.New().String(), sess.ID())
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
}

func TestLoadOwned_ExpiredSession_ReturnsNotFound(t *testing.T) {
	store := newFakeSessionStore()
	users := &fakeUserRepo{profile: testProfile()}
	svc := newTestService(t, store, users, &fakeChatModel{}, &fakeMealService{})
	svc.clock = fixedClock{now: time.Now().Add(10 * time.Hour)}

	userID := uuid.New().String()
	sess := domainsuggestion.New(sessionIDFor(userID), userID, "en", time.Now())
	store.sessions[sess.ID()] = sess

	_, err := svc.loadOwned(context.Background(), userID, sess.ID())
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func sessionIDFor(userID string) string { return "session-" + userID }
