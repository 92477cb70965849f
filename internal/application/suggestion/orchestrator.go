// Package suggestion implements the suggestion session orchestrator of §4.3: AI-generated meal
// suggestions with a rolling seen-window, deterministic fallback, and CAS-serialized mutation.
package suggestion

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/nutricore/internal/domain/meal"
	"github.com/alchemorsel/nutricore/internal/domain/suggestion"
	"github.com/alchemorsel/nutricore/internal/domain/user"
	"github.com/alchemorsel/nutricore/internal/ports/inbound"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	apperrors "github.com/alchemorsel/nutricore/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// generationTimeout bounds how long the model is given to produce a full batch before the
// orchestrator falls back to the deterministic library (§4.3's GENERATION_TIMEOUT = 45s).
const generationTimeout = 45 * time.Second

// maxCasRetries bounds the optimistic read-compare-write retry loop (§4.3's concurrency contract).
const maxCasRetries = 3

// Service implements inbound.SuggestionService.
type Service struct {
	sessions  outbound.SuggestionSessionStore
	users     outbound.UserRepository
	chat      outbound.ChatModel
	meals     inbound.MealService
	publisher outbound.EventPublisher
	ids       outbound.IDGenerator
	clock     outbound.Clock
	logger    *zap.Logger
}

// NewService creates the suggestion session orchestrator.
func NewService(
	sessions outbound.SuggestionSessionStore,
	users outbound.UserRepository,
	chat outbound.ChatModel,
	meals inbound.MealService,
	publisher outbound.EventPublisher,
	ids outbound.IDGenerator,
	clock outbound.Clock,
	logger *zap.Logger,
) inbound.SuggestionService {
	return &Service{
		sessions:  sessions,
		users:     users,
		chat:      chat,
		meals:     meals,
		publisher: publisher,
		ids:       ids,
		clock:     clock,
		logger:    logger.Named("suggestion-service"),
	}
}

// GenerateSuggestions creates a new session and populates its active set, per §4.3.
func (s *Service) GenerateSuggestions(ctx context.Context, cmd inbound.GenerateSuggestionsCommand) (inbound.SuggestionSessionDTO, error) {
	userID, err := uuid.Parse(cmd.UserID)
	if err != nil {
		return inbound.SuggestionSessionDTO{}, apperrors.NewInvalidInputError("invalid user id")
	}
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return inbound.SuggestionSessionDTO{}, apperrors.NewUserNotFoundError(cmd.UserID)
	}

	count := cmd.Count
	if count <= 0 || count > suggestion.MaxActive {
		count = suggestion.MaxActive
	}

	sess := suggestion.New(s.ids.New(), cmd.UserID, cmd.Language, s.clock.Now())

	items := s.generate(ctx, cmd.UserID, profile, count, nil)
	if err := sess.SetActive(items); err != nil {
		return inbound.SuggestionSessionDTO{}, err
	}
	if err := s.sessions.Put(ctx, sess, suggestion.TTL); err != nil {
		return inbound.SuggestionSessionDTO{}, err
	}

	return toSessionDTO(sess), nil
}

// RegenerateSuggestions rolls the active set into history as "shown" and populates a fresh one
// disjoint from seen, per §4.3's RegenerateSuggestions.
func (s *Service) RegenerateSuggestions(ctx context.Context, userID, sessionID string) (inbound.SuggestionSessionDTO, error) {
	sess, err := s.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return inbound.SuggestionSessionDTO{}, err
	}

	parsedUserID, err := uuid.Parse(userID)
	if err != nil {
		return inbound.SuggestionSessionDTO{}, apperrors.NewInvalidInputError("invalid user id")
	}
	profile, err := s.users.GetProfile(ctx, parsedUserID)
	if err != nil {
		return inbound.SuggestionSessionDTO{}, apperrors.NewUserNotFoundError(userID)
	}

	var result *suggestion.Session
	err = s.withCas(ctx, sess, func(current *suggestion.Session) error {
		current.PrepareRegeneration(s.clock.Now())
		avoid := seenMap(current.SeenFingerprints())
		items := s.generate(ctx, userID, profile, suggestion.MaxActive, avoid)
		if err := current.SetActive(items); err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		return inbound.SuggestionSessionDTO{}, err
	}
	return toSessionDTO(result), nil
}

// AcceptSuggestion materializes the accepted suggestion as a meal scaled by multiplier and
// records the outcome, per §4.3's AcceptSuggestion.
func (s *Service) AcceptSuggestion(ctx context.Context, cmd inbound.AcceptSuggestionCommand) (inbound.MealDTO, error) {
	sess, err := s.loadOwned(ctx, cmd.UserID, cmd.SessionID)
	if err != nil {
		return inbound.MealDTO{}, err
	}

	var accepted suggestion.Suggestion
	err = s.withCas(ctx, sess, func(current *suggestion.Session) error {
		sg, acceptErr := current.Accept(cmd.SuggestionID, cmd.Multiplier, s.clock.Now())
		if acceptErr != nil {
			return acceptErr
		}
		accepted = sg
		return nil
	})
	if err != nil {
		return inbound.MealDTO{}, err
	}

	userID, err := uuid.Parse(cmd.UserID)
	if err != nil {
		return inbound.MealDTO{}, apperrors.NewInvalidInputError("invalid user id")
	}

	scaled := accepted.MacroEstimate.Scale(cmd.Multiplier)
	mealDTO, err := s.meals.CreateManualMeal(ctx, inbound.CreateManualMealCommand{
		UserID:   userID,
		DishName: accepted.Name,
		FoodItems: []inbound.FoodItemDTO{{
			Name:       accepted.Name,
			Quantity:   1,
			Unit:       "serving",
			Calories:   scaled.Calories,
			Protein:    scaled.Protein,
			Carbs:      scaled.Carbs,
			Fat:        scaled.Fat,
			Provenance: "model",
		}},
		Multiplier: 1, // already scaled above; CreateManualMeal's own multiplier stays at identity
		ConsumedAt: s.clock.Now(),
	})
	if err != nil {
		return inbound.MealDTO{}, err
	}

	s.publisher.Publish(ctx, meal.CreatedFromSuggestion{
		MealID:                mealDTO.ID.String(),
		UserID:                cmd.UserID,
		SuggestionFingerprint: accepted.Fingerprint,
		Multiplier:            cmd.Multiplier,
		At:                    s.clock.Now(),
	})

	return mealDTO, nil
}

// RejectSuggestion moves a suggestion to history as rejected, per §4.3's RejectSuggestion.
func (s *Service) RejectSuggestion(ctx context.Context, cmd inbound.RejectSuggestionCommand) error {
	sess, err := s.loadOwned(ctx, cmd.UserID, cmd.SessionID)
	if err != nil {
		return err
	}
	return s.withCas(ctx, sess, func(current *suggestion.Session) error {
		return current.Reject(cmd.SuggestionID, cmd.Reason, s.clock.Now())
	})
}

// GetSession returns a session's current state.
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (inbound.SuggestionSessionDTO, error) {
	sess, err := s.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return inbound.SuggestionSessionDTO{}, err
	}
	return toSessionDTO(sess), nil
}

// DiscardSession deletes a session outright.
func (s *Service) DiscardSession(ctx context.Context, userID, sessionID string) error {
	if _, err := s.loadOwned(ctx, userID, sessionID); err != nil {
		return err
	}
	return s.sessions.Delete(ctx, sessionID)
}

// GetSessionHistory returns the resolved-suggestion history of a session.
func (s *Service) GetSessionHistory(ctx context.Context, userID, sessionID string) ([]inbound.SuggestionHistoryEntryDTO, error) {
	sess, err := s.loadOwned(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]inbound.SuggestionHistoryEntryDTO, 0, len(sess.History()))
	for _, h := range sess.History() {
		out = append(out, toHistoryDTO(h))
	}
	return out, nil
}

// loadOwned fetches a session, enforcing ownership and the expiry invariant: reads of expired
// sessions return NOT_FOUND per §3.3.
func (s *Service) loadOwned(ctx context.Context, userID, sessionID string) (*suggestion.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, suggestion.ErrSessionNotFound) {
			return nil, apperrors.NewNotFoundError("suggestion session")
		}
		return nil, err
	}
	if sess.IsExpired(s.clock.Now()) {
		return nil, apperrors.NewNotFoundError("suggestion session")
	}
	if !sess.OwnedBy(userID) {
		return nil, apperrors.NewForbiddenOwnershipError("suggestion session")
	}
	return sess, nil
}

// withCas applies mutate to sess and writes it back with optimistic concurrency. On a version
// conflict it re-reads the session from the store and retries mutate against the fresh copy, up
// to maxCasRetries times, before failing CONFLICT (§4.3's read-compare-write concurrency
// contract). mutate must be safe to re-run against a fresh read of the same session.
func (s *Service) withCas(ctx context.Context, sess *suggestion.Session, mutate func(*suggestion.Session) error) error {
	current := sess
	for attempt := 0; attempt < maxCasRetries; attempt++ {
		expectedVersion := current.Version()
		if err := mutate(current); err != nil {
			return err
		}
		err := s.sessions.CasUpdate(ctx, current, expectedVersion)
		if err == nil {
			s.publisher.Publish(ctx, current.Events()...)
			return nil
		}
		if !errors.Is(err, suggestion.ErrVersionConflict) {
			return err
		}
		if attempt == maxCasRetries-1 {
			break
		}
		s.logger.Warn("suggestion session CAS conflict, retrying", zap.Int("attempt", attempt+1))
		fresh, getErr := s.sessions.Get(ctx, current.ID())
		if getErr != nil {
			return getErr
		}
		current = fresh
	}
	return apperrors.NewConflictError("suggestion session was concurrently modified")
}

// seenMap converts a session's seen-fingerprint slice into the set shape SelectFallback and
// generate expect.
func seenMap(fingerprints []string) map[string]bool {
	out := make(map[string]bool, len(fingerprints))
	for _, fp := range fingerprints {
		out[fp] = true
	}
	return out
}

// generate calls the model within generationTimeout and falls back to the deterministic library
// on timeout or parse failure, per §4.3's Generate/Regenerate contract. userID seeds the
// fallback library's per-user rotation (§4.3.3 step 3). The avoid-list handed to BuildPrompt holds
// the seen fingerprints themselves; the names of the suggestions behind them are not looked up.
func (s *Service) generate(ctx context.Context, userID string, profile user.Profile, count int, seen map[string]bool) []suggestion.Suggestion {
	avoidNames := make([]string, 0, len(seen))
	for fp := range seen {
		avoidNames = append(avoidNames, fp)
	}
	prompt := BuildPrompt(profile, count, avoidNames)

	genCtx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	raw, err := s.chat.Complete(genCtx, prompt)
	if err != nil {
		s.logger.Warn("suggestion generation call failed, using fallback", zap.Error(err))
		return SelectFallback(userID, profile.DietaryPreferences, seen, count)
	}

	items, err := ParseGenerationResponse(raw)
	if err != nil || len(items) == 0 {
		s.logger.Warn("suggestion generation response unparsable, using fallback", zap.Error(err))
		return SelectFallback(userID, profile.DietaryPreferences, seen, count)
	}

	fresh := make([]suggestion.Suggestion, 0, count)
	for _, it := range items {
		if seen[it.Fingerprint] {
			continue
		}
		fresh = append(fresh, it)
		if len(fresh) == count {
			break
		}
	}
	if len(fresh) < count {
		need := count - len(fresh)
		combinedSeen := make(map[string]bool, len(seen)+len(fresh))
		for fp := range seen {
			combinedSeen[fp] = true
		}
		for _, it := range fresh {
			combinedSeen[it.Fingerprint] = true
		}
		fresh = append(fresh, SelectFallback(userID, profile.DietaryPreferences, combinedSeen, need)...)
	}
	return fresh
}
