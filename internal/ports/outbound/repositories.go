// Package outbound defines the interfaces for outbound ports (secondary/driven adapters): the
// contracts the application core consumes, and that infrastructure adapters satisfy (§6.1).
package outbound

import (
	"context"
	"time"

	"github.com/alchemorsel/nutricore/internal/domain/chat"
	"github.com/alchemorsel/nutricore/internal/domain/meal"
	"github.com/alchemorsel/nutricore/internal/domain/shared"
	"github.com/alchemorsel/nutricore/internal/domain/suggestion"
	"github.com/alchemorsel/nutricore/internal/domain/user"
	"github.com/google/uuid"
)

// MealRepository persists the Meal aggregate. Update takes an optional expectedStatus to
// implement the §3.3/§4.2 "at-most-one-flight" conditional write: callers pass the status they
// read the aggregate in, and the adapter issues `WHERE status = expectedStatus`; a zero-value
// expectedStatus means an unconditional write (used by EditMeal on an already-READY meal).
type MealRepository interface {
	Create(ctx context.Context, m *meal.Meal) error
	Update(ctx context.Context, m *meal.Meal, expectedStatus meal.Status) error
	Get(ctx context.Context, id uuid.UUID) (*meal.Meal, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	ListByUserDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]*meal.Meal, error)
}

// UserRepository reads user identity, physiology, notification preferences, and push tokens.
type UserRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*user.User, error)
	Create(ctx context.Context, u *user.User) error
	Update(ctx context.Context, u *user.User) error
	GetProfile(ctx context.Context, userID uuid.UUID) (user.Profile, error)
	GetNotificationPrefs(ctx context.Context, userID uuid.UUID) (user.NotificationPrefs, error)
	UpsertNotificationPrefs(ctx context.Context, prefs user.NotificationPrefs) error
	ListActiveFcmTokens(ctx context.Context, userID uuid.UUID) ([]user.FcmToken, error)
	UpsertFcmToken(ctx context.Context, userID uuid.UUID, token string, platform user.Platform) error
	MarkTokenInactive(ctx context.Context, token string) error
	// StreamEnabledPrefs streams every user's prefs with notifications_enabled = true, batched,
	// for the dispatcher's per-tick scan (§4.5's "streamed from store, batched").
	StreamEnabledPrefs(ctx context.Context, batchSize int, fn func([]user.NotificationPrefs) error) error
}

// SuggestionSessionStore is the Redis-backed persistence contract for §4.3's SuggestionSession.
// CasUpdate implements the optimistic read-compare-write loop: it fails with a conflict error if
// the stored version no longer matches expectedVersion, letting the orchestrator retry.
type SuggestionSessionStore interface {
	Put(ctx context.Context, s *suggestion.Session, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*suggestion.Session, error)
	CasUpdate(ctx context.Context, s *suggestion.Session, expectedVersion int) error
	Delete(ctx context.Context, sessionID string) error
}

// ChatThreadRepository persists chat threads and their message history.
type ChatThreadRepository interface {
	Create(ctx context.Context, t *chat.Thread) error
	AppendExchange(ctx context.Context, t *chat.Thread) error
	Get(ctx context.Context, id uuid.UUID) (*chat.Thread, error)
}

// CacheRepository is the generic key-value cache port (§6.2); failures degrade to a miss/no-op,
// never a fatal error, per §5's graceful-degradation policy.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ImageStore persists raw meal-photo bytes and returns an opaque reference; only the vision
// adapter dereferences image_ref back into bytes, never the core.
type ImageStore interface {
	Put(ctx context.Context, data []byte, contentType string) (imageRef string, err error)
	Get(ctx context.Context, imageRef string) ([]byte, error)
}

// AnalysisHint carries the optional caller-supplied context that selects an analysis strategy
// (§4.2.1): portion text, known ingredient names, total weight, and free-text description.
type AnalysisHint struct {
	PortionHint  string
	KnownFoods   []string
	TotalWeightG *float64
	Description  string
}

// ParsedFoodItem is the vision model's per-item output before nutrition-index enrichment.
type ParsedFoodItem struct {
	Name     string
	Quantity float64
	Unit     string
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
	Fiber    *float64
}

// VisionModel identifies foods and estimates macros from a stored meal image (§4.2 step 2).
// ErrContentBlocked-compatible errors must be distinguishable by adapters from parse failures so
// the pipeline can fail the meal with a safety reason rather than a generic parse error.
type VisionModel interface {
	Analyze(ctx context.Context, imageRef string, strategy meal.AnalysisStrategy, hint AnalysisHint) (dishName string, items []ParsedFoodItem, err error)
}

// NutritionRecord is a single hit from a vector index, per-100g.
type NutritionRecord struct {
	Name     string
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
	Fiber    *float64
}

// NutritionIndex is the two-index vector lookup of §4.4: embed once, query both indices, pick
// by cosine-similarity threshold.
type NutritionIndex interface {
	Embed(ctx context.Context, query string) ([]float32, error)
	QueryIngredients(ctx context.Context, vec []float32) (score float64, record *NutritionRecord, err error)
	QueryUsda(ctx context.Context, vec []float32) (score float64, record *NutritionRecord, err error)
}

// StreamDelta is one token-sized increment of a ChatModel.Stream response.
type StreamDelta struct {
	Text string
	Done bool
}

// ChatModel is the conversational model port of §4.6: a unary completion and an incremental
// stream, both taking the same composed prompt.
type ChatModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string) (<-chan StreamDelta, error)
}

// PushResult reports per-token delivery outcome from a multicast send.
type PushResult struct {
	Token       string
	Success     bool
	Unregistered bool // provider reported the token invalid/unregistered; caller deactivates it
}

// PushSender delivers notification payloads to a batch of device tokens (§4.5).
type PushSender interface {
	SendMulticast(ctx context.Context, tokens []string, title, body string) ([]PushResult, error)
}

// Clock abstracts time so the dispatcher and tests can control "now" and timezone conversion.
type Clock interface {
	Now() time.Time
	InZone(instant time.Time, iana string) (time.Time, error)
}

// IDGenerator produces opaque unique identifiers for new aggregates.
type IDGenerator interface {
	New() string
}

// EventPublisher is how domain-event-raising application services hand their drained events to
// the bus for asynchronous subscriber dispatch (§4.1's publish operation).
type EventPublisher interface {
	Publish(ctx context.Context, events ...shared.DomainEvent)
}

// ChatSink is a single live connection's delivery channel: one websocket, one goroutine.
type ChatSink interface {
	Send(message chat.Message) error
}

// ChatConnectionHub implements §4.6's multi-device broadcast port: register/unregister a sink
// for a (user, thread), and broadcast a finalized message to every other registered sink.
type ChatConnectionHub interface {
	Register(userID, threadID uuid.UUID, sink ChatSink)
	Unregister(userID, threadID uuid.UUID, sink ChatSink)
	Broadcast(userID, threadID uuid.UUID, message chat.Message, except ChatSink)
}
