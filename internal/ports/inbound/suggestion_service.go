package inbound

import (
	"context"
	"time"

	"github.com/alchemorsel/nutricore/internal/domain/suggestion"
)

// SuggestionService is the primary port for the suggestion session orchestrator of §4.3.
type SuggestionService interface {
	GenerateSuggestions(ctx context.Context, cmd GenerateSuggestionsCommand) (SuggestionSessionDTO, error)
	RegenerateSuggestions(ctx context.Context, userID, sessionID string) (SuggestionSessionDTO, error)
	AcceptSuggestion(ctx context.Context, cmd AcceptSuggestionCommand) (MealDTO, error)
	RejectSuggestion(ctx context.Context, cmd RejectSuggestionCommand) error
	GetSession(ctx context.Context, userID, sessionID string) (SuggestionSessionDTO, error)
	DiscardSession(ctx context.Context, userID, sessionID string) error
	GetSessionHistory(ctx context.Context, userID, sessionID string) ([]SuggestionHistoryEntryDTO, error)
}

// GenerateSuggestionsCommand requests a fresh batch of suggestions for a user.
type GenerateSuggestionsCommand struct {
	UserID   string
	Language string
	Count    int
}

// AcceptSuggestionCommand accepts a shown suggestion at an integer portion multiplier.
type AcceptSuggestionCommand struct {
	UserID       string
	SessionID    string
	SuggestionID string
	Multiplier   int
}

// RejectSuggestionCommand rejects a shown suggestion with an optional free-text reason.
type RejectSuggestionCommand struct {
	UserID       string
	SessionID    string
	SuggestionID string
	Reason       *string
}

// SuggestionDTO is the transport shape of a suggestion.Suggestion.
type SuggestionDTO struct {
	SuggestionID         string              `json:"suggestion_id"`
	Name                 string              `json:"name"`
	Description          string              `json:"description"`
	MacroEstimate         MacroEstimateDTO   `json:"macro_estimate"`
	PortionType          string              `json:"portion_type"`
	Source               suggestion.Source   `json:"source"`
	DietaryFlags         []string            `json:"dietary_flags,omitempty"`
	PrincipalIngredients []string            `json:"principal_ingredients,omitempty"`
}

// MacroEstimateDTO is the transport shape of a suggestion.MacroEstimate.
type MacroEstimateDTO struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// SuggestionSessionDTO is the transport shape of a suggestion.Session.
type SuggestionSessionDTO struct {
	SessionID string          `json:"session_id"`
	UserID    string          `json:"user_id"`
	Language  string          `json:"language"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Active    []SuggestionDTO `json:"active"`
}

// SuggestionHistoryEntryDTO is the transport shape of a suggestion.HistoryEntry.
type SuggestionHistoryEntryDTO struct {
	Suggestion SuggestionDTO `json:"suggestion"`
	Outcome    string        `json:"outcome"`
	Multiplier int           `json:"multiplier,omitempty"`
	Reason     *string       `json:"reason,omitempty"`
	At         time.Time     `json:"at"`
}
