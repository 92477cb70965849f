package meal

import (
	"time"
)

// Domain events raised by the meal aggregate, matching spec.md §6.3's payload shapes.

// ImageUploaded is raised when a meal image has been persisted and is ready for analysis.
type ImageUploaded struct {
	MealID   string
	UserID   string
	ImageRef string
	Strategy AnalysisStrategy
	Hints    AnalysisHints
	At       time.Time
}

func (e ImageUploaded) EventName() string   { return "meal.image_uploaded" }
func (e ImageUploaded) OccurredAt() time.Time { return e.At }

// Analyzed is raised once a meal reaches READY with its final nutrition.
type Analyzed struct {
	MealID    string
	UserID    string
	Nutrition Nutrition
	ReadyAt   time.Time
}

func (e Analyzed) EventName() string   { return "meal.analyzed" }
func (e Analyzed) OccurredAt() time.Time { return e.ReadyAt }

// AnalysisFailed is raised when analysis could not complete.
type AnalysisFailed struct {
	MealID string
	UserID string
	Reason string
	At     time.Time
}

func (e AnalysisFailed) EventName() string   { return "meal.analysis_failed" }
func (e AnalysisFailed) OccurredAt() time.Time { return e.At }

// Edited is raised when a READY meal's food items are edited.
type Edited struct {
	MealID         string
	UserID         string
	NutritionDelta Nutrition
	At             time.Time
}

func (e Edited) EventName() string   { return "meal.edited" }
func (e Edited) OccurredAt() time.Time { return e.At }

// Deleted is raised on soft-delete.
type Deleted struct {
	MealID string
	UserID string
	At     time.Time
}

func (e Deleted) EventName() string   { return "meal.deleted" }
func (e Deleted) OccurredAt() time.Time { return e.At }

// CreatedFromSuggestion is raised when a meal is materialized from an accepted suggestion.
type CreatedFromSuggestion struct {
	MealID                string
	UserID                string
	SuggestionFingerprint string
	Multiplier            int
	At                    time.Time
}

func (e CreatedFromSuggestion) EventName() string   { return "meal.created_from_suggestion" }
func (e CreatedFromSuggestion) OccurredAt() time.Time { return e.At }
