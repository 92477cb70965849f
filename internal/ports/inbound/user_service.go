package inbound

import (
	"context"

	"github.com/alchemorsel/nutricore/internal/domain/user"
	"github.com/google/uuid"
)

// UserService is the primary port for identity, physiology, and notification preferences.
type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (ProfileDTO, error)
	UpdateProfile(ctx context.Context, cmd UpdateProfileCommand) (ProfileDTO, error)
	GetNotificationPrefs(ctx context.Context, userID uuid.UUID) (NotificationPrefsDTO, error)
	UpdateNotificationPrefs(ctx context.Context, cmd UpdateNotificationPrefsCommand) (NotificationPrefsDTO, error)
	RegisterFcmToken(ctx context.Context, userID uuid.UUID, token string, platform user.Platform) error
}

// UpdateProfileCommand carries a wholesale profile replacement, per user.UpdateProfile.
type UpdateProfileCommand struct {
	UserID  uuid.UUID
	Profile ProfileDTO
}

// ProfileDTO is the transport shape of a user.Profile. Struct tags are enforced by
// go-playground/validator before the command reaches the domain layer; user.validateProfile still
// re-checks the stricter domain invariants (e.g. the age/height/weight bounds of §3.1) once the
// DTO has been mapped, since those bounds are domain policy, not transport-shape validation.
type ProfileDTO struct {
	AgeYears           int                `json:"age_years" validate:"gte=0,lte=130"`
	Sex                user.Sex           `json:"sex" validate:"omitempty,oneof=male female"`
	HeightCM           float64            `json:"height_cm" validate:"gte=0"`
	WeightKG           float64            `json:"weight_kg" validate:"gte=0"`
	BodyFatPct         *float64           `json:"body_fat_pct,omitempty" validate:"omitempty,gte=0,lte=100"`
	Activity           user.ActivityLevel `json:"activity" validate:"omitempty,oneof=sedentary light moderate active very_active"`
	Goal               user.Goal          `json:"goal" validate:"omitempty,oneof=CUT BULK RECOMP"`
	TargetWeightKG     *float64           `json:"target_weight_kg,omitempty" validate:"omitempty,gte=0"`
	Timezone           string             `json:"timezone" validate:"required"`
	Language           string             `json:"language" validate:"omitempty,len=2"`
	DietaryPreferences []string           `json:"dietary_preferences,omitempty"`
	Allergies          []string           `json:"allergies,omitempty"`
}

// UpdateNotificationPrefsCommand carries a wholesale preferences replacement.
type UpdateNotificationPrefsCommand struct {
	UserID uuid.UUID
	Prefs  NotificationPrefsDTO
}

// NotificationPrefsDTO is the transport shape of a user.NotificationPrefs.
type NotificationPrefsDTO struct {
	NotificationsEnabled bool `json:"notifications_enabled"`
	MealsEnabled         bool `json:"meals_enabled"`
	BreakfastMinute      int  `json:"breakfast_minute" validate:"gte=0,lte=1439"`
	LunchMinute          int  `json:"lunch_minute" validate:"gte=0,lte=1439"`
	DinnerMinute         int  `json:"dinner_minute" validate:"gte=0,lte=1439"`
	WaterEnabled         bool `json:"water_enabled"`
	WaterIntervalHours   int  `json:"water_interval_hours" validate:"gte=1,lte=12"`
	SleepEnabled         bool `json:"sleep_enabled"`
	SleepMinute          int  `json:"sleep_minute" validate:"gte=0,lte=1439"`
	ProgressEnabled      bool `json:"progress_enabled"`
	ReEngagementEnabled  bool `json:"re_engagement_enabled"`
}
