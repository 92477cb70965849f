package user

import (
	"errors"
	"time"
)

// NotificationPrefs is the per-user reminder configuration consumed by the scheduled notification
// dispatcher (spec.md §4.5). Reminder times are minutes-from-midnight in the user's local zone.
type NotificationPrefs struct {
	UserID string

	// Timezone is the user's IANA zone, denormalized from UserProfile so the dispatcher's batched
	// scan (§4.5) never needs a per-user profile lookup.
	Timezone string

	NotificationsEnabled bool

	MealsEnabled        bool
	BreakfastMinute     int
	LunchMinute         int
	DinnerMinute        int

	WaterEnabled         bool
	WaterIntervalHours   int

	SleepEnabled bool
	SleepMinute  int

	ProgressEnabled    bool
	ReEngagementEnabled bool
}

// CategoryEnabled reports whether the master toggle and the category-specific toggle both permit
// a reminder to fire, per §4.5's "no reminder fires while ... toggle is false".
func (p NotificationPrefs) CategoryEnabled(category string) bool {
	if !p.NotificationsEnabled {
		return false
	}
	switch category {
	case "breakfast", "lunch", "dinner":
		return p.MealsEnabled
	case "water":
		return p.WaterEnabled
	case "sleep":
		return p.SleepEnabled
	case "progress":
		return p.ProgressEnabled
	case "re_engagement":
		return p.ReEngagementEnabled
	default:
		return false
	}
}

// MinuteFor returns the configured minutes-from-midnight for a meal/sleep category.
func (p NotificationPrefs) MinuteFor(category string) (int, bool) {
	switch category {
	case "breakfast":
		return p.BreakfastMinute, true
	case "lunch":
		return p.LunchMinute, true
	case "dinner":
		return p.DinnerMinute, true
	case "sleep":
		return p.SleepMinute, true
	default:
		return 0, false
	}
}

// Validate enforces the 0..1439 minute bound of the GLOSSARY's "minutes-from-midnight".
func (p NotificationPrefs) Validate() error {
	for _, m := range []int{p.BreakfastMinute, p.LunchMinute, p.DinnerMinute, p.SleepMinute} {
		if m < 0 || m > 1439 {
			return ErrInvalidMinute
		}
	}
	if p.WaterIntervalHours < 0 {
		return ErrInvalidInterval
	}
	return nil
}

// Platform identifies the device OS an FCM token belongs to.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// FcmToken is a registered push-delivery endpoint for a user's device.
type FcmToken struct {
	Token      string
	UserID     string
	Platform   Platform
	IsActive   bool
	LastUsedAt *time.Time
}

var (
	ErrInvalidMinute   = errors.New("minute-from-midnight must be in [0, 1439]")
	ErrInvalidInterval = errors.New("water interval hours must be non-negative")
)

// UserOnboarded is raised once a brand-new user's profile is first persisted.
type UserOnboarded struct {
	UserID string
	At     time.Time
}

func (e UserOnboarded) EventName() string     { return "user.onboarded" }
func (e UserOnboarded) OccurredAt() time.Time { return e.At }

// UserProfileUpdated is raised whenever a user's profile changes. No subscriber of it is
// registered; the user service deletes the `user:{user_id}` cache key itself before publishing.
type UserProfileUpdated struct {
	UserID string
	At     time.Time
}

func (e UserProfileUpdated) EventName() string     { return "user.profile_updated" }
func (e UserProfileUpdated) OccurredAt() time.Time { return e.At }
