// Package user provides the application layer for identity, physiology, and notification
// preferences (§4 "User & Notification Preferences" surface).
package user

import (
	"context"

	"github.com/alchemorsel/nutricore/internal/domain/user"
	"github.com/alchemorsel/nutricore/internal/ports/inbound"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	apperrors "github.com/alchemorsel/nutricore/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service implements inbound.UserService.
type Service struct {
	users     outbound.UserRepository
	cache     outbound.CacheRepository
	publisher outbound.EventPublisher
	clock     outbound.Clock
	logger    *zap.Logger
	validate  *validator.Validate
}

// NewService creates a new user application service.
func NewService(
	users outbound.UserRepository,
	cache outbound.CacheRepository,
	publisher outbound.EventPublisher,
	clock outbound.Clock,
	logger *zap.Logger,
) inbound.UserService {
	return &Service{
		users:     users,
		cache:     cache,
		publisher: publisher,
		clock:     clock,
		logger:    logger.Named("user-service"),
		validate:  validator.New(),
	}
}

// GetProfile returns a user's physiology profile.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (inbound.ProfileDTO, error) {
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return inbound.ProfileDTO{}, apperrors.NewUserNotFoundError(userID.String())
	}
	return toProfileDTO(profile), nil
}

// UpdateProfile replaces a user's profile wholesale, deletes the `user:{user_id}` cache key itself
// and publishes UserProfileUpdated. No subscriber of that event is registered.
func (s *Service) UpdateProfile(ctx context.Context, cmd inbound.UpdateProfileCommand) (inbound.ProfileDTO, error) {
	if err := s.validate.Struct(cmd.Profile); err != nil {
		return inbound.ProfileDTO{}, apperrors.NewInvalidInputError(err.Error())
	}

	u, err := s.users.Get(ctx, cmd.UserID)
	if err != nil {
		return inbound.ProfileDTO{}, apperrors.NewUserNotFoundError(cmd.UserID.String())
	}

	profile := fromProfileDTO(cmd.Profile)
	if err := u.UpdateProfile(profile); err != nil {
		return inbound.ProfileDTO{}, apperrors.NewInvalidInputError(err.Error())
	}
	if err := s.users.Update(ctx, u); err != nil {
		return inbound.ProfileDTO{}, err
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, "user:"+cmd.UserID.String()); err != nil {
			s.logger.Warn("cache eviction failed after profile update", zap.Error(err))
		}
	}
	s.publisher.Publish(ctx, user.UserProfileUpdated{UserID: cmd.UserID.String(), At: s.clock.Now()})

	return toProfileDTO(u.Profile()), nil
}

// GetNotificationPrefs returns a user's reminder configuration.
func (s *Service) GetNotificationPrefs(ctx context.Context, userID uuid.UUID) (inbound.NotificationPrefsDTO, error) {
	prefs, err := s.users.GetNotificationPrefs(ctx, userID)
	if err != nil {
		return inbound.NotificationPrefsDTO{}, err
	}
	return toPrefsDTO(prefs), nil
}

// UpdateNotificationPrefs replaces a user's reminder configuration wholesale.
func (s *Service) UpdateNotificationPrefs(ctx context.Context, cmd inbound.UpdateNotificationPrefsCommand) (inbound.NotificationPrefsDTO, error) {
	if err := s.validate.Struct(cmd.Prefs); err != nil {
		return inbound.NotificationPrefsDTO{}, apperrors.NewInvalidInputError(err.Error())
	}

	prefs := fromPrefsDTO(cmd.UserID, cmd.Prefs)
	if err := prefs.Validate(); err != nil {
		return inbound.NotificationPrefsDTO{}, apperrors.NewInvalidInputError(err.Error())
	}
	if err := s.users.UpsertNotificationPrefs(ctx, prefs); err != nil {
		return inbound.NotificationPrefsDTO{}, err
	}
	return toPrefsDTO(prefs), nil
}

// RegisterFcmToken upserts an active push token for a user's device.
func (s *Service) RegisterFcmToken(ctx context.Context, userID uuid.UUID, token string, platform user.Platform) error {
	if token == "" {
		return apperrors.NewInvalidInputError("fcm token must not be empty")
	}
	return s.users.UpsertFcmToken(ctx, userID, token, platform)
}

func toProfileDTO(p user.Profile) inbound.ProfileDTO {
	return inbound.ProfileDTO{
		AgeYears:           p.AgeYears,
		Sex:                p.Sex,
		HeightCM:           p.HeightCM,
		WeightKG:           p.WeightKG,
		BodyFatPct:         p.BodyFatPct,
		Activity:           p.Activity,
		Goal:               p.Goal,
		TargetWeightKG:     p.TargetWeightKG,
		Timezone:           p.Timezone,
		Language:           p.Language,
		DietaryPreferences: p.DietaryPreferences,
		Allergies:          p.Allergies,
	}
}

func fromProfileDTO(dto inbound.ProfileDTO) user.Profile {
	return user.Profile{
		AgeYears:           dto.AgeYears,
		Sex:                dto.Sex,
		HeightCM:           dto.HeightCM,
		WeightKG:           dto.WeightKG,
		BodyFatPct:         dto.BodyFatPct,
		Activity:           dto.Activity,
		Goal:               dto.Goal,
		TargetWeightKG:     dto.TargetWeightKG,
		Timezone:           dto.Timezone,
		Language:           dto.Language,
		DietaryPreferences: dto.DietaryPreferences,
		Allergies:          dto.Allergies,
	}
}

func toPrefsDTO(p user.NotificationPrefs) inbound.NotificationPrefsDTO {
	return inbound.NotificationPrefsDTO{
		NotificationsEnabled: p.NotificationsEnabled,
		MealsEnabled:         p.MealsEnabled,
		BreakfastMinute:      p.BreakfastMinute,
		LunchMinute:          p.LunchMinute,
		DinnerMinute:         p.DinnerMinute,
		WaterEnabled:         p.WaterEnabled,
		WaterIntervalHours:   p.WaterIntervalHours,
		SleepEnabled:         p.SleepEnabled,
		SleepMinute:          p.SleepMinute,
		ProgressEnabled:      p.ProgressEnabled,
		ReEngagementEnabled:  p.ReEngagementEnabled,
	}
}

func fromPrefsDTO(userID uuid.UUID, dto inbound.NotificationPrefsDTO) user.NotificationPrefs {
	return user.NotificationPrefs{
		UserID:               userID.String(),
		NotificationsEnabled: dto.NotificationsEnabled,
		MealsEnabled:         dto.MealsEnabled,
		BreakfastMinute:      dto.BreakfastMinute,
		LunchMinute:          dto.LunchMinute,
		DinnerMinute:         dto.DinnerMinute,
		WaterEnabled:         dto.WaterEnabled,
		WaterIntervalHours:   dto.WaterIntervalHours,
		SleepEnabled:         dto.SleepEnabled,
		SleepMinute:          dto.SleepMinute,
		ProgressEnabled:      dto.ProgressEnabled,
		ReEngagementEnabled:  dto.ReEngagementEnabled,
	}
}
