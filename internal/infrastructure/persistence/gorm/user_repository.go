// Package gorm provides GORM-based repository implementations.
package gorm

import (
	"context"
	"errors"

	"github.com/alchemorsel/nutricore/internal/domain/user"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository implements outbound.UserRepository using GORM.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *gorm.DB) outbound.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	model := UserToModel(u)
	return r.db.WithContext(ctx).Create(model).Error
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	model := UserToModel(u)
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return outbound.ErrPreconditionFailed
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, outbound.ErrPreconditionFailed
		}
		return nil, err
	}
	return ModelToUser(&model), nil
}

func (r *UserRepository) GetProfile(ctx context.Context, userID uuid.UUID) (user.Profile, error) {
	u, err := r.Get(ctx, userID)
	if err != nil {
		return user.Profile{}, err
	}
	return u.Profile(), nil
}

func (r *UserRepository) GetNotificationPrefs(ctx context.Context, userID uuid.UUID) (user.NotificationPrefs, error) {
	var row NotificationPrefsModel
	if err := r.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user.NotificationPrefs{UserID: userID.String()}, nil
		}
		return user.NotificationPrefs{}, err
	}
	prefs := ModelToNotificationPrefs(&row)
	var u UserModel
	if err := r.db.WithContext(ctx).Select("timezone").First(&u, "id = ?", userID).Error; err == nil {
		prefs.Timezone = u.Timezone
	}
	return prefs, nil
}

func (r *UserRepository) UpsertNotificationPrefs(ctx context.Context, prefs user.NotificationPrefs) error {
	userID, err := uuid.Parse(prefs.UserID)
	if err != nil {
		return err
	}
	model := NotificationPrefsToModel(userID, prefs)
	return r.db.WithContext(ctx).Save(model).Error
}

func (r *UserRepository) ListActiveFcmTokens(ctx context.Context, userID uuid.UUID) ([]user.FcmToken, error) {
	var rows []FcmTokenModel
	if err := r.db.WithContext(ctx).Where("user_id = ? AND is_active = ?", userID, true).Find(&rows).Error; err != nil {
		return nil, err
	}
	tokens := make([]user.FcmToken, 0, len(rows))
	for i := range rows {
		tokens = append(tokens, ModelToFcmToken(&rows[i]))
	}
	return tokens, nil
}

// UpsertFcmToken registers or reactivates a device push token for a user.
func (r *UserRepository) UpsertFcmToken(ctx context.Context, userID uuid.UUID, token string, platform user.Platform) error {
	model := FcmTokenToModel(userID, user.FcmToken{
		Token:    token,
		UserID:   userID.String(),
		Platform: platform,
		IsActive: true,
	})
	return r.db.WithContext(ctx).Save(model).Error
}

func (r *UserRepository) MarkTokenInactive(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Model(&FcmTokenModel{}).
		Where("token = ?", token).
		Update("is_active", false).Error
}

// notificationPrefsRow joins NotificationPrefsModel with the user's timezone so the dispatcher's
// batched scan (§4.5) never needs a per-user profile lookup.
type notificationPrefsRow struct {
	NotificationPrefsModel
	Timezone string
}

// StreamEnabledPrefs batches through every row with notifications_enabled = true, invoking fn
// once per batch, for the dispatcher's per-tick scan (§4.5).
func (r *UserRepository) StreamEnabledPrefs(ctx context.Context, batchSize int, fn func([]user.NotificationPrefs) error) error {
	if batchSize <= 0 {
		batchSize = 200
	}
	var batch []notificationPrefsRow
	return r.db.WithContext(ctx).
		Table("notification_prefs_models").
		Select("notification_prefs_models.*, user_models.timezone AS timezone").
		Joins("JOIN user_models ON user_models.id = notification_prefs_models.user_id").
		Where("notification_prefs_models.notifications_enabled = ?", true).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, batchNum int) error {
			prefs := make([]user.NotificationPrefs, 0, len(batch))
			for _, row := range batch {
				p := ModelToNotificationPrefs(&row.NotificationPrefsModel)
				p.Timezone = row.Timezone
				prefs = append(prefs, p)
			}
			return fn(prefs)
		}).Error
}
