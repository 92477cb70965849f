package gorm

import (
	"context"
	"errors"

	"github.com/alchemorsel/nutricore/internal/domain/chat"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatThreadRepository implements outbound.ChatThreadRepository using GORM.
type ChatThreadRepository struct {
	db *gorm.DB
}

// NewChatThreadRepository creates a new chat thread repository.
func NewChatThreadRepository(db *gorm.DB) outbound.ChatThreadRepository {
	return &ChatThreadRepository{db: db}
}

// Create persists a brand-new thread eagerly, per §4.6 step 1, so concurrent clients can share it.
func (r *ChatThreadRepository) Create(ctx context.Context, t *chat.Thread) error {
	model, err := ChatThreadToModel(t)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// AppendExchange writes the thread's full current message list atomically (§4.6 step 5: "write
// user+assistant messages atomically, single transaction").
func (r *ChatThreadRepository) AppendExchange(ctx context.Context, t *chat.Thread) error {
	model, err := ChatThreadToModel(t)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&ChatThreadModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"messages":   model.Messages,
			"status":     model.Status,
			"updated_at": model.UpdatedAt,
		}).Error
}

func (r *ChatThreadRepository) Get(ctx context.Context, id uuid.UUID) (*chat.Thread, error) {
	var row ChatThreadModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, chat.ErrThreadNotFound
		}
		return nil, err
	}
	return ModelToChatThread(&row)
}
