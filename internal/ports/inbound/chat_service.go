package inbound

import (
	"context"
	"time"

	"github.com/alchemorsel/nutricore/internal/domain/chat"
	"github.com/google/uuid"
)

// ChatService is the primary port for the streaming chat orchestrator of §4.6.
type ChatService interface {
	SendMessage(ctx context.Context, cmd SendMessageCommand) (ChatMessageDTO, error)
	StreamMessage(ctx context.Context, cmd SendMessageCommand) (<-chan ChatStreamEventDTO, error)
	GetThread(ctx context.Context, userID, threadID uuid.UUID) (ChatThreadDTO, error)
}

// SendMessageCommand carries a user's chat turn. ThreadID is nil to start a new thread.
type SendMessageCommand struct {
	UserID   uuid.UUID
	ThreadID *uuid.UUID
	Content  string
}

// ChatMessageDTO is the transport shape of a chat.Message.
type ChatMessageDTO struct {
	ThreadID    uuid.UUID `json:"thread_id"`
	Role        chat.Role `json:"role"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	Interrupted bool      `json:"interrupted,omitempty"`
}

// ChatStreamEventDTO is one event of a StreamMessage subscription: either a token-sized delta or
// the terminal "complete" marker carrying the finalized message.
type ChatStreamEventDTO struct {
	ThreadID uuid.UUID       `json:"thread_id"`
	Delta    string          `json:"delta,omitempty"`
	Done     bool            `json:"done"`
	Final    *ChatMessageDTO `json:"final,omitempty"`
	Err      error           `json:"-"`
}

// ChatThreadDTO is the transport shape of a chat.Thread.
type ChatThreadDTO struct {
	ThreadID  uuid.UUID        `json:"thread_id"`
	UserID    uuid.UUID        `json:"user_id"`
	Status    chat.Status      `json:"status"`
	Messages  []ChatMessageDTO `json:"messages"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
