// Package chat models the conversational thread the streaming chat orchestrator reads and
// appends to: an ordered message history plus its open/archived lifecycle.
package chat

import (
	"time"

	"github.com/alchemorsel/nutricore/internal/domain/shared"
	"github.com/google/uuid"
)

// Role identifies who authored a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Status is the thread's lifecycle state.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusArchived Status = "ARCHIVED"
)

// Message is a single turn in a thread's history. Interrupted marks an assistant message that
// was persisted mid-stream after a client disconnect (§4.6's "[interrupted]" marker contract).
type Message struct {
	Role        Role
	Content     string
	CreatedAt   time.Time
	Interrupted bool
}

// Thread is the ChatThread aggregate root.
type Thread struct {
	shared.AggregateRoot

	id        uuid.UUID
	userID    uuid.UUID
	status    Status
	messages  []Message
	createdAt time.Time
	updatedAt time.Time
}

// NewThread creates a fresh, empty, OPEN thread, persisted eagerly per §4.6 so concurrent
// clients on the same device can discover and share it before the first exchange completes.
func NewThread(id, userID uuid.UUID, now time.Time) *Thread {
	return &Thread{
		id:        id,
		userID:    userID,
		status:    StatusOpen,
		createdAt: now,
		updatedAt: now,
	}
}

// Rehydrate reconstructs a Thread from persisted state.
func Rehydrate(id, userID uuid.UUID, status Status, messages []Message, createdAt, updatedAt time.Time) *Thread {
	return &Thread{id: id, userID: userID, status: status, messages: messages, createdAt: createdAt, updatedAt: updatedAt}
}

func (t *Thread) ID() uuid.UUID        { return t.id }
func (t *Thread) UserID() uuid.UUID    { return t.userID }
func (t *Thread) Status() Status       { return t.status }
func (t *Thread) Messages() []Message  { return t.messages }
func (t *Thread) CreatedAt() time.Time { return t.createdAt }
func (t *Thread) UpdatedAt() time.Time { return t.updatedAt }

// OwnedBy implements the user-isolation check required before every thread-scoped command.
func (t *Thread) OwnedBy(userID uuid.UUID) bool {
	return t.userID == userID
}

// LastK returns up to k of the most recent messages, the bounded window §4.6 feeds the model.
func (t *Thread) LastK(k int) []Message {
	if k <= 0 || k >= len(t.messages) {
		return t.messages
	}
	return t.messages[len(t.messages)-k:]
}

// AppendUserMessage adds the caller's message to in-memory history ahead of the model call.
func (t *Thread) AppendUserMessage(content string, now time.Time) error {
	if t.status != StatusOpen {
		return ErrThreadArchived
	}
	t.messages = append(t.messages, Message{Role: RoleUser, Content: content, CreatedAt: now})
	t.updatedAt = now
	return nil
}

// CompleteExchange appends the assistant's reply and raises MessageSent, implementing §4.6 step 5
// ("write user+assistant messages atomically"). interrupted marks a client-disconnect partial.
func (t *Thread) CompleteExchange(assistantContent string, interrupted bool, now time.Time) {
	t.messages = append(t.messages, Message{
		Role:        RoleAssistant,
		Content:     assistantContent,
		CreatedAt:   now,
		Interrupted: interrupted,
	})
	t.updatedAt = now
	t.AddEvent(MessageSent{ThreadID: t.id.String(), UserID: t.userID.String(), At: now})
}

// Archive transitions the thread to ARCHIVED; idempotent.
func (t *Thread) Archive(now time.Time) {
	if t.status == StatusArchived {
		return
	}
	t.status = StatusArchived
	t.updatedAt = now
}
