package chat

import "time"

// MessageSent is raised once a user+assistant exchange is durably persisted (§4.6 step 5).
type MessageSent struct {
	ThreadID string
	UserID   string
	At       time.Time
}

func (e MessageSent) EventName() string     { return "chat.message_sent" }
func (e MessageSent) OccurredAt() time.Time { return e.At }
