package chat

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewThread_StartsOpenAndEmpty(t *testing.T) {
	th := NewThread(uuid.New(), uuid.New(), time.Now())
	assert.Equal(t, StatusOpen, th.Status())
	assert.Empty(t, th.Messages())
}

func TestAppendUserMessage_FailsOnArchivedThread(t *testing.T) {
	th := NewThread(uuid.New(), uuid.New(), time.Now())
	th.Archive(time.Now())
	err := th.AppendUserMessage("hello", time.Now())
	assert.ErrorIs(t, err, ErrThreadArchived)
}

func TestCompleteExchange_RaisesMessageSent(t *testing.T) {
	th := NewThread(uuid.New(), uuid.New(), time.Now())
	require.NoError(t, th.AppendUserMessage("how much protein in an egg?", time.Now()))
	th.CompleteExchange("about 6 grams", false, time.Now())

	require.Len(t, th.Messages(), 2)
	assert.Equal(t, RoleAssistant, th.Messages()[1].Role)
	assert.False(t, th.Messages()[1].Interrupted)

	events := th.Events()
	require.Len(t, events, 1)
	_, ok := events[0].(MessageSent)
	assert.True(t, ok)
}

func TestCompleteExchange_MarksInterrupted(t *testing.T) {
	th := NewThread(uuid.New(), uuid.New(), time.Now())
	require.NoError(t, th.AppendUserMessage("tell me a long story", time.Now()))
	th.CompleteExchange("once upon a time...[interrupted]", true, time.Now())

	assert.True(t, th.Messages()[1].Interrupted)
}

func TestLastK_BoundsWindow(t *testing.T) {
	th := NewThread(uuid.New(), uuid.New(), time.Now())
	for i := 0; i < 5; i++ {
		require.NoError(t, th.AppendUserMessage("msg", time.Now()))
	}
	assert.Len(t, th.LastK(2), 2)
	assert.Len(t, th.LastK(100), 5)
}

func TestArchive_IsIdempotent(t *testing.T) {
	th := NewThread(uuid.New(), uuid.New(), time.Now())
	th.Archive(time.Now())
	th.Archive(time.Now())
	assert.Equal(t, StatusArchived, th.Status())
}
