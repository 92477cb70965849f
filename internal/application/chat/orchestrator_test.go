package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domainchat "github.com/alchemorsel/nutricore/internal/domain/chat"
	"github.com/alchemorsel/nutricore/internal/domain/shared"
	"github.com/alchemorsel/nutricore/internal/domain/user"
	"github.com/alchemorsel/nutricore/internal/ports/inbound"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	apperrors "github.com/alchemorsel/nutricore/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeThreadRepo struct {
	mu      sync.Mutex
	threads map[uuid.UUID]*domainchat.Thread
	getErr  error
}

func newFakeThreadRepo() *fakeThreadRepo {
	return &fakeThreadRepo{threads: map[uuid.UUID]*domainchat.Thread{}}
}

func (f *fakeThreadRepo) Create(ctx context.Context, t *domainchat.Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads[t.ID()] = t
	return nil
}

func (f *fakeThreadRepo) AppendExchange(ctx context.Context, t *domainchat.Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads[t.ID()] = t
	return nil
}

func (f *fakeThreadRepo) Get(ctx context.Context, id uuid.UUID) (*domainchat.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	th, ok := f.threads[id]
	if !ok {
		return nil, domainchat.ErrThreadNotFound
	}
	return th, nil
}

type fakeUserRepo struct {
	profile user.Profile
	err     error
}

func (f *fakeUserRepo) Get(ctx context.Context, userID uuid.UUID) (*user.User, error) { return nil, nil }
func (f *fakeUserRepo) Create(ctx context.Context, u *user.User) error                 { return nil }
func (f *fakeUserRepo) Update(ctx context.Context, u *user.User) error                 { return nil }
func (f *fakeUserRepo) GetProfile(ctx context.Context, userID uuid.UUID) (user.Profile, error) {
	if f.err != nil {
		return user.Profile{}, f.err
	}
	return f.profile, nil
}
func (f *fakeUserRepo) GetNotificationPrefs(ctx context.Context, userID uuid.UUID) (user.NotificationPrefs, error) {
	return user.NotificationPrefs{}, nil
}
func (f *fakeUserRepo) UpsertNotificationPrefs(ctx context.Context, prefs user.NotificationPrefs) error {
	return nil
}
func (f *fakeUserRepo) ListActiveFcmTokens(ctx context.Context, userID uuid.UUID) ([]user.FcmToken, error) {
	return nil, nil
}
func (f *fakeUserRepo) UpsertFcmToken(ctx context.Context, userID uuid.UUID, token string, platform user.Platform) error {
	return nil
}
func (f *fakeUserRepo) MarkTokenInactive(ctx context.Context, token string) error { return nil }
func (f *fakeUserRepo) StreamEnabledPrefs(ctx context.Context, batchSize int, fn func([]user.NotificationPrefs) error) error {
	return nil
}

type fakeChatModel struct {
	completeReply string
	completeErr   error

	streamDeltas []outbound.StreamDelta
	streamErr    error
	streamDelay  time.Duration // delay before the first delta is sent, to exercise streamTimeout
}

func (f *fakeChatModel) Complete(ctx context.Context, prompt string) (string, error) {
	if f.completeErr != nil {
		return "", f.completeErr
	}
	return f.completeReply, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, prompt string) (<-chan outbound.StreamDelta, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	out := make(chan outbound.StreamDelta, len(f.streamDeltas)+1)
	go func() {
		defer close(out)
		if f.streamDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(f.streamDelay):
			}
		}
		for _, d := range f.streamDeltas {
			select {
			case <-ctx.Done():
				return
			case out <- d:
			}
		}
	}()
	return out, nil
}

type fakeHub struct {
	mu        sync.Mutex
	broadcast []domainchat.Message
}

func (f *fakeHub) Register(userID, threadID uuid.UUID, sink outbound.ChatSink)   {}
func (f *fakeHub) Unregister(userID, threadID uuid.UUID, sink outbound.ChatSink) {}
func (f *fakeHub) Broadcast(userID, threadID uuid.UUID, message domainchat.Message, except outbound.ChatSink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcast = append(f.broadcast, message)
}

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) {}

type chatIDGen struct{ id string }

func (g chatIDGen) New() string { return g.id }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }
func (c fixedClock) InZone(instant time.Time, iana string) (time.Time, error) {
	return instant, nil
}

func testChatProfile() user.Profile {
	return user.Profile{Language: "en", Goal: user.GoalCut}
}

func newTestChatService(threads *fakeThreadRepo, users *fakeUserRepo, model *fakeChatModel, hub outbound.ChatConnectionHub) *Service {
	return &Service{
		threads:   threads,
		users:     users,
		model:     model,
		hub:       hub,
		publisher: noopPublisher{},
		ids:       chatIDGen{id: uuid.New().String()},
		clock:     fixedClock{now: time.Now()},
		logger:    zap.NewNop(),
	}
}

func TestSendMessage_NewThread_PersistsExchangeAndReturnsAssistantReply(t *testing.T) {
	threads := newFakeThreadRepo()
	users := &fakeUserRepo{profile: testChatProfile()}
	model := &fakeChatModel{completeReply: "about 6 grams of protein"}
	hub := &fakeHub{}
	svc := newTestChatService(threads, users, model, hub)

	userID := uuid.New()
	dto, err := svc.SendMessage(context.Background(), inbound.SendMessageCommand{
		UserID: userID, Content: "how much protein in an egg?",
	})
	require.NoError(t, err)
	assert.Equal(t, "about 6 grams of protein", dto.Content)
	assert.Equal(t, domainchat.RoleAssistant, dto.Role)
	assert.False(t, dto.Interrupted)

	th, err := threads.Get(context.Background(), dto.ThreadID)
	require.NoError(t, err)
	require.Len(t, th.Messages(), 2)
	assert.Equal(t, domainchat.RoleUser, th.Messages()[0].Role)
	require.Len(t, hub.broadcast, 1)
}

func TestSendMessage_EmptyContent_ReturnsInvalidInput(t *testing.T) {
	svc := newTestChatService(newFakeThreadRepo(), &fakeUserRepo{profile: testChatProfile()}, &fakeChatModel{}, &fakeHub{})

	_, err := svc.SendMessage(context.Background(), inbound.SendMessageCommand{UserID: uuid.New(), Content: "   "})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeInvalidInput, appErr.Code)
}

func TestSendMessage_ArchivedThread_ReturnsInvalidInput(t *testing.T) {
	threads := newFakeThreadRepo()
	userID := uuid.New()
	th := domainchat.NewThread(uuid.New(), userID, time.Now())
	th.Archive(time.Now())
	require.NoError(t, threads.Create(context.Background(), th))

	svc := newTestChatService(threads, &fakeUserRepo{profile: testChatProfile()}, &fakeChatModel{}, &fakeHub{})
	threadID := th.ID()

	_, err := svc.SendMessage(context.Background(), inbound.SendMessageCommand{
		UserID: userID, ThreadID: &threadID, Content: "hello again",
	})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeInvalidInput, appErr.Code)
}

func TestSendMessage_ThreadOwnedByAnotherUser_ReturnsForbidden(t *testing.T) {
	threads := newFakeThreadRepo()
	owner := uuid.New()
	th := domainchat.NewThread(uuid.New(), owner, time.Now())
	require.NoError(t, threads.Create(context.Background(), th))

	svc := newTestChatService(threads, &fakeUserRepo{profile: testChatProfile()}, &fakeChatModel{}, &fakeHub{})
	threadID := th.ID()

	intruder := uuid.New()
	_, err := svc.SendMessage(context.Background(), inbound.SendMessageCommand{
		UserID: intruder, ThreadID: &threadID, Content: "hi",
	})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
}

func TestSendMessage_UnknownThread_ReturnsNotFound(t *testing.T) {
	svc := newTestChatService(newFakeThreadRepo(), &fakeUserRepo{profile: testChatProfile()}, &fakeChatModel{}, &fakeHub{})

	missing := uuid.New()
	_, err := svc.SendMessage(context.Background(), inbound.SendMessageCommand{
		UserID: uuid.New(), ThreadID: &missing, Content: "hi",
	})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}

func TestSendMessage_ModelErrors_ReturnsUpstreamUnavailable(t *testing.T) {
	model := &fakeChatModel{completeErr: errors.New("provider down")}
	svc := newTestChatService(newFakeThreadRepo(), &fakeUserRepo{profile: testChatProfile()}, model, &fakeHub{})

	_, err := svc.SendMessage(context.Background(), inbound.SendMessageCommand{UserID: uuid.New(), Content: "hi"})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeUpstreamUnavailable, appErr.Code)
}

func TestSendMessage_UnknownUser_ReturnsUserNotFound(t *testing.T) {
	users := &fakeUserRepo{err: errors.New("no such row")}
	svc := newTestChatService(newFakeThreadRepo(), users, &fakeChatModel{completeReply: "hi"}, &fakeHub{})

	_, err := svc.SendMessage(context.Background(), inbound.SendMessageCommand{UserID: uuid.New(), Content: "hi"})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeUserNotFound, appErr.Code)
}

// TestStreamMessage_HappyPath_EmitsDeltasThenFinalAndBroadcasts exercises the streaming surface
// end to end: every delta forwarded, terminal Done event carrying the persisted final message.
func TestStreamMessage_HappyPath_EmitsDeltasThenFinalAndBroadcasts(t *testing.T) {
	threads := newFakeThreadRepo()
	model := &fakeChatModel{streamDeltas: []outbound.StreamDelta{
		{Text: "once "}, {Text: "upon a time"}, {Done: true},
	}}
	hub := &fakeHub{}
	svc := newTestChatService(threads, &fakeUserRepo{profile: testChatProfile()}, model, hub)

	events, err := svc.StreamMessage(context.Background(), inbound.SendMessageCommand{
		UserID: uuid.New(), Content: "tell me a story",
	})
	require.NoError(t, err)

	var deltas []string
	var final *inbound.ChatMessageDTO
	for ev := range events {
		if ev.Delta != "" {
			deltas = append(deltas, ev.Delta)
		}
		if ev.Done {
			final = ev.Final
		}
	}

	assert.Equal(t, []string{"once ", "upon a time"}, deltas)
	require.NotNil(t, final)
	assert.Equal(t, "once upon a time", final.Content)
	assert.False(t, final.Interrupted)
	require.Len(t, hub.broadcast, 1)
}

// TestStreamMessage_CallerDisconnectsAfterDelta_PersistsInterruptedMarker exercises §4.6's
// interruption contract: once at least one delta has landed, a stream that ends without a Done
// delta still persists the partial content with the "[interrupted]" suffix and reports
// PARTIAL_RESPONSE to the caller.
func TestStreamMessage_CallerDisconnectsAfterDelta_PersistsInterruptedMarker(t *testing.T) {
	threads := newFakeThreadRepo()
	// No Done delta ever arrives: the fake closes its stream after the one delta, well before the
	// caller's 20ms deadline.
	model := &fakeChatModel{streamDeltas: []outbound.StreamDelta{{Text: "once upon a time"}}, streamDelay: 0}
	hub := &fakeHub{}
	svc := newTestChatService(threads, &fakeUserRepo{profile: testChatProfile()}, model, hub)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	events, err := svc.StreamMessage(ctx, inbound.SendMessageCommand{
		UserID: uuid.New(), Content: "tell me a long story",
	})
	require.NoError(t, err)

	var final *inbound.ChatMessageDTO
	var gotErr error
	for ev := range events {
		if ev.Done {
			final = ev.Final
			gotErr = ev.Err
		}
	}

	require.NotNil(t, final)
	assert.Equal(t, "once upon a time[interrupted]", final.Content)
	assert.True(t, final.Interrupted)

	var appErr *apperrors.AppError
	require.True(t, errors.As(gotErr, &appErr))
	assert.Equal(t, apperrors.CodePartialResponse, appErr.Code)

	// finalize persists via context.Background(), independent of the caller's cancelled ctx.
	th, err := threads.Get(context.Background(), final.ThreadID)
	require.NoError(t, err)
	require.Len(t, th.Messages(), 2)
	assert.True(t, th.Messages()[1].Interrupted)
}

// TestStreamMessage_CallerDisconnectsBeforeAnyDelta_PersistsNothing covers the other half of the
// disconnect contract: no delta ever landed, so nothing should be written and no event emitted.
func TestStreamMessage_CallerDisconnectsBeforeAnyDelta_PersistsNothing(t *testing.T) {
	threads := newFakeThreadRepo()
	// streamDelay longer than the caller's deadline: ctx fires before the first delta is sent.
	model := &fakeChatModel{streamDeltas: []outbound.StreamDelta{{Text: "too late"}}, streamDelay: 50 * time.Millisecond}
	svc := newTestChatService(threads, &fakeUserRepo{profile: testChatProfile()}, model, &fakeHub{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	events, err := svc.StreamMessage(ctx, inbound.SendMessageCommand{
		UserID: uuid.New(), Content: "tell me a story",
	})
	require.NoError(t, err)

	var count int
	for range events {
		count++
	}
	assert.Equal(t, 0, count)
}

// TestStreamMessage_ModelStreamStartErrors_ReturnsUpstreamUnavailable covers the "model error
// before any delta" path distinct from a mid-stream disconnect.
func TestStreamMessage_ModelStreamStartErrors_ReturnsUpstreamUnavailable(t *testing.T) {
	model := &fakeChatModel{streamErr: errors.New("provider refused connection")}
	svc := newTestChatService(newFakeThreadRepo(), &fakeUserRepo{profile: testChatProfile()}, model, &fakeHub{})

	_, err := svc.StreamMessage(context.Background(), inbound.SendMessageCommand{UserID: uuid.New(), Content: "hi"})
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeUpstreamUnavailable, appErr.Code)
}

// TestPrepare_BuildsBoundedContextWindow exercises the contextWindow cap: with more than
// contextWindow prior messages, only the most recent contextWindow are fed into the prompt.
func TestPrepare_BuildsBoundedContextWindow(t *testing.T) {
	threads := newFakeThreadRepo()
	userID := uuid.New()
	th := domainchat.NewThread(uuid.New(), userID, time.Now())
	for i := 0; i < contextWindow+10; i++ {
		require.NoError(t, th.AppendUserMessage("filler", time.Now()))
	}
	require.NoError(t, th.AppendUserMessage("the most recent question", time.Now()))
	require.NoError(t, threads.Create(context.Background(), th))

	svc := newTestChatService(threads, &fakeUserRepo{profile: testChatProfile()}, &fakeChatModel{}, &fakeHub{})
	threadID := th.ID()

	_, prompt, err := svc.prepare(context.Background(), inbound.SendMessageCommand{
		UserID: userID, ThreadID: &threadID, Content: "one more",
	})
	require.NoError(t, err)

	// prepare appends this call's own message before building the window, so the thread now
	// holds contextWindow+12 messages; LastK(contextWindow) must still cap to contextWindow,
	// keeping only the most recent (contextWindow-2) filler lines plus the two newest messages.
	assert.Equal(t, contextWindow-2, strings.Count(prompt, "USER: filler"))
	assert.Contains(t, prompt, "USER: the most recent question")
	assert.Contains(t, prompt, "USER: one more")
}

func TestGetThread_WrongUser_ReturnsForbidden(t *testing.T) {
	threads := newFakeThreadRepo()
	owner := uuid.New()
	th := domainchat.NewThread(uuid.New(), owner, time.Now())
	require.NoError(t, threads.Create(context.Background(), th))

	svc := newTestChatService(threads, &fakeUserRepo{}, &fakeChatModel{}, &fakeHub{})

	_, err := svc.GetThread(context.Background(), uuid.New(), th.ID())
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeForbidden, appErr.Code)
}

func TestGetThread_UnknownThread_ReturnsNotFound(t *testing.T) {
	svc := newTestChatService(newFakeThreadRepo(), &fakeUserRepo{}, &fakeChatModel{}, &fakeHub{})

	_, err := svc.GetThread(context.Background(), uuid.New(), uuid.New())
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}
