// Package chat implements the streaming chat orchestrator of §4.6: route a user's message
// through a conversational model, stream the reply incrementally, persist the full exchange, and
// fan it out to the user's other live connections on the same thread.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alchemorsel/nutricore/internal/domain/chat"
	"github.com/alchemorsel/nutricore/internal/domain/user"
	"github.com/alchemorsel/nutricore/internal/ports/inbound"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	apperrors "github.com/alchemorsel/nutricore/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// contextWindow is the "low tens" bounded window of §4.6 step 3.
const contextWindow = 20

// streamTimeout bounds a streaming call as a whole: the clock starts when the model request is
// issued, not at the first byte, so the wait for the first delta counts against it.
const streamTimeout = 120 * time.Second

// Service implements inbound.ChatService.
type Service struct {
	threads   outbound.ChatThreadRepository
	users     outbound.UserRepository
	model     outbound.ChatModel
	hub       outbound.ChatConnectionHub
	publisher outbound.EventPublisher
	ids       outbound.IDGenerator
	clock     outbound.Clock
	logger    *zap.Logger
}

// NewService creates the streaming chat orchestrator.
func NewService(
	threads outbound.ChatThreadRepository,
	users outbound.UserRepository,
	model outbound.ChatModel,
	hub outbound.ChatConnectionHub,
	publisher outbound.EventPublisher,
	ids outbound.IDGenerator,
	clock outbound.Clock,
	logger *zap.Logger,
) inbound.ChatService {
	return &Service{
		threads:   threads,
		users:     users,
		model:     model,
		hub:       hub,
		publisher: publisher,
		ids:       ids,
		clock:     clock,
		logger:    logger.Named("chat-service"),
	}
}

// SendMessage implements the unary surface of §4.6: accumulate the full reply before returning.
func (s *Service) SendMessage(ctx context.Context, cmd inbound.SendMessageCommand) (inbound.ChatMessageDTO, error) {
	thread, prompt, err := s.prepare(ctx, cmd)
	if err != nil {
		return inbound.ChatMessageDTO{}, err
	}

	reply, err := s.model.Complete(ctx, prompt)
	if err != nil {
		return inbound.ChatMessageDTO{}, apperrors.NewUpstreamUnavailableError("chat model", err)
	}

	final, err := s.finalize(ctx, thread, reply, false)
	if err != nil {
		return inbound.ChatMessageDTO{}, err
	}
	return final, nil
}

// StreamMessage implements the streaming surface of §4.6: forward deltas as they arrive, then
// persist and publish once the model finishes (or the caller disconnects).
func (s *Service) StreamMessage(ctx context.Context, cmd inbound.SendMessageCommand) (<-chan inbound.ChatStreamEventDTO, error) {
	thread, prompt, err := s.prepare(ctx, cmd)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithTimeout(ctx, streamTimeout)
	deltas, err := s.model.Stream(streamCtx, prompt)
	if err != nil {
		cancel()
		return nil, apperrors.NewUpstreamUnavailableError("chat model", err)
	}

	out := make(chan inbound.ChatStreamEventDTO, 8)
	go func() {
		defer cancel()
		defer close(out)

		var b strings.Builder
		received := false

		for {
			select {
			case <-streamCtx.Done():
				s.finishInterrupted(ctx, thread, b.String(), received, out)
				return
			case delta, ok := <-deltas:
				if !ok {
					// The model closed the stream without a Done delta: the reply is incomplete.
					s.finishInterrupted(ctx, thread, b.String(), received, out)
					return
				}
				if delta.Text != "" {
					received = true
					b.WriteString(delta.Text)
					out <- inbound.ChatStreamEventDTO{ThreadID: thread.ID(), Delta: delta.Text}
				}
				if delta.Done {
					s.finishStream(ctx, thread, b.String(), received, out)
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *Service) finishStream(ctx context.Context, thread *chat.Thread, content string, received bool, out chan<- inbound.ChatStreamEventDTO) {
	final, err := s.finalize(ctx, thread, content, false)
	if err != nil {
		out <- inbound.ChatStreamEventDTO{ThreadID: thread.ID(), Done: true, Err: err}
		return
	}
	out <- inbound.ChatStreamEventDTO{ThreadID: thread.ID(), Done: true, Final: &final}
}

// finishInterrupted implements §4.6's disconnect contract: nothing written if no delta landed,
// otherwise the partial text plus "[interrupted]" is persisted and PARTIAL_RESPONSE is reported.
func (s *Service) finishInterrupted(ctx context.Context, thread *chat.Thread, content string, received bool, out chan<- inbound.ChatStreamEventDTO) {
	if !received {
		return
	}
	persistCtx := context.Background()
	final, err := s.finalize(persistCtx, thread, content+"[interrupted]", true)
	if err != nil {
		s.logger.Warn("failed to persist interrupted chat exchange", zap.Error(err))
		return
	}
	select {
	case out <- inbound.ChatStreamEventDTO{ThreadID: thread.ID(), Done: true, Final: &final, Err: apperrors.NewPartialResponseError("chat stream interrupted")}:
	default:
	}
}

// prepare loads or creates the thread, appends the user's message, and builds the bounded
// model prompt, per §4.6 steps 1-3.
func (s *Service) prepare(ctx context.Context, cmd inbound.SendMessageCommand) (*chat.Thread, string, error) {
	if strings.TrimSpace(cmd.Content) == "" {
		return nil, "", apperrors.NewInvalidInputError("message content must not be empty")
	}

	thread, err := s.loadOrCreateThread(ctx, cmd)
	if err != nil {
		return nil, "", err
	}

	now := s.clock.Now()
	if err := thread.AppendUserMessage(cmd.Content, now); err != nil {
		if errors.Is(err, chat.ErrThreadArchived) {
			return nil, "", apperrors.NewInvalidInputError("thread is archived")
		}
		return nil, "", err
	}

	profile, err := s.users.GetProfile(ctx, cmd.UserID)
	if err != nil {
		return nil, "", apperrors.NewUserNotFoundError(cmd.UserID.String())
	}

	prompt := buildPrompt(thread.LastK(contextWindow), profile)
	return thread, prompt, nil
}

func (s *Service) loadOrCreateThread(ctx context.Context, cmd inbound.SendMessageCommand) (*chat.Thread, error) {
	if cmd.ThreadID == nil {
		thread := chat.NewThread(s.newThreadID(), cmd.UserID, s.clock.Now())
		if err := s.threads.Create(ctx, thread); err != nil {
			return nil, err
		}
		return thread, nil
	}

	thread, err := s.threads.Get(ctx, *cmd.ThreadID)
	if err != nil {
		if errors.Is(err, chat.ErrThreadNotFound) {
			return nil, apperrors.NewNotFoundError("chat thread")
		}
		return nil, err
	}
	if !thread.OwnedBy(cmd.UserID) {
		return nil, apperrors.NewForbiddenOwnershipError("chat thread")
	}
	return thread, nil
}

func (s *Service) newThreadID() uuid.UUID {
	if parsed, err := uuid.Parse(s.ids.New()); err == nil {
		return parsed
	}
	return uuid.New()
}

// finalize completes the exchange, persists it atomically via the repository, publishes
// MessageSent, and broadcasts the assistant message to the user's other connections on the
// thread, per §4.6 steps 5-6.
func (s *Service) finalize(ctx context.Context, thread *chat.Thread, content string, interrupted bool) (inbound.ChatMessageDTO, error) {
	now := s.clock.Now()
	thread.CompleteExchange(content, interrupted, now)

	if err := s.threads.AppendExchange(ctx, thread); err != nil {
		return inbound.ChatMessageDTO{}, fmt.Errorf("persist chat exchange: %w", err)
	}
	s.publisher.Publish(ctx, thread.Events()...)

	assistantMsg := thread.Messages()[len(thread.Messages())-1]
	if s.hub != nil {
		s.hub.Broadcast(thread.UserID(), thread.ID(), assistantMsg, nil)
	}

	return toMessageDTO(thread.ID(), assistantMsg), nil
}

// GetThread returns a thread's current state.
func (s *Service) GetThread(ctx context.Context, userID, threadID uuid.UUID) (inbound.ChatThreadDTO, error) {
	thread, err := s.threads.Get(ctx, threadID)
	if err != nil {
		if errors.Is(err, chat.ErrThreadNotFound) {
			return inbound.ChatThreadDTO{}, apperrors.NewNotFoundError("chat thread")
		}
		return inbound.ChatThreadDTO{}, err
	}
	if !thread.OwnedBy(userID) {
		return inbound.ChatThreadDTO{}, apperrors.NewForbiddenOwnershipError("chat thread")
	}
	return toThreadDTO(thread), nil
}

// buildPrompt composes the system preamble (tone/language) and the bounded message window into
// the flat text prompt ChatModel.Complete/Stream expect.
func buildPrompt(messages []chat.Message, profile user.Profile) string {
	var b strings.Builder
	b.WriteString(systemPreamble(profile))
	b.WriteString("\n\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(string(m.Role)), m.Content)
	}
	return b.String()
}

func systemPreamble(profile user.Profile) string {
	lang := languageName(profile.Language)
	return fmt.Sprintf(
		"You are a supportive nutrition coaching assistant. Respond in %s, in a friendly and concise "+
			"tone. The user's goal is %s.", lang, profile.Goal,
	)
}

var chatLanguageNames = map[string]string{
	"en": "English",
	"vi": "Vietnamese",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"ja": "Japanese",
	"zh": "Chinese",
}

func languageName(code string) string {
	if name, ok := chatLanguageNames[strings.ToLower(code)]; ok {
		return name
	}
	return "English"
}

func toMessageDTO(threadID uuid.UUID, m chat.Message) inbound.ChatMessageDTO {
	return inbound.ChatMessageDTO{
		ThreadID:    threadID,
		Role:        m.Role,
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
		Interrupted: m.Interrupted,
	}
}

func toThreadDTO(t *chat.Thread) inbound.ChatThreadDTO {
	messages := make([]inbound.ChatMessageDTO, 0, len(t.Messages()))
	for _, m := range t.Messages() {
		messages = append(messages, toMessageDTO(t.ID(), m))
	}
	return inbound.ChatThreadDTO{
		ThreadID:  t.ID(),
		UserID:    t.UserID(),
		Status:    t.Status(),
		Messages:  messages,
		CreatedAt: t.CreatedAt(),
		UpdatedAt: t.UpdatedAt(),
	}
}
