package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alchemorsel/nutricore/internal/domain/suggestion"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const suggestionSessionKeyPrefix = "suggestion_session:"

func suggestionSessionKey(sessionID string) string {
	return suggestionSessionKeyPrefix + sessionID
}

// sessionRecord is the wire shape persisted for a suggestion.Session; the domain type keeps its
// fields unexported so every read and write goes through this mirror.
type sessionRecord struct {
	ID        string                  `json:"id"`
	UserID    string                  `json:"user_id"`
	Language  string                  `json:"language"`
	CreatedAt time.Time               `json:"created_at"`
	ExpiresAt time.Time               `json:"expires_at"`
	Seen      []string                `json:"seen"`
	Active    []suggestion.Suggestion `json:"active"`
	History   []suggestion.HistoryEntry `json:"history"`
	Version   int                     `json:"version"`
}

func toRecord(s *suggestion.Session) sessionRecord {
	return sessionRecord{
		ID:        s.ID(),
		UserID:    s.UserID(),
		Language:  s.Language(),
		CreatedAt: s.CreatedAt(),
		ExpiresAt: s.ExpiresAt(),
		Seen:      s.SeenFingerprints(),
		Active:    s.Active(),
		History:   s.History(),
		Version:   s.Version(),
	}
}

func fromRecord(r sessionRecord) *suggestion.Session {
	return suggestion.Rehydrate(r.ID, r.UserID, r.Language, r.CreatedAt, r.ExpiresAt, r.Seen, r.Active, r.History, r.Version)
}

// SuggestionSessionStore implements outbound.SuggestionSessionStore on top of Redis, using
// WATCH/MULTI transactions to give CasUpdate the read-compare-write semantics §4.3 requires
// without a separate lock key.
type SuggestionSessionStore struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewSuggestionSessionStore creates a Redis-backed suggestion session store.
func NewSuggestionSessionStore(client redis.UniversalClient, logger *zap.Logger) outbound.SuggestionSessionStore {
	return &SuggestionSessionStore{client: client, logger: logger.Named("suggestion-session-store")}
}

// Put stores a brand-new session with the given TTL.
func (s *SuggestionSessionStore) Put(ctx context.Context, sess *suggestion.Session, ttl time.Duration) error {
	data, err := json.Marshal(toRecord(sess))
	if err != nil {
		return fmt.Errorf("marshal suggestion session: %w", err)
	}
	return s.client.Set(ctx, suggestionSessionKey(sess.ID()), data, ttl).Err()
}

// Get fetches a session by ID, translating a cache miss into suggestion.ErrSessionNotFound.
func (s *SuggestionSessionStore) Get(ctx context.Context, sessionID string) (*suggestion.Session, error) {
	data, err := s.client.Get(ctx, suggestionSessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, suggestion.ErrSessionNotFound
		}
		return nil, err
	}
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal suggestion session: %w", err)
	}
	return fromRecord(rec), nil
}

// CasUpdate writes sess back only if the stored version still matches expectedVersion, per §4.3's
// read-compare-write concurrency contract. It reports suggestion.ErrVersionConflict on mismatch so
// the orchestrator's retry loop can re-read and re-apply its mutation.
func (s *SuggestionSessionStore) CasUpdate(ctx context.Context, sess *suggestion.Session, expectedVersion int) error {
	key := suggestionSessionKey(sess.ID())

	txErr := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return suggestion.ErrSessionNotFound
			}
			return err
		}
		var rec sessionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("unmarshal suggestion session: %w", err)
		}
		if rec.Version != expectedVersion {
			return suggestion.ErrVersionConflict
		}

		newData, err := json.Marshal(toRecord(sess))
		if err != nil {
			return fmt.Errorf("marshal suggestion session: %w", err)
		}
		ttl := time.Until(sess.ExpiresAt())
		if ttl <= 0 {
			ttl = time.Second
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newData, ttl)
			return nil
		})
		return err
	}, key)

	if txErr != nil {
		if errors.Is(txErr, redis.TxFailedErr) {
			return suggestion.ErrVersionConflict
		}
		return txErr
	}
	return nil
}

// Delete removes a session outright.
func (s *SuggestionSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, suggestionSessionKey(sessionID)).Err()
}
