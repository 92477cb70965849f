// Package suggestion models the transient, Redis-resident suggestion session: the set of
// AI-generated meal suggestions a user is currently considering, and the history of what they
// did with earlier ones.
package suggestion

import (
	"sort"
	"time"

	"github.com/alchemorsel/nutricore/internal/domain/shared"
)

const (
	// MaxActive is the §4.3 invariant that a session holds at most 3 active suggestions.
	MaxActive = 3
	// TTL is the session lifetime from creation; expired sessions read as absent (§3.3).
	TTL = 4 * time.Hour
	// MinMultiplier and MaxMultiplier bound the integer portion multiplier accepted suggestions use.
	MinMultiplier = 1
	MaxMultiplier = 4
)

// HistoryEntry pairs a suggestion that left the active set with how it was resolved.
type HistoryEntry struct {
	Suggestion Suggestion
	Outcome    Outcome
	At         time.Time
}

// Session is the SuggestionSession aggregate root. It carries its own optimistic-concurrency
// version so repository adapters can implement the read-compare-write CAS loop of §4.3's
// concurrency contract without reaching into storage internals.
type Session struct {
	shared.AggregateRoot

	id        string
	userID    string
	language  string
	createdAt time.Time
	expiresAt time.Time

	seen    map[string]struct{}
	active  []Suggestion
	history []HistoryEntry

	version int
}

// New creates a brand-new session owned by userID, empty of suggestions; callers populate
// Active via SetActive immediately after generation.
func New(id, userID, language string, now time.Time) *Session {
	return &Session{
		id:        id,
		userID:    userID,
		language:  language,
		createdAt: now,
		expiresAt: now.Add(TTL),
		seen:      make(map[string]struct{}),
		version:   1,
	}
}

// Rehydrate reconstructs a session from its persisted JSON representation.
func Rehydrate(id, userID, language string, createdAt, expiresAt time.Time, seen []string, active []Suggestion, history []HistoryEntry, version int) *Session {
	s := &Session{
		id:        id,
		userID:    userID,
		language:  language,
		createdAt: createdAt,
		expiresAt: expiresAt,
		seen:      make(map[string]struct{}, len(seen)),
		active:    active,
		history:   history,
		version:   version,
	}
	for _, fp := range seen {
		s.seen[fp] = struct{}{}
	}
	return s
}

func (s *Session) ID() string             { return s.id }
func (s *Session) UserID() string         { return s.userID }
func (s *Session) Language() string       { return s.language }
func (s *Session) CreatedAt() time.Time   { return s.createdAt }
func (s *Session) ExpiresAt() time.Time   { return s.expiresAt }
func (s *Session) Active() []Suggestion   { return s.active }
func (s *Session) History() []HistoryEntry { return s.history }
func (s *Session) Version() int           { return s.version }

// SeenFingerprints returns the set of fingerprints already shown, stable-sorted for prompt text.
func (s *Session) SeenFingerprints() []string {
	out := make([]string, 0, len(s.seen))
	for fp := range s.seen {
		out = append(out, fp)
	}
	sort.Strings(out)
	return out
}

func (s *Session) hasSeen(fp string) bool {
	_, ok := s.seen[fp]
	return ok
}

// IsExpired reports whether now has passed expiresAt, per §3.3's session-expiry invariant.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.expiresAt)
}

// OwnedBy implements the user-isolation check required before every session-scoped command.
func (s *Session) OwnedBy(userID string) bool {
	return s.userID == userID
}

// SetActive replaces the active set after a Generate or Regenerate call, marking each new
// suggestion's fingerprint as seen immediately so repeat regenerations never re-offer it.
func (s *Session) SetActive(suggestions []Suggestion) error {
	if len(suggestions) > MaxActive {
		return ErrTooManyActive
	}
	s.active = suggestions
	for _, sg := range suggestions {
		s.seen[sg.Fingerprint] = struct{}{}
	}
	s.version++
	return nil
}

// PrepareRegeneration moves the current active set into history as "shown without outcome"
// (§4.3's RegenerateSuggestions step) and returns it so the caller can build an "exclude these"
// prompt; the active set is left empty until the caller supplies new suggestions via SetActive.
func (s *Session) PrepareRegeneration(now time.Time) []Suggestion {
	shown := s.active
	for _, sg := range shown {
		s.history = append(s.history, HistoryEntry{
			Suggestion: sg,
			Outcome:    Outcome{Kind: OutcomeShown},
			At:         now,
		})
		s.seen[sg.Fingerprint] = struct{}{}
	}
	s.active = nil
	s.version++
	return shown
}

// Accept moves a suggestion_id out of active into history with outcome=accepted(multiplier),
// returning the accepted Suggestion so the caller can materialize a Meal scaled by multiplier.
func (s *Session) Accept(suggestionID string, multiplier int, now time.Time) (Suggestion, error) {
	if multiplier < MinMultiplier || multiplier > MaxMultiplier {
		return Suggestion{}, ErrInvalidMultiplier
	}
	idx, sg, ok := s.findActive(suggestionID)
	if !ok {
		return Suggestion{}, ErrSuggestionNotActive
	}
	s.removeActive(idx)
	s.history = append(s.history, HistoryEntry{
		Suggestion: sg,
		Outcome:    Outcome{Kind: OutcomeAccepted, Multiplier: multiplier},
		At:         now,
	})
	s.version++
	return sg, nil
}

// Reject moves a suggestion_id out of active into history with outcome=rejected(reason), adds
// its fingerprint to seen, and raises Rejected for downstream model-tuning subscribers.
func (s *Session) Reject(suggestionID string, reason *string, now time.Time) error {
	idx, sg, ok := s.findActive(suggestionID)
	if !ok {
		return ErrSuggestionNotActive
	}
	s.removeActive(idx)
	s.seen[sg.Fingerprint] = struct{}{}
	s.history = append(s.history, HistoryEntry{
		Suggestion: sg,
		Outcome:    Outcome{Kind: OutcomeRejected, Reason: reason},
		At:         now,
	})
	s.version++

	s.AddEvent(Rejected{
		SessionID:   s.id,
		Fingerprint: sg.Fingerprint,
		Reason:      reason,
		At:          now,
	})
	return nil
}

func (s *Session) findActive(suggestionID string) (int, Suggestion, bool) {
	for i, sg := range s.active {
		if sg.SuggestionID == suggestionID {
			return i, sg, true
		}
	}
	return 0, Suggestion{}, false
}

func (s *Session) removeActive(idx int) {
	s.active = append(s.active[:idx], s.active[idx+1:]...)
}
