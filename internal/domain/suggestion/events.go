package suggestion

import "time"

// Rejected is raised whenever a shown suggestion is rejected, carrying its fingerprint forward
// for future model tuning (§4.3's RejectSuggestion operation). Subscribers may be a no-op logger.
type Rejected struct {
	SessionID   string
	Fingerprint string
	Reason      *string
	At          time.Time
}

func (e Rejected) EventName() string     { return "suggestion.rejected" }
func (e Rejected) OccurredAt() time.Time { return e.At }
