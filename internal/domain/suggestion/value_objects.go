package suggestion

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Source reports whether a Suggestion came from the model or the deterministic fallback library.
type Source string

const (
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// MacroEstimate is the suggested meal's estimated macro content at 1x portion.
type MacroEstimate struct {
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
}

// Scale multiplies the estimate by an integer portion multiplier (§4.3's accept operation).
func (m MacroEstimate) Scale(multiplier int) MacroEstimate {
	f := float64(multiplier)
	return MacroEstimate{
		Calories: m.Calories * f,
		Protein:  m.Protein * f,
		Carbs:    m.Carbs * f,
		Fat:      m.Fat * f,
	}
}

// Suggestion is a single AI- or fallback-generated meal suggestion.
type Suggestion struct {
	SuggestionID         string
	Fingerprint          string
	Name                 string
	Description          string
	MacroEstimate        MacroEstimate
	PortionType          string
	Source               Source
	DietaryFlags         []string
	PrincipalIngredients []string
}

// Fingerprint computes the stable content hash of §4.3.1:
// stable_hash(lower(name) ‖ sorted(principal_ingredients)).
func Fingerprint(name string, principalIngredients []string) string {
	sorted := append([]string(nil), principalIngredients...)
	sort.Strings(sorted)
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(name))))
	for _, ing := range sorted {
		h.Write([]byte("|"))
		h.Write([]byte(strings.ToLower(strings.TrimSpace(ing))))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// OutcomeKind enumerates how a shown suggestion was resolved.
type OutcomeKind string

const (
	OutcomeAccepted OutcomeKind = "accepted"
	OutcomeRejected OutcomeKind = "rejected"
	OutcomeShown    OutcomeKind = "shown" // regenerated away without an explicit accept/reject
)

// Outcome is a sum-type value recording how a suggestion left the active set.
type Outcome struct {
	Kind       OutcomeKind
	Multiplier int     // set when Kind == OutcomeAccepted
	Reason     *string // optionally set when Kind == OutcomeRejected
}
