package suggestion

import (
	"context"
	"testing"
	"time"

	domainsuggestion "github.com/alchemorsel/nutricore/internal/domain/suggestion"
	"github.com/alchemorsel/nutricore/internal/ports/inbound"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectFallback_FiltersByDietaryFlags(t *testing.T) {
	out := SelectFallback("user-1", []string{"vegan"}, nil, 5)
	require.NotEmpty(t, out)
	for _, sg := range out {
		hasVegan := false
		for _, f := range sg.DietaryFlags {
			if f == "vegan" {
				hasVegan = true
			}
		}
		assert.True(t, hasVegan, "suggestion %q missing required vegan flag", sg.Name)
	}
}

func TestSelectFallback_ExcludesSeenFingerprints(t *testing.T) {
	first := SelectFallback("user-1", nil, nil, 3)
	require.Len(t, first, 3)

	seen := map[string]bool{}
	for _, sg := range first {
		seen[sg.Fingerprint] = true
	}

	second := SelectFallback("user-1", nil, seen, 3)
	for _, sg := range second {
		assert.False(t, seen[sg.Fingerprint], "fallback re-served an already-seen suggestion: %s", sg.Name)
	}
}

func TestSelectFallback_IsDeterministicPerUser(t *testing.T) {
	a := SelectFallback("stable-user", nil, nil, 3)
	b := SelectFallback("stable-user", nil, nil, 3)
	require.Len(t, a, 3)
	require.Len(t, b, 3)
	for i := range a {
		assert.Equal(t, a[i].Name, b[i].Name)
	}
}

func TestSelectFallback_NoEligibleMeals_ReturnsNil(t *testing.T) {
	out := SelectFallback("user-1", []string{"no_such_diet"}, nil, 3)
	assert.Nil(t, out)
}

// TestGenerateSuggestions_GenerationTimesOutViaCallerDeadline_FallsBack exercises the
// generationTimeout wiring (WithTimeout wraps the caller's ctx, so a caller deadline shorter than
// the 45s cap still governs) without waiting out the real 45 seconds.
func TestGenerateSuggestions_GenerationTimesOutViaCallerDeadline_FallsBack(t *testing.T) {
	store := newFakeSessionStore()
	users := &fakeUserRepo{profile: testProfile()}
	chat := &fakeChatModel{response: validGenerationResponse(), delay: 50 * time.Millisecond}
	svc := newTestService(t, store, users, chat, &fakeMealService{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	dto, err := svc.GenerateSuggestions(ctx, inbound.GenerateSuggestionsCommand{
		UserID: uuid.New().String(), Language: "en", Count: 3,
	})
	require.NoError(t, err)
	require.Len(t, dto.Active, 3)
	for _, sg := range dto.Active {
		assert.Equal(t, domainsuggestion.SourceFallback, sg.Source)
	}
}
