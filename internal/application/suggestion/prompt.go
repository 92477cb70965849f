package suggestion

import (
	"fmt"
	"strings"

	"github.com/alchemorsel/nutricore/internal/domain/user"
)

// languageNames implements the fixed ISO-639-1 -> name map of §4.3.2; an unknown code falls back
// to English.
var languageNames = map[string]string{
	"en": "English",
	"vi": "Vietnamese",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"ja": "Japanese",
	"zh": "Chinese",
}

// LanguageName resolves an ISO-639-1 code to its display name, defaulting to English.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return "English"
}

// BuildPrompt assembles the suggestion-generation prompt of §4.3.2: goal and macro ratios,
// dietary hard constraints, language, and an avoid-list that joins avoidNames as given.
func BuildPrompt(profile user.Profile, count int, avoidNames []string) string {
	ratio := user.MacroRatioFor(profile.Goal)

	var b strings.Builder
	fmt.Fprintf(&b, "Suggest %d balanced meals for a user pursuing goal %s (%+d kcal vs. maintenance).\n",
		count, profile.Goal, profile.Goal.KcalAdjustment())
	fmt.Fprintf(&b, "Target macro split: %d%% protein, %d%% carbs, %d%% fat.\n",
		ratio.ProteinPct, ratio.CarbPct, ratio.FatPct)

	if len(profile.DietaryPreferences) > 0 {
		fmt.Fprintf(&b, "Dietary preferences (hard constraints): %s.\n", strings.Join(profile.DietaryPreferences, ", "))
	}
	if len(profile.Allergies) > 0 {
		fmt.Fprintf(&b, "Allergies (must avoid): %s.\n", strings.Join(profile.Allergies, ", "))
	}

	fmt.Fprintf(&b, "Respond in %s.\n", LanguageName(profile.Language))

	if len(avoidNames) > 0 {
		fmt.Fprintf(&b, "Avoid suggesting meals similar to: %s.\n", strings.Join(avoidNames, "; "))
	}

	b.WriteString("Respond with strict JSON: {\"items\":[{\"name\":...,\"description\":...,")
	b.WriteString("\"portion_type\":...,\"calories\":...,\"protein\":...,\"carbs\":...,\"fat\":...,")
	b.WriteString("\"dietary_flags\":[...],\"principal_ingredients\":[...]}]}.")

	return b.String()
}
