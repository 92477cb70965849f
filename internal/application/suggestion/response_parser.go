package suggestion

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/alchemorsel/nutricore/internal/domain/suggestion"
)

// ErrUnparsableResponse signals the model's suggestion response could not be parsed even after
// the §4.2.2-style repair cascade.
var ErrUnparsableResponse = errors.New("suggestion response could not be parsed")

type generationResponse struct {
	Items []generationItem `json:"items"`
}

type generationItem struct {
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	PortionType          string   `json:"portion_type"`
	Calories             float64  `json:"calories"`
	Protein              float64  `json:"protein"`
	Carbs                float64  `json:"carbs"`
	Fat                  float64  `json:"fat"`
	DietaryFlags         []string `json:"dietary_flags"`
	PrincipalIngredients []string `json:"principal_ingredients"`
}

var suggestionCodeFenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseGenerationResponse applies the §4.2.2-style tolerant parse cascade (direct parse, strip
// markdown fencing, the span from the first '{' to the last '}') to a suggestion-generation
// model response.
func ParseGenerationResponse(raw string) ([]suggestion.Suggestion, error) {
	candidates := []string{raw}
	if m := suggestionCodeFenceRE.FindStringSubmatch(raw); len(m) == 2 {
		candidates = append(candidates, m[1])
	}
	if start := strings.IndexByte(raw, '{'); start >= 0 {
		if end := strings.LastIndexByte(raw, '}'); end > start {
			candidates = append(candidates, raw[start:end+1])
		}
	}

	for _, c := range candidates {
		var resp generationResponse
		if err := json.Unmarshal([]byte(c), &resp); err == nil && len(resp.Items) > 0 {
			return toSuggestions(resp.Items), nil
		}
	}
	return nil, ErrUnparsableResponse
}

func toSuggestions(items []generationItem) []suggestion.Suggestion {
	out := make([]suggestion.Suggestion, 0, len(items))
	for _, it := range items {
		out = append(out, suggestion.Suggestion{
			SuggestionID: newSuggestionID(),
			Fingerprint:  suggestion.Fingerprint(it.Name, it.PrincipalIngredients),
			Name:         it.Name,
			Description:  it.Description,
			MacroEstimate: suggestion.MacroEstimate{
				Calories: it.Calories, Protein: it.Protein, Carbs: it.Carbs, Fat: it.Fat,
			},
			PortionType:          it.PortionType,
			Source:               suggestion.SourceModel,
			DietaryFlags:         it.DietaryFlags,
			PrincipalIngredients: it.PrincipalIngredients,
		})
	}
	return out
}
