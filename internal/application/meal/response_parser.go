package meal

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrVisionRefused signals the vision model refused the request on safety grounds; the pipeline
// fails the meal with a fixed reason rather than treating this as a parse error (§4.2.2 step 6).
var ErrVisionRefused = errors.New("content_blocked")

// ErrUnparsableResponse signals every repair strategy was exhausted.
var ErrUnparsableResponse = errors.New("vision response could not be parsed")

// visionResponse is the wire shape the vision model is prompted to emit.
type visionResponse struct {
	DishName string             `json:"dish_name"`
	Items    []visionResponseItem `json:"items"`
}

type visionResponseItem struct {
	Name     string   `json:"name"`
	Quantity float64  `json:"quantity"`
	Unit     string   `json:"unit"`
	Calories float64  `json:"calories"`
	Protein  float64  `json:"protein"`
	Carbs    float64  `json:"carbs"`
	Fat      float64  `json:"fat"`
	Fiber    *float64 `json:"fiber,omitempty"`
}

var codeFenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

var refusalMarkers = []string{"content_blocked", "i can't help", "i cannot help", "safety", "unable to analyze this image"}

// ParseVisionResponse implements the §4.2.2 tolerant JSON-repair cascade: direct parse, strip
// markdown fencing, bracket-balance extraction, closing-bracket repair, drop trailing incomplete
// item. Refusals are detected before any parse attempt and surfaced as ErrVisionRefused, which
// the VisionModel adapter maps to meal.ErrContentBlocked.
func ParseVisionResponse(raw string) (dishName string, items []ParsedResponseItem, err error) {
	lower := strings.ToLower(raw)
	for _, marker := range refusalMarkers {
		if strings.Contains(lower, marker) {
			return "", nil, ErrVisionRefused
		}
	}

	candidates := []string{raw}

	if m := codeFenceRE.FindStringSubmatch(raw); len(m) == 2 {
		candidates = append(candidates, m[1])
	}

	if extracted, balanced := extractOutermostObject(raw); extracted != "" {
		if balanced {
			candidates = append(candidates, extracted)
		}
		if repaired, ok := repairUnbalanced(extracted); ok {
			candidates = append(candidates, repaired)
		}
		if trimmed, ok := dropTrailingIncompleteItem(extracted); ok {
			candidates = append(candidates, trimmed)
		}
	}

	for _, c := range candidates {
		var resp visionResponse
		dec := json.NewDecoder(strings.NewReader(c))
		if decErr := dec.Decode(&resp); decErr == nil {
			return resp.DishName, toParsedItems(resp.Items), nil
		}
	}

	return "", nil, ErrUnparsableResponse
}

// ParsedResponseItem is the intermediate shape produced by ParseVisionResponse, before
// conversion into the outbound.ParsedFoodItem shape the VisionModel port returns.
type ParsedResponseItem struct {
	Name     string
	Quantity float64
	Unit     string
	Calories float64
	Protein  float64
	Carbs    float64
	Fat      float64
	Fiber    *float64
}

func toParsedItems(items []visionResponseItem) []ParsedResponseItem {
	out := make([]ParsedResponseItem, 0, len(items))
	for _, it := range items {
		out = append(out, ParsedResponseItem{
			Name: it.Name, Quantity: it.Quantity, Unit: it.Unit,
			Calories: it.Calories, Protein: it.Protein, Carbs: it.Carbs, Fat: it.Fat, Fiber: it.Fiber,
		})
	}
	return out
}

// extractOutermostObject locates the outermost {...} span by bracket balance, ignoring braces
// inside string literals.
func extractOutermostObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return s[start:], false
}

// repairUnbalanced appends the closing brackets/braces an unbalanced fragment is missing, in
// reverse of the still-open sequence, per §4.2.2 step 4.
func repairUnbalanced(s string) (string, bool) {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) == 0 {
		return s, false
	}
	var buf bytes.Buffer
	buf.WriteString(s)
	for i := len(stack) - 1; i >= 0; i-- {
		buf.WriteByte(stack[i])
	}
	return buf.String(), true
}

// dropTrailingIncompleteItem removes the last element of the top-level "items" array when it is
// truncated mid-object, then re-closes the structure, per §4.2.2 step 5.
func dropTrailingIncompleteItem(s string) (string, bool) {
	idx := strings.LastIndex(s, "},{")
	if idx < 0 {
		return "", false
	}
	truncated := s[:idx+1]
	repaired, ok := repairUnbalanced(truncated)
	if !ok {
		return truncated + "]}", true
	}
	return repaired, true
}
