package suggestion

import (
	"hash/fnv"
	"sort"
	"strings"

	"github.com/alchemorsel/nutricore/internal/domain/suggestion"
	"github.com/google/uuid"
)

func newSuggestionID() string { return uuid.New().String() }

// fallbackMeal is one entry in the deterministic fallback library of §4.3.3.
type fallbackMeal struct {
	name                 string
	description          string
	macro                suggestion.MacroEstimate
	portionType          string
	dietaryFlags         []string
	principalIngredients []string
}

// fallbackLibrary holds >=30 balanced meals tagged by dietary flags, grounded on common
// nutrition-tracking seed data (oats, rice bowls, salads, wraps, stir-fries, across the
// vegetarian/vegan/gluten_free/dairy_free/pescatarian/omnivore spectrum).
var fallbackLibrary = buildFallbackLibrary()

func buildFallbackLibrary() []fallbackMeal {
	type seed struct {
		name        string
		description string
		cal, p, c, f float64
		portion     string
		flags       []string
		ingredients []string
	}
	seeds := []seed{
		{"Greek yogurt parfait", "Greek yogurt layered with berries and granola", 320, 22, 40, 8, "bowl", []string{"vegetarian", "gluten_free"}, []string{"greek yogurt", "berries", "granola"}},
		{"Oatmeal with banana and peanut butter", "Rolled oats topped with banana and peanut butter", 410, 14, 58, 14, "bowl", []string{"vegetarian", "vegan"}, []string{"oats", "banana", "peanut butter"}},
		{"Scrambled eggs with spinach", "Scrambled eggs with sauteed spinach and whole wheat toast", 380, 26, 28, 18, "plate", []string{"vegetarian"}, []string{"eggs", "spinach", "whole wheat bread"}},
		{"Grilled chicken breast with rice and broccoli", "Grilled chicken breast with steamed rice and broccoli", 520, 45, 55, 10, "plate", []string{"omnivore", "gluten_free"}, []string{"chicken breast", "rice", "broccoli"}},
		{"Salmon with quinoa and asparagus", "Baked salmon filet with quinoa and roasted asparagus", 540, 38, 42, 22, "plate", []string{"pescatarian", "gluten_free"}, []string{"salmon", "quinoa", "asparagus"}},
		{"Turkey and avocado wrap", "Sliced turkey, avocado, and greens in a whole wheat wrap", 460, 28, 40, 18, "wrap", []string{"omnivore"}, []string{"turkey", "avocado", "whole wheat wrap"}},
		{"Lentil soup with whole grain bread", "Slow-simmered lentil soup with a side of whole grain bread", 390, 20, 56, 8, "bowl", []string{"vegan", "vegetarian"}, []string{"lentils", "carrots", "whole grain bread"}},
		{"Tofu stir-fry with vegetables", "Pan-fried tofu with mixed vegetables in a light soy glaze", 410, 24, 36, 18, "bowl", []string{"vegan", "vegetarian", "dairy_free"}, []string{"tofu", "bell pepper", "broccoli"}},
		{"Beef and vegetable stir-fry", "Sliced beef stir-fried with mixed vegetables over rice", 560, 36, 58, 16, "bowl", []string{"omnivore"}, []string{"beef", "rice", "mixed vegetables"}},
		{"Shrimp tacos with cabbage slaw", "Grilled shrimp tacos topped with cabbage slaw and lime crema", 480, 30, 44, 18, "plate", []string{"pescatarian"}, []string{"shrimp", "corn tortilla", "cabbage"}},
		{"Chickpea salad bowl", "Chickpeas, cucumber, tomato, and feta over greens", 430, 18, 48, 16, "bowl", []string{"vegetarian", "gluten_free"}, []string{"chickpeas", "cucumber", "feta"}},
		{"Black bean and sweet potato bowl", "Roasted sweet potato and black beans over rice with salsa", 470, 16, 78, 8, "bowl", []string{"vegan", "vegetarian", "gluten_free"}, []string{"black beans", "sweet potato", "rice"}},
		{"Grilled salmon salad", "Grilled salmon over mixed greens with vinaigrette", 420, 34, 18, 24, "bowl", []string{"pescatarian", "gluten_free"}, []string{"salmon", "mixed greens", "vinaigrette"}},
		{"Chicken caesar salad", "Grilled chicken breast over romaine with caesar dressing", 450, 38, 18, 24, "bowl", []string{"omnivore"}, []string{"chicken breast", "romaine", "caesar dressing"}},
		{"Vegetable and hummus plate", "Raw vegetables, pita, and hummus", 380, 13, 48, 16, "plate", []string{"vegan", "vegetarian"}, []string{"hummus", "pita", "carrots"}},
		{"Protein smoothie bowl", "Protein powder smoothie topped with granola and fruit", 360, 30, 40, 8, "bowl", []string{"vegetarian", "gluten_free"}, []string{"protein powder", "banana", "granola"}},
		{"Baked cod with roasted vegetables", "Oven-baked cod with roasted root vegetables", 390, 32, 30, 12, "plate", []string{"pescatarian", "gluten_free", "dairy_free"}, []string{"cod", "carrots", "potatoes"}},
		{"Pork tenderloin with mashed potatoes", "Roasted pork tenderloin with mashed potatoes and green beans", 560, 40, 48, 20, "plate", []string{"omnivore", "gluten_free"}, []string{"pork tenderloin", "potatoes", "green beans"}},
		{"Veggie omelet", "Three-egg omelet with mushrooms, onions, and peppers", 360, 24, 12, 24, "plate", []string{"vegetarian", "gluten_free"}, []string{"eggs", "mushrooms", "bell pepper"}},
		{"Quinoa power bowl", "Quinoa, roasted vegetables, and tahini dressing", 440, 16, 56, 16, "bowl", []string{"vegan", "vegetarian", "gluten_free"}, []string{"quinoa", "roasted vegetables", "tahini"}},
		{"Grilled steak with sweet potato", "Grilled sirloin steak with baked sweet potato", 580, 42, 46, 22, "plate", []string{"omnivore", "gluten_free"}, []string{"sirloin steak", "sweet potato"}},
		{"Falafel wrap", "Baked falafel, lettuce, and tahini sauce in a pita wrap", 480, 16, 64, 16, "wrap", []string{"vegan", "vegetarian"}, []string{"falafel", "pita", "tahini"}},
		{"Tuna salad sandwich", "Tuna salad on whole wheat bread with lettuce and tomato", 420, 30, 38, 14, "sandwich", []string{"pescatarian"}, []string{"tuna", "whole wheat bread", "lettuce"}},
		{"Chicken fajita bowl", "Seasoned chicken and peppers over rice with salsa", 520, 38, 54, 14, "bowl", []string{"omnivore", "gluten_free"}, []string{"chicken breast", "bell pepper", "rice"}},
		{"Vegetable curry with rice", "Mixed vegetable curry in coconut sauce over rice", 470, 12, 66, 18, "bowl", []string{"vegan", "vegetarian", "gluten_free", "dairy_free"}, []string{"mixed vegetables", "coconut milk", "rice"}},
		{"Grilled chicken Cobb salad", "Grilled chicken, egg, bacon, and avocado over greens", 540, 40, 18, 34, "bowl", []string{"omnivore", "gluten_free"}, []string{"chicken breast", "egg", "avocado"}},
		{"Whole wheat pasta with marinara", "Whole wheat pasta tossed in marinara with parmesan", 480, 18, 78, 10, "bowl", []string{"vegetarian"}, []string{"whole wheat pasta", "marinara", "parmesan"}},
		{"Shrimp and vegetable skewers", "Grilled shrimp and vegetable skewers with brown rice", 430, 32, 42, 12, "plate", []string{"pescatarian", "gluten_free", "dairy_free"}, []string{"shrimp", "zucchini", "brown rice"}},
		{"Egg white veggie wrap", "Egg whites with spinach and tomato in a whole wheat wrap", 320, 26, 32, 8, "wrap", []string{"vegetarian"}, []string{"egg whites", "spinach", "whole wheat wrap"}},
		{"Grilled portobello burger", "Grilled portobello mushroom burger with avocado", 400, 14, 46, 18, "sandwich", []string{"vegan", "vegetarian", "dairy_free"}, []string{"portobello mushroom", "whole wheat bun", "avocado"}},
		{"Baked chicken thighs with green beans", "Baked chicken thighs with roasted green beans", 510, 36, 18, 34, "plate", []string{"omnivore", "gluten_free", "dairy_free"}, []string{"chicken thigh", "green beans"}},
		{"Cottage cheese and fruit bowl", "Cottage cheese with mixed fruit and almonds", 300, 26, 28, 10, "bowl", []string{"vegetarian", "gluten_free"}, []string{"cottage cheese", "mixed fruit", "almonds"}},
	}

	meals := make([]fallbackMeal, 0, len(seeds))
	for _, s := range seeds {
		meals = append(meals, fallbackMeal{
			name:                 s.name,
			description:          s.description,
			macro:                suggestion.MacroEstimate{Calories: s.cal, Protein: s.p, Carbs: s.c, Fat: s.f},
			portionType:          s.portion,
			dietaryFlags:         s.flags,
			principalIngredients: s.ingredients,
		})
	}
	return meals
}

// hasAllFlags reports whether a fallback meal satisfies every one of the user's hard dietary
// constraints (§4.3.3 step 1).
func (m fallbackMeal) hasAllFlags(required []string) bool {
	if len(required) == 0 {
		return true
	}
	has := make(map[string]struct{}, len(m.dietaryFlags))
	for _, f := range m.dietaryFlags {
		has[f] = struct{}{}
	}
	for _, want := range required {
		if _, ok := has[strings.ToLower(want)]; !ok {
			return false
		}
	}
	return true
}

// SelectFallback implements §4.3.3: filter by hard constraints, exclude seen fingerprints, then
// rotate the remaining candidates by a stable per-user hash so neighbouring users don't all see
// the same starting point.
func SelectFallback(userID string, dietaryFlags []string, seen map[string]bool, count int) []suggestion.Suggestion {
	var eligible []fallbackMeal
	for _, m := range fallbackLibrary {
		if !m.hasAllFlags(dietaryFlags) {
			continue
		}
		fp := suggestion.Fingerprint(m.name, m.principalIngredients)
		if seen[fp] {
			continue
		}
		eligible = append(eligible, m)
	}
	if len(eligible) == 0 {
		return nil
	}

	sort.Slice(eligible, func(i, j int) bool { return eligible[i].name < eligible[j].name })

	h := fnv.New64a()
	h.Write([]byte(userID))
	start := int(h.Sum64() % uint64(len(eligible)))

	if count > len(eligible) {
		count = len(eligible)
	}
	out := make([]suggestion.Suggestion, 0, count)
	for i := 0; i < count; i++ {
		m := eligible[(start+i)%len(eligible)]
		out = append(out, suggestion.Suggestion{
			SuggestionID:         newSuggestionID(),
			Fingerprint:          suggestion.Fingerprint(m.name, m.principalIngredients),
			Name:                 m.name,
			Description:          m.description,
			MacroEstimate:        m.macro,
			PortionType:          m.portionType,
			Source:               suggestion.SourceFallback,
			DietaryFlags:         m.dietaryFlags,
			PrincipalIngredients: m.principalIngredients,
		})
	}
	return out
}
