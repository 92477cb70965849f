package suggestion

import (
	"github.com/alchemorsel/nutricore/internal/domain/suggestion"
	"github.com/alchemorsel/nutricore/internal/ports/inbound"
)

func toSuggestionDTO(sg suggestion.Suggestion) inbound.SuggestionDTO {
	return inbound.SuggestionDTO{
		SuggestionID: sg.SuggestionID,
		Name:         sg.Name,
		Description:  sg.Description,
		MacroEstimate: inbound.MacroEstimateDTO{
			Calories: sg.MacroEstimate.Calories,
			Protein:  sg.MacroEstimate.Protein,
			Carbs:    sg.MacroEstimate.Carbs,
			Fat:      sg.MacroEstimate.Fat,
		},
		PortionType:          sg.PortionType,
		Source:               sg.Source,
		DietaryFlags:         sg.DietaryFlags,
		PrincipalIngredients: sg.PrincipalIngredients,
	}
}

func toSessionDTO(sess *suggestion.Session) inbound.SuggestionSessionDTO {
	active := make([]inbound.SuggestionDTO, 0, len(sess.Active()))
	for _, sg := range sess.Active() {
		active = append(active, toSuggestionDTO(sg))
	}
	return inbound.SuggestionSessionDTO{
		SessionID: sess.ID(),
		UserID:    sess.UserID(),
		Language:  sess.Language(),
		CreatedAt: sess.CreatedAt(),
		ExpiresAt: sess.ExpiresAt(),
		Active:    active,
	}
}

func toHistoryDTO(h suggestion.HistoryEntry) inbound.SuggestionHistoryEntryDTO {
	return inbound.SuggestionHistoryEntryDTO{
		Suggestion: toSuggestionDTO(h.Suggestion),
		Outcome:    string(h.Outcome.Kind),
		Multiplier: h.Outcome.Multiplier,
		Reason:     h.Outcome.Reason,
		At:         h.At,
	}
}
