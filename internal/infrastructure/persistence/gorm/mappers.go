// Package gorm provides mapping between domain entities and GORM models.
package gorm

import (
	"encoding/json"

	"github.com/alchemorsel/nutricore/internal/domain/chat"
	"github.com/alchemorsel/nutricore/internal/domain/meal"
	"github.com/alchemorsel/nutricore/internal/domain/user"
	"github.com/google/uuid"
)

// nutritionJSON is the wire shape persisted for meal.Nutrition; meal's fields are unexported so
// the mapper owns its own serializable mirror rather than reaching into the aggregate directly.
type nutritionJSON struct {
	Calories        float64  `json:"calories"`
	ProteinGrams    float64  `json:"protein_grams"`
	CarbsGrams      float64  `json:"carbs_grams"`
	FatGrams        float64  `json:"fat_grams"`
	FiberGrams      *float64 `json:"fiber_grams,omitempty"`
	ConfidenceScore float64  `json:"confidence_score"`
}

type foodItemJSON struct {
	Name       string   `json:"name"`
	Quantity   float64  `json:"quantity"`
	Unit       string   `json:"unit"`
	FdcID      *string  `json:"fdc_id,omitempty"`
	IsCustom   bool     `json:"is_custom"`
	Calories   float64  `json:"calories"`
	Protein    float64  `json:"protein"`
	Carbs      float64  `json:"carbs"`
	Fat        float64  `json:"fat"`
	Fiber      *float64 `json:"fiber,omitempty"`
	Provenance string   `json:"provenance"`
}

func toNutritionJSON(n meal.Nutrition) nutritionJSON {
	return nutritionJSON{
		Calories:        n.Calories,
		ProteinGrams:    n.ProteinGrams,
		CarbsGrams:      n.CarbsGrams,
		FatGrams:        n.FatGrams,
		FiberGrams:      n.FiberGrams,
		ConfidenceScore: n.ConfidenceScore,
	}
}

func fromNutritionJSON(j nutritionJSON) meal.Nutrition {
	return meal.Nutrition{
		Calories:        j.Calories,
		ProteinGrams:    j.ProteinGrams,
		CarbsGrams:      j.CarbsGrams,
		FatGrams:        j.FatGrams,
		FiberGrams:      j.FiberGrams,
		ConfidenceScore: j.ConfidenceScore,
	}
}

func toFoodItemJSON(item meal.FoodItem) foodItemJSON {
	return foodItemJSON{
		Name:       item.Name,
		Quantity:   item.Quantity,
		Unit:       item.Unit,
		FdcID:      item.FdcID,
		IsCustom:   item.IsCustom,
		Calories:   item.Calories,
		Protein:    item.Protein,
		Carbs:      item.Carbs,
		Fat:        item.Fat,
		Fiber:      item.Fiber,
		Provenance: string(item.Provenance),
	}
}

func fromFoodItemJSON(j foodItemJSON) meal.FoodItem {
	return meal.FoodItem{
		Name:       j.Name,
		Quantity:   j.Quantity,
		Unit:       j.Unit,
		FdcID:      j.FdcID,
		IsCustom:   j.IsCustom,
		Calories:   j.Calories,
		Protein:    j.Protein,
		Carbs:      j.Carbs,
		Fat:        j.Fat,
		Fiber:      j.Fiber,
		Provenance: meal.Provenance(j.Provenance),
	}
}

// MealToModel converts a domain Meal into its persisted row.
func MealToModel(m *meal.Meal) (*MealModel, error) {
	items := make([]foodItemJSON, 0, len(m.FoodItems()))
	for _, it := range m.FoodItems() {
		items = append(items, toFoodItemJSON(it))
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}

	var nutritionJSONBytes []byte
	if n := m.Nutrition(); n != nil {
		nutritionJSONBytes, err = json.Marshal(toNutritionJSON(*n))
		if err != nil {
			return nil, err
		}
	}

	return &MealModel{
		ID:           m.ID(),
		UserID:       m.UserID(),
		Status:       string(m.Status()),
		Strategy:     string(m.Strategy()),
		DishName:     m.DishName(),
		ImageRef:     m.ImageRef(),
		ErrorMessage: m.ErrorMessage(),
		Nutrition:    nutritionJSONBytes,
		FoodItems:    itemsJSON,
		ConsumedAt:   m.ConsumedAt(),
		ReadyAt:      m.ReadyAt(),
		EditCount:    m.EditCount(),
		LastEditedAt: m.LastEditedAt(),
		CreatedAt:    m.CreatedAt(),
		UpdatedAt:    m.UpdatedAt(),
	}, nil
}

// ModelToMeal reconstructs a domain Meal from its persisted row via meal.Rehydrate.
func ModelToMeal(row *MealModel) (*meal.Meal, error) {
	var itemsJSON []foodItemJSON
	if len(row.FoodItems) > 0 {
		if err := json.Unmarshal(row.FoodItems, &itemsJSON); err != nil {
			return nil, err
		}
	}
	items := make([]meal.FoodItem, 0, len(itemsJSON))
	for _, j := range itemsJSON {
		items = append(items, fromFoodItemJSON(j))
	}

	var nutrition *meal.Nutrition
	if len(row.Nutrition) > 0 {
		var nj nutritionJSON
		if err := json.Unmarshal(row.Nutrition, &nj); err != nil {
			return nil, err
		}
		n := fromNutritionJSON(nj)
		nutrition = &n
	}

	return meal.Rehydrate(
		row.ID, row.UserID,
		meal.Status(row.Status),
		meal.AnalysisStrategy(row.Strategy),
		row.DishName, row.ImageRef, row.ErrorMessage,
		nutrition, items,
		row.ConsumedAt, row.ReadyAt,
		row.EditCount, row.LastEditedAt,
		row.CreatedAt, row.UpdatedAt,
	), nil
}

// UserToModel converts a domain User into its persisted row.
func UserToModel(u *user.User) *UserModel {
	p := u.Profile()
	return &UserModel{
		ID:                 u.ID(),
		Email:              u.Email(),
		AgeYears:           p.AgeYears,
		Sex:                string(p.Sex),
		HeightCM:           p.HeightCM,
		WeightKG:           p.WeightKG,
		BodyFatPct:         p.BodyFatPct,
		Activity:           string(p.Activity),
		Goal:               string(p.Goal),
		TargetWeightKG:     p.TargetWeightKG,
		Timezone:           p.Timezone,
		Language:           p.Language,
		DietaryPreferences: p.DietaryPreferences,
		Allergies:          p.Allergies,
		CreatedAt:          u.CreatedAt(),
		UpdatedAt:          u.UpdatedAt(),
	}
}

// ModelToUser reconstructs a domain User from its persisted row.
func ModelToUser(row *UserModel) *user.User {
	profile := user.Profile{
		AgeYears:           row.AgeYears,
		Sex:                user.Sex(row.Sex),
		HeightCM:           row.HeightCM,
		WeightKG:           row.WeightKG,
		BodyFatPct:         row.BodyFatPct,
		Activity:           user.ActivityLevel(row.Activity),
		Goal:               user.Goal(row.Goal),
		TargetWeightKG:     row.TargetWeightKG,
		Timezone:           row.Timezone,
		Language:           row.Language,
		DietaryPreferences: []string(row.DietaryPreferences),
		Allergies:          []string(row.Allergies),
	}
	return user.Rehydrate(row.ID, row.Email, profile, row.CreatedAt, row.UpdatedAt)
}

// NotificationPrefsToModel converts domain prefs into their persisted row.
func NotificationPrefsToModel(userID uuid.UUID, p user.NotificationPrefs) *NotificationPrefsModel {
	return &NotificationPrefsModel{
		UserID:               userID,
		NotificationsEnabled: p.NotificationsEnabled,
		MealsEnabled:         p.MealsEnabled,
		BreakfastMinute:      p.BreakfastMinute,
		LunchMinute:          p.LunchMinute,
		DinnerMinute:         p.DinnerMinute,
		WaterEnabled:         p.WaterEnabled,
		WaterIntervalHours:   p.WaterIntervalHours,
		SleepEnabled:         p.SleepEnabled,
		SleepMinute:          p.SleepMinute,
		ProgressEnabled:      p.ProgressEnabled,
		ReEngagementEnabled:  p.ReEngagementEnabled,
	}
}

// ModelToNotificationPrefs reconstructs domain prefs from the persisted row.
func ModelToNotificationPrefs(row *NotificationPrefsModel) user.NotificationPrefs {
	return user.NotificationPrefs{
		UserID:               row.UserID.String(),
		NotificationsEnabled: row.NotificationsEnabled,
		MealsEnabled:         row.MealsEnabled,
		BreakfastMinute:      row.BreakfastMinute,
		LunchMinute:          row.LunchMinute,
		DinnerMinute:         row.DinnerMinute,
		WaterEnabled:         row.WaterEnabled,
		WaterIntervalHours:   row.WaterIntervalHours,
		SleepEnabled:         row.SleepEnabled,
		SleepMinute:          row.SleepMinute,
		ProgressEnabled:      row.ProgressEnabled,
		ReEngagementEnabled:  row.ReEngagementEnabled,
	}
}

// FcmTokenToModel converts a domain FcmToken into its persisted row.
func FcmTokenToModel(userID uuid.UUID, t user.FcmToken) *FcmTokenModel {
	return &FcmTokenModel{
		Token:      t.Token,
		UserID:     userID,
		Platform:   string(t.Platform),
		IsActive:   t.IsActive,
		LastUsedAt: t.LastUsedAt,
	}
}

// ModelToFcmToken reconstructs a domain FcmToken from the persisted row.
func ModelToFcmToken(row *FcmTokenModel) user.FcmToken {
	return user.FcmToken{
		Token:      row.Token,
		UserID:     row.UserID.String(),
		Platform:   user.Platform(row.Platform),
		IsActive:   row.IsActive,
		LastUsedAt: row.LastUsedAt,
	}
}

type chatMessageJSON struct {
	Role        string `json:"role"`
	Content     string `json:"content"`
	CreatedAt   string `json:"created_at"`
	Interrupted bool   `json:"interrupted,omitempty"`
}

// ChatThreadToModel converts a domain Thread into its persisted row.
func ChatThreadToModel(t *chat.Thread) (*ChatThreadModel, error) {
	msgs := make([]chatMessageJSON, 0, len(t.Messages()))
	for _, m := range t.Messages() {
		msgs = append(msgs, chatMessageJSON{
			Role:        string(m.Role),
			Content:     m.Content,
			CreatedAt:   m.CreatedAt.Format(timeLayout),
			Interrupted: m.Interrupted,
		})
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, err
	}
	return &ChatThreadModel{
		ID:        t.ID(),
		UserID:    t.UserID(),
		Status:    string(t.Status()),
		Messages:  data,
		CreatedAt: t.CreatedAt(),
		UpdatedAt: t.UpdatedAt(),
	}, nil
}

// ModelToChatThread reconstructs a domain Thread from its persisted row.
func ModelToChatThread(row *ChatThreadModel) (*chat.Thread, error) {
	var raw []chatMessageJSON
	if len(row.Messages) > 0 {
		if err := json.Unmarshal(row.Messages, &raw); err != nil {
			return nil, err
		}
	}
	msgs := make([]chat.Message, 0, len(raw))
	for _, j := range raw {
		createdAt, err := parseTime(j.CreatedAt)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, chat.Message{
			Role:        chat.Role(j.Role),
			Content:     j.Content,
			CreatedAt:   createdAt,
			Interrupted: j.Interrupted,
		})
	}
	return chat.Rehydrate(row.ID, row.UserID, chat.Status(row.Status), msgs, row.CreatedAt, row.UpdatedAt), nil
}
