// Package gorm provides GORM model definitions and repository implementations for the core.
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MealModel is the GORM row for the meal aggregate (§3.1). FoodItems and Nutrition are stored
// as JSON columns since they are value objects owned exclusively by the meal, not independently
// queried rows.
type MealModel struct {
	ID           uuid.UUID  `gorm:"type:char(36);primaryKey"`
	UserID       uuid.UUID  `gorm:"type:char(36);not null;index"`
	Status       string     `gorm:"type:varchar(20);not null;index"`
	Strategy     string     `gorm:"type:varchar(30);not null"`
	DishName     *string    `gorm:"type:varchar(255)"`
	ImageRef     *string    `gorm:"type:text"`
	ErrorMessage *string    `gorm:"type:text"`
	Nutrition    JSONField  `gorm:"type:json"`
	FoodItems    JSONField  `gorm:"type:json"`
	ConsumedAt   time.Time  `gorm:"index"`
	ReadyAt      *time.Time
	EditCount    int        `gorm:"default:0"`
	LastEditedAt *time.Time
	CreatedAt    time.Time  `gorm:"index"`
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// BeforeCreate assigns a fresh id when the caller left it unset.
func (m *MealModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// UserModel is the GORM row for identity + physiology (§3.1's User/UserProfile).
type UserModel struct {
	ID                 uuid.UUID `gorm:"type:char(36);primaryKey"`
	Email              string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	AgeYears           int
	Sex                string  `gorm:"type:varchar(10)"`
	HeightCM           float64
	WeightKG           float64
	BodyFatPct         *float64
	Activity           string  `gorm:"type:varchar(20)"`
	Goal               string  `gorm:"type:varchar(10)"`
	TargetWeightKG     *float64
	Timezone           string  `gorm:"type:varchar(64);not null"`
	Language           string  `gorm:"type:varchar(10)"`
	DietaryPreferences StringSlice `gorm:"type:json"`
	Allergies          StringSlice `gorm:"type:json"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (u *UserModel) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// NotificationPrefsModel is the GORM row for a user's reminder configuration (§3.1).
type NotificationPrefsModel struct {
	UserID               uuid.UUID `gorm:"type:char(36);primaryKey"`
	NotificationsEnabled bool      `gorm:"default:true"`
	MealsEnabled         bool      `gorm:"default:true"`
	BreakfastMinute      int       `gorm:"default:480"`  // 08:00
	LunchMinute          int       `gorm:"default:720"`  // 12:00
	DinnerMinute         int       `gorm:"default:1140"` // 19:00
	WaterEnabled         bool      `gorm:"default:true"`
	WaterIntervalHours   int       `gorm:"default:2"`
	SleepEnabled         bool      `gorm:"default:false"`
	SleepMinute          int       `gorm:"default:1320"` // 22:00
	ProgressEnabled      bool      `gorm:"default:true"`
	ReEngagementEnabled  bool      `gorm:"default:true"`
	UpdatedAt            time.Time
}

// FcmTokenModel is the GORM row for a registered push-delivery endpoint.
type FcmTokenModel struct {
	Token      string    `gorm:"type:varchar(255);primaryKey"`
	UserID     uuid.UUID `gorm:"type:char(36);not null;index"`
	Platform   string    `gorm:"type:varchar(10)"`
	IsActive   bool      `gorm:"default:true;index"`
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// ChatThreadModel is the GORM row for a chat thread; messages are stored as an ordered JSON
// array since the thread, not the message, is the aggregate boundary (§3.2).
type ChatThreadModel struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID `gorm:"type:char(36);not null;index"`
	Status    string    `gorm:"type:varchar(20);not null"`
	Messages  JSONField `gorm:"type:json"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (t *ChatThreadModel) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// StringSlice is a custom type for storing string slices as a JSON column.
type StringSlice []string

// Scan implements the sql.Scanner interface.
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

// Value implements the driver.Valuer interface.
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	return json.Marshal(s)
}

// Float32Slice is a custom type for storing an embedding vector as a JSON array column; no pack
// library exposes a native pgvector column type, so vectors round-trip as JSON and similarity is
// scored in Go (see gorm/nutrition_index.go).
type Float32Slice []float32

// Scan implements the sql.Scanner interface.
func (f *Float32Slice) Scan(value interface{}) error {
	if value == nil {
		*f = Float32Slice{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return fmt.Errorf("cannot scan %T into Float32Slice", value)
	}
}

// Value implements the driver.Valuer interface.
func (f Float32Slice) Value() (driver.Value, error) {
	if len(f) == 0 {
		return "[]", nil
	}
	return json.Marshal(f)
}

// JSONField is a custom type for storing arbitrary structured data as a JSON column. Used for
// value objects (Nutrition, FoodItems, chat Messages) whose shape is owned by the domain package,
// not the persistence layer.
type JSONField []byte

// Scan implements the sql.Scanner interface.
func (j *JSONField) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append([]byte(nil), v...)
		return nil
	case string:
		*j = []byte(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into JSONField", value)
	}
}

// Value implements the driver.Valuer interface.
func (j JSONField) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "null", nil
	}
	return []byte(j), nil
}

// IngredientEmbeddingModel is a curated-ingredient row of the §4.4 two-index nutrition lookup.
type IngredientEmbeddingModel struct {
	ID        uuid.UUID    `gorm:"type:char(36);primaryKey"`
	Name      string       `gorm:"type:varchar(255);not null;index"`
	Embedding Float32Slice `gorm:"type:json;not null"`
	Calories  float64
	Protein   float64
	Carbs     float64
	Fat       float64
	Fiber     *float64
	CreatedAt time.Time
}

// BeforeCreate assigns a fresh id when the caller left it unset.
func (m *IngredientEmbeddingModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// UsdaEmbeddingModel is a USDA-reference row of the §4.4 two-index nutrition lookup, the lower-
// confidence fallback index.
type UsdaEmbeddingModel struct {
	ID        uuid.UUID    `gorm:"type:char(36);primaryKey"`
	Name      string       `gorm:"type:varchar(255);not null;index"`
	Embedding Float32Slice `gorm:"type:json;not null"`
	Calories  float64
	Protein   float64
	Carbs     float64
	Fat       float64
	Fiber     *float64
	CreatedAt time.Time
}

// BeforeCreate assigns a fresh id when the caller left it unset.
func (m *UsdaEmbeddingModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
