package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// IngredientConflictRule pairs two ingredients that should not be layered
// together. The pair is semantically unordered: at most one rule exists per
// unordered pair and lookups must check both column orders.
type IngredientConflictRule struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	IngredientAID  uuid.UUID   `gorm:"type:uuid;not null;index:idx_conflict_pair,unique" json:"ingredient_a_id"`
	IngredientA    *Ingredient `gorm:"constraint:OnDelete:CASCADE;foreignKey:IngredientAID;references:ID" json:"ingredient_a,omitempty"`
	IngredientBID  uuid.UUID   `gorm:"type:uuid;not null;index:idx_conflict_pair,unique" json:"ingredient_b_id"`
	IngredientB    *Ingredient `gorm:"constraint:OnDelete:CASCADE;foreignKey:IngredientBID;references:ID" json:"ingredient_b,omitempty"`
	Severity       string      `gorm:"column:severity;not null" json:"severity"`
	Description    string      `gorm:"column:description;type:text" json:"description"`
	Recommendation string      `gorm:"column:recommendation;type:text" json:"recommendation"`
	CreatedAt      time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"not null" json:"updated_at"`
}

func (IngredientConflictRule) TableName() string { return "ingredient_conflict_rule" }
