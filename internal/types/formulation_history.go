package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ChangeTypeMinor               = "minor"
	ChangeTypeMajor               = "major"
	ChangeTypeReformulation       = "reformulation"
	ChangeTypeDiscontinuedVariant = "discontinued_variant"
)

func IsValidChangeType(t string) bool {
	switch t {
	case ChangeTypeMinor, ChangeTypeMajor, ChangeTypeReformulation, ChangeTypeDiscontinuedVariant:
		return true
	}
	return false
}

const (
	DetectedByManual       = "manual"
	DetectedByAutomated    = "automated"
	DetectedByUserReported = "user_reported"
)

func IsValidDetectedBy(d string) bool {
	switch d {
	case DetectedByManual, DetectedByAutomated, DetectedByUserReported:
		return true
	}
	return false
}

// ProductFormulationHistory is an append-only record of one detected change
// to a product's ingredient list. Added/removed ingredients are stored by
// INCI name since detection can happen before a new ingredient exists as a
// catalog row. The owning product's current_formulation_version and
// last_reformulated_at always match the latest confirmed row.
type ProductFormulationHistory struct {
	ID                   uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID            uuid.UUID                   `gorm:"type:uuid;not null;index:idx_product_version,unique" json:"product_id"`
	Product              *Product                    `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProductID;references:ID" json:"product,omitempty"`
	VersionNumber        int                         `gorm:"column:version_number;not null;index:idx_product_version,unique" json:"version_number"`
	ChangeDate           time.Time                   `gorm:"column:change_date;not null" json:"change_date"`
	ChangeType           string                      `gorm:"column:change_type;not null" json:"change_type"`
	IngredientsAdded     datatypes.JSONSlice[string] `gorm:"column:ingredients_added" json:"ingredients_added"`
	IngredientsRemoved   datatypes.JSONSlice[string] `gorm:"column:ingredients_removed" json:"ingredients_removed"`
	IngredientsReordered bool                        `gorm:"column:ingredients_reordered;not null;default:false" json:"ingredients_reordered"`
	ChangeSummary        string                      `gorm:"column:change_summary;type:text" json:"change_summary"`
	DetectedBy           string                      `gorm:"column:detected_by;not null" json:"detected_by"`
	Confirmed            bool                        `gorm:"column:confirmed;not null;default:false" json:"confirmed"`
	CreatedAt            time.Time                   `gorm:"not null" json:"created_at"`
}

func (ProductFormulationHistory) TableName() string { return "product_formulation_history" }
