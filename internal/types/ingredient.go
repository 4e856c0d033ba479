package types

import (
	"time"

	"github.com/google/uuid"
)

// Ingredient is immutable reference data maintained by catalog curation.
type Ingredient struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	INCIName          string    `gorm:"column:inci_name;uniqueIndex;not null" json:"inci_name"`
	DisplayName       string    `gorm:"column:display_name" json:"display_name"`
	FunctionTag       string    `gorm:"column:function_tag;index" json:"function_tag"`
	SafetyRating      int       `gorm:"column:safety_rating" json:"safety_rating"`
	ComedogenicRating int       `gorm:"column:comedogenic_rating" json:"comedogenic_rating"`
	IsFragrance       bool      `gorm:"column:is_fragrance;not null;default:false" json:"is_fragrance"`
	IsActive          bool      `gorm:"column:is_active;not null;default:false" json:"is_active"`
	CreatedAt         time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null" json:"updated_at"`
}

func (Ingredient) TableName() string { return "ingredient" }

// Name returns the label shown to users, falling back to the INCI name.
func (i *Ingredient) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.INCIName
}
