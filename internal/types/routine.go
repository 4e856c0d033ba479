package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoutineTypeAM     = "am"
	RoutineTypePM     = "pm"
	RoutineTypeWeekly = "weekly"
)

func IsValidRoutineType(t string) bool {
	return t == RoutineTypeAM || t == RoutineTypePM || t == RoutineTypeWeekly
}

type Routine struct {
	ID        uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User            `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Type      string           `gorm:"column:type;not null" json:"type"`
	Name      string           `gorm:"column:name" json:"name"`
	Products  []RoutineProduct `gorm:"foreignKey:RoutineID;references:ID" json:"products,omitempty"`
	CreatedAt time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time        `gorm:"not null" json:"updated_at"`
}

func (Routine) TableName() string { return "routine" }

// RoutineProduct places a product at one step of a routine. StepOrder
// values within a routine are a dense 1..N sequence with no gaps or
// duplicates; any deletion renumbers survivors to keep that invariant.
type RoutineProduct struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoutineID uuid.UUID `gorm:"type:uuid;not null;index:idx_routine_product,unique" json:"routine_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index:idx_routine_product,unique" json:"product_id"`
	Product   *Product  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProductID;references:ID" json:"product,omitempty"`
	StepOrder int       `gorm:"column:step_order;not null" json:"step_order"`
	Frequency string    `gorm:"column:frequency;not null;default:'daily'" json:"frequency"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (RoutineProduct) TableName() string { return "routine_product" }
