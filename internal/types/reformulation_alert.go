package types

import (
	"time"

	"github.com/google/uuid"
)

// UserReformulationAlert notifies one user about one formulation change.
// Created unseen/undismissed, flipped to seen the first time it is listed,
// dismissed only by explicit user action. Rows are never deleted.
type UserReformulationAlert struct {
	ID                   uuid.UUID                  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID                  `gorm:"type:uuid;not null;index:idx_alert_tuple,unique" json:"user_id"`
	User                 *User                      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ProductID            uuid.UUID                  `gorm:"type:uuid;not null;index:idx_alert_tuple,unique" json:"product_id"`
	Product              *Product                   `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProductID;references:ID" json:"product,omitempty"`
	FormulationHistoryID uuid.UUID                  `gorm:"type:uuid;not null;index:idx_alert_tuple,unique" json:"formulation_history_id"`
	FormulationHistory   *ProductFormulationHistory `gorm:"constraint:OnDelete:CASCADE;foreignKey:FormulationHistoryID;references:ID" json:"formulation_history,omitempty"`
	Seen                 bool                       `gorm:"column:seen;not null;default:false" json:"seen"`
	Dismissed            bool                       `gorm:"column:dismissed;not null;default:false" json:"dismissed"`
	CreatedAt            time.Time                  `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time                  `gorm:"not null" json:"updated_at"`
}

func (UserReformulationAlert) TableName() string { return "user_reformulation_alert" }
