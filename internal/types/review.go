package types

import (
	"time"

	"github.com/google/uuid"
)

// ProductReview marks that a user has reviewed a product. Reviewers are
// part of the reformulation alert audience even when the product is not in
// any of their routines.
type ProductReview struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_review_user_product,unique" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index:idx_review_user_product,unique" json:"product_id"`
	Product   *Product  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProductID;references:ID" json:"product,omitempty"`
	Rating    int       `gorm:"column:rating;not null" json:"rating"`
	Comment   string    `gorm:"column:comment;type:text" json:"comment"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ProductReview) TableName() string { return "product_review" }
