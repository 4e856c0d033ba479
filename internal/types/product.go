package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	CategoryCleanser      = "cleanser"
	CategoryToner         = "toner"
	CategoryEssence       = "essence"
	CategorySerum         = "serum"
	CategoryAmpoule       = "ampoule"
	CategoryEyeCare       = "eye_care"
	CategoryMoisturizer   = "moisturizer"
	CategoryOil           = "oil"
	CategoryExfoliator    = "exfoliator"
	CategoryMist          = "mist"
	CategoryLipCare       = "lip_care"
	CategorySpotTreatment = "spot_treatment"
	CategorySunscreen     = "sunscreen"
	CategoryMask          = "mask"
)

var ProductCategories = []string{
	CategoryCleanser, CategoryToner, CategoryEssence, CategorySerum,
	CategoryAmpoule, CategoryEyeCare, CategoryMoisturizer, CategoryOil,
	CategoryExfoliator, CategoryMist, CategoryLipCare, CategorySpotTreatment,
	CategorySunscreen, CategoryMask,
}

func IsValidCategory(category string) bool {
	for _, c := range ProductCategories {
		if c == category {
			return true
		}
	}
	return false
}

type Product struct {
	ID                         uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	Name                       string              `gorm:"column:name;not null;index" json:"name"`
	Brand                      string              `gorm:"column:brand;index" json:"brand"`
	Category                   string              `gorm:"column:category;not null;index" json:"category"`
	CurrentFormulationVersion  int                 `gorm:"column:current_formulation_version;not null;default:1" json:"current_formulation_version"`
	LastReformulatedAt         *time.Time          `gorm:"column:last_reformulated_at" json:"last_reformulated_at,omitempty"`
	Ingredients                []ProductIngredient `gorm:"foreignKey:ProductID;references:ID" json:"ingredients,omitempty"`
	CreatedAt                  time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt                  time.Time           `gorm:"not null" json:"updated_at"`
}

func (Product) TableName() string { return "product" }

// ProductIngredient is one entry of a product's ordered INCI label list.
// Position is 1-based, in printed label order. Concentration is known for
// only a minority of products.
type ProductIngredient struct {
	ID               uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID        uuid.UUID   `gorm:"type:uuid;not null;index:idx_product_ingredient,unique" json:"product_id"`
	IngredientID     uuid.UUID   `gorm:"type:uuid;not null;index:idx_product_ingredient,unique" json:"ingredient_id"`
	Ingredient       *Ingredient `gorm:"constraint:OnDelete:CASCADE;foreignKey:IngredientID;references:ID" json:"ingredient,omitempty"`
	Position         int         `gorm:"column:position;not null" json:"position"`
	ConcentrationPct *float64    `gorm:"column:concentration_pct" json:"concentration_pct,omitempty"`
	CreatedAt        time.Time   `gorm:"not null" json:"created_at"`
}

func (ProductIngredient) TableName() string { return "product_ingredient" }
