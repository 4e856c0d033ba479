package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/types"
)

type ProductRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Product, error)
	GetManyWithIngredients(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Product, error)
	// GetForUpdate loads the product row under a row lock where the
	// dialect supports one. Must run inside a transaction.
	GetForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Product, error)
	UpdateFormulationVersion(ctx context.Context, tx *gorm.DB, id uuid.UUID, version int, reformulatedAt time.Time) error
	IngredientIDs(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]uuid.UUID, error)
	IngredientIDsForProducts(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) ([]uuid.UUID, error)
	OrderedINCINames(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]string, error)
	ReplaceIngredients(ctx context.Context, tx *gorm.DB, productID uuid.UUID, entries []types.ProductIngredient) error
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return &productRepo{db: db, log: baseLog.With("repo", "ProductRepo")}
}

func (pr *productRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.Product
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *productRepo) GetManyWithIngredients(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Product, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var results []*types.Product
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Ingredients.Ingredient").
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *productRepo) GetForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Product, error) {
	if tx == nil {
		return nil, errors.New("GetForUpdate requires a transaction")
	}
	var result types.Product
	err := forUpdate(tx.WithContext(ctx)).
		Where("id = ?", id).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *productRepo) UpdateFormulationVersion(ctx context.Context, tx *gorm.DB, id uuid.UUID, version int, reformulatedAt time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_formulation_version": version,
			"last_reformulated_at":        reformulatedAt,
		}).Error
}

func (pr *productRepo) IngredientIDs(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]uuid.UUID, error) {
	return pr.IngredientIDsForProducts(ctx, tx, []uuid.UUID{productID})
}

func (pr *productRepo) IngredientIDsForProducts(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var ids []uuid.UUID
	if len(productIDs) == 0 {
		return ids, nil
	}
	if err := transaction.WithContext(ctx).
		Model(&types.ProductIngredient{}).
		Distinct("ingredient_id").
		Where("product_id IN ?", productIDs).
		Pluck("ingredient_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (pr *productRepo) OrderedINCINames(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]string, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	var names []string
	if err := transaction.WithContext(ctx).
		Model(&types.ProductIngredient{}).
		Joins("JOIN ingredient ON ingredient.id = product_ingredient.ingredient_id").
		Where("product_ingredient.product_id = ?", productID).
		Order("product_ingredient.position ASC").
		Pluck("ingredient.inci_name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func (pr *productRepo) ReplaceIngredients(ctx context.Context, tx *gorm.DB, productID uuid.UUID, entries []types.ProductIngredient) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}
	if err := transaction.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&types.ProductIngredient{}).Error; err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).Create(&entries).Error
}
