package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/types"
)

type RoutineRepo interface {
	Create(ctx context.Context, tx *gorm.DB, routine *types.Routine) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Routine, error)
	GetWithProducts(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Routine, error)
	// GetForUpdate locks the routine row; step_order edits on a routine
	// are serialized through this lock.
	GetForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Routine, error)
	ListProducts(ctx context.Context, tx *gorm.DB, routineID uuid.UUID) ([]*types.RoutineProduct, error)
	AddProduct(ctx context.Context, tx *gorm.DB, rp *types.RoutineProduct) error
	SetStepOrder(ctx context.Context, tx *gorm.DB, routineProductID uuid.UUID, stepOrder int) error
	RemoveProduct(ctx context.Context, tx *gorm.DB, routineID, productID uuid.UUID) (int64, error)
	// UserIDsWithProduct returns the distinct users carrying productID in
	// any routine (reformulation fan-out audience).
	UserIDsWithProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]uuid.UUID, error)
}

type routineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoutineRepo(db *gorm.DB, baseLog *logger.Logger) RoutineRepo {
	return &routineRepo{db: db, log: baseLog.With("repo", "RoutineRepo")}
}

func (rr *routineRepo) Create(ctx context.Context, tx *gorm.DB, routine *types.Routine) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).Create(routine).Error
}

func (rr *routineRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Routine, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var result types.Routine
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *routineRepo) GetWithProducts(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Routine, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var result types.Routine
	err := transaction.WithContext(ctx).
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		Preload("Products.Product").
		Preload("Products.Product.Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Products.Product.Ingredients.Ingredient").
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

func (rr *routineRepo) GetForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Routine, error) {
	if tx == nil {
		return nil, errors.New("GetForUpdate requires a transaction")
	}
	var result types.Routine
	err := forUpdate(tx.WithContext(ctx)).Where("id = ?", id).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *routineRepo) ListProducts(ctx context.Context, tx *gorm.DB, routineID uuid.UUID) ([]*types.RoutineProduct, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var results []*types.RoutineProduct
	if err := transaction.WithContext(ctx).
		Preload("Product").
		Where("routine_id = ?", routineID).
		Order("step_order ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (rr *routineRepo) AddProduct(ctx context.Context, tx *gorm.DB, rp *types.RoutineProduct) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).Create(rp).Error
}

func (rr *routineRepo) SetStepOrder(ctx context.Context, tx *gorm.DB, routineProductID uuid.UUID, stepOrder int) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.RoutineProduct{}).
		Where("id = ?", routineProductID).
		Update("step_order", stepOrder).Error
}

func (rr *routineRepo) RemoveProduct(ctx context.Context, tx *gorm.DB, routineID, productID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	res := transaction.WithContext(ctx).
		Where("routine_id = ? AND product_id = ?", routineID, productID).
		Delete(&types.RoutineProduct{})
	return res.RowsAffected, res.Error
}

func (rr *routineRepo) UserIDsWithProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.RoutineProduct{}).
		Joins("JOIN routine ON routine.id = routine_product.routine_id").
		Distinct("routine.user_id").
		Where("routine_product.product_id = ?", productID).
		Pluck("routine.user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
