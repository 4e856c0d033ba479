package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/types"
)

type FormulationHistoryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.ProductFormulationHistory) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ProductFormulationHistory, error)
	ListByProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]*types.ProductFormulationHistory, error)
}

type formulationHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFormulationHistoryRepo(db *gorm.DB, baseLog *logger.Logger) FormulationHistoryRepo {
	return &formulationHistoryRepo{db: db, log: baseLog.With("repo", "FormulationHistoryRepo")}
}

func (fr *formulationHistoryRepo) Create(ctx context.Context, tx *gorm.DB, row *types.ProductFormulationHistory) error {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	return transaction.WithContext(ctx).Create(row).Error
}

func (fr *formulationHistoryRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ProductFormulationHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var result types.ProductFormulationHistory
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (fr *formulationHistoryRepo) ListByProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) ([]*types.ProductFormulationHistory, error) {
	transaction := tx
	if transaction == nil {
		transaction = fr.db
	}
	var results []*types.ProductFormulationHistory
	if err := transaction.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("version_number DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
