package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/types"
)

type ReformulationAlertRepo interface {
	Create(ctx context.Context, tx *gorm.DB, alert *types.UserReformulationAlert) error
	ExistsTuple(ctx context.Context, tx *gorm.DB, userID, productID, historyID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, includeDismissed bool) ([]*types.UserReformulationAlert, error)
	MarkSeen(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	GetByIDForUser(ctx context.Context, tx *gorm.DB, alertID, userID uuid.UUID) (*types.UserReformulationAlert, error)
	Dismiss(ctx context.Context, tx *gorm.DB, alertID uuid.UUID) error
}

type reformulationAlertRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReformulationAlertRepo(db *gorm.DB, baseLog *logger.Logger) ReformulationAlertRepo {
	return &reformulationAlertRepo{db: db, log: baseLog.With("repo", "ReformulationAlertRepo")}
}

func (ar *reformulationAlertRepo) Create(ctx context.Context, tx *gorm.DB, alert *types.UserReformulationAlert) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	return transaction.WithContext(ctx).Create(alert).Error
}

func (ar *reformulationAlertRepo) ExistsTuple(ctx context.Context, tx *gorm.DB, userID, productID, historyID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.UserReformulationAlert{}).
		Where("user_id = ? AND product_id = ? AND formulation_history_id = ?", userID, productID, historyID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ar *reformulationAlertRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, includeDismissed bool) ([]*types.UserReformulationAlert, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	query := transaction.WithContext(ctx).
		Preload("Product").
		Preload("FormulationHistory").
		Where("user_id = ?", userID)
	if !includeDismissed {
		query = query.Where("dismissed = ?", false)
	}
	var results []*types.UserReformulationAlert
	if err := query.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (ar *reformulationAlertRepo) MarkSeen(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.UserReformulationAlert{}).
		Where("id IN ?", ids).
		Update("seen", true).Error
}

func (ar *reformulationAlertRepo) GetByIDForUser(ctx context.Context, tx *gorm.DB, alertID, userID uuid.UUID) (*types.UserReformulationAlert, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var result types.UserReformulationAlert
	err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", alertID, userID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (ar *reformulationAlertRepo) Dismiss(ctx context.Context, tx *gorm.DB, alertID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	return transaction.WithContext(ctx).
		Model(&types.UserReformulationAlert{}).
		Where("id = ?", alertID).
		Update("dismissed", true).Error
}
