package repos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/types"
)

// IngredientPair is an unordered ingredient id pair to look up.
type IngredientPair struct {
	A uuid.UUID
	B uuid.UUID
}

type ConflictRuleRepo interface {
	// GetByPairs returns every rule matching any of the given pairs in
	// either column order. Callers batch large pair lists; one call here
	// issues exactly one query.
	GetByPairs(ctx context.Context, tx *gorm.DB, pairs []IngredientPair) ([]*types.IngredientConflictRule, error)
}

type conflictRuleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConflictRuleRepo(db *gorm.DB, baseLog *logger.Logger) ConflictRuleRepo {
	return &conflictRuleRepo{db: db, log: baseLog.With("repo", "ConflictRuleRepo")}
}

func (cr *conflictRuleRepo) GetByPairs(ctx context.Context, tx *gorm.DB, pairs []IngredientPair) ([]*types.IngredientConflictRule, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var results []*types.IngredientConflictRule
	if len(pairs) == 0 {
		return results, nil
	}

	// One predicate per column order so (a,b) rules are found when the
	// caller asks about (b,a).
	var cond strings.Builder
	args := make([]interface{}, 0, len(pairs)*4)
	for i, p := range pairs {
		if i > 0 {
			cond.WriteString(" OR ")
		}
		cond.WriteString("(ingredient_a_id = ? AND ingredient_b_id = ?) OR (ingredient_a_id = ? AND ingredient_b_id = ?)")
		args = append(args, p.A, p.B, p.B, p.A)
	}

	if err := transaction.WithContext(ctx).
		Preload("IngredientA").
		Preload("IngredientB").
		Where(cond.String(), args...).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
