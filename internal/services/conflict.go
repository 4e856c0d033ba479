package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowlab/glowlab-backend/internal/apierr"
	rediscli "github.com/glowlab/glowlab-backend/internal/clients/redis"
	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/repos"
	"github.com/glowlab/glowlab-backend/internal/utils"
)

// DefaultConflictBatchSize keeps pair-lookup queries under backend
// predicate limits. Tunable via CONFLICT_BATCH_SIZE.
const DefaultConflictBatchSize = 200

// Conflict is one triggered rule resolved to ingredient display names.
// Severity is an opaque label passed through from the rule table.
type Conflict struct {
	RuleID         uuid.UUID `json:"rule_id"`
	IngredientA    string    `json:"ingredient_a"`
	IngredientB    string    `json:"ingredient_b"`
	Severity       string    `json:"severity"`
	Description    string    `json:"description"`
	Recommendation string    `json:"recommendation"`
}

type ConflictResult struct {
	Safe      bool       `json:"safe"`
	Conflicts []Conflict `json:"conflicts"`
}

// ConflictService detects unsafe ingredient combinations between products.
// Products with no known ingredient data are treated as conflict-free (an
// optimistic default, not a proof of safety). A rule table that cannot be
// reached fails the whole check closed; it is never reported as safe.
type ConflictService interface {
	CheckProductAgainstRoutine(ctx context.Context, routineID, productID uuid.UUID) (*ConflictResult, error)
	CheckWholeRoutine(ctx context.Context, routineID uuid.UUID) (*ConflictResult, error)
}

type conflictService struct {
	db          *gorm.DB
	log         *logger.Logger
	routineRepo repos.RoutineRepo
	productRepo repos.ProductRepo
	ruleRepo    repos.ConflictRuleRepo
	cache       rediscli.RulesCache
	batchSize   int
}

func NewConflictService(
	db *gorm.DB,
	log *logger.Logger,
	routineRepo repos.RoutineRepo,
	productRepo repos.ProductRepo,
	ruleRepo repos.ConflictRuleRepo,
	cache rediscli.RulesCache,
	batchSize int,
) ConflictService {
	if batchSize <= 0 {
		batchSize = DefaultConflictBatchSize
	}
	return &conflictService{
		db:          db,
		log:         log.With("service", "ConflictService"),
		routineRepo: routineRepo,
		productRepo: productRepo,
		ruleRepo:    ruleRepo,
		cache:       cache,
		batchSize:   batchSize,
	}
}

func (cs *conflictService) CheckProductAgainstRoutine(ctx context.Context, routineID, productID uuid.UUID) (*ConflictResult, error) {
	routine, err := cs.routineRepo.GetByID(ctx, nil, routineID)
	if err != nil {
		return nil, apierr.Infra("routine_store_unavailable", err)
	}
	if routine == nil {
		return nil, apierr.NotFound("routine_not_found", fmt.Errorf("routine %s does not exist", routineID))
	}
	products, err := cs.productRepo.GetByIDs(ctx, nil, []uuid.UUID{productID})
	if err != nil {
		return nil, apierr.Infra("product_store_unavailable", err)
	}
	if len(products) == 0 {
		return nil, apierr.NotFound("product_not_found", fmt.Errorf("product %s does not exist", productID))
	}

	candidateIDs, err := cs.productRepo.IngredientIDs(ctx, nil, productID)
	if err != nil {
		return nil, apierr.Infra("ingredient_store_unavailable", err)
	}

	routineProducts, err := cs.routineRepo.ListProducts(ctx, nil, routineID)
	if err != nil {
		return nil, apierr.Infra("routine_store_unavailable", err)
	}
	existingProductIDs := make([]uuid.UUID, 0, len(routineProducts))
	for _, rp := range routineProducts {
		if rp.ProductID != productID {
			existingProductIDs = append(existingProductIDs, rp.ProductID)
		}
	}
	existingIDs, err := cs.productRepo.IngredientIDsForProducts(ctx, nil, existingProductIDs)
	if err != nil {
		return nil, apierr.Infra("ingredient_store_unavailable", err)
	}

	if len(candidateIDs) == 0 || len(existingIDs) == 0 {
		return &ConflictResult{Safe: true, Conflicts: []Conflict{}}, nil
	}

	pairs := crossPairs(candidateIDs, existingIDs)
	conflicts, err := cs.lookupPairs(ctx, pairs)
	if err != nil {
		return nil, err
	}
	return resultFrom(conflicts), nil
}

func (cs *conflictService) CheckWholeRoutine(ctx context.Context, routineID uuid.UUID) (*ConflictResult, error) {
	routine, err := cs.routineRepo.GetByID(ctx, nil, routineID)
	if err != nil {
		return nil, apierr.Infra("routine_store_unavailable", err)
	}
	if routine == nil {
		return nil, apierr.NotFound("routine_not_found", fmt.Errorf("routine %s does not exist", routineID))
	}

	routineProducts, err := cs.routineRepo.ListProducts(ctx, nil, routineID)
	if err != nil {
		return nil, apierr.Infra("routine_store_unavailable", err)
	}
	if len(routineProducts) < 2 {
		return &ConflictResult{Safe: true, Conflicts: []Conflict{}}, nil
	}

	productIDs := make([]uuid.UUID, 0, len(routineProducts))
	for _, rp := range routineProducts {
		productIDs = append(productIDs, rp.ProductID)
	}
	ingredientIDs, err := cs.productRepo.IngredientIDsForProducts(ctx, nil, productIDs)
	if err != nil {
		return nil, apierr.Infra("ingredient_store_unavailable", err)
	}
	if len(ingredientIDs) < 2 {
		return &ConflictResult{Safe: true, Conflicts: []Conflict{}}, nil
	}

	pairs := allPairs(ingredientIDs)
	conflicts, err := cs.lookupPairs(ctx, pairs)
	if err != nil {
		return nil, err
	}
	return resultFrom(conflicts), nil
}

// lookupPairs resolves pairs through the optional cache, batches the
// remaining lookups against the rule table, and deduplicates matches by
// unordered name pair keeping the first occurrence.
func (cs *conflictService) lookupPairs(ctx context.Context, pairs []repos.IngredientPair) ([]Conflict, error) {
	var conflicts []Conflict
	remaining := pairs

	if cs.cache != nil {
		keys := make([]string, len(pairs))
		for i, p := range pairs {
			keys[i] = rediscli.PairKey(p.A, p.B)
		}
		hits, err := cs.cache.GetPairs(ctx, keys)
		if err != nil {
			// Cache trouble is a miss, never a failure.
			cs.log.Warn("Rules cache read failed, falling through to store", "error", err)
			hits = nil
		}
		if len(hits) > 0 {
			remaining = remaining[:0:0]
			for i, p := range pairs {
				entry, ok := hits[keys[i]]
				if !ok {
					remaining = append(remaining, p)
					continue
				}
				if entry.Found {
					conflicts = append(conflicts, Conflict{
						RuleID:         entry.RuleID,
						IngredientA:    entry.IngredientA,
						IngredientB:    entry.IngredientB,
						Severity:       entry.Severity,
						Description:    entry.Description,
						Recommendation: entry.Recommendation,
					})
				}
			}
		}
	}

	writeback := make(map[string]rediscli.CachedRule)
	for _, batch := range utils.Chunk(remaining, cs.batchSize) {
		rules, err := cs.ruleRepo.GetByPairs(ctx, nil, batch)
		if err != nil {
			// Failing closed: an unreachable rule table must never be
			// reported as "no conflicts".
			return nil, apierr.Infra("conflict_rules_unavailable", err)
		}
		matched := make(map[string]bool, len(rules))
		for _, rule := range rules {
			c := Conflict{
				RuleID:         rule.ID,
				Severity:       rule.Severity,
				Description:    rule.Description,
				Recommendation: rule.Recommendation,
			}
			if rule.IngredientA != nil {
				c.IngredientA = rule.IngredientA.Name()
			}
			if rule.IngredientB != nil {
				c.IngredientB = rule.IngredientB.Name()
			}
			conflicts = append(conflicts, c)
			key := rediscli.PairKey(rule.IngredientAID, rule.IngredientBID)
			matched[key] = true
			writeback[key] = rediscli.CachedRule{
				Found:          true,
				RuleID:         rule.ID,
				IngredientA:    c.IngredientA,
				IngredientB:    c.IngredientB,
				Severity:       rule.Severity,
				Description:    rule.Description,
				Recommendation: rule.Recommendation,
			}
		}
		for _, p := range batch {
			key := rediscli.PairKey(p.A, p.B)
			if !matched[key] {
				writeback[key] = rediscli.CachedRule{Found: false}
			}
		}
	}

	if cs.cache != nil && len(writeback) > 0 {
		if err := cs.cache.SetPairs(ctx, writeback); err != nil {
			cs.log.Warn("Rules cache write failed", "error", err)
		}
	}

	return dedupeConflicts(conflicts), nil
}

// dedupeConflicts collapses conflicts reaching the same unordered name
// pair through multiple ingredient instances. The first occurrence wins;
// severities are never adjudicated here.
func dedupeConflicts(conflicts []Conflict) []Conflict {
	seen := make(map[string]bool, len(conflicts))
	out := make([]Conflict, 0, len(conflicts))
	for _, c := range conflicts {
		a, b := strings.ToLower(c.IngredientA), strings.ToLower(c.IngredientB)
		if a > b {
			a, b = b, a
		}
		key := a + "|" + b
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func resultFrom(conflicts []Conflict) *ConflictResult {
	if conflicts == nil {
		conflicts = []Conflict{}
	}
	return &ConflictResult{Safe: len(conflicts) == 0, Conflicts: conflicts}
}

func crossPairs(setA, setB []uuid.UUID) []repos.IngredientPair {
	pairs := make([]repos.IngredientPair, 0, len(setA)*len(setB))
	seen := make(map[string]bool)
	for _, a := range setA {
		for _, b := range setB {
			if a == b {
				continue
			}
			key := rediscli.PairKey(a, b)
			if seen[key] {
				continue
			}
			seen[key] = true
			pairs = append(pairs, repos.IngredientPair{A: a, B: b})
		}
	}
	return pairs
}

func allPairs(ids []uuid.UUID) []repos.IngredientPair {
	pairs := make([]repos.IngredientPair, 0, len(ids)*(len(ids)-1)/2)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			pairs = append(pairs, repos.IngredientPair{A: ids[i], B: ids[j]})
		}
	}
	return pairs
}
