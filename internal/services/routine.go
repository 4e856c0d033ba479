package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/glowlab/glowlab-backend/internal/apierr"
	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/refdata"
	"github.com/glowlab/glowlab-backend/internal/repos"
	"github.com/glowlab/glowlab-backend/internal/types"
)

// AddProductResult is the §6 contract payload for adding a product.
type AddProductResult struct {
	AddedProduct *types.RoutineProduct `json:"added_product"`
	Conflicts    []Conflict            `json:"conflicts"`
	HasConflicts bool                  `json:"has_conflicts"`
}

// RoutineView is a routine with everything the editing screen renders.
type RoutineView struct {
	Routine      *types.Routine     `json:"routine"`
	Conflicts    *ConflictResult    `json:"conflicts"`
	WaitTimes    []WaitSuggestion   `json:"wait_times"`
	MissingSteps []MissingStepAlert `json:"missing_steps"`
}

// RoutineService owns routine mutation. Every write re-establishes the
// dense 1..N step_order invariant before commit; edits to one routine are
// serialized through a row lock on the routine row.
type RoutineService interface {
	CreateRoutine(ctx context.Context, userID uuid.UUID, routineType, name string) (*types.Routine, error)
	GetRoutine(ctx context.Context, userID, routineID uuid.UUID) (*RoutineView, error)
	AddProductToRoutine(ctx context.Context, userID, routineID, productID uuid.UUID, stepOrder *int, frequency string) (*AddProductResult, error)
	RemoveProductFromRoutine(ctx context.Context, userID, routineID, productID uuid.UUID) error
	ReorderProducts(ctx context.Context, userID, routineID uuid.UUID, orderedProductIDs []uuid.UUID) error
	GenerateRoutine(ctx context.Context, userID uuid.UUID, routineType, name string, candidateProductIDs []uuid.UUID) (*RoutineView, error)
}

type routineService struct {
	db          *gorm.DB
	log         *logger.Logger
	refdata     *refdata.Store
	routineRepo repos.RoutineRepo
	productRepo repos.ProductRepo
	conflicts   ConflictService
	layering    LayeringService
}

func NewRoutineService(
	db *gorm.DB,
	log *logger.Logger,
	store *refdata.Store,
	routineRepo repos.RoutineRepo,
	productRepo repos.ProductRepo,
	conflicts ConflictService,
	layering LayeringService,
) RoutineService {
	return &routineService{
		db:          db,
		log:         log.With("service", "RoutineService"),
		refdata:     store,
		routineRepo: routineRepo,
		productRepo: productRepo,
		conflicts:   conflicts,
		layering:    layering,
	}
}

func (rs *routineService) CreateRoutine(ctx context.Context, userID uuid.UUID, routineType, name string) (*types.Routine, error) {
	if !types.IsValidRoutineType(routineType) {
		return nil, apierr.Invalid("invalid_routine_type", fmt.Errorf("unknown routine type %q", routineType))
	}
	routine := &types.Routine{
		ID:     uuid.New(),
		UserID: userID,
		Type:   routineType,
		Name:   name,
	}
	if err := rs.routineRepo.Create(ctx, nil, routine); err != nil {
		return nil, apierr.Infra("routine_store_unavailable", err)
	}
	return routine, nil
}

func (rs *routineService) GetRoutine(ctx context.Context, userID, routineID uuid.UUID) (*RoutineView, error) {
	routine, err := rs.ownedRoutine(ctx, userID, routineID)
	if err != nil {
		return nil, err
	}
	full, err := rs.routineRepo.GetWithProducts(ctx, nil, routine.ID)
	if err != nil {
		return nil, apierr.Infra("routine_store_unavailable", err)
	}

	conflicts, err := rs.conflicts.CheckWholeRoutine(ctx, routineID)
	if err != nil {
		return nil, err
	}

	products := make([]*types.Product, 0, len(full.Products))
	for i := range full.Products {
		if full.Products[i].Product != nil {
			products = append(products, full.Products[i].Product)
		}
	}
	ordered := rs.layering.OrderProducts(products)

	return &RoutineView{
		Routine:      full,
		Conflicts:    conflicts,
		WaitTimes:    rs.layering.SuggestWaitTimes(ordered),
		MissingSteps: rs.layering.DetectMissingSteps(full.Type, products),
	}, nil
}

func (rs *routineService) AddProductToRoutine(ctx context.Context, userID, routineID, productID uuid.UUID, stepOrder *int, frequency string) (*AddProductResult, error) {
	if _, err := rs.ownedRoutine(ctx, userID, routineID); err != nil {
		return nil, err
	}

	// Conflict check runs before the write and fails closed; an
	// unreachable rule table blocks the add.
	conflictResult, err := rs.conflicts.CheckProductAgainstRoutine(ctx, routineID, productID)
	if err != nil {
		return nil, err
	}

	if frequency == "" {
		frequency = "daily"
	}

	var added *types.RoutineProduct
	txErr := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := rs.routineRepo.GetForUpdate(ctx, tx, routineID)
		if err != nil {
			return apierr.Infra("routine_store_unavailable", err)
		}
		if locked == nil {
			return apierr.NotFound("routine_not_found", fmt.Errorf("routine %s does not exist", routineID))
		}

		existing, err := rs.routineRepo.ListProducts(ctx, tx, routineID)
		if err != nil {
			return apierr.Infra("routine_store_unavailable", err)
		}
		for _, rp := range existing {
			if rp.ProductID == productID {
				return apierr.Conflict("product_already_in_routine", fmt.Errorf("product %s already exists in routine %s", productID, routineID))
			}
		}

		insertAt, err := rs.resolveStepOrder(ctx, tx, existing, productID, stepOrder)
		if err != nil {
			return err
		}

		// Shift successors up, highest first, to keep intermediate
		// states sane.
		for i := len(existing) - 1; i >= 0; i-- {
			if existing[i].StepOrder >= insertAt {
				if err := rs.routineRepo.SetStepOrder(ctx, tx, existing[i].ID, existing[i].StepOrder+1); err != nil {
					return apierr.Infra("routine_store_unavailable", err)
				}
			}
		}

		added = &types.RoutineProduct{
			ID:        uuid.New(),
			RoutineID: routineID,
			ProductID: productID,
			StepOrder: insertAt,
			Frequency: frequency,
		}
		if err := rs.routineRepo.AddProduct(ctx, tx, added); err != nil {
			if repos.IsUniqueViolation(err) {
				return apierr.Conflict("product_already_in_routine", err)
			}
			return apierr.Infra("routine_store_unavailable", err)
		}
		return rs.assertContiguous(ctx, tx, routineID)
	})
	if txErr != nil {
		return nil, txErr
	}

	return &AddProductResult{
		AddedProduct: added,
		Conflicts:    conflictResult.Conflicts,
		HasConflicts: !conflictResult.Safe,
	}, nil
}

func (rs *routineService) RemoveProductFromRoutine(ctx context.Context, userID, routineID, productID uuid.UUID) error {
	if _, err := rs.ownedRoutine(ctx, userID, routineID); err != nil {
		return err
	}

	return rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := rs.routineRepo.GetForUpdate(ctx, tx, routineID)
		if err != nil {
			return apierr.Infra("routine_store_unavailable", err)
		}
		if locked == nil {
			return apierr.NotFound("routine_not_found", fmt.Errorf("routine %s does not exist", routineID))
		}

		removed, err := rs.routineRepo.RemoveProduct(ctx, tx, routineID, productID)
		if err != nil {
			return apierr.Infra("routine_store_unavailable", err)
		}
		if removed == 0 {
			return apierr.NotFound("product_not_in_routine", fmt.Errorf("product %s is not in routine %s", productID, routineID))
		}

		// Renumber survivors back to a dense 1..N sequence.
		survivors, err := rs.routineRepo.ListProducts(ctx, tx, routineID)
		if err != nil {
			return apierr.Infra("routine_store_unavailable", err)
		}
		for i, rp := range survivors {
			want := i + 1
			if rp.StepOrder != want {
				if err := rs.routineRepo.SetStepOrder(ctx, tx, rp.ID, want); err != nil {
					return apierr.Infra("routine_store_unavailable", err)
				}
			}
		}
		return rs.assertContiguous(ctx, tx, routineID)
	})
}

func (rs *routineService) ReorderProducts(ctx context.Context, userID, routineID uuid.UUID, orderedProductIDs []uuid.UUID) error {
	if _, err := rs.ownedRoutine(ctx, userID, routineID); err != nil {
		return err
	}

	return rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := rs.routineRepo.GetForUpdate(ctx, tx, routineID)
		if err != nil {
			return apierr.Infra("routine_store_unavailable", err)
		}
		if locked == nil {
			return apierr.NotFound("routine_not_found", fmt.Errorf("routine %s does not exist", routineID))
		}

		existing, err := rs.routineRepo.ListProducts(ctx, tx, routineID)
		if err != nil {
			return apierr.Infra("routine_store_unavailable", err)
		}
		if len(orderedProductIDs) != len(existing) {
			return apierr.Invalid("invalid_product_order", fmt.Errorf("order lists %d products, routine has %d", len(orderedProductIDs), len(existing)))
		}
		byProduct := make(map[uuid.UUID]*types.RoutineProduct, len(existing))
		for _, rp := range existing {
			byProduct[rp.ProductID] = rp
		}
		seen := make(map[uuid.UUID]bool, len(orderedProductIDs))
		for _, pid := range orderedProductIDs {
			if seen[pid] {
				return apierr.Invalid("invalid_product_order", fmt.Errorf("product %s listed twice", pid))
			}
			seen[pid] = true
			if byProduct[pid] == nil {
				return apierr.Invalid("invalid_product_order", fmt.Errorf("product %s is not in the routine", pid))
			}
		}

		for i, pid := range orderedProductIDs {
			rp := byProduct[pid]
			want := i + 1
			if rp.StepOrder != want {
				if err := rs.routineRepo.SetStepOrder(ctx, tx, rp.ID, want); err != nil {
					return apierr.Infra("routine_store_unavailable", err)
				}
			}
		}
		return rs.assertContiguous(ctx, tx, routineID)
	})
}

func (rs *routineService) GenerateRoutine(ctx context.Context, userID uuid.UUID, routineType, name string, candidateProductIDs []uuid.UUID) (*RoutineView, error) {
	if !types.IsValidRoutineType(routineType) {
		return nil, apierr.Invalid("invalid_routine_type", fmt.Errorf("unknown routine type %q", routineType))
	}
	if len(candidateProductIDs) == 0 {
		return nil, apierr.Invalid("empty_candidate_list", fmt.Errorf("no candidate products supplied"))
	}

	// Candidates come from the external advisor; this service only orders
	// them and flags conflicts. It never picks products itself.
	candidates, err := rs.productRepo.GetManyWithIngredients(ctx, nil, candidateProductIDs)
	if err != nil {
		return nil, apierr.Infra("product_store_unavailable", err)
	}
	if len(candidates) != len(candidateProductIDs) {
		return nil, apierr.NotFound("product_not_found", fmt.Errorf("one or more candidate products do not exist"))
	}

	ordered := rs.layering.OrderProducts(candidates)

	routine := &types.Routine{
		ID:     uuid.New(),
		UserID: userID,
		Type:   routineType,
		Name:   name,
	}
	txErr := rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rs.routineRepo.Create(ctx, tx, routine); err != nil {
			return apierr.Infra("routine_store_unavailable", err)
		}
		for i, p := range ordered {
			rp := &types.RoutineProduct{
				ID:        uuid.New(),
				RoutineID: routine.ID,
				ProductID: p.ID,
				StepOrder: i + 1,
				Frequency: "daily",
			}
			if err := rs.routineRepo.AddProduct(ctx, tx, rp); err != nil {
				if repos.IsUniqueViolation(err) {
					return apierr.Invalid("duplicate_candidate_product", err)
				}
				return apierr.Infra("routine_store_unavailable", err)
			}
		}
		return rs.assertContiguous(ctx, tx, routine.ID)
	})
	if txErr != nil {
		return nil, txErr
	}

	return rs.GetRoutine(ctx, userID, routine.ID)
}

// ownedRoutine loads the routine and hides other users' routines behind
// NotFound.
func (rs *routineService) ownedRoutine(ctx context.Context, userID, routineID uuid.UUID) (*types.Routine, error) {
	routine, err := rs.routineRepo.GetByID(ctx, nil, routineID)
	if err != nil {
		return nil, apierr.Infra("routine_store_unavailable", err)
	}
	if routine == nil || routine.UserID != userID {
		return nil, apierr.NotFound("routine_not_found", fmt.Errorf("routine %s does not exist", routineID))
	}
	return routine, nil
}

// resolveStepOrder validates an explicit step order or derives one from
// the category layering table: the product slots in before the first
// existing product with a higher layering position.
func (rs *routineService) resolveStepOrder(ctx context.Context, tx *gorm.DB, existing []*types.RoutineProduct, productID uuid.UUID, stepOrder *int) (int, error) {
	if stepOrder != nil {
		if *stepOrder < 1 || *stepOrder > len(existing)+1 {
			return 0, apierr.Invalid("invalid_step_order", fmt.Errorf("step order %d outside 1..%d", *stepOrder, len(existing)+1))
		}
		return *stepOrder, nil
	}

	products, err := rs.productRepo.GetByIDs(ctx, tx, []uuid.UUID{productID})
	if err != nil {
		return 0, apierr.Infra("product_store_unavailable", err)
	}
	if len(products) == 0 {
		return 0, apierr.NotFound("product_not_found", fmt.Errorf("product %s does not exist", productID))
	}
	tables := rs.refdata.Tables()
	candidatePos := tables.Position(products[0].Category)

	for _, rp := range existing {
		if rp.Product == nil {
			continue
		}
		if tables.Position(rp.Product.Category) > candidatePos {
			return rp.StepOrder, nil
		}
	}
	return len(existing) + 1, nil
}

// assertContiguous re-validates the dense 1..N invariant before commit.
// Any violation rolls the transaction back rather than patching forward.
func (rs *routineService) assertContiguous(ctx context.Context, tx *gorm.DB, routineID uuid.UUID) error {
	rows, err := rs.routineRepo.ListProducts(ctx, tx, routineID)
	if err != nil {
		return apierr.Infra("routine_store_unavailable", err)
	}
	for i, rp := range rows {
		if rp.StepOrder != i+1 {
			return apierr.Invalid("step_order_not_contiguous", fmt.Errorf("routine %s step orders are not a dense 1..%d sequence", routineID, len(rows)))
		}
	}
	return nil
}
