package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/glowlab/glowlab-backend/internal/apierr"
	"github.com/glowlab/glowlab-backend/internal/types"
)

func (env *testEnv) seedRoutine(t *testing.T, userID uuid.UUID, routineType string) *types.Routine {
	t.Helper()
	routine := &types.Routine{ID: uuid.New(), UserID: userID, Type: routineType, Name: "test routine"}
	if err := env.db.Create(routine).Error; err != nil {
		t.Fatalf("seed routine: %v", err)
	}
	return routine
}

func (env *testEnv) seedRoutineProduct(t *testing.T, routineID, productID uuid.UUID, stepOrder int) {
	t.Helper()
	rp := &types.RoutineProduct{
		ID:        uuid.New(),
		RoutineID: routineID,
		ProductID: productID,
		StepOrder: stepOrder,
		Frequency: "daily",
	}
	if err := env.db.Create(rp).Error; err != nil {
		t.Fatalf("seed routine product: %v", err)
	}
}

func TestCheckProductAgainstRoutineDetectsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	retinol := env.seedIngredient(t, "Retinol", "Retinol")
	glycolic := env.seedIngredient(t, "Glycolic Acid", "Glycolic Acid")
	env.seedRule(t, retinol, glycolic, types.SeverityHigh,
		"Using retinoids and AHAs together compounds irritation",
		"Alternate nights or separate into AM/PM")

	user := env.seedUser(t, "mira@example.com")
	routine := env.seedRoutine(t, user.ID, types.RoutineTypePM)
	retinolSerum := env.seedProduct(t, "Night Repair Serum", types.CategorySerum, retinol)
	env.seedRoutineProduct(t, routine.ID, retinolSerum.ID, 1)

	glycolicToner := env.seedProduct(t, "Resurfacing Toner", types.CategoryToner, glycolic)

	result, err := env.conflicts.CheckProductAgainstRoutine(ctx, routine.ID, glycolicToner.ID)
	if err != nil {
		t.Fatalf("CheckProductAgainstRoutine: %v", err)
	}
	if result.Safe {
		t.Fatalf("expected conflict, got safe")
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %+v", result.Conflicts)
	}
	c := result.Conflicts[0]
	if c.Severity != types.SeverityHigh {
		t.Fatalf("severity = %q, want high", c.Severity)
	}
	names := map[string]bool{c.IngredientA: true, c.IngredientB: true}
	if !names["Retinol"] || !names["Glycolic Acid"] {
		t.Fatalf("conflict names = %q/%q", c.IngredientA, c.IngredientB)
	}
}

func TestConflictLookupIsSymmetric(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	retinol := env.seedIngredient(t, "Retinol", "Retinol")
	glycolic := env.seedIngredient(t, "Glycolic Acid", "Glycolic Acid")
	// Stored as (retinol, glycolic); both lookup directions must hit it.
	env.seedRule(t, retinol, glycolic, types.SeverityHigh, "irritation", "separate")

	user := env.seedUser(t, "sam@example.com")
	retinolSerum := env.seedProduct(t, "Retinol Serum", types.CategorySerum, retinol)
	glycolicToner := env.seedProduct(t, "Glycolic Toner", types.CategoryToner, glycolic)

	routineA := env.seedRoutine(t, user.ID, types.RoutineTypePM)
	env.seedRoutineProduct(t, routineA.ID, retinolSerum.ID, 1)
	routineB := env.seedRoutine(t, user.ID, types.RoutineTypePM)
	env.seedRoutineProduct(t, routineB.ID, glycolicToner.ID, 1)

	forward, err := env.conflicts.CheckProductAgainstRoutine(ctx, routineA.ID, glycolicToner.ID)
	if err != nil {
		t.Fatalf("forward check: %v", err)
	}
	reverse, err := env.conflicts.CheckProductAgainstRoutine(ctx, routineB.ID, retinolSerum.ID)
	if err != nil {
		t.Fatalf("reverse check: %v", err)
	}
	if forward.Safe || reverse.Safe {
		t.Fatalf("expected both directions to conflict: forward=%v reverse=%v", forward.Safe, reverse.Safe)
	}
	if forward.Conflicts[0].RuleID != reverse.Conflicts[0].RuleID {
		t.Fatalf("directions matched different rules: %s vs %s", forward.Conflicts[0].RuleID, reverse.Conflicts[0].RuleID)
	}
}

func TestCheckProductWithNoIngredientDataIsSafe(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	retinol := env.seedIngredient(t, "Retinol", "Retinol")
	user := env.seedUser(t, "noa@example.com")
	routine := env.seedRoutine(t, user.ID, types.RoutineTypePM)
	retinolSerum := env.seedProduct(t, "Retinol Serum", types.CategorySerum, retinol)
	env.seedRoutineProduct(t, routine.ID, retinolSerum.ID, 1)

	// No ingredient rows at all.
	mystery := env.seedProduct(t, "Mystery Cream", types.CategoryMoisturizer)

	result, err := env.conflicts.CheckProductAgainstRoutine(ctx, routine.ID, mystery.ID)
	if err != nil {
		t.Fatalf("CheckProductAgainstRoutine: %v", err)
	}
	if !result.Safe || len(result.Conflicts) != 0 {
		t.Fatalf("expected safe result for unknown ingredients, got %+v", result)
	}
}

func TestCheckProductNotFoundErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	user := env.seedUser(t, "kit@example.com")
	routine := env.seedRoutine(t, user.ID, types.RoutineTypeAM)
	product := env.seedProduct(t, "Gel Cleanser", types.CategoryCleanser)

	if _, err := env.conflicts.CheckProductAgainstRoutine(ctx, uuid.New(), product.ID); apierr.CodeOf(err) != "routine_not_found" {
		t.Fatalf("missing routine: got %v", err)
	}
	if _, err := env.conflicts.CheckProductAgainstRoutine(ctx, routine.ID, uuid.New()); apierr.CodeOf(err) != "product_not_found" {
		t.Fatalf("missing product: got %v", err)
	}
}

func TestConflictsDedupedByNamePair(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	retinol := env.seedIngredient(t, "Retinol", "Retinol")
	// Two catalog rows that present the same display name; their rule hits
	// must collapse into one reported conflict.
	glycolicA := env.seedIngredient(t, "Glycolic Acid", "Glycolic Acid")
	glycolicB := env.seedIngredient(t, "Glycolic Acid Blend", "Glycolic Acid")
	env.seedRule(t, retinol, glycolicA, types.SeverityHigh, "irritation", "separate")
	env.seedRule(t, retinol, glycolicB, types.SeverityMedium, "irritation", "separate")

	user := env.seedUser(t, "ada@example.com")
	routine := env.seedRoutine(t, user.ID, types.RoutineTypePM)
	acidToner := env.seedProduct(t, "Acid Toner", types.CategoryToner, glycolicA, glycolicB)
	env.seedRoutineProduct(t, routine.ID, acidToner.ID, 1)

	retinolSerum := env.seedProduct(t, "Retinol Serum", types.CategorySerum, retinol)

	result, err := env.conflicts.CheckProductAgainstRoutine(ctx, routine.ID, retinolSerum.ID)
	if err != nil {
		t.Fatalf("CheckProductAgainstRoutine: %v", err)
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected conflicts deduped to 1, got %+v", result.Conflicts)
	}
}

func TestConflictLookupBatching(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	// Force every pair into its own query batch; results must not change.
	tiny := NewConflictService(env.db, env.log, env.routineRepo, env.productRepo, env.ruleRepo, nil, 1)

	retinol := env.seedIngredient(t, "Retinol", "Retinol")
	glycolic := env.seedIngredient(t, "Glycolic Acid", "Glycolic Acid")
	niacinamide := env.seedIngredient(t, "Niacinamide", "Niacinamide")
	env.seedRule(t, retinol, glycolic, types.SeverityHigh, "irritation", "separate")

	user := env.seedUser(t, "lee@example.com")
	routine := env.seedRoutine(t, user.ID, types.RoutineTypePM)
	mixedSerum := env.seedProduct(t, "Mixed Serum", types.CategorySerum, glycolic, niacinamide)
	env.seedRoutineProduct(t, routine.ID, mixedSerum.ID, 1)

	retinolSerum := env.seedProduct(t, "Retinol Serum", types.CategorySerum, retinol)

	result, err := tiny.CheckProductAgainstRoutine(ctx, routine.ID, retinolSerum.ID)
	if err != nil {
		t.Fatalf("CheckProductAgainstRoutine: %v", err)
	}
	if result.Safe || len(result.Conflicts) != 1 {
		t.Fatalf("batched lookup changed the result: %+v", result)
	}
}

func TestCheckWholeRoutine(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()

	retinol := env.seedIngredient(t, "Retinol", "Retinol")
	glycolic := env.seedIngredient(t, "Glycolic Acid", "Glycolic Acid")
	env.seedRule(t, retinol, glycolic, types.SeverityHigh, "irritation", "separate")

	user := env.seedUser(t, "ren@example.com")

	t.Run("single product is safe", func(t *testing.T) {
		routine := env.seedRoutine(t, user.ID, types.RoutineTypePM)
		serum := env.seedProduct(t, "Solo Serum", types.CategorySerum, retinol)
		env.seedRoutineProduct(t, routine.ID, serum.ID, 1)

		result, err := env.conflicts.CheckWholeRoutine(ctx, routine.ID)
		if err != nil {
			t.Fatalf("CheckWholeRoutine: %v", err)
		}
		if !result.Safe {
			t.Fatalf("single product routine should be safe, got %+v", result)
		}
	})

	t.Run("conflicting pair is flagged", func(t *testing.T) {
		routine := env.seedRoutine(t, user.ID, types.RoutineTypePM)
		serum := env.seedProduct(t, "Retinol Night Serum", types.CategorySerum, retinol)
		toner := env.seedProduct(t, "Glycolic Night Toner", types.CategoryToner, glycolic)
		env.seedRoutineProduct(t, routine.ID, toner.ID, 1)
		env.seedRoutineProduct(t, routine.ID, serum.ID, 2)

		result, err := env.conflicts.CheckWholeRoutine(ctx, routine.ID)
		if err != nil {
			t.Fatalf("CheckWholeRoutine: %v", err)
		}
		if result.Safe || len(result.Conflicts) != 1 {
			t.Fatalf("expected one conflict, got %+v", result)
		}
	})
}
