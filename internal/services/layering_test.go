package services

import (
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/glowlab/glowlab-backend/internal/refdata"
	"github.com/glowlab/glowlab-backend/internal/types"
)

func newLayering(t *testing.T) LayeringService {
	t.Helper()
	log := testLogger(t)
	return NewLayeringService(refdata.NewStore(log), log)
}

func memProduct(name, category string, inciNames ...string) *types.Product {
	p := &types.Product{ID: uuid.New(), Name: name, Category: category}
	for i, inci := range inciNames {
		p.Ingredients = append(p.Ingredients, types.ProductIngredient{
			ID:         uuid.New(),
			ProductID:  p.ID,
			Ingredient: &types.Ingredient{ID: uuid.New(), INCIName: inci},
			Position:   i + 1,
		})
	}
	return p
}

func productNames(products []*types.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

func TestOrderProductsByCategoryPosition(t *testing.T) {
	svc := newLayering(t)
	input := []*types.Product{
		memProduct("Daily SPF", types.CategorySunscreen),
		memProduct("Rich Cream", types.CategoryMoisturizer),
		memProduct("Gel Cleanser", types.CategoryCleanser),
		memProduct("Hydrating Toner", types.CategoryToner),
		memProduct("Niacinamide Serum", types.CategorySerum),
	}
	got := productNames(svc.OrderProducts(input))
	want := []string{"Gel Cleanser", "Hydrating Toner", "Niacinamide Serum", "Rich Cream", "Daily SPF"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestOrderProductsIdempotentAndStable(t *testing.T) {
	svc := newLayering(t)
	input := []*types.Product{
		memProduct("Zinc Serum", types.CategorySerum),
		memProduct("Ampoule Boost", types.CategoryAmpoule),
		memProduct("Acid Serum", types.CategorySerum),
	}
	inputNames := productNames(input)

	once := svc.OrderProducts(input)
	twice := svc.OrderProducts(once)
	if !reflect.DeepEqual(productNames(once), productNames(twice)) {
		t.Fatalf("ordering is not idempotent: %v then %v", productNames(once), productNames(twice))
	}
	// Ties at the same position resolve by name, so the full order is
	// deterministic regardless of input order.
	want := []string{"Acid Serum", "Ampoule Boost", "Zinc Serum"}
	if got := productNames(once); !reflect.DeepEqual(got, want) {
		t.Fatalf("tie break order = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(productNames(input), inputNames) {
		t.Fatalf("input slice was mutated: %v", productNames(input))
	}
}

func TestOrderProductsUnknownCategoryGetsDefaultSlot(t *testing.T) {
	svc := newLayering(t)
	got := productNames(svc.OrderProducts([]*types.Product{
		memProduct("Mystery Balm", "balm"),
		memProduct("Night Cream", types.CategoryMoisturizer),
		memProduct("Foam Cleanser", types.CategoryCleanser),
	}))
	// Unknown categories slot between serums (4) and moisturizers (6).
	want := []string{"Foam Cleanser", "Mystery Balm", "Night Cream"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestCanonicalSteps(t *testing.T) {
	svc := newLayering(t)
	cases := []struct {
		name        string
		routineType string
		wantLast    string
	}{
		{"am", types.RoutineTypeAM, "Sunscreen"},
		{"pm", types.RoutineTypePM, "Sleeping Mask"},
		{"unknown falls back to am", "weekend", "Sunscreen"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			steps := svc.CanonicalSteps(tc.routineType)
			if len(steps) != 7 {
				t.Fatalf("got %d steps, want 7: %v", len(steps), steps)
			}
			if steps[0] != "Cleanser" {
				t.Fatalf("first step = %q, want Cleanser", steps[0])
			}
			if steps[len(steps)-1] != tc.wantLast {
				t.Fatalf("last step = %q, want %q", steps[len(steps)-1], tc.wantLast)
			}
		})
	}
}

func TestSuggestWaitTimes(t *testing.T) {
	svc := newLayering(t)
	cases := []struct {
		name        string
		product     *types.Product
		wantTrigger string
		wantMinutes int
	}{
		{
			name:        "vitamin c by product name",
			product:     memProduct("Vitamin C Brightening Serum", types.CategorySerum),
			wantTrigger: "vitamin_c",
			wantMinutes: 15,
		},
		{
			name:        "aha by ingredient",
			product:     memProduct("Resurfacing Treatment", types.CategoryExfoliator, "Aqua", "Glycolic Acid"),
			wantTrigger: "aha",
			wantMinutes: 20,
		},
		{
			name:        "retinoid by ingredient",
			product:     memProduct("Night Repair", types.CategorySerum, "Retinol"),
			wantTrigger: "retinoid",
			wantMinutes: 5,
		},
		{
			name:    "plain moisturizer has no wait",
			product: memProduct("Barrier Cream", types.CategoryMoisturizer, "Aqua", "Glycerin"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := svc.SuggestWaitTimes([]*types.Product{tc.product})
			if tc.wantTrigger == "" {
				if len(got) != 0 {
					t.Fatalf("expected no suggestions, got %+v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("expected one suggestion, got %+v", got)
			}
			if got[0].Trigger != tc.wantTrigger || got[0].Minutes != tc.wantMinutes {
				t.Fatalf("got trigger=%q minutes=%d, want %q/%d", got[0].Trigger, got[0].Minutes, tc.wantTrigger, tc.wantMinutes)
			}
		})
	}
}

func TestSuggestWaitTimesFirstMatchWins(t *testing.T) {
	svc := newLayering(t)
	// Matches both the aha and bha tables; the earlier rule wins and the
	// product gets exactly one suggestion.
	product := memProduct("Double Acid Peel", types.CategoryExfoliator, "Glycolic Acid", "Salicylic Acid")
	got := svc.SuggestWaitTimes([]*types.Product{product})
	if len(got) != 1 {
		t.Fatalf("expected one suggestion, got %+v", got)
	}
	if got[0].Trigger != "aha" {
		t.Fatalf("trigger = %q, want aha (first matching rule)", got[0].Trigger)
	}
}

func TestDetectMissingSteps(t *testing.T) {
	svc := newLayering(t)

	t.Run("am toner and moisturizer", func(t *testing.T) {
		alerts := svc.DetectMissingSteps(types.RoutineTypeAM, []*types.Product{
			memProduct("Hydrating Toner", types.CategoryToner),
			memProduct("Rich Cream", types.CategoryMoisturizer),
		})
		var required []string
		for _, a := range alerts {
			if a.Importance == refdata.ImportanceRequired {
				required = append(required, a.Label)
			}
		}
		want := []string{"Cleanser", "Sunscreen"}
		if !reflect.DeepEqual(required, want) {
			t.Fatalf("required missing steps = %v, want %v", required, want)
		}
		// The toner satisfies its recommended rule, so the two required
		// gaps are the only alerts.
		if len(alerts) != 2 {
			t.Fatalf("alerts = %+v, want exactly the two required gaps", alerts)
		}
	})

	t.Run("pm never requires sunscreen", func(t *testing.T) {
		alerts := svc.DetectMissingSteps(types.RoutineTypePM, []*types.Product{
			memProduct("Gel Cleanser", types.CategoryCleanser),
			memProduct("Rich Cream", types.CategoryMoisturizer),
		})
		for _, a := range alerts {
			if a.Label == "Sunscreen" {
				t.Fatalf("sunscreen flagged for a pm routine: %+v", alerts)
			}
		}
	})

	t.Run("oil satisfies the moisturizer rule", func(t *testing.T) {
		alerts := svc.DetectMissingSteps(types.RoutineTypePM, []*types.Product{
			memProduct("Gel Cleanser", types.CategoryCleanser),
			memProduct("Squalane Oil", types.CategoryOil),
		})
		for _, a := range alerts {
			if a.Label == "Moisturizer" {
				t.Fatalf("moisturizer flagged although an oil is present: %+v", alerts)
			}
		}
	})
}
