package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/refdata"
	"github.com/glowlab/glowlab-backend/internal/repos"
	"github.com/glowlab/glowlab-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

// newTestDB opens a per-test in-memory sqlite database. The shared-cache
// DSN keeps every pooled connection on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// One connection serializes concurrent writers (the alert fan-out);
	// sqlite has no row locks to do it for us.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	err = db.AutoMigrate(
		&types.User{},
		&types.Ingredient{},
		&types.IngredientConflictRule{},
		&types.Product{},
		&types.ProductIngredient{},
		&types.Routine{},
		&types.RoutineProduct{},
		&types.ProductFormulationHistory{},
		&types.ProductReview{},
		&types.UserReformulationAlert{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type testEnv struct {
	db             *gorm.DB
	log            *logger.Logger
	store          *refdata.Store
	ingredientRepo repos.IngredientRepo
	ruleRepo       repos.ConflictRuleRepo
	productRepo    repos.ProductRepo
	routineRepo    repos.RoutineRepo
	historyRepo    repos.FormulationHistoryRepo
	alertRepo      repos.ReformulationAlertRepo
	reviewRepo     repos.ReviewRepo

	layering    LayeringService
	conflicts   ConflictService
	routines    RoutineService
	formulation FormulationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	log := testLogger(t)
	store := refdata.NewStore(log)

	env := &testEnv{
		db:             db,
		log:            log,
		store:          store,
		ingredientRepo: repos.NewIngredientRepo(db, log),
		ruleRepo:       repos.NewConflictRuleRepo(db, log),
		productRepo:    repos.NewProductRepo(db, log),
		routineRepo:    repos.NewRoutineRepo(db, log),
		historyRepo:    repos.NewFormulationHistoryRepo(db, log),
		alertRepo:      repos.NewReformulationAlertRepo(db, log),
		reviewRepo:     repos.NewReviewRepo(db, log),
	}
	env.layering = NewLayeringService(store, log)
	env.conflicts = NewConflictService(db, log, env.routineRepo, env.productRepo, env.ruleRepo, nil, 0)
	env.routines = NewRoutineService(db, log, store, env.routineRepo, env.productRepo, env.conflicts, env.layering)
	env.formulation = NewFormulationService(db, log, env.productRepo, env.ingredientRepo, env.historyRepo, env.alertRepo, env.routineRepo, env.reviewRepo)
	return env
}

func (env *testEnv) seedUser(t *testing.T, email string) *types.User {
	t.Helper()
	user := &types.User{ID: uuid.New(), Email: email}
	if err := env.db.Create(user).Error; err != nil {
		t.Fatalf("seed user %s: %v", email, err)
	}
	return user
}

func (env *testEnv) seedIngredient(t *testing.T, inciName, displayName string) *types.Ingredient {
	t.Helper()
	ing := &types.Ingredient{
		ID:          uuid.New(),
		INCIName:    inciName,
		DisplayName: displayName,
	}
	if err := env.db.Create(ing).Error; err != nil {
		t.Fatalf("seed ingredient %s: %v", inciName, err)
	}
	return ing
}

func (env *testEnv) seedProduct(t *testing.T, name, category string, ingredients ...*types.Ingredient) *types.Product {
	t.Helper()
	product := &types.Product{
		ID:                        uuid.New(),
		Name:                      name,
		Category:                  category,
		CurrentFormulationVersion: 1,
	}
	if err := env.db.Create(product).Error; err != nil {
		t.Fatalf("seed product %s: %v", name, err)
	}
	for i, ing := range ingredients {
		entry := &types.ProductIngredient{
			ID:           uuid.New(),
			ProductID:    product.ID,
			IngredientID: ing.ID,
			Position:     i + 1,
		}
		if err := env.db.Create(entry).Error; err != nil {
			t.Fatalf("seed product ingredient %s/%s: %v", name, ing.INCIName, err)
		}
	}
	return product
}

func (env *testEnv) seedRule(t *testing.T, a, b *types.Ingredient, severity, description, recommendation string) *types.IngredientConflictRule {
	t.Helper()
	rule := &types.IngredientConflictRule{
		ID:             uuid.New(),
		IngredientAID:  a.ID,
		IngredientBID:  b.ID,
		Severity:       severity,
		Description:    description,
		Recommendation: recommendation,
	}
	if err := env.db.Create(rule).Error; err != nil {
		t.Fatalf("seed rule %s/%s: %v", a.INCIName, b.INCIName, err)
	}
	return rule
}

func (env *testEnv) seedReview(t *testing.T, userID, productID uuid.UUID) {
	t.Helper()
	review := &types.ProductReview{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		Rating:    4,
	}
	if err := env.reviewRepo.Create(t.Context(), nil, review); err != nil {
		t.Fatalf("seed review: %v", err)
	}
}

// stepOrders loads the dense step sequence of a routine, in order.
func (env *testEnv) stepOrders(t *testing.T, routineID uuid.UUID) []int {
	t.Helper()
	rows, err := env.routineRepo.ListProducts(t.Context(), nil, routineID)
	if err != nil {
		t.Fatalf("list routine products: %v", err)
	}
	out := make([]int, len(rows))
	for i, rp := range rows {
		out[i] = rp.StepOrder
	}
	return out
}

func assertDense(t *testing.T, orders []int) {
	t.Helper()
	for i, got := range orders {
		if got != i+1 {
			t.Fatalf("step orders %v are not a dense 1..%d sequence", orders, len(orders))
		}
	}
}
