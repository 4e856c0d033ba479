package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/glowlab/glowlab-backend/internal/apierr"
	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/repos"
	"github.com/glowlab/glowlab-backend/internal/types"
)

// FormulationDiff describes one detected change to a product's ingredient
// list. Ingredients are identified by INCI name, not id: detection can run
// before the new ingredient exists as a catalog row.
type FormulationDiff struct {
	Added     []string `json:"added"`
	Removed   []string `json:"removed"`
	Reordered bool     `json:"reordered"`
}

func (d FormulationDiff) empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && !d.Reordered
}

// RecordResult is the §6 contract payload for reporting a reformulation.
type RecordResult struct {
	HistoryID     uuid.UUID `json:"history_id"`
	VersionNumber int       `json:"version_number"`
	AlertsCreated int       `json:"alerts_created"`
}

type FormulationService interface {
	RecordReformulation(ctx context.Context, productID uuid.UUID, diff FormulationDiff, detectedBy, summary, changeType string) (*RecordResult, error)
	// RecordScrapedFormulation diffs a freshly scraped INCI list against
	// the stored one, records the change and rewrites the stored list.
	// Returns nil when nothing changed.
	RecordScrapedFormulation(ctx context.Context, productID uuid.UUID, scrapedINCINames []string) (*RecordResult, error)
	// ReportManualReformulation appends an audit-trail row with no parsed
	// diff and creates zero alerts.
	ReportManualReformulation(ctx context.Context, productID uuid.UUID, note, changeType string) (*RecordResult, error)
	GetHistory(ctx context.Context, productID uuid.UUID) ([]*types.ProductFormulationHistory, error)
	ListAlertsForUser(ctx context.Context, userID uuid.UUID, includeDismissed bool) ([]*types.UserReformulationAlert, error)
	DismissAlert(ctx context.Context, userID, alertID uuid.UUID) error
}

type formulationService struct {
	db             *gorm.DB
	log            *logger.Logger
	productRepo    repos.ProductRepo
	ingredientRepo repos.IngredientRepo
	historyRepo    repos.FormulationHistoryRepo
	alertRepo      repos.ReformulationAlertRepo
	routineRepo    repos.RoutineRepo
	reviewRepo     repos.ReviewRepo
}

func NewFormulationService(
	db *gorm.DB,
	log *logger.Logger,
	productRepo repos.ProductRepo,
	ingredientRepo repos.IngredientRepo,
	historyRepo repos.FormulationHistoryRepo,
	alertRepo repos.ReformulationAlertRepo,
	routineRepo repos.RoutineRepo,
	reviewRepo repos.ReviewRepo,
) FormulationService {
	return &formulationService{
		db:             db,
		log:            log.With("service", "FormulationService"),
		productRepo:    productRepo,
		ingredientRepo: ingredientRepo,
		historyRepo:    historyRepo,
		alertRepo:      alertRepo,
		routineRepo:    routineRepo,
		reviewRepo:     reviewRepo,
	}
}

// ComputeDiff compares two ordered INCI name lists. Reordering is judged
// on the shared subsequence only, so an appended ingredient alone does not
// count as a reorder.
func ComputeDiff(oldNames, newNames []string) FormulationDiff {
	oldSet := nameSet(oldNames)
	newSet := nameSet(newNames)

	var diff FormulationDiff
	for _, n := range newNames {
		if _, ok := oldSet[normalizeINCI(n)]; !ok {
			diff.Added = append(diff.Added, n)
		}
	}
	for _, n := range oldNames {
		if _, ok := newSet[normalizeINCI(n)]; !ok {
			diff.Removed = append(diff.Removed, n)
		}
	}

	sharedOld := sharedInOrder(oldNames, newSet)
	sharedNew := sharedInOrder(newNames, oldSet)
	if len(sharedOld) == len(sharedNew) {
		for i := range sharedOld {
			if sharedOld[i] != sharedNew[i] {
				diff.Reordered = true
				break
			}
		}
	} else {
		diff.Reordered = true
	}
	return diff
}

// InferChangeType applies the documented policy: a non-empty added or
// removed list wins over mere reordering.
func InferChangeType(diff FormulationDiff, supplied string) (string, error) {
	if len(diff.Added) > 0 || len(diff.Removed) > 0 {
		return types.ChangeTypeReformulation, nil
	}
	if diff.Reordered {
		return types.ChangeTypeMinor, nil
	}
	if supplied == "" {
		return "", apierr.Invalid("invalid_change_type", fmt.Errorf("change type required for an empty diff"))
	}
	if !types.IsValidChangeType(supplied) {
		return "", apierr.Invalid("invalid_change_type", fmt.Errorf("unknown change type %q", supplied))
	}
	return supplied, nil
}

func (fs *formulationService) RecordReformulation(ctx context.Context, productID uuid.UUID, diff FormulationDiff, detectedBy, summary, changeType string) (*RecordResult, error) {
	diff = normalizeDiff(diff)
	if diff.empty() {
		return nil, apierr.Invalid("empty_diff", fmt.Errorf("diff has no added, removed or reordered ingredients"))
	}
	if !types.IsValidDetectedBy(detectedBy) {
		return nil, apierr.Invalid("invalid_detected_by", fmt.Errorf("unknown detection source %q", detectedBy))
	}
	resolvedType, err := InferChangeType(diff, changeType)
	if err != nil {
		return nil, err
	}

	history, err := fs.appendHistory(ctx, productID, diff, detectedBy, summary, resolvedType)
	if err != nil {
		return nil, err
	}

	alertsCreated := fs.fanOutAlerts(ctx, history)
	return &RecordResult{
		HistoryID:     history.ID,
		VersionNumber: history.VersionNumber,
		AlertsCreated: alertsCreated,
	}, nil
}

func (fs *formulationService) RecordScrapedFormulation(ctx context.Context, productID uuid.UUID, scrapedINCINames []string) (*RecordResult, error) {
	scraped := make([]string, 0, len(scrapedINCINames))
	for _, n := range scrapedINCINames {
		if trimmed := strings.TrimSpace(n); trimmed != "" {
			scraped = append(scraped, trimmed)
		}
	}
	if len(scraped) == 0 {
		return nil, apierr.Invalid("empty_ingredient_list", fmt.Errorf("scraped ingredient list is empty"))
	}

	current, err := fs.productRepo.OrderedINCINames(ctx, nil, productID)
	if err != nil {
		return nil, apierr.Infra("ingredient_store_unavailable", err)
	}
	diff := ComputeDiff(current, scraped)
	if diff.empty() {
		return nil, nil
	}

	result, err := fs.RecordReformulation(ctx, productID, diff, types.DetectedByAutomated, "Automated re-scrape comparison", "")
	if err != nil {
		return nil, err
	}

	if err := fs.rewriteIngredientList(ctx, productID, scraped); err != nil {
		// The history row is already durable; the stored list catches up
		// on the next scrape.
		fs.log.Warn("Failed to rewrite stored ingredient list after reformulation", "product_id", productID, "error", err)
	}
	return result, nil
}

func (fs *formulationService) ReportManualReformulation(ctx context.Context, productID uuid.UUID, note, changeType string) (*RecordResult, error) {
	if changeType == "" {
		changeType = types.ChangeTypeMinor
	}
	if !types.IsValidChangeType(changeType) {
		return nil, apierr.Invalid("invalid_change_type", fmt.Errorf("unknown change type %q", changeType))
	}
	history, err := fs.appendHistory(ctx, productID, FormulationDiff{}, types.DetectedByManual, note, changeType)
	if err != nil {
		return nil, err
	}
	// Audit trail only: no fan-out.
	return &RecordResult{
		HistoryID:     history.ID,
		VersionNumber: history.VersionNumber,
		AlertsCreated: 0,
	}, nil
}

// appendHistory runs the serialized read-increment-write per product: the
// product row is locked, the version bumped and the denormalized product
// fields updated in the same transaction as the history insert. A unique
// (product_id, version_number) index backstops races; violations retry.
func (fs *formulationService) appendHistory(ctx context.Context, productID uuid.UUID, diff FormulationDiff, detectedBy, summary, changeType string) (*types.ProductFormulationHistory, error) {
	const maxAttempts = 3
	var history *types.ProductFormulationHistory

	for attempt := 1; ; attempt++ {
		txErr := fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			product, err := fs.productRepo.GetForUpdate(ctx, tx, productID)
			if err != nil {
				return apierr.Infra("product_store_unavailable", err)
			}
			if product == nil {
				return apierr.NotFound("product_not_found", fmt.Errorf("product %s does not exist", productID))
			}

			now := time.Now().UTC()
			history = &types.ProductFormulationHistory{
				ID:                   uuid.New(),
				ProductID:            productID,
				VersionNumber:        product.CurrentFormulationVersion + 1,
				ChangeDate:           now,
				ChangeType:           changeType,
				IngredientsAdded:     datatypes.NewJSONSlice(emptyIfNil(diff.Added)),
				IngredientsRemoved:   datatypes.NewJSONSlice(emptyIfNil(diff.Removed)),
				IngredientsReordered: diff.Reordered,
				ChangeSummary:        summary,
				DetectedBy:           detectedBy,
				Confirmed:            true,
			}
			if err := fs.historyRepo.Create(ctx, tx, history); err != nil {
				return err
			}
			return fs.productRepo.UpdateFormulationVersion(ctx, tx, productID, history.VersionNumber, now)
		})
		if txErr == nil {
			return history, nil
		}
		if repos.IsUniqueViolation(txErr) && attempt < maxAttempts {
			fs.log.Debug("Version race on reformulation append, retrying", "product_id", productID, "attempt", attempt)
			continue
		}
		var ae *apierr.Error
		if errors.As(txErr, &ae) {
			return nil, ae
		}
		return nil, apierr.Infra("formulation_store_unavailable", txErr)
	}
}

// fanOutAlerts creates one alert per affected user for this history row.
// The history row is already committed; fan-out is best effort and a
// failure for one user never blocks the others. Existing
// (user, product, version) tuples are skipped so re-runs are idempotent.
func (fs *formulationService) fanOutAlerts(ctx context.Context, history *types.ProductFormulationHistory) int {
	routineUsers, err := fs.routineRepo.UserIDsWithProduct(ctx, nil, history.ProductID)
	if err != nil {
		fs.log.Error("Alert fan-out could not list routine users", "product_id", history.ProductID, "error", err)
		routineUsers = nil
	}
	reviewUsers, err := fs.reviewRepo.UserIDsByProduct(ctx, nil, history.ProductID)
	if err != nil {
		fs.log.Error("Alert fan-out could not list reviewers", "product_id", history.ProductID, "error", err)
		reviewUsers = nil
	}

	audience := make([]uuid.UUID, 0, len(routineUsers)+len(reviewUsers))
	seen := make(map[uuid.UUID]bool, len(routineUsers)+len(reviewUsers))
	for _, id := range append(routineUsers, reviewUsers...) {
		if !seen[id] {
			seen[id] = true
			audience = append(audience, id)
		}
	}

	var created atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, userID := range audience {
		userID := userID
		g.Go(func() error {
			exists, err := fs.alertRepo.ExistsTuple(gctx, nil, userID, history.ProductID, history.ID)
			if err != nil {
				fs.log.Warn("Alert fan-out lookup failed for user", "user_id", userID, "error", err)
				return nil
			}
			if exists {
				return nil
			}
			alert := &types.UserReformulationAlert{
				ID:                   uuid.New(),
				UserID:               userID,
				ProductID:            history.ProductID,
				FormulationHistoryID: history.ID,
			}
			if err := fs.alertRepo.Create(gctx, nil, alert); err != nil {
				if repos.IsUniqueViolation(err) {
					return nil
				}
				fs.log.Warn("Alert fan-out insert failed for user", "user_id", userID, "error", err)
				return nil
			}
			created.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(created.Load())
}

func (fs *formulationService) GetHistory(ctx context.Context, productID uuid.UUID) ([]*types.ProductFormulationHistory, error) {
	products, err := fs.productRepo.GetByIDs(ctx, nil, []uuid.UUID{productID})
	if err != nil {
		return nil, apierr.Infra("product_store_unavailable", err)
	}
	if len(products) == 0 {
		return nil, apierr.NotFound("product_not_found", fmt.Errorf("product %s does not exist", productID))
	}
	rows, err := fs.historyRepo.ListByProduct(ctx, nil, productID)
	if err != nil {
		return nil, apierr.Infra("formulation_store_unavailable", err)
	}
	return rows, nil
}

// ListAlertsForUser returns alerts newest first. Listing is the read
// receipt: every unseen alert returned is flipped to seen in the same
// transaction. There is no separate mark-read call.
func (fs *formulationService) ListAlertsForUser(ctx context.Context, userID uuid.UUID, includeDismissed bool) ([]*types.UserReformulationAlert, error) {
	var alerts []*types.UserReformulationAlert
	txErr := fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		alerts, err = fs.alertRepo.ListByUser(ctx, tx, userID, includeDismissed)
		if err != nil {
			return err
		}
		var unseen []uuid.UUID
		for _, a := range alerts {
			if !a.Seen {
				unseen = append(unseen, a.ID)
			}
		}
		if err := fs.alertRepo.MarkSeen(ctx, tx, unseen); err != nil {
			return err
		}
		for _, a := range alerts {
			a.Seen = true
		}
		return nil
	})
	if txErr != nil {
		return nil, apierr.Infra("alert_store_unavailable", txErr)
	}
	return alerts, nil
}

func (fs *formulationService) DismissAlert(ctx context.Context, userID, alertID uuid.UUID) error {
	alert, err := fs.alertRepo.GetByIDForUser(ctx, nil, alertID, userID)
	if err != nil {
		return apierr.Infra("alert_store_unavailable", err)
	}
	if alert == nil {
		return apierr.NotFound("alert_not_found", fmt.Errorf("alert %s does not exist for this user", alertID))
	}
	if err := fs.alertRepo.Dismiss(ctx, nil, alertID); err != nil {
		return apierr.Infra("alert_store_unavailable", err)
	}
	return nil
}

// rewriteIngredientList replaces the stored ProductIngredient rows with
// the scraped order, keeping only names that exist as catalog rows.
func (fs *formulationService) rewriteIngredientList(ctx context.Context, productID uuid.UUID, names []string) error {
	known, err := fs.ingredientRepo.GetByINCINames(ctx, nil, names)
	if err != nil {
		return err
	}
	byName := make(map[string]*types.Ingredient, len(known))
	for _, ing := range known {
		byName[normalizeINCI(ing.INCIName)] = ing
	}

	entries := make([]types.ProductIngredient, 0, len(names))
	position := 0
	for _, name := range names {
		ing, ok := byName[normalizeINCI(name)]
		if !ok {
			// Not yet curated as a catalog row; it joins the list once
			// catalog curation catches up.
			continue
		}
		position++
		entries = append(entries, types.ProductIngredient{
			ID:           uuid.New(),
			ProductID:    productID,
			IngredientID: ing.ID,
			Position:     position,
		})
	}
	return fs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fs.productRepo.ReplaceIngredients(ctx, tx, productID, entries)
	})
}

func normalizeDiff(diff FormulationDiff) FormulationDiff {
	clean := func(names []string) []string {
		out := make([]string, 0, len(names))
		for _, n := range names {
			if trimmed := strings.TrimSpace(n); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return FormulationDiff{
		Added:     clean(diff.Added),
		Removed:   clean(diff.Removed),
		Reordered: diff.Reordered,
	}
}

func normalizeINCI(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func nameSet(names []string) map[string]struct{} {
	out := make(map[string]struct{}, len(names))
	for _, n := range names {
		out[normalizeINCI(n)] = struct{}{}
	}
	return out
}

func sharedInOrder(names []string, other map[string]struct{}) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		key := normalizeINCI(n)
		if _, ok := other[key]; ok {
			out = append(out, key)
		}
	}
	return out
}

func emptyIfNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

