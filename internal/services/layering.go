package services

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/refdata"
	"github.com/glowlab/glowlab-backend/internal/types"
)

// WaitSuggestion recommends a pause after applying one product. A product
// triggers at most one suggestion; the first matching rule wins.
type WaitSuggestion struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Trigger     string    `json:"trigger"`
	Minutes     int       `json:"minutes"`
	Reason      string    `json:"reason"`
}

// MissingStepAlert flags a step category a routine lacks.
type MissingStepAlert struct {
	Category   string `json:"category"`
	Label      string `json:"label"`
	Importance string `json:"importance"`
	Reason     string `json:"reason"`
}

// LayeringService computes application order, wait-time gaps and
// missing-step warnings. All operations are pure functions of their inputs
// and the injected reference tables: no storage access, no hidden state,
// identical inputs always produce identical outputs.
type LayeringService interface {
	OrderProducts(products []*types.Product) []*types.Product
	CanonicalSteps(routineType string) []string
	SuggestWaitTimes(orderedProducts []*types.Product) []WaitSuggestion
	DetectMissingSteps(routineType string, products []*types.Product) []MissingStepAlert
}

type layeringService struct {
	refdata *refdata.Store
	log     *logger.Logger
}

func NewLayeringService(store *refdata.Store, log *logger.Logger) LayeringService {
	return &layeringService{
		refdata: store,
		log:     log.With("service", "LayeringService"),
	}
}

func (ls *layeringService) OrderProducts(products []*types.Product) []*types.Product {
	tables := ls.refdata.Tables()
	out := make([]*types.Product, len(products))
	copy(out, products)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := tables.Position(out[i].Category), tables.Position(out[j].Category)
		if pi != pj {
			return pi < pj
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func (ls *layeringService) CanonicalSteps(routineType string) []string {
	tables := ls.refdata.Tables()
	steps, ok := tables.CanonicalSteps[routineType]
	if !ok {
		steps = tables.CanonicalSteps[types.RoutineTypeAM]
	}
	out := make([]string, len(steps))
	copy(out, steps)
	return out
}

func (ls *layeringService) SuggestWaitTimes(orderedProducts []*types.Product) []WaitSuggestion {
	tables := ls.refdata.Tables()
	var out []WaitSuggestion
	for _, p := range orderedProducts {
		haystack := productSearchText(p)
		for _, rule := range tables.WaitRules {
			if !matchesAnyTrigger(haystack, rule.Triggers) {
				continue
			}
			out = append(out, WaitSuggestion{
				ProductID:   p.ID,
				ProductName: p.Name,
				Trigger:     rule.Name,
				Minutes:     rule.Minutes,
				Reason:      rule.Reason,
			})
			break
		}
	}
	return out
}

func (ls *layeringService) DetectMissingSteps(routineType string, products []*types.Product) []MissingStepAlert {
	tables := ls.refdata.Tables()
	present := make(map[string]bool, len(products))
	for _, p := range products {
		present[p.Category] = true
	}

	var out []MissingStepAlert
	for _, rule := range tables.StepRules {
		if len(rule.RoutineTypes) > 0 && !containsString(rule.RoutineTypes, routineType) {
			continue
		}
		satisfied := false
		for _, c := range rule.Categories {
			if present[c] {
				satisfied = true
				break
			}
		}
		if satisfied {
			continue
		}
		out = append(out, MissingStepAlert{
			Category:   rule.Categories[0],
			Label:      rule.Label,
			Importance: rule.Importance,
			Reason:     rule.Reason,
		})
	}
	return out
}

// productSearchText lowers the product name plus every known ingredient
// name into one searchable string.
func productSearchText(p *types.Product) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(p.Name))
	for _, pi := range p.Ingredients {
		if pi.Ingredient == nil {
			continue
		}
		b.WriteString("\n")
		b.WriteString(strings.ToLower(pi.Ingredient.INCIName))
		if pi.Ingredient.DisplayName != "" {
			b.WriteString("\n")
			b.WriteString(strings.ToLower(pi.Ingredient.DisplayName))
		}
	}
	return b.String()
}

func matchesAnyTrigger(haystack string, triggers []string) bool {
	for _, trigger := range triggers {
		if strings.Contains(haystack, strings.ToLower(trigger)) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
