package refdata

import "github.com/glowlab/glowlab-backend/internal/types"

const (
	ImportanceRequired    = "required"
	ImportanceRecommended = "recommended"
)

// WaitRule maps ingredient/product name triggers to a wait time. Rules are
// evaluated top to bottom and the first match wins, so the order in the
// table is a behavioral contract.
type WaitRule struct {
	Name     string   `yaml:"name"`
	Triggers []string `yaml:"triggers"`
	Minutes  int      `yaml:"minutes"`
	Reason   string   `yaml:"reason"`
}

// StepRule declares a step category a routine should contain. Any of the
// listed categories satisfies the rule. RoutineTypes empty means the rule
// applies to every routine type.
type StepRule struct {
	Importance   string   `yaml:"importance"`
	Categories   []string `yaml:"categories"`
	Label        string   `yaml:"label"`
	Reason       string   `yaml:"reason"`
	RoutineTypes []string `yaml:"routine_types"`
}

// Tables is one immutable snapshot of the layering reference data.
type Tables struct {
	Version           int              `yaml:"version"`
	CategoryPositions map[string]int   `yaml:"category_positions"`
	DefaultPosition   int              `yaml:"default_position"`
	WaitRules         []WaitRule       `yaml:"wait_rules"`
	StepRules         []StepRule       `yaml:"step_rules"`
	CanonicalSteps    map[string][]string `yaml:"canonical_steps"`
}

// Position resolves a product category to its layering slot.
func (t *Tables) Position(category string) int {
	if pos, ok := t.CategoryPositions[category]; ok {
		return pos
	}
	return t.DefaultPosition
}

// Defaults returns the compiled-in tables used when no config file is
// provided or a reload fails before the first successful load.
func Defaults() *Tables {
	return &Tables{
		Version: 1,
		CategoryPositions: map[string]int{
			types.CategoryCleanser:      1,
			types.CategoryToner:         2,
			types.CategoryExfoliator:    2,
			types.CategoryMist:          2,
			types.CategoryEssence:       3,
			types.CategorySerum:         4,
			types.CategoryAmpoule:       4,
			types.CategorySpotTreatment: 4,
			types.CategoryEyeCare:       5,
			types.CategoryMoisturizer:   6,
			types.CategoryOil:           6,
			types.CategoryLipCare:       7,
			types.CategorySunscreen:     8,
			types.CategoryMask:          8,
		},
		DefaultPosition: 5,
		WaitRules: []WaitRule{
			{
				Name:     "vitamin_c",
				Triggers: []string{"vitamin c", "ascorbic acid", "ascorbyl", "ethyl ascorbic"},
				Minutes:  15,
				Reason:   "Vitamin C absorbs at low pH; waiting lets it settle before the next layer",
			},
			{
				Name:     "aha",
				Triggers: []string{"aha", "glycolic acid", "lactic acid", "mandelic acid"},
				Minutes:  20,
				Reason:   "AHA exfoliants need time to work before being buffered by the next product",
			},
			{
				Name:     "bha",
				Triggers: []string{"bha", "salicylic acid", "betaine salicylate"},
				Minutes:  20,
				Reason:   "BHA exfoliants need time to penetrate oily areas before the next layer",
			},
			{
				Name:     "retinoid",
				Triggers: []string{"retinol", "retinal", "retinoid", "adapalene", "tretinoin", "bakuchiol"},
				Minutes:  5,
				Reason:   "Applying retinoids to fully dry skin reduces irritation",
			},
		},
		StepRules: []StepRule{
			{
				Importance: ImportanceRequired,
				Categories: []string{types.CategoryCleanser},
				Label:      "Cleanser",
				Reason:     "Cleansing preps skin so actives can absorb",
			},
			{
				Importance: ImportanceRequired,
				Categories: []string{types.CategoryMoisturizer, types.CategoryOil},
				Label:      "Moisturizer",
				Reason:     "A moisturizer or facial oil seals the skin barrier",
			},
			{
				Importance:   ImportanceRequired,
				Categories:   []string{types.CategorySunscreen},
				Label:        "Sunscreen",
				Reason:       "Sunscreen is the single most important anti-aging step",
				RoutineTypes: []string{types.RoutineTypeAM},
			},
			{
				Importance: ImportanceRecommended,
				Categories: []string{types.CategoryToner},
				Label:      "Toner",
				Reason:     "Toner rebalances pH and preps skin for better absorption",
			},
		},
		CanonicalSteps: map[string][]string{
			types.RoutineTypeAM: {
				"Cleanser", "Toner", "Essence", "Serum / Ampoule",
				"Eye Care", "Moisturizer", "Sunscreen",
			},
			types.RoutineTypePM: {
				"Cleanser", "Toner", "Essence", "Serum / Ampoule",
				"Eye Care", "Moisturizer", "Sleeping Mask",
			},
		},
	}
}
