package refdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestDefaultsPositions(t *testing.T) {
	tables := Defaults()
	cases := []struct {
		category string
		want     int
	}{
		{types.CategoryCleanser, 1},
		{types.CategoryToner, 2},
		{types.CategoryExfoliator, 2},
		{types.CategoryMist, 2},
		{types.CategoryEssence, 3},
		{types.CategorySerum, 4},
		{types.CategoryAmpoule, 4},
		{types.CategorySpotTreatment, 4},
		{types.CategoryEyeCare, 5},
		{types.CategoryMoisturizer, 6},
		{types.CategoryOil, 6},
		{types.CategoryLipCare, 7},
		{types.CategorySunscreen, 8},
		{types.CategoryMask, 8},
		{"something_unknown", 5},
	}
	for _, tc := range cases {
		if got := tables.Position(tc.category); got != tc.want {
			t.Fatalf("Position(%q)=%d, want %d", tc.category, got, tc.want)
		}
	}
}

func TestDefaultsWaitRuleOrder(t *testing.T) {
	// Rule precedence is a documented contract: vitamin C, then AHA, then
	// BHA, then retinoids.
	tables := Defaults()
	wantOrder := []string{"vitamin_c", "aha", "bha", "retinoid"}
	if len(tables.WaitRules) != len(wantOrder) {
		t.Fatalf("got %d wait rules, want %d", len(tables.WaitRules), len(wantOrder))
	}
	for i, name := range wantOrder {
		if tables.WaitRules[i].Name != name {
			t.Fatalf("wait rule %d is %q, want %q", i, tables.WaitRules[i].Name, name)
		}
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refdata.yaml")
	content := []byte(`
version: 7
category_positions:
  cleanser: 1
  sunscreen: 3
default_position: 4
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	store := NewStore(testLogger(t))
	if err := store.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	tables := store.Tables()
	if tables.Version != 7 {
		t.Fatalf("version=%d, want 7", tables.Version)
	}
	if got := tables.Position(types.CategorySunscreen); got != 3 {
		t.Fatalf("sunscreen position=%d, want 3", got)
	}
	if got := tables.Position("unknown"); got != 4 {
		t.Fatalf("unknown position=%d, want 4", got)
	}
	// Fields absent from the file keep their defaults.
	if len(tables.WaitRules) != 4 {
		t.Fatalf("wait rules=%d, want defaults (4)", len(tables.WaitRules))
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refdata.yaml")
	content := []byte(`
wait_rules:
  - name: broken
    minutes: 0
    triggers: ["x"]
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	store := NewStore(testLogger(t))
	if err := store.LoadFile(path); err == nil {
		t.Fatal("LoadFile accepted a rule with zero minutes")
	}
	// Previous snapshot survives the failed load.
	if len(store.Tables().WaitRules) != 4 {
		t.Fatal("failed load replaced the previous snapshot")
	}
}
