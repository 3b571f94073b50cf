package refdata

import (
	"testing"
	"time"
)

func TestFoodExactLookup(t *testing.T) {
	tables := NewTables()
	food, ok := tables.Food("White Rice")
	if !ok {
		t.Fatalf("expected white rice to resolve")
	}
	if food.GI != 73 {
		t.Fatalf("expected GI 73 for white rice, got %v", food.GI)
	}
	if food.GICategory() != "high" {
		t.Fatalf("expected high GI category, got %q", food.GICategory())
	}
}

func TestFoodSubstringLookup(t *testing.T) {
	tables := NewTables()
	if _, ok := tables.Food("rice"); !ok {
		t.Fatalf("expected partial name to match a rice entry")
	}
	if _, ok := tables.Food("steamed white rice"); !ok {
		t.Fatalf("expected longer name containing a table key to match")
	}
	if _, ok := tables.Food("unobtainium"); ok {
		t.Fatalf("unknown food must not resolve")
	}
	if _, ok := tables.Food(""); ok {
		t.Fatalf("empty name must not resolve")
	}
}

func TestGlycemicLoad(t *testing.T) {
	tables := NewTables()
	food, _ := tables.Food("white rice")
	// 150g portion: 42g carbs at GI 73.
	gl := food.GlycemicLoad(food.CarbsG * 1.5)
	if gl < 30 || gl > 31 {
		t.Fatalf("expected GL near 30.7, got %v", gl)
	}
	if GLCategory(gl) != "high" {
		t.Fatalf("expected high GL category, got %q", GLCategory(gl))
	}
	if GLCategory(5) != "low" || GLCategory(15) != "medium" {
		t.Fatalf("GL category bands wrong")
	}
}

func TestDrugLookup(t *testing.T) {
	tables := NewTables()
	drug, ok := tables.Drug("Metformin")
	if !ok {
		t.Fatalf("expected metformin to resolve")
	}
	if drug.Class != "biguanide" {
		t.Fatalf("expected biguanide class, got %q", drug.Class)
	}
	if drug.HypoRisk != "low" {
		t.Fatalf("expected low hypo risk for metformin, got %q", drug.HypoRisk)
	}
	if sulf, ok := tables.Drug("glibenclamide"); !ok || sulf.HypoRisk != "high" {
		t.Fatalf("expected high hypo risk for glibenclamide")
	}
}

func TestInsulinLookup(t *testing.T) {
	tables := NewTables()
	rapid, ok := tables.Insulin("rapid")
	if !ok {
		t.Fatalf("expected rapid insulin to resolve")
	}
	if rapid.Onset != 15*time.Minute {
		t.Fatalf("expected 15m onset for rapid insulin, got %v", rapid.Onset)
	}
	long, ok := tables.Insulin("long")
	if !ok {
		t.Fatalf("expected long insulin to resolve")
	}
	if long.Peak != 0 {
		t.Fatalf("basal insulin should be peakless, got %v", long.Peak)
	}
}

func TestExerciseLookup(t *testing.T) {
	tables := NewTables()
	run, ok := tables.Exercise("running")
	if !ok {
		t.Fatalf("expected running to resolve")
	}
	if run.Intensity != 3 {
		t.Fatalf("expected intensity 3 for running, got %d", run.Intensity)
	}
	if _, ok := tables.Exercise("curling"); ok {
		t.Fatalf("unknown exercise must not resolve")
	}
}
