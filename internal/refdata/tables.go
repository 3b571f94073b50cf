package refdata

import (
	"strings"
	"time"
)

// Tables is the in-memory reference store. Construct once at process start
// and inject; the maps are never written after construction.
type Tables struct {
	foods     map[string]FoodInfo
	drugs     map[string]DrugInfo
	insulins  map[string]InsulinProfile
	exercises map[string]ExerciseInfo
}

// NewTables builds the built-in reference store.
func NewTables() *Tables {
	t := &Tables{
		foods:     make(map[string]FoodInfo, len(foodTable)),
		drugs:     make(map[string]DrugInfo, len(drugTable)),
		insulins:  make(map[string]InsulinProfile, len(insulinTable)),
		exercises: make(map[string]ExerciseInfo, len(exerciseTable)),
	}
	for _, f := range foodTable {
		t.foods[strings.ToLower(f.Name)] = f
	}
	for _, d := range drugTable {
		t.drugs[strings.ToLower(d.Name)] = d
	}
	for _, i := range insulinTable {
		t.insulins[strings.ToLower(i.Type)] = i
	}
	for _, e := range exerciseTable {
		t.exercises[strings.ToLower(e.Type)] = e
	}
	return t
}

// Food resolves a food by exact name first, then by substring match either
// direction, mirroring how patients type food names.
func (t *Tables) Food(name string) (FoodInfo, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return FoodInfo{}, false
	}
	if f, ok := t.foods[key]; ok {
		return f, true
	}
	for tableKey, f := range t.foods {
		if strings.Contains(tableKey, key) || strings.Contains(key, tableKey) {
			return f, true
		}
	}
	return FoodInfo{}, false
}

// Drug resolves a medication by name.
func (t *Tables) Drug(name string) (DrugInfo, bool) {
	d, ok := t.drugs[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// Insulin resolves an insulin action profile by type.
func (t *Tables) Insulin(insulinType string) (InsulinProfile, bool) {
	i, ok := t.insulins[strings.ToLower(strings.TrimSpace(insulinType))]
	return i, ok
}

// Exercise resolves an activity type.
func (t *Tables) Exercise(exerciseType string) (ExerciseInfo, bool) {
	e, ok := t.exercises[strings.ToLower(strings.TrimSpace(exerciseType))]
	return e, ok
}

// Values per 100g.
var foodTable = []FoodInfo{
	{Name: "white rice", GI: 73, CarbsG: 28, ProteinG: 2.6, FatG: 0.3, FiberG: 0.4},
	{Name: "brown rice", GI: 68, CarbsG: 23, ProteinG: 2.7, FatG: 0.8, FiberG: 1.8},
	{Name: "quinoa", GI: 53, CarbsG: 21, ProteinG: 4.4, FatG: 1.9, FiberG: 2.8},
	{Name: "noodles", GI: 55, CarbsG: 25, ProteinG: 5, FatG: 0.5, FiberG: 1.2},
	{Name: "pasta", GI: 49, CarbsG: 31, ProteinG: 5, FatG: 0.9, FiberG: 1.8},
	{Name: "white bread", GI: 75, CarbsG: 49, ProteinG: 9, FatG: 3.2, FiberG: 2.7},
	{Name: "whole wheat bread", GI: 69, CarbsG: 43, ProteinG: 13, FatG: 3.4, FiberG: 7},
	{Name: "baguette", GI: 95, CarbsG: 56, ProteinG: 8, FatG: 1.5, FiberG: 2.7},
	{Name: "oatmeal", GI: 55, CarbsG: 66, ProteinG: 17, FatG: 7, FiberG: 11},
	{Name: "corn", GI: 52, CarbsG: 22, ProteinG: 3.3, FatG: 1.2, FiberG: 2.7},
	{Name: "potato", GI: 85, CarbsG: 17, ProteinG: 2, FatG: 0.1, FiberG: 2.2},
	{Name: "sweet potato", GI: 77, CarbsG: 20, ProteinG: 1.6, FatG: 0.1, FiberG: 3},
	{Name: "pumpkin", GI: 75, CarbsG: 7, ProteinG: 1, FatG: 0.1, FiberG: 0.8},
	{Name: "carrot", GI: 71, CarbsG: 10, ProteinG: 0.9, FatG: 0.2, FiberG: 2.8},
	{Name: "broccoli", GI: 15, CarbsG: 7, ProteinG: 2.8, FatG: 0.4, FiberG: 2.6},
	{Name: "spinach", GI: 15, CarbsG: 3.6, ProteinG: 2.9, FatG: 0.4, FiberG: 2.2},
	{Name: "apple", GI: 36, CarbsG: 14, ProteinG: 0.3, FatG: 0.2, FiberG: 2.4},
	{Name: "banana", GI: 51, CarbsG: 23, ProteinG: 1.1, FatG: 0.3, FiberG: 2.6},
	{Name: "orange", GI: 43, CarbsG: 12, ProteinG: 0.9, FatG: 0.1, FiberG: 2.4},
	{Name: "grapes", GI: 59, CarbsG: 18, ProteinG: 0.7, FatG: 0.2, FiberG: 0.9},
	{Name: "watermelon", GI: 72, CarbsG: 8, ProteinG: 0.6, FatG: 0.2, FiberG: 0.4},
	{Name: "strawberry", GI: 40, CarbsG: 8, ProteinG: 0.7, FatG: 0.3, FiberG: 2},
	{Name: "milk", GI: 27, CarbsG: 5, ProteinG: 3.4, FatG: 3.9},
	{Name: "yogurt", GI: 33, CarbsG: 12, ProteinG: 3, FatG: 3},
	{Name: "tofu", GI: 15, CarbsG: 4, ProteinG: 8, FatG: 4, FiberG: 0.3},
	{Name: "peanuts", GI: 13, CarbsG: 20, ProteinG: 26, FatG: 49, FiberG: 8.5},
	{Name: "honey", GI: 61, CarbsG: 82, ProteinG: 0.3, FiberG: 0.2},
	{Name: "cola", GI: 63, CarbsG: 11},
	{Name: "orange juice", GI: 50, CarbsG: 10, ProteinG: 0.7, FatG: 0.2, FiberG: 0.2},
	{Name: "glucose", GI: 100, CarbsG: 100},
	{Name: "sucrose", GI: 65, CarbsG: 100},
}

var drugTable = []DrugInfo{
	{Name: "metformin", Class: "biguanide", Onset: time.Hour, Peak: 2 * time.Hour, Duration: 6 * time.Hour, HypoRisk: "low"},
	{Name: "acarbose", Class: "alpha-glucosidase inhibitor", Onset: 30 * time.Minute, Peak: time.Hour, Duration: 4 * time.Hour, HypoRisk: "low"},
	{Name: "glibenclamide", Class: "sulfonylurea", Onset: time.Hour, Peak: 3 * time.Hour, Duration: 12 * time.Hour, HypoRisk: "high"},
	{Name: "gliclazide", Class: "sulfonylurea", Onset: time.Hour, Peak: 3 * time.Hour, Duration: 10 * time.Hour, HypoRisk: "medium"},
	{Name: "glipizide", Class: "sulfonylurea", Onset: 30 * time.Minute, Peak: 2 * time.Hour, Duration: 8 * time.Hour, HypoRisk: "medium"},
	{Name: "glimepiride", Class: "sulfonylurea", Onset: 30 * time.Minute, Peak: 2 * time.Hour, Duration: 10 * time.Hour, HypoRisk: "medium"},
	{Name: "repaglinide", Class: "meglitinide", Onset: 15 * time.Minute, Peak: time.Hour, Duration: 4 * time.Hour, HypoRisk: "medium"},
	{Name: "nateglinide", Class: "meglitinide", Onset: 15 * time.Minute, Peak: time.Hour, Duration: 3 * time.Hour, HypoRisk: "medium"},
	{Name: "pioglitazone", Class: "thiazolidinedione", Onset: time.Hour, Peak: 3 * time.Hour, Duration: 24 * time.Hour, HypoRisk: "low"},
	{Name: "sitagliptin", Class: "dpp-4 inhibitor", Onset: time.Hour, Peak: 2 * time.Hour, Duration: 24 * time.Hour, HypoRisk: "low"},
	{Name: "empagliflozin", Class: "sglt-2 inhibitor", Onset: time.Hour, Peak: 2 * time.Hour, Duration: 24 * time.Hour, HypoRisk: "low"},
	{Name: "dapagliflozin", Class: "sglt-2 inhibitor", Onset: time.Hour, Peak: 2 * time.Hour, Duration: 24 * time.Hour, HypoRisk: "low"},
	{Name: "semaglutide", Class: "glp-1 receptor agonist", Onset: time.Hour, Peak: 3 * time.Hour, Duration: 168 * time.Hour, HypoRisk: "low"},
	{Name: "liraglutide", Class: "glp-1 receptor agonist", Onset: time.Hour, Peak: 3 * time.Hour, Duration: 24 * time.Hour, HypoRisk: "low"},
}

var insulinTable = []InsulinProfile{
	{Type: "rapid", Onset: 15 * time.Minute, Peak: time.Hour, Duration: 3 * time.Hour, HypoRisk: "medium"},
	{Type: "short", Onset: 30 * time.Minute, Peak: 2 * time.Hour, Duration: 5 * time.Hour, HypoRisk: "medium"},
	{Type: "intermediate", Onset: time.Hour, Peak: 6 * time.Hour, Duration: 12 * time.Hour, HypoRisk: "medium"},
	{Type: "long", Onset: 2 * time.Hour, Duration: 24 * time.Hour, HypoRisk: "low"},
	{Type: "ultra-long", Onset: 2 * time.Hour, Duration: 42 * time.Hour, HypoRisk: "low"},
	{Type: "premixed", Onset: 30 * time.Minute, Peak: 2 * time.Hour, Duration: 12 * time.Hour, HypoRisk: "medium"},
}

var exerciseTable = []ExerciseInfo{
	{Type: "walking", Intensity: 1, MET: 3.0},
	{Type: "jogging", Intensity: 2, MET: 7.0},
	{Type: "running", Intensity: 3, MET: 9.8},
	{Type: "cycling", Intensity: 2, MET: 6.0},
	{Type: "swimming", Intensity: 2, MET: 6.0},
	{Type: "yoga", Intensity: 1, MET: 2.5},
	{Type: "strength", Intensity: 3, MET: 8.0},
	{Type: "hiking", Intensity: 3, MET: 8.0},
}
