// Package refdata holds the static clinical reference tables: food
// GI/nutrition values, medication pharmacokinetic classes, insulin action
// profiles, and exercise intensities. Tables are immutable and consumed
// only through the narrow lookup interfaces.
package refdata

import "time"

// FoodInfo is the per-100g nutrition record for a food.
type FoodInfo struct {
	Name     string
	GI       float64
	CarbsG   float64
	ProteinG float64
	FatG     float64
	FiberG   float64
}

// GlycemicLoad returns GL for the given carb grams.
func (f FoodInfo) GlycemicLoad(carbsG float64) float64 {
	return f.GI * carbsG / 100
}

// GICategory buckets the food's glycemic index.
func (f FoodInfo) GICategory() string {
	switch {
	case f.GI < 55:
		return "low"
	case f.GI < 70:
		return "medium"
	default:
		return "high"
	}
}

// GLCategory buckets a glycemic load value.
func GLCategory(gl float64) string {
	switch {
	case gl < 10:
		return "low"
	case gl < 20:
		return "medium"
	default:
		return "high"
	}
}

// DrugInfo describes a glucose-lowering medication's action profile.
type DrugInfo struct {
	Name     string
	Class    string
	Onset    time.Duration
	Peak     time.Duration
	Duration time.Duration
	HypoRisk string
}

// InsulinProfile describes an insulin type's onset/peak/duration. Peak is
// zero for peakless basal insulins.
type InsulinProfile struct {
	Type     string
	Onset    time.Duration
	Peak     time.Duration
	Duration time.Duration
	HypoRisk string
}

// ExerciseInfo describes an activity's metabolic intensity.
type ExerciseInfo struct {
	Type      string
	Intensity int
	MET       float64
}

// FoodLookup resolves a food name to its nutrition record.
type FoodLookup interface {
	Food(name string) (FoodInfo, bool)
}

// DrugLookup resolves medication and insulin action profiles.
type DrugLookup interface {
	Drug(name string) (DrugInfo, bool)
	Insulin(insulinType string) (InsulinProfile, bool)
}

// ExerciseLookup resolves an activity type.
type ExerciseLookup interface {
	Exercise(exerciseType string) (ExerciseInfo, bool)
}
