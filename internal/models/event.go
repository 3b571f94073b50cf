package models

import "time"

// EventKind enumerates event categories that anchor a response analysis.
type EventKind string

const (
	EventMeal       EventKind = "meal"
	EventExercise   EventKind = "exercise"
	EventMedication EventKind = "medication"
	EventInsulin    EventKind = "insulin"
	EventSleep      EventKind = "sleep"
)

// Event is an immutable analysis input anchoring a response window.
// Attribute fields are kind-specific; unused fields stay zero.
type Event struct {
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// Meal attributes.
	FoodName string  `json:"food_name,omitempty"`
	WeightG  float64 `json:"weight_g,omitempty"`
	CarbsG   float64 `json:"carbs_g,omitempty"`
	GI       float64 `json:"gi,omitempty"`

	// Exercise attributes.
	ExerciseType    string `json:"exercise_type,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`

	// Medication / insulin attributes.
	DrugName    string  `json:"drug_name,omitempty"`
	InsulinType string  `json:"insulin_type,omitempty"`
	Dose        float64 `json:"dose,omitempty"`
	DoseUnit    string  `json:"dose_unit,omitempty"`
}

// GlycemicLoad returns GI*carbs/100, or zero when either is unset.
func (e Event) GlycemicLoad() float64 {
	if e.GI <= 0 || e.CarbsG <= 0 {
		return 0
	}
	return e.GI * e.CarbsG / 100
}
