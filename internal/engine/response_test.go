package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/glycostack/glyco-engine/internal/models"
	"github.com/glycostack/glyco-engine/internal/refdata"
)

func mealEvent(t *testing.T, at string) models.Event {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", at)
	if err != nil {
		t.Fatalf("bad event time: %v", err)
	}
	return models.Event{Kind: models.EventMeal, Timestamp: ts, FoodName: "white rice", WeightG: 150}
}

func newTestAnalyzer() *ResponseAnalyzer {
	tables := refdata.NewTables()
	return NewResponseAnalyzer(DefaultResponseOptions(), tables, tables, tables)
}

func TestAnalyzeMealResponse(t *testing.T) {
	series := seriesAt(t, "2026-02-15 08:00", 15, 95, 98, 140, 160, 120, 100)
	analyzer := newTestAnalyzer()

	resp, err := analyzer.Analyze(series, mealEvent(t, "2026-02-15 08:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.BaselineGlucose != 95 {
		t.Fatalf("expected baseline 95, got %v", resp.BaselineGlucose)
	}
	if resp.PeakGlucose != 160 {
		t.Fatalf("expected peak 160, got %v", resp.PeakGlucose)
	}
	if resp.TimeToPeak != 45*time.Minute {
		t.Fatalf("expected time to peak 45m, got %v", resp.TimeToPeak)
	}
	if !resp.Recovered {
		t.Fatalf("expected recovery within window")
	}
	if resp.RecoveryTime != 75*time.Minute {
		t.Fatalf("expected recovery at 75m, got %v", resp.RecoveryTime)
	}
	if resp.IncrementalAUC <= 0 {
		t.Fatalf("expected positive incremental AUC, got %v", resp.IncrementalAUC)
	}
	// white rice at 150g: GI 73, 28g carbs per 100g.
	wantGL := 73 * (28 * 1.5) / 100
	if math.Abs(resp.GlycemicLoad-wantGL) > 0.01 {
		t.Fatalf("expected glycemic load %v, got %v", wantGL, resp.GlycemicLoad)
	}
}

func TestAnalyzeNoRecovery(t *testing.T) {
	series := seriesAt(t, "2026-02-15 08:00", 15, 95, 130, 160, 170, 165, 160)
	analyzer := newTestAnalyzer()

	resp, err := analyzer.Analyze(series, mealEvent(t, "2026-02-15 08:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Recovered {
		t.Fatalf("glucose never returned to baseline, expected Recovered false")
	}
	if resp.RecoveryTime != 0 {
		t.Fatalf("recovery time must stay zero without recovery, got %v", resp.RecoveryTime)
	}
}

func TestAnalyzeEventOutOfRange(t *testing.T) {
	series := seriesAt(t, "2026-02-15 08:00", 15, 95, 98, 140)
	analyzer := newTestAnalyzer()

	_, err := analyzer.Analyze(series, mealEvent(t, "2026-02-16 08:00"))
	var rangeErr *models.EventOutOfRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected EventOutOfRangeError, got %v", err)
	}
}

func TestAnalyzeSparseLookahead(t *testing.T) {
	// Only the event-time sample falls inside the lookahead window.
	base, _ := time.Parse("2006-01-02 15:04", "2026-02-15 08:00")
	series := models.NewSeries([]models.GlucoseSample{
		{Timestamp: base.Add(-time.Hour), Value: 90},
		{Timestamp: base, Value: 95},
		{Timestamp: base.Add(10 * time.Hour), Value: 100},
	})
	analyzer := newTestAnalyzer()

	_, err := analyzer.Analyze(series, models.Event{Kind: models.EventMeal, Timestamp: base})
	var sparseErr *models.SparseDataError
	if !errors.As(err, &sparseErr) {
		t.Fatalf("expected SparseDataError, got %v", err)
	}
}

func TestAnalyzeWithoutBaselineWindow(t *testing.T) {
	// Event at the very start of the series: no pre-event readings.
	series := seriesAt(t, "2026-02-15 08:00", 15, 98, 120, 150, 130, 105)
	analyzer := newTestAnalyzer()

	resp, err := analyzer.Analyze(series, models.Event{Kind: models.EventMeal, Timestamp: series.Start()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.BaselineGlucose != 98 {
		t.Fatalf("expected event-time reading as baseline, got %v", resp.BaselineGlucose)
	}
}

func TestWindowCappedByDrugDuration(t *testing.T) {
	series := seriesAt(t, "2026-02-15 08:00", 30, 110, 115, 112, 108, 105, 102, 100, 98, 96, 95, 94, 93)
	analyzer := newTestAnalyzer()
	ts, _ := time.Parse("2006-01-02 15:04", "2026-02-15 08:30")

	// Acarbose acts for 4 hours; the window must stop there instead of
	// running out the 6-hour medication default.
	win, err := analyzer.Window(series, models.Event{
		Kind:      models.EventMedication,
		Timestamp: ts,
		DrugName:  "acarbose",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := win.End.Sub(ts); got != 4*time.Hour {
		t.Fatalf("expected 4h lookahead for acarbose, got %v", got)
	}

	// An unknown drug keeps the configured default.
	win, err = analyzer.Window(series, models.Event{
		Kind:      models.EventMedication,
		Timestamp: ts,
		DrugName:  "unknown-drug",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := win.End.Sub(ts); got != 6*time.Hour {
		t.Fatalf("expected 6h default lookahead, got %v", got)
	}
}

func TestAssessMealGrades(t *testing.T) {
	analyzer := newTestAnalyzer()
	cases := []struct {
		excursion float64
		grade     string
	}{
		{30, "excellent"},
		{55, "good"},
		{85, "fair"},
		{120, "poor"},
	}
	for _, tc := range cases {
		resp := models.EventResponse{BaselineGlucose: 100, PeakGlucose: 100 + tc.excursion}
		win := models.ResponseWindow{Event: models.Event{Kind: models.EventMeal}}
		got := analyzer.Assess(win, resp)
		if got.Grade != tc.grade {
			t.Fatalf("excursion %v: expected grade %q, got %q", tc.excursion, tc.grade, got.Grade)
		}
	}
}

func TestAssessInsulinHypoNote(t *testing.T) {
	base, _ := time.Parse("2006-01-02 15:04", "2026-02-15 12:00")
	lookahead := models.NewSeries([]models.GlucoseSample{
		{Timestamp: base, Value: 150},
		{Timestamp: base.Add(30 * time.Minute), Value: 100},
		{Timestamp: base.Add(time.Hour), Value: 62},
	})
	analyzer := newTestAnalyzer()

	win := models.ResponseWindow{
		Event:     models.Event{Kind: models.EventInsulin, Timestamp: base, InsulinType: "rapid", Dose: 4},
		Lookahead: lookahead,
	}
	resp := models.EventResponse{BaselineGlucose: 150, PeakGlucose: 150, Recovered: true}
	got := analyzer.Assess(win, resp)
	if len(got.Notes) == 0 {
		t.Fatalf("expected a hypoglycemia note for a 62 mg/dL dip")
	}
}
