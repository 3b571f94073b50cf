package engine

import (
	"fmt"
	"time"

	"github.com/glycostack/glyco-engine/internal/models"
	"github.com/glycostack/glyco-engine/internal/refdata"
)

// ResponseOptions bounds the analysis window per event kind. Zero maps fall
// back to the built-in defaults.
type ResponseOptions struct {
	Lookback           map[models.EventKind]time.Duration
	Lookahead          map[models.EventKind]time.Duration
	RecoveryTolerance  float64
	MinLookaheadPoints int
}

// DefaultResponseOptions returns the clinical default windows: 30 minutes of
// baseline before every event, and a lookahead sized to the event's expected
// action span.
func DefaultResponseOptions() ResponseOptions {
	return ResponseOptions{
		Lookback: map[models.EventKind]time.Duration{
			models.EventMeal:       30 * time.Minute,
			models.EventExercise:   30 * time.Minute,
			models.EventMedication: 30 * time.Minute,
			models.EventInsulin:    30 * time.Minute,
			models.EventSleep:      30 * time.Minute,
		},
		Lookahead: map[models.EventKind]time.Duration{
			models.EventMeal:       2 * time.Hour,
			models.EventExercise:   2 * time.Hour,
			models.EventMedication: 6 * time.Hour,
			models.EventInsulin:    3 * time.Hour,
			models.EventSleep:      8 * time.Hour,
		},
		RecoveryTolerance:  10,
		MinLookaheadPoints: 3,
	}
}

// ResponseAnalyzer derives glucose responses around discrete events. The
// reference lookups are optional; without them meal enrichment and drug
// annotations are simply skipped.
type ResponseAnalyzer struct {
	opts  ResponseOptions
	foods refdata.FoodLookup
	drugs refdata.DrugLookup
	moves refdata.ExerciseLookup
}

// NewResponseAnalyzer builds an analyzer. Nil lookups are allowed.
func NewResponseAnalyzer(opts ResponseOptions, foods refdata.FoodLookup, drugs refdata.DrugLookup, moves refdata.ExerciseLookup) *ResponseAnalyzer {
	def := DefaultResponseOptions()
	if opts.Lookback == nil {
		opts.Lookback = def.Lookback
	}
	if opts.Lookahead == nil {
		opts.Lookahead = def.Lookahead
	}
	if opts.RecoveryTolerance <= 0 {
		opts.RecoveryTolerance = def.RecoveryTolerance
	}
	if opts.MinLookaheadPoints <= 0 {
		opts.MinLookaheadPoints = def.MinLookaheadPoints
	}
	return &ResponseAnalyzer{opts: opts, foods: foods, drugs: drugs, moves: moves}
}

// Window slices the baseline and lookahead sub-series around an event. The
// event must fall inside the series' covered range; the window is rebuilt
// from the series on every call and never cached.
func (a *ResponseAnalyzer) Window(series models.GlucoseSeries, event models.Event) (models.ResponseWindow, error) {
	if !series.Covers(event.Timestamp) {
		return models.ResponseWindow{}, &models.EventOutOfRangeError{
			Event:       event.Timestamp,
			SeriesStart: series.Start(),
			SeriesEnd:   series.End(),
		}
	}
	kind := event.Kind
	back, ok := a.opts.Lookback[kind]
	if !ok {
		back = 30 * time.Minute
	}
	ahead, ok := a.opts.Lookahead[kind]
	if !ok {
		ahead = 2 * time.Hour
	}
	// A known agent's action duration bounds the lookahead below the
	// configured cap; watching past the drug's span dilutes the response.
	if a.drugs != nil {
		switch kind {
		case models.EventMedication:
			if drug, ok := a.drugs.Drug(event.DrugName); ok && drug.Duration > 0 && drug.Duration < ahead {
				ahead = drug.Duration
			}
		case models.EventInsulin:
			if prof, ok := a.drugs.Insulin(event.InsulinType); ok && prof.Duration > 0 && prof.Duration < ahead {
				ahead = prof.Duration
			}
		}
	}
	start := event.Timestamp.Add(-back)
	end := event.Timestamp.Add(ahead)
	return models.ResponseWindow{
		Event:     event,
		Baseline:  series.Window(start, event.Timestamp),
		Lookahead: series.Window(event.Timestamp, end),
		Start:     start,
		End:       end,
	}, nil
}

// Analyze computes the response profile for one event: baseline from the
// pre-event window, peak and time-to-peak, recovery back to baseline within
// tolerance, and incremental AUC clipped at baseline. Not recovering inside
// the window is a normal result.
func (a *ResponseAnalyzer) Analyze(series models.GlucoseSeries, event models.Event) (models.EventResponse, error) {
	win, err := a.Window(series, event)
	if err != nil {
		return models.EventResponse{}, err
	}
	if win.Lookahead.Len() < a.opts.MinLookaheadPoints {
		return models.EventResponse{}, &models.SparseDataError{
			Window:  "lookahead",
			Samples: win.Lookahead.Len(),
			Need:    a.opts.MinLookaheadPoints,
		}
	}

	baseline, ok := TimeWeightedMean(win.Baseline)
	if !ok {
		// No pre-event readings; the reading at the event anchors instead.
		baseline = win.Lookahead.At(0).Value
	}

	peakIdx := 0
	for i := 1; i < win.Lookahead.Len(); i++ {
		if win.Lookahead.At(i).Value > win.Lookahead.At(peakIdx).Value {
			peakIdx = i
		}
	}
	peak := win.Lookahead.At(peakIdx)

	resp := models.EventResponse{
		Event:           event,
		BaselineGlucose: baseline,
		PeakGlucose:     peak.Value,
		PeakTime:        peak.Timestamp,
		TimeToPeak:      peak.Timestamp.Sub(event.Timestamp),
		IncrementalAUC:  AUC(win.Lookahead, baseline),
		GlycemicLoad:    a.glycemicLoad(event),
		Samples:         win.Lookahead.Len(),
	}

	for i := peakIdx + 1; i < win.Lookahead.Len(); i++ {
		s := win.Lookahead.At(i)
		if s.Value <= baseline+a.opts.RecoveryTolerance {
			resp.Recovered = true
			resp.RecoveryTime = s.Timestamp.Sub(event.Timestamp)
			break
		}
	}
	return resp, nil
}

// glycemicLoad resolves GL from explicit event attributes first, then from
// the food table when only a name and portion weight are given.
func (a *ResponseAnalyzer) glycemicLoad(event models.Event) float64 {
	if gl := event.GlycemicLoad(); gl > 0 {
		return gl
	}
	if event.Kind != models.EventMeal || a.foods == nil || event.FoodName == "" {
		return 0
	}
	food, ok := a.foods.Food(event.FoodName)
	if !ok {
		return 0
	}
	carbs := event.CarbsG
	if carbs <= 0 && event.WeightG > 0 {
		carbs = food.CarbsG * event.WeightG / 100
	}
	if carbs <= 0 {
		return 0
	}
	return food.GlycemicLoad(carbs)
}

// Assessment is the clinical read of a response: a coarse grade plus
// human-readable notes drawn from the reference tables.
type Assessment struct {
	Grade string   `json:"grade"`
	Notes []string `json:"notes,omitempty"`
}

// Assess grades a computed response. Meal grades follow postprandial
// excursion bands; medication and insulin events get hypoglycemia notes
// when the lookahead dips low and the agent carries that risk.
func (a *ResponseAnalyzer) Assess(win models.ResponseWindow, resp models.EventResponse) Assessment {
	excursion := resp.PeakGlucose - resp.BaselineGlucose
	out := Assessment{Grade: gradeExcursion(excursion)}

	if gl := resp.GlycemicLoad; gl > 0 {
		out.Notes = append(out.Notes, fmt.Sprintf("glycemic load %.1f (%s)", gl, refdata.GLCategory(gl)))
	}
	if !resp.Recovered {
		out.Notes = append(out.Notes, "glucose did not return to baseline within the window")
	}

	low := lowestValue(win.Lookahead)
	switch win.Event.Kind {
	case models.EventMedication:
		if a.drugs == nil {
			break
		}
		if drug, ok := a.drugs.Drug(win.Event.DrugName); ok && low < 70 && drug.HypoRisk != "low" {
			out.Notes = append(out.Notes, fmt.Sprintf("glucose fell to %.0f mg/dL; %s carries %s hypoglycemia risk", low, drug.Name, drug.HypoRisk))
		}
	case models.EventInsulin:
		if low < 70 {
			out.Notes = append(out.Notes, fmt.Sprintf("glucose fell to %.0f mg/dL after insulin", low))
		}
	case models.EventExercise:
		if a.moves == nil {
			break
		}
		if info, ok := a.moves.Exercise(win.Event.ExerciseType); ok && info.Intensity >= 3 && low < 70 {
			out.Notes = append(out.Notes, fmt.Sprintf("glucose fell to %.0f mg/dL during high-intensity %s", low, info.Type))
		}
	}
	return out
}

func gradeExcursion(excursion float64) string {
	switch {
	case excursion < 40:
		return "excellent"
	case excursion < 70:
		return "good"
	case excursion < 100:
		return "fair"
	default:
		return "poor"
	}
}

func lowestValue(series models.GlucoseSeries) float64 {
	if series.Len() == 0 {
		return 0
	}
	low := series.At(0).Value
	for i := 1; i < series.Len(); i++ {
		if v := series.At(i).Value; v < low {
			low = v
		}
	}
	return low
}
