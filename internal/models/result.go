package models

import "time"

// MetricResult carries the window-level metrics. TIR/TBR/TAR are
// time-weighted percentages; the value statistics are not time-weighted.
type MetricResult struct {
	TIR       float64 `json:"tir"`
	TBR       float64 `json:"tbr"`
	TAR       float64 `json:"tar"`
	TBRSevere float64 `json:"tbr_severe"`
	TARSevere float64 `json:"tar_severe"`
	GV        float64 `json:"gv"`

	MeanGlucose float64 `json:"mean_glucose"`
	StdGlucose  float64 `json:"std_glucose"`
	MinGlucose  float64 `json:"min_glucose"`
	MaxGlucose  float64 `json:"max_glucose"`

	AUC  float64 `json:"auc"`
	EA1C float64 `json:"ea1c"`
	MAGE float64 `json:"mage"`

	Samples int `json:"data_points"`
}

// ResponseWindow is the bounded sub-series around an event, rebuilt fresh
// for every request.
type ResponseWindow struct {
	Event     Event
	Baseline  GlucoseSeries
	Lookahead GlucoseSeries
	Start     time.Time
	End       time.Time
}

// EventResponse is the derived output of a response analysis. RecoveryTime
// is meaningful only when Recovered is true; "did not recover within
// window" is a valid result, not an error.
type EventResponse struct {
	Event           Event         `json:"event"`
	BaselineGlucose float64       `json:"baseline_glucose"`
	PeakGlucose     float64       `json:"peak_glucose"`
	PeakTime        time.Time     `json:"peak_time"`
	TimeToPeak      time.Duration `json:"time_to_peak"`
	Recovered       bool          `json:"recovered"`
	RecoveryTime    time.Duration `json:"recovery_time"`
	IncrementalAUC  float64       `json:"incremental_auc"`
	GlycemicLoad    float64       `json:"glycemic_load,omitempty"`
	Samples         int           `json:"data_points"`
}

// PKPDFit holds fitted absorption/elimination parameters for a response
// window. Rates are per hour, TimeToPeak is from the fitted curve. A low
// FitQuality is a successful result, not an error.
type PKPDFit struct {
	AbsorptionRate  float64       `json:"absorption_rate"`
	EliminationRate float64       `json:"elimination_rate"`
	PeakEffect      float64       `json:"peak_effect"`
	TimeToPeak      time.Duration `json:"time_to_peak"`
	FitQuality      float64       `json:"fit_quality"`
	Iterations      int           `json:"iterations"`
}

// DaySummary is the per-day metric rollup inside a trend.
type DaySummary struct {
	Date    string       `json:"date"`
	Metrics MetricResult `json:"metrics"`
}

// PeriodSummary aggregates a weekly or monthly bucket.
type PeriodSummary struct {
	Period      string  `json:"period"`
	MeanGlucose float64 `json:"mean_glucose"`
	StdGlucose  float64 `json:"std_glucose"`
	TIR         float64 `json:"tir"`
	GV          float64 `json:"gv"`
	Days        int     `json:"days"`
}

// BucketSummary aggregates a time-of-day or weekday bucket across days.
type BucketSummary struct {
	Bucket      string  `json:"bucket"`
	MeanGlucose float64 `json:"mean_glucose"`
	StdGlucose  float64 `json:"std_glucose"`
	TIR         float64 `json:"tir"`
	Samples     int     `json:"data_points"`
}

// Episode is a sustained excursion outside the target band.
type Episode struct {
	Kind      string        `json:"kind"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Duration  time.Duration `json:"duration"`
	PeakValue float64       `json:"peak_value"`
}

// Pattern flags a recurring behavior with supporting evidence.
type Pattern struct {
	Name      string    `json:"name"`
	Bucket    string    `json:"bucket,omitempty"`
	EventKind EventKind `json:"event_kind,omitempty"`
	Magnitude float64   `json:"magnitude"`
	Days      []string  `json:"days"`
	Evidence  string    `json:"evidence"`
}

// TrendSummary is the multi-day aggregation output. When fewer than two
// distinct days are present, InsufficientHistory is set and Patterns is nil.
type TrendSummary struct {
	Daily               []DaySummary    `json:"daily"`
	Weekly              []PeriodSummary `json:"weekly"`
	Monthly             []PeriodSummary `json:"monthly"`
	TimeOfDay           []BucketSummary `json:"time_of_day"`
	Weekday             []BucketSummary `json:"weekday"`
	Patterns            []Pattern       `json:"patterns"`
	Episodes            []Episode       `json:"episodes,omitempty"`
	HighVariabilityDays int             `json:"high_variability_days"`
	InsufficientHistory bool            `json:"insufficient_history"`
}
