package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/glycostack/glyco-engine/internal/models"
)

// TrendOptions tunes multi-day aggregation and pattern detection.
type TrendOptions struct {
	// PatternMinDays is the number of distinct qualifying days a behavior
	// needs before it is reported as a pattern.
	PatternMinDays int
	// ElevationMgdl is the rise above a day's mean that marks a bucket or
	// event response as elevated.
	ElevationMgdl float64
	// DawnRiseMgdl is the early-morning rise that marks a dawn phenomenon day.
	DawnRiseMgdl float64
	// HighVariationStd is the within-day standard deviation above which a
	// day counts as high variability.
	HighVariationStd float64
}

// DefaultTrendOptions returns the built-in thresholds.
func DefaultTrendOptions() TrendOptions {
	return TrendOptions{
		PatternMinDays:   3,
		ElevationMgdl:    25,
		DawnRiseMgdl:     20,
		HighVariationStd: 30,
	}
}

// TrendAggregator rolls a multi-day series into daily, weekly, monthly,
// time-of-day, and weekday summaries and mines recurring patterns. Event
// patterns need a response analyzer; pass nil to skip them.
type TrendAggregator struct {
	opts      TrendOptions
	responses *ResponseAnalyzer
}

// NewTrendAggregator builds an aggregator with the given thresholds.
func NewTrendAggregator(opts TrendOptions, responses *ResponseAnalyzer) *TrendAggregator {
	def := DefaultTrendOptions()
	if opts.PatternMinDays < 2 {
		opts.PatternMinDays = def.PatternMinDays
	}
	if opts.ElevationMgdl <= 0 {
		opts.ElevationMgdl = def.ElevationMgdl
	}
	if opts.DawnRiseMgdl <= 0 {
		opts.DawnRiseMgdl = def.DawnRiseMgdl
	}
	if opts.HighVariationStd <= 0 {
		opts.HighVariationStd = def.HighVariationStd
	}
	return &TrendAggregator{opts: opts, responses: responses}
}

const dayLayout = "2006-01-02"

var timeOfDayBuckets = []struct {
	name       string
	start, end int
}{
	{"overnight", 0, 6},
	{"morning", 6, 12},
	{"afternoon", 12, 18},
	{"evening", 18, 24},
}

// Aggregate builds the trend summary. Fewer than two distinct days is not
// enough history to call anything a trend: the result carries the available
// daily rollup with InsufficientHistory set and no patterns.
func (t *TrendAggregator) Aggregate(series models.GlucoseSeries, events []models.Event, rng models.TargetRange) (models.TrendSummary, error) {
	if series.Len() == 0 {
		return models.TrendSummary{}, &models.EmptySeriesError{}
	}

	days := splitDays(series)
	summary := models.TrendSummary{Daily: dailySummaries(days, rng)}

	for _, day := range summary.Daily {
		if day.Metrics.StdGlucose > t.opts.HighVariationStd {
			summary.HighVariabilityDays++
		}
	}

	if len(days) < 2 {
		summary.InsufficientHistory = true
		return summary, nil
	}

	summary.Weekly = periodSummaries(summary.Daily, isoWeekKey)
	summary.Monthly = periodSummaries(summary.Daily, monthKey)
	summary.TimeOfDay = t.timeOfDaySummaries(days, rng)
	summary.Weekday = weekdaySummaries(days, rng)
	summary.Patterns = t.minePatterns(series, days, events)
	summary.Episodes = detectEpisodes(series, rng)
	return summary, nil
}

// episodeRule bounds one class of sustained excursion.
type episodeRule struct {
	kind         string
	qualifies    func(v float64) bool
	worse        func(a, b float64) bool
	minDuration  time.Duration
	gapTolerance time.Duration
}

// detectEpisodes scans for sustained out-of-band runs. Highs must hold for
// two hours and survive gaps up to an hour; lows count from fifteen minutes
// with a half-hour gap tolerance.
func detectEpisodes(series models.GlucoseSeries, rng models.TargetRange) []models.Episode {
	rules := []episodeRule{
		{
			kind:         "high",
			qualifies:    func(v float64) bool { return v > rng.High },
			worse:        func(a, b float64) bool { return a > b },
			minDuration:  2 * time.Hour,
			gapTolerance: time.Hour,
		},
		{
			kind:         "low",
			qualifies:    func(v float64) bool { return v < rng.Low },
			worse:        func(a, b float64) bool { return a < b },
			minDuration:  15 * time.Minute,
			gapTolerance: 30 * time.Minute,
		},
	}
	var out []models.Episode
	for _, rule := range rules {
		out = append(out, scanEpisodes(series, rule)...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func scanEpisodes(series models.GlucoseSeries, rule episodeRule) []models.Episode {
	var episodes []models.Episode
	var start, last time.Time
	var extreme float64
	active := false

	flush := func() {
		if active && last.Sub(start) >= rule.minDuration {
			episodes = append(episodes, models.Episode{
				Kind:      rule.kind,
				Start:     start,
				End:       last,
				Duration:  last.Sub(start),
				PeakValue: extreme,
			})
		}
		active = false
	}

	for i := 0; i < series.Len(); i++ {
		s := series.At(i)
		if rule.qualifies(s.Value) {
			if active && s.Timestamp.Sub(last) > rule.gapTolerance {
				flush()
			}
			if !active {
				active = true
				start = s.Timestamp
				extreme = s.Value
			} else if rule.worse(s.Value, extreme) {
				extreme = s.Value
			}
			last = s.Timestamp
		} else if active && s.Timestamp.Sub(last) > rule.gapTolerance {
			flush()
		}
	}
	flush()
	return episodes
}

// daySlice is one calendar day's sub-series.
type daySlice struct {
	date   string
	series models.GlucoseSeries
}

func splitDays(series models.GlucoseSeries) []daySlice {
	byDate := make(map[string][]models.GlucoseSample)
	for i := 0; i < series.Len(); i++ {
		s := series.At(i)
		key := s.Timestamp.Format(dayLayout)
		byDate[key] = append(byDate[key], s)
	}
	out := make([]daySlice, 0, len(byDate))
	for date, samples := range byDate {
		out = append(out, daySlice{date: date, series: models.NewSeries(samples)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].date < out[j].date })
	return out
}

func dailySummaries(days []daySlice, rng models.TargetRange) []models.DaySummary {
	out := make([]models.DaySummary, 0, len(days))
	for _, day := range days {
		metrics, err := Compute(day.series, rng)
		if err != nil {
			// A day with a lone reading carries no metrics; skip it.
			continue
		}
		out = append(out, models.DaySummary{Date: day.date, Metrics: metrics})
	}
	return out
}

func isoWeekKey(date string) string {
	t, err := time.Parse(dayLayout, date)
	if err != nil {
		return date
	}
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func monthKey(date string) string {
	if len(date) >= 7 {
		return date[:7]
	}
	return date
}

// periodSummaries averages day-level metrics into weekly or monthly buckets.
func periodSummaries(daily []models.DaySummary, key func(string) string) []models.PeriodSummary {
	type acc struct {
		mean, std, tir, gv float64
		days               int
	}
	buckets := make(map[string]*acc)
	for _, day := range daily {
		k := key(day.Date)
		a := buckets[k]
		if a == nil {
			a = &acc{}
			buckets[k] = a
		}
		a.mean += day.Metrics.MeanGlucose
		a.std += day.Metrics.StdGlucose
		a.tir += day.Metrics.TIR
		a.gv += day.Metrics.GV
		a.days++
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]models.PeriodSummary, 0, len(keys))
	for _, k := range keys {
		a := buckets[k]
		n := float64(a.days)
		out = append(out, models.PeriodSummary{
			Period:      k,
			MeanGlucose: a.mean / n,
			StdGlucose:  a.std / n,
			TIR:         a.tir / n,
			GV:          a.gv / n,
			Days:        a.days,
		})
	}
	return out
}

// timeOfDaySummaries pools samples across days into four circadian buckets.
// Bucket TIR is the per-sample in-range share; time weighting is not
// meaningful across the day gaps inside a pooled bucket.
func (t *TrendAggregator) timeOfDaySummaries(days []daySlice, rng models.TargetRange) []models.BucketSummary {
	out := make([]models.BucketSummary, 0, len(timeOfDayBuckets))
	for _, bucket := range timeOfDayBuckets {
		var values []float64
		for _, day := range days {
			for i := 0; i < day.series.Len(); i++ {
				s := day.series.At(i)
				h := s.Timestamp.Hour()
				if h >= bucket.start && h < bucket.end {
					values = append(values, s.Value)
				}
			}
		}
		if len(values) == 0 {
			continue
		}
		out = append(out, bucketFromValues(bucket.name, values, rng))
	}
	return out
}

func weekdaySummaries(days []daySlice, rng models.TargetRange) []models.BucketSummary {
	byDay := make(map[time.Weekday][]float64)
	for _, day := range days {
		for i := 0; i < day.series.Len(); i++ {
			s := day.series.At(i)
			byDay[s.Timestamp.Weekday()] = append(byDay[s.Timestamp.Weekday()], s.Value)
		}
	}
	out := make([]models.BucketSummary, 0, 7)
	// Monday-first ordering.
	for offset := 0; offset < 7; offset++ {
		wd := time.Weekday((offset + 1) % 7)
		values, ok := byDay[wd]
		if !ok {
			continue
		}
		out = append(out, bucketFromValues(wd.String(), values, rng))
	}
	return out
}

func bucketFromValues(name string, values []float64, rng models.TargetRange) models.BucketSummary {
	mean, inRange := 0.0, 0
	for _, v := range values {
		mean += v
		if v >= rng.Low && v <= rng.High {
			inRange++
		}
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return models.BucketSummary{
		Bucket:      name,
		MeanGlucose: mean,
		StdGlucose:  math.Sqrt(variance),
		TIR:         float64(inRange) / float64(len(values)) * 100,
		Samples:     len(values),
	}
}

// minePatterns scans for behaviors that recur on enough distinct days.
func (t *TrendAggregator) minePatterns(series models.GlucoseSeries, days []daySlice, events []models.Event) []models.Pattern {
	var patterns []models.Pattern
	if p, ok := t.dawnPhenomenon(days); ok {
		patterns = append(patterns, p)
	}
	if p, ok := t.nocturnalHypo(days); ok {
		patterns = append(patterns, p)
	}
	patterns = append(patterns, t.recurringElevations(days)...)
	patterns = append(patterns, t.eventPatterns(series, events)...)
	return patterns
}

// dawnPhenomenon flags days where the 06:00-08:00 mean sits well above the
// 03:00-06:00 mean, a rise not explained by food.
func (t *TrendAggregator) dawnPhenomenon(days []daySlice) (models.Pattern, bool) {
	var qualifying []string
	totalRise := 0.0
	for _, day := range days {
		pre := hourBandMean(day.series, 3, 6)
		post := hourBandMean(day.series, 6, 8)
		if pre == 0 || post == 0 {
			continue
		}
		if rise := post - pre; rise >= t.opts.DawnRiseMgdl {
			qualifying = append(qualifying, day.date)
			totalRise += rise
		}
	}
	if len(qualifying) < t.opts.PatternMinDays {
		return models.Pattern{}, false
	}
	return models.Pattern{
		Name:      "dawn_phenomenon",
		Magnitude: totalRise / float64(len(qualifying)),
		Days:      qualifying,
		Evidence:  fmt.Sprintf("early-morning rise of %.0f+ mg/dL on %d days", t.opts.DawnRiseMgdl, len(qualifying)),
	}, true
}

// nocturnalHypo flags days with any sub-70 reading between midnight and 06:00.
func (t *TrendAggregator) nocturnalHypo(days []daySlice) (models.Pattern, bool) {
	var qualifying []string
	lowest := math.Inf(1)
	for _, day := range days {
		dayLow := math.Inf(1)
		for i := 0; i < day.series.Len(); i++ {
			s := day.series.At(i)
			if s.Timestamp.Hour() < 6 && s.Value < 70 && s.Value < dayLow {
				dayLow = s.Value
			}
		}
		if !math.IsInf(dayLow, 1) {
			qualifying = append(qualifying, day.date)
			if dayLow < lowest {
				lowest = dayLow
			}
		}
	}
	if len(qualifying) < t.opts.PatternMinDays {
		return models.Pattern{}, false
	}
	return models.Pattern{
		Name:      "nocturnal_hypoglycemia",
		Magnitude: lowest,
		Days:      qualifying,
		Evidence:  fmt.Sprintf("overnight glucose below 70 mg/dL on %d days, lowest %.0f", len(qualifying), lowest),
	}, true
}

// recurringElevations flags circadian buckets that run well above the day's
// own mean, day after day.
func (t *TrendAggregator) recurringElevations(days []daySlice) []models.Pattern {
	var out []models.Pattern
	for _, bucket := range timeOfDayBuckets {
		var qualifying []string
		totalRise := 0.0
		for _, day := range days {
			dayMean, ok := TimeWeightedMean(day.series)
			if !ok {
				continue
			}
			bucketMean := hourBandMean(day.series, bucket.start, bucket.end)
			if bucketMean == 0 {
				continue
			}
			if rise := bucketMean - dayMean; rise >= t.opts.ElevationMgdl {
				qualifying = append(qualifying, day.date)
				totalRise += rise
			}
		}
		if len(qualifying) < t.opts.PatternMinDays {
			continue
		}
		out = append(out, models.Pattern{
			Name:      "recurring_elevation",
			Bucket:    bucket.name,
			Magnitude: totalRise / float64(len(qualifying)),
			Days:      qualifying,
			Evidence:  fmt.Sprintf("%s glucose %.0f+ mg/dL above the daily mean on %d days", bucket.name, t.opts.ElevationMgdl, len(qualifying)),
		})
	}
	return out
}

// eventPatterns flags event kinds whose responses spike repeatedly across
// distinct days.
func (t *TrendAggregator) eventPatterns(series models.GlucoseSeries, events []models.Event) []models.Pattern {
	if t.responses == nil || len(events) == 0 {
		return nil
	}
	type acc struct {
		days      map[string]bool
		totalRise float64
		count     int
	}
	byKind := make(map[models.EventKind]*acc)
	for _, event := range events {
		resp, err := t.responses.Analyze(series, event)
		if err != nil {
			continue
		}
		rise := resp.PeakGlucose - resp.BaselineGlucose
		if rise < t.opts.ElevationMgdl*2 {
			continue
		}
		a := byKind[event.Kind]
		if a == nil {
			a = &acc{days: make(map[string]bool)}
			byKind[event.Kind] = a
		}
		a.days[event.Timestamp.Format(dayLayout)] = true
		a.totalRise += rise
		a.count++
	}

	kinds := make([]models.EventKind, 0, len(byKind))
	for kind := range byKind {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	var out []models.Pattern
	for _, kind := range kinds {
		a := byKind[kind]
		if len(a.days) < t.opts.PatternMinDays {
			continue
		}
		days := make([]string, 0, len(a.days))
		for d := range a.days {
			days = append(days, d)
		}
		sort.Strings(days)
		out = append(out, models.Pattern{
			Name:      "recurring_post_event_rise",
			EventKind: kind,
			Magnitude: a.totalRise / float64(a.count),
			Days:      days,
			Evidence:  fmt.Sprintf("%s events followed by %.0f+ mg/dL rises on %d days", kind, t.opts.ElevationMgdl*2, len(days)),
		})
	}
	return out
}

// hourBandMean is the mean of samples whose hour falls in [start, end), or
// zero when the band is empty.
func hourBandMean(series models.GlucoseSeries, start, end int) float64 {
	sum, count := 0.0, 0
	for i := 0; i < series.Len(); i++ {
		s := series.At(i)
		if h := s.Timestamp.Hour(); h >= start && h < end {
			sum += s.Value
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
