// Package engine is the computational core: window metrics, event-response
// analysis, PK/PD curve fitting, and multi-day trend aggregation. All
// entry points are pure functions over immutable series; nothing in this
// package holds state across calls.
package engine

import (
	"math"

	"github.com/glycostack/glyco-engine/internal/models"
)

// Severe band cutoffs in mg/dL, fixed by clinical consensus independent of
// the configurable target range.
const (
	severeLowMgdl  = 54
	severeHighMgdl = 250
)

// Compute derives the full metric set for a series against the target
// range. TIR/TBR/TAR and the severe bands are time-weighted; mean, std,
// min, max, GV, and MAGE are computed over values. A series with fewer
// than two samples cannot carry variance or time weights and fails with
// InsufficientDataError.
func Compute(series models.GlucoseSeries, rng models.TargetRange) (models.MetricResult, error) {
	switch {
	case series.Len() == 0:
		return models.MetricResult{}, &models.EmptySeriesError{}
	case series.Len() < 2:
		return models.MetricResult{}, &models.InsufficientDataError{Metric: "window metrics", Samples: series.Len()}
	}

	mean, std, minV, maxV := valueStats(series)
	if mean == 0 {
		return models.MetricResult{}, &models.InsufficientDataError{Metric: "gv", Samples: series.Len()}
	}

	tir, tbr, tar := timeInRanges(series, rng.Low, rng.High)
	_, tbrSevere, tarSevere := timeInRanges(series, severeLowMgdl, severeHighMgdl)

	return models.MetricResult{
		TIR:         tir,
		TBR:         tbr,
		TAR:         tar,
		TBRSevere:   tbrSevere,
		TARSevere:   tarSevere,
		GV:          std / mean * 100,
		MeanGlucose: mean,
		StdGlucose:  std,
		MinGlucose:  minV,
		MaxGlucose:  maxV,
		AUC:         AUC(series, 0),
		EA1C:        (mean + 46.7) / 28.7,
		MAGE:        mage(series, std),
		Samples:     series.Len(),
	}, nil
}

// timeInRanges splits 100% of covered time into below/in/above the band.
// Each sample owns the span from the midpoint toward its previous neighbor
// to the midpoint toward its next; edge samples own their half-interval
// only. The three shares always sum to 100 because every sample lands in
// exactly one band.
func timeInRanges(series models.GlucoseSeries, low, high float64) (in, below, above float64) {
	n := series.Len()
	if n < 2 {
		return 0, 0, 0
	}

	total := 0.0
	for i := 0; i < n; i++ {
		w := sampleWeight(series, i)
		total += w
		v := series.At(i).Value
		switch {
		case v < low:
			below += w
		case v > high:
			above += w
		default:
			in += w
		}
	}
	if total == 0 {
		return 0, 0, 0
	}
	return in / total * 100, below / total * 100, above / total * 100
}

// sampleWeight is the duration in hours that sample i represents.
func sampleWeight(series models.GlucoseSeries, i int) float64 {
	t := series.At(i).Timestamp
	w := 0.0
	if i > 0 {
		w += t.Sub(series.At(i-1).Timestamp).Hours() / 2
	}
	if i < series.Len()-1 {
		w += series.At(i+1).Timestamp.Sub(t).Hours() / 2
	}
	return w
}

// AUC integrates glucose over time in mg/dL·h with the trapezoidal rule,
// counting only area above the baseline. Baseline 0 gives total AUC.
func AUC(series models.GlucoseSeries, baseline float64) float64 {
	auc := 0.0
	for i := 1; i < series.Len(); i++ {
		prev, cur := series.At(i-1), series.At(i)
		dt := cur.Timestamp.Sub(prev.Timestamp).Hours()
		a := math.Max(prev.Value-baseline, 0)
		b := math.Max(cur.Value-baseline, 0)
		auc += (a + b) * dt / 2
	}
	return auc
}

// TimeWeightedMean is the duration-weighted average glucose of a window.
// It differs from the plain mean when sampling is irregular.
func TimeWeightedMean(series models.GlucoseSeries) (float64, bool) {
	n := series.Len()
	if n == 0 {
		return 0, false
	}
	if n == 1 {
		return series.At(0).Value, true
	}
	sum, total := 0.0, 0.0
	for i := 0; i < n; i++ {
		w := sampleWeight(series, i)
		sum += series.At(i).Value * w
		total += w
	}
	if total == 0 {
		return series.At(0).Value, true
	}
	return sum / total, true
}

func valueStats(series models.GlucoseSeries) (mean, std, minV, maxV float64) {
	n := series.Len()
	minV = series.At(0).Value
	maxV = minV
	for i := 0; i < n; i++ {
		v := series.At(i).Value
		mean += v
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	mean /= float64(n)

	variance := 0.0
	for i := 0; i < n; i++ {
		d := series.At(i).Value - mean
		variance += d * d
	}
	variance /= float64(n)
	return mean, math.Sqrt(variance), minV, maxV
}

// mage is the mean amplitude of glycemic excursions: the average of
// consecutive-sample moves at least one standard deviation tall.
func mage(series models.GlucoseSeries, std float64) float64 {
	if std == 0 {
		return 0
	}
	sum, count := 0.0, 0
	for i := 1; i < series.Len(); i++ {
		d := math.Abs(series.At(i).Value - series.At(i-1).Value)
		if d >= std {
			sum += d
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
