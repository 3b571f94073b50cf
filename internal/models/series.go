package models

import "time"

// SourceFlag marks how a sample entered the canonical series.
type SourceFlag string

const (
	SourceMeasured     SourceFlag = "measured"
	SourceInterpolated SourceFlag = "interpolated"
	SourceOutlier      SourceFlag = "flagged_outlier"
)

// GlucoseSample is a single glucose reading in mg/dL. The canonical unit is
// fixed at mg/dL; mmol/L inputs are converted at the normalization boundary.
type GlucoseSample struct {
	Timestamp time.Time  `json:"timestamp"`
	Value     float64    `json:"value"`
	Flag      SourceFlag `json:"source_flag"`
}

// GlucoseSeries is an ordered sequence of samples with strictly increasing
// timestamps. A series is immutable once constructed; derived views return
// new series sharing the underlying sample values.
type GlucoseSeries struct {
	samples []GlucoseSample
}

// NewSeries wraps an already-normalized sample slice. Callers outside the
// normalizer should obtain series from ingest.Normalize.
func NewSeries(samples []GlucoseSample) GlucoseSeries {
	return GlucoseSeries{samples: samples}
}

// Samples returns a copy of the underlying sample slice.
func (s GlucoseSeries) Samples() []GlucoseSample {
	out := make([]GlucoseSample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Len returns the number of samples.
func (s GlucoseSeries) Len() int { return len(s.samples) }

// At returns the sample at index i.
func (s GlucoseSeries) At(i int) GlucoseSample { return s.samples[i] }

// Start returns the timestamp of the first sample, zero when empty.
func (s GlucoseSeries) Start() time.Time {
	if len(s.samples) == 0 {
		return time.Time{}
	}
	return s.samples[0].Timestamp
}

// End returns the timestamp of the last sample, zero when empty.
func (s GlucoseSeries) End() time.Time {
	if len(s.samples) == 0 {
		return time.Time{}
	}
	return s.samples[len(s.samples)-1].Timestamp
}

// Window returns the sub-series with timestamps in [from, to]. The returned
// series references the same sample values; the receiver is not mutated.
func (s GlucoseSeries) Window(from, to time.Time) GlucoseSeries {
	lo := 0
	for lo < len(s.samples) && s.samples[lo].Timestamp.Before(from) {
		lo++
	}
	hi := lo
	for hi < len(s.samples) && !s.samples[hi].Timestamp.After(to) {
		hi++
	}
	return GlucoseSeries{samples: s.samples[lo:hi]}
}

// Covers reports whether t falls within the series' covered time range.
func (s GlucoseSeries) Covers(t time.Time) bool {
	if len(s.samples) == 0 {
		return false
	}
	return !t.Before(s.Start()) && !t.After(s.End())
}

// Filtered returns a new series without samples carrying the given flag.
func (s GlucoseSeries) Filtered(flag SourceFlag) GlucoseSeries {
	kept := make([]GlucoseSample, 0, len(s.samples))
	for _, smp := range s.samples {
		if smp.Flag != flag {
			kept = append(kept, smp)
		}
	}
	return GlucoseSeries{samples: kept}
}

// TargetRange bounds the clinical in-range band in mg/dL.
type TargetRange struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// DefaultTargetRange is the consensus CGM target band.
var DefaultTargetRange = TargetRange{Low: 70, High: 180}
