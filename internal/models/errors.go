package models

import (
	"errors"
	"fmt"
	"time"
)

// ParseError reports a malformed input payload. Row-level failures inside a
// parseable payload are recovered locally and counted, not raised.
type ParseError struct {
	Format string
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("parse: %s", e.Msg)
	}
	return fmt.Sprintf("parse %s: %s", e.Format, e.Msg)
}

// EmptySeriesError reports that no samples survived parsing.
type EmptySeriesError struct {
	Dropped int
}

func (e *EmptySeriesError) Error() string {
	return fmt.Sprintf("empty series after parsing (%d rows dropped)", e.Dropped)
}

// InsufficientDataError reports that a statistic is undefined for the
// series, e.g. variance over fewer than two samples or a zero mean.
type InsufficientDataError struct {
	Metric  string
	Samples int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s undefined for %d sample(s)", e.Metric, e.Samples)
}

// EventOutOfRangeError reports an event timestamp outside the series'
// covered time range.
type EventOutOfRangeError struct {
	Event       time.Time
	SeriesStart time.Time
	SeriesEnd   time.Time
}

func (e *EventOutOfRangeError) Error() string {
	return fmt.Sprintf("event at %s outside series range [%s, %s]",
		e.Event.Format(time.RFC3339), e.SeriesStart.Format(time.RFC3339), e.SeriesEnd.Format(time.RFC3339))
}

// SparseDataError reports that the post-event window is too thin to
// determine a response.
type SparseDataError struct {
	Window  string
	Samples int
	Need    int
}

func (e *SparseDataError) Error() string {
	return fmt.Sprintf("%s window has %d sample(s), need %d", e.Window, e.Samples, e.Need)
}

// FitNonConvergenceError reports an optimizer hard failure. A converged fit
// with low quality is not an error.
type FitNonConvergenceError struct {
	Iterations int
}

func (e *FitNonConvergenceError) Error() string {
	return fmt.Sprintf("curve fit did not converge after %d iterations", e.Iterations)
}

// ErrorKind returns the stable wire label for a typed analysis error, or
// "internal" for anything else. The labels are part of the API surface.
func ErrorKind(err error) string {
	var (
		parseErr  *ParseError
		emptyErr  *EmptySeriesError
		insufErr  *InsufficientDataError
		rangeErr  *EventOutOfRangeError
		sparseErr *SparseDataError
		fitErr    *FitNonConvergenceError
	)
	switch {
	case errors.As(err, &parseErr):
		return "parse_error"
	case errors.As(err, &emptyErr):
		return "empty_series"
	case errors.As(err, &insufErr):
		return "insufficient_data"
	case errors.As(err, &rangeErr):
		return "event_out_of_range"
	case errors.As(err, &sparseErr):
		return "sparse_data"
	case errors.As(err, &fitErr):
		return "fit_non_convergence"
	default:
		return "internal"
	}
}
