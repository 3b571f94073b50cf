package ingest

import (
	"errors"
	"math"
	"testing"

	"github.com/glycostack/glyco-engine/internal/models"
)

func TestNormalizeCSVWithHeader(t *testing.T) {
	payload := "timestamp,glucose\n2026-02-15 07:00,92\n2026-02-15 07:15,95\n2026-02-15 07:30,101\n"

	n := NewNormalizer(20, 600, nil)
	series, report, err := n.Normalize(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", series.Len())
	}
	if report.Format != "delimited" {
		t.Fatalf("expected delimited format, got %q", report.Format)
	}
	if got := series.At(0).Value; got != 92 {
		t.Fatalf("expected first value 92, got %v", got)
	}
	if report.UnitConverted {
		t.Fatalf("mg/dL payload should not be unit converted")
	}
}

func TestNormalizeDeviceFormatConvertsUnits(t *testing.T) {
	payload := "ID\tDate\tTime\tType\tValue\n" +
		"69137 2024/03/16 12:03 0 15.3\n" +
		"69138 2024/03/16 12:18 0 14.8\n"

	n := NewNormalizer(20, 600, nil)
	series, report, err := n.Normalize(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Format != "device" {
		t.Fatalf("expected device format, got %q", report.Format)
	}
	if !report.UnitConverted {
		t.Fatalf("mmol/L payload should be unit converted")
	}
	want := 15.3 * 18.0182
	if got := series.At(0).Value; math.Abs(got-want) > 0.01 {
		t.Fatalf("expected %.2f mg/dL, got %.2f", want, got)
	}
}

func TestNormalizeJSONEpochMillis(t *testing.T) {
	payload := `[{"timestamp": 1700000000000, "glucose": 120}, {"timestamp": 1700000300000, "glucose": 130}]`

	n := NewNormalizer(20, 600, nil)
	series, report, err := n.Normalize(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Format != "json" {
		t.Fatalf("expected json format, got %q", report.Format)
	}
	if series.Len() != 2 {
		t.Fatalf("expected 2 samples, got %d", series.Len())
	}
	if !series.At(0).Timestamp.Before(series.At(1).Timestamp) {
		t.Fatalf("samples not sorted ascending")
	}
}

func TestNormalizeSortsAndDeduplicates(t *testing.T) {
	payload := "timestamp,glucose\n" +
		"2026-02-15 08:00,100\n" +
		"2026-02-15 07:00,90\n" +
		"2026-02-15 08:00,110\n"

	n := NewNormalizer(20, 600, nil)
	series, report, err := n.Normalize(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 2 {
		t.Fatalf("expected duplicate collapsed to 2 samples, got %d", series.Len())
	}
	if report.Duplicates != 1 {
		t.Fatalf("expected 1 duplicate counted, got %d", report.Duplicates)
	}
	// Last write wins for the 08:00 collision.
	if got := series.At(1).Value; got != 110 {
		t.Fatalf("expected later duplicate to survive with 110, got %v", got)
	}
}

func TestNormalizeFlagsOutliersWithoutRemoval(t *testing.T) {
	payload := "timestamp,glucose\n" +
		"2026-02-15 07:00,95\n" +
		"2026-02-15 07:15,900\n" +
		"2026-02-15 07:30,101\n"

	n := NewNormalizer(20, 600, nil)
	series, report, err := n.Normalize(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 3 {
		t.Fatalf("outliers must be retained, got %d samples", series.Len())
	}
	if report.Outliers != 1 {
		t.Fatalf("expected 1 outlier flagged, got %d", report.Outliers)
	}
	if series.At(1).Flag != models.SourceOutlier {
		t.Fatalf("expected outlier flag on 900 mg/dL sample, got %q", series.At(1).Flag)
	}
	filtered := series.Filtered(models.SourceOutlier)
	if filtered.Len() != 2 {
		t.Fatalf("expected 2 samples after filtering, got %d", filtered.Len())
	}
}

func TestNormalizeAllRowsDroppedIsEmptySeries(t *testing.T) {
	payload := "timestamp,glucose\nnot-a-time,95\nalso-bad,abc\n"

	n := NewNormalizer(20, 600, nil)
	_, report, err := n.Normalize(payload)
	var emptyErr *models.EmptySeriesError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptySeriesError when every row drops, got %v", err)
	}
	if emptyErr.Dropped != 2 {
		t.Fatalf("expected 2 dropped rows on the error, got %d", emptyErr.Dropped)
	}
	if report.DroppedRows != 2 {
		t.Fatalf("expected 2 dropped rows in the report, got %d", report.DroppedRows)
	}
}

func TestNormalizeDeviceAllRowsDropped(t *testing.T) {
	payload := "ID\tDate\tTime\tType\tValue\n" +
		"69137 not-a-date 12:03 0 15.3\n" +
		"69138 2024/03/16 12:18 0 junk\n"

	n := NewNormalizer(20, 600, nil)
	_, _, err := n.Normalize(payload)
	var emptyErr *models.EmptySeriesError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptySeriesError for unparseable device rows, got %v", err)
	}
	if emptyErr.Dropped != 2 {
		t.Fatalf("expected 2 dropped rows on the error, got %d", emptyErr.Dropped)
	}
}

func TestNormalizeHeaderOnlyIsEmptySeries(t *testing.T) {
	n := NewNormalizer(20, 600, nil)
	_, _, err := n.Normalize("timestamp,glucose\n")
	var emptyErr *models.EmptySeriesError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptySeriesError for header-only payload, got %v", err)
	}
	if emptyErr.Dropped != 0 {
		t.Fatalf("expected 0 dropped rows, got %d", emptyErr.Dropped)
	}
}

func TestNormalizeUnstructuredPayloadIsParseError(t *testing.T) {
	n := NewNormalizer(20, 600, nil)
	_, _, err := n.Normalize("completely unstructured text")
	var parseErr *models.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError for unrecognizable payload, got %v", err)
	}
}

func TestNormalizeDroppedRowsCounted(t *testing.T) {
	payload := "timestamp,glucose\n" +
		"2026-02-15 07:00,95\n" +
		"garbage,line\n" +
		"2026-02-15 07:15,98\n"

	n := NewNormalizer(20, 600, nil)
	series, report, err := n.Normalize(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 2 {
		t.Fatalf("expected 2 samples, got %d", series.Len())
	}
	if report.DroppedRows != 1 {
		t.Fatalf("expected 1 dropped row, got %d", report.DroppedRows)
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	payload := "timestamp,glucose\n" +
		"2026-02-15 07:00,92\n" +
		"2026-02-15 07:15,95.5\n" +
		"2026-02-15 07:30,101\n"

	n := NewNormalizer(20, 600, nil)
	first, _, err := n.Normalize(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	encoded := EncodeCanonical(first)
	second, _, err := n.Normalize(encoded)
	if err != nil {
		t.Fatalf("re-parse failed: %v", err)
	}

	if first.Len() != second.Len() {
		t.Fatalf("round trip changed length: %d vs %d", first.Len(), second.Len())
	}
	for i := 0; i < first.Len(); i++ {
		a, b := first.At(i), second.At(i)
		if !a.Timestamp.Equal(b.Timestamp) || a.Value != b.Value {
			t.Fatalf("sample %d changed: %v/%v vs %v/%v", i, a.Timestamp, a.Value, b.Timestamp, b.Value)
		}
	}
}

func TestNormalizeErrorKinds(t *testing.T) {
	n := NewNormalizer(20, 600, nil)

	_, _, err := n.Normalize("")
	if err == nil {
		t.Fatalf("expected error for empty payload")
	}
	var parseErr *models.ParseError
	var emptyErr *models.EmptySeriesError
	if !errors.As(err, &parseErr) && !errors.As(err, &emptyErr) {
		t.Fatalf("expected typed parse or empty-series error, got %T", err)
	}
}
