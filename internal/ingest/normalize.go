// Package ingest turns heterogeneous CGM export payloads into canonical
// glucose series. Format strategies are tried in priority order; rows that
// fail to parse are dropped and counted, never silently ignored.
package ingest

import (
	"log/slog"
	"sort"
	"time"

	"github.com/glycostack/glyco-engine/internal/models"
)

// mmolToMgdl is the conversion factor between mmol/L and mg/dL.
const mmolToMgdl = 18.0182

// mmolCeiling is the unit heuristic: a series whose maximum value is below
// this is mmol/L and gets converted. No physiologic mg/dL series stays
// under 30 for its entire span.
const mmolCeiling = 30

// Report describes what happened during normalization.
type Report struct {
	Format        string `json:"format"`
	ParsedRows    int    `json:"parsed_rows"`
	DroppedRows   int    `json:"dropped_rows"`
	Duplicates    int    `json:"duplicates_collapsed"`
	Outliers      int    `json:"outliers_flagged"`
	UnitConverted bool   `json:"unit_converted"`
}

// Normalizer builds canonical series from raw payloads.
type Normalizer struct {
	physLow  float64
	physHigh float64
	logger   *slog.Logger
}

// NewNormalizer constructs a Normalizer with the physiologic plausibility
// bounds used for outlier flagging, in mg/dL.
func NewNormalizer(physLow, physHigh float64, logger *slog.Logger) *Normalizer {
	if physLow <= 0 {
		physLow = 20
	}
	if physHigh <= physLow {
		physHigh = 600
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{physLow: physLow, physHigh: physHigh, logger: logger}
}

// Normalize parses the payload with the first matching format strategy and
// returns the canonical series. Timestamps are truncated to whole seconds,
// sorted ascending, and exact-timestamp duplicates collapse last-write-wins
// (the later input row survives). Values outside the physiologic bounds are
// flagged, not removed.
func (n *Normalizer) Normalize(payload string) (models.GlucoseSeries, Report, error) {
	var (
		rows    []rawRow
		dropped int
		format  string
		lastErr error
	)
	for _, p := range parsers() {
		if !p.Sniff(payload) {
			continue
		}
		parsed, d, err := p.Parse(payload)
		if err != nil {
			lastErr = err
			continue
		}
		rows, dropped, format = parsed, d, p.Name()
		break
	}
	if format == "" {
		if lastErr != nil {
			return models.GlucoseSeries{}, Report{}, lastErr
		}
		return models.GlucoseSeries{}, Report{}, &models.ParseError{Msg: "no format strategy matched input"}
	}
	if len(rows) == 0 {
		return models.GlucoseSeries{}, Report{DroppedRows: dropped, Format: format}, &models.EmptySeriesError{Dropped: dropped}
	}

	report := Report{Format: format, ParsedRows: len(rows), DroppedRows: dropped}

	for i := range rows {
		rows[i].Timestamp = rows[i].Timestamp.Truncate(time.Second)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})

	deduped := rows[:0]
	for _, row := range rows {
		if len(deduped) > 0 && deduped[len(deduped)-1].Timestamp.Equal(row.Timestamp) {
			deduped[len(deduped)-1] = row
			report.Duplicates++
			continue
		}
		deduped = append(deduped, row)
	}

	maxValue := deduped[0].Value
	for _, row := range deduped {
		if row.Value > maxValue {
			maxValue = row.Value
		}
	}
	if maxValue < mmolCeiling {
		for i := range deduped {
			deduped[i].Value *= mmolToMgdl
		}
		report.UnitConverted = true
	}

	samples := make([]models.GlucoseSample, len(deduped))
	for i, row := range deduped {
		flag := models.SourceMeasured
		if row.Value < n.physLow || row.Value > n.physHigh {
			flag = models.SourceOutlier
			report.Outliers++
		}
		samples[i] = models.GlucoseSample{Timestamp: row.Timestamp, Value: row.Value, Flag: flag}
	}

	if report.Duplicates > 0 || report.Outliers > 0 || report.DroppedRows > 0 {
		n.logger.Debug("series normalized",
			slog.String("format", format),
			slog.Int("samples", len(samples)),
			slog.Int("dropped", report.DroppedRows),
			slog.Int("duplicates", report.Duplicates),
			slog.Int("outliers", report.Outliers))
	}

	return models.NewSeries(samples), report, nil
}
