// Package services wires the ingest, engine, and storage layers into the
// request-scoped operations the API exposes.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glycostack/glyco-engine/internal/engine"
	"github.com/glycostack/glyco-engine/internal/ingest"
	"github.com/glycostack/glyco-engine/internal/metrics"
	"github.com/glycostack/glyco-engine/internal/models"
	"github.com/glycostack/glyco-engine/internal/repo"
	"github.com/glycostack/glyco-engine/internal/store"
	"github.com/glycostack/glyco-engine/internal/utils"
)

// AnalyzeResult is the metric analysis output plus the normalization report.
type AnalyzeResult struct {
	Metrics models.MetricResult `json:"metrics"`
	Report  ingest.Report       `json:"report"`
}

// PKParams carries the fitted absorption/elimination parameters.
type PKParams struct {
	AbsorptionRate  float64       `json:"absorption_rate"`
	EliminationRate float64       `json:"elimination_rate"`
	TimeToPeak      time.Duration `json:"time_to_peak"`
}

// PDParams carries the fitted effect magnitude.
type PDParams struct {
	PeakEffect float64 `json:"peak_effect"`
}

// Clinical is the interpretation block: fit quality plus the graded
// assessment. FitQuality is zero when no fit was possible.
type Clinical struct {
	FitQuality float64  `json:"fit_quality"`
	Iterations int      `json:"iterations,omitempty"`
	Grade      string   `json:"grade"`
	Notes      []string `json:"notes,omitempty"`
}

// ResponseResult is the full event-response output: the empirical response
// fields inline, with pk/pd/clinical blocks alongside. PK and PD are nil
// when the window cannot support a curve fit; that never fails the
// response itself.
type ResponseResult struct {
	models.EventResponse
	PK       *PKParams `json:"pk,omitempty"`
	PD       *PDParams `json:"pd,omitempty"`
	Clinical Clinical  `json:"clinical"`
}

// AnalysisService is the facade the transport layer talks to. All methods
// are safe for concurrent use; every request re-parses its payload and no
// series state is kept between calls.
type AnalysisService struct {
	logger       *slog.Logger
	normalizer   *ingest.Normalizer
	responses    *engine.ResponseAnalyzer
	trendOpts    engine.TrendOptions
	history      store.History
	remote       *repo.NightscoutClient
	defaultRange models.TargetRange
	latencies    *utils.LatencyTracker
}

// NewAnalysisService constructs the facade. History may be a NoopHistory
// and remote may be nil when no Nightscout site is configured.
func NewAnalysisService(
	logger *slog.Logger,
	normalizer *ingest.Normalizer,
	responses *engine.ResponseAnalyzer,
	trendOpts engine.TrendOptions,
	history store.History,
	remote *repo.NightscoutClient,
	defaultRange models.TargetRange,
) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if history == nil {
		history = store.NoopHistory{}
	}
	if defaultRange.Low >= defaultRange.High {
		defaultRange = models.DefaultTargetRange
	}
	return &AnalysisService{
		logger:       logger,
		normalizer:   normalizer,
		responses:    responses,
		trendOpts:    trendOpts,
		history:      history,
		remote:       remote,
		defaultRange: defaultRange,
		latencies:    utils.NewLatencyTracker(1024),
	}
}

// Analyze normalizes the payload and computes the window metric set.
func (s *AnalysisService) Analyze(ctx context.Context, req models.AnalyzeRequest) (AnalyzeResult, error) {
	start := time.Now()
	series, report, err := s.normalize(req.Payload)
	if err != nil {
		metrics.ObserveAnalysis("analyze", time.Since(start), metrics.OutcomeError)
		return AnalyzeResult{}, err
	}

	result, err := engine.Compute(series, s.targetRange(req.Range))
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveAnalysis("analyze", duration, metrics.OutcomeError)
		return AnalyzeResult{}, err
	}
	s.observe(ctx, "analyze", duration)

	out := AnalyzeResult{Metrics: result, Report: report}
	s.record(ctx, "analyze", out)
	return out, nil
}

// AnalyzeResponse computes the event response, attempts a PK/PD fit on the
// same window, and grades the result.
func (s *AnalysisService) AnalyzeResponse(ctx context.Context, req models.ResponseRequest) (ResponseResult, error) {
	start := time.Now()
	series, _, err := s.normalize(req.Payload)
	if err != nil {
		metrics.ObserveAnalysis("response", time.Since(start), metrics.OutcomeError)
		return ResponseResult{}, err
	}

	resp, err := s.responses.Analyze(series, req.Event)
	if err != nil {
		metrics.ObserveAnalysis("response", time.Since(start), metrics.OutcomeError)
		return ResponseResult{}, err
	}

	win, err := s.responses.Window(series, req.Event)
	if err != nil {
		metrics.ObserveAnalysis("response", time.Since(start), metrics.OutcomeError)
		return ResponseResult{}, err
	}

	assessment := s.responses.Assess(win, resp)
	out := ResponseResult{
		EventResponse: resp,
		Clinical:      Clinical{Grade: assessment.Grade, Notes: assessment.Notes},
	}
	if fit, err := engine.FitResponse(win, resp.BaselineGlucose); err == nil {
		out.PK = &PKParams{
			AbsorptionRate:  fit.AbsorptionRate,
			EliminationRate: fit.EliminationRate,
			TimeToPeak:      fit.TimeToPeak,
		}
		out.PD = &PDParams{PeakEffect: fit.PeakEffect}
		out.Clinical.FitQuality = fit.FitQuality
		out.Clinical.Iterations = fit.Iterations
	} else {
		s.logger.Debug("curve fit skipped", slog.Any("error", err))
	}

	s.observe(ctx, "response", time.Since(start))
	s.record(ctx, "response", out)
	return out, nil
}

// Trend aggregates a multi-day payload. PatternMinDays in the request
// overrides the configured threshold for this call only.
func (s *AnalysisService) Trend(ctx context.Context, req models.TrendRequest) (models.TrendSummary, error) {
	start := time.Now()
	series, _, err := s.normalize(req.Payload)
	if err != nil {
		metrics.ObserveAnalysis("trend", time.Since(start), metrics.OutcomeError)
		return models.TrendSummary{}, err
	}

	opts := s.trendOpts
	if req.PatternMinDays >= 2 {
		opts.PatternMinDays = req.PatternMinDays
	}
	aggregator := engine.NewTrendAggregator(opts, s.responses)

	summary, err := aggregator.Aggregate(series, req.Events, s.targetRange(req.Range))
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveAnalysis("trend", duration, metrics.OutcomeError)
		return models.TrendSummary{}, err
	}
	s.observe(ctx, "trend", duration)
	s.record(ctx, "trend", summary)
	return summary, nil
}

// Recent lists stored analysis summaries, newest first. An empty history
// yields an empty slice, not an error.
func (s *AnalysisService) Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	entries, err := s.history.Recent(ctx, limit)
	if errors.Is(err, store.ErrHistoryEmpty) {
		return []models.HistoryEntry{}, nil
	}
	return entries, err
}

// FetchRemote pulls recent entries from the configured Nightscout site as
// a payload ready for Analyze or Trend.
func (s *AnalysisService) FetchRemote(ctx context.Context, count int) (string, error) {
	if s.remote == nil {
		return "", fmt.Errorf("no remote CGM source configured")
	}
	return s.remote.FetchEntries(ctx, count)
}

func (s *AnalysisService) normalize(payload string) (models.GlucoseSeries, ingest.Report, error) {
	series, report, err := s.normalizer.Normalize(payload)
	metrics.AddDroppedRows(report.DroppedRows)
	return series, report, err
}

func (s *AnalysisService) targetRange(override *models.TargetRange) models.TargetRange {
	if override != nil && override.Low < override.High {
		return *override
	}
	return s.defaultRange
}

func (s *AnalysisService) observe(_ context.Context, kind string, duration time.Duration) {
	metrics.ObserveAnalysis(kind, duration, metrics.OutcomeSuccess)
	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("analysis latency",
			slog.String("kind", kind),
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", count))
	}
}

// record appends a summary to history. Storage problems are logged, never
// surfaced; history is best effort.
func (s *AnalysisService) record(ctx context.Context, kind string, summary any) {
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	entry := models.HistoryEntry{
		ID:        fmt.Sprintf("%s-%d", kind, time.Now().UnixNano()),
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		Summary:   payload,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.logger.Warn("history append failed", slog.Any("error", err))
	}
}
