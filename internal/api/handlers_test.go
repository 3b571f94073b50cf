package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glycostack/glyco-engine/internal/engine"
	"github.com/glycostack/glyco-engine/internal/ingest"
	"github.com/glycostack/glyco-engine/internal/models"
	"github.com/glycostack/glyco-engine/internal/refdata"
	"github.com/glycostack/glyco-engine/internal/services"
	"github.com/glycostack/glyco-engine/internal/store"
)

func newTestServer() *Server {
	tables := refdata.NewTables()
	service := services.NewAnalysisService(
		nil,
		ingest.NewNormalizer(20, 600, nil),
		engine.NewResponseAnalyzer(engine.DefaultResponseOptions(), tables, tables, tables),
		engine.DefaultTrendOptions(),
		store.NewMemoryHistory(10),
		nil,
		models.DefaultTargetRange,
	)
	return NewServer(":0", service, nil)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, req)
	return rec
}

const testPayload = "timestamp,glucose\n" +
	"2026-02-15 08:00,95\n" +
	"2026-02-15 08:15,98\n" +
	"2026-02-15 08:30,140\n" +
	"2026-02-15 08:45,160\n" +
	"2026-02-15 09:00,120\n" +
	"2026-02-15 09:15,100\n"

func TestHealthEndpoint(t *testing.T) {
	rec := doJSON(t, newTestServer(), http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer()
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/analyze", map[string]any{"payload": testPayload})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var out struct {
		Metrics models.MetricResult `json:"metrics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Metrics.TIR != 100 {
		t.Fatalf("expected TIR 100 for in-range payload, got %v", out.Metrics.TIR)
	}
}

func TestAnalyzeEndpointBadBody(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.httpSrv.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestAnalyzeEndpointEmptySeries(t *testing.T) {
	srv := newTestServer()
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/analyze", map[string]any{"payload": "timestamp,glucose\nbad,row\n"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unusable payload, got %d: %s", rec.Code, rec.Body.String())
	}
	var out errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if out.ErrorKind == "" || out.ErrorKind == "internal" {
		t.Fatalf("expected a typed error kind, got %q", out.ErrorKind)
	}
}

func TestResponseEndpoint(t *testing.T) {
	srv := newTestServer()
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/response", map[string]any{
		"payload": testPayload,
		"event": map[string]any{
			"kind":      "meal",
			"timestamp": "2026-02-15T08:00:00Z",
			"food_name": "white rice",
			"weight_g":  150,
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var out struct {
		BaselineGlucose float64        `json:"baseline_glucose"`
		PeakGlucose     float64        `json:"peak_glucose"`
		PK              map[string]any `json:"pk"`
		Clinical        map[string]any `json:"clinical"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.BaselineGlucose != 95 {
		t.Fatalf("expected baseline 95, got %v", out.BaselineGlucose)
	}
	if out.PeakGlucose != 160 {
		t.Fatalf("expected peak 160, got %v", out.PeakGlucose)
	}
	if _, ok := out.Clinical["fit_quality"]; !ok {
		t.Fatalf("expected fit_quality in clinical block: %s", rec.Body.String())
	}
}

func TestResponseEndpointEventOutOfRange(t *testing.T) {
	srv := newTestServer()
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/response", map[string]any{
		"payload": testPayload,
		"event": map[string]any{
			"kind":      "meal",
			"timestamp": "2026-03-01T08:00:00Z",
		},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var out errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if out.ErrorKind != "event_out_of_range" {
		t.Fatalf("expected event_out_of_range, got %q", out.ErrorKind)
	}
}

func TestTrendEndpointInsufficientHistory(t *testing.T) {
	srv := newTestServer()
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/trend", map[string]any{"payload": testPayload})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out models.TrendSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode trend: %v", err)
	}
	if !out.InsufficientHistory {
		t.Fatalf("single-day payload should flag insufficient history")
	}
}

func TestResultsEndpointRecordsHistory(t *testing.T) {
	srv := newTestServer()
	if rec := doJSON(t, srv, http.MethodPost, "/api/v1/analyze", map[string]any{"payload": testPayload}); rec.Code != http.StatusOK {
		t.Fatalf("analyze failed: %d", rec.Code)
	}

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/results?limit=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out struct {
		Results []historyView `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(out.Results) != 1 {
		t.Fatalf("expected 1 stored result, got %d", len(out.Results))
	}
	if out.Results[0].Kind != "analyze" {
		t.Fatalf("expected analyze entry, got %q", out.Results[0].Kind)
	}
}

func TestRemoteEntriesWithoutSource(t *testing.T) {
	srv := newTestServer()
	rec := doJSON(t, srv, http.MethodGet, "/api/v1/remote/entries", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without a remote source, got %d", rec.Code)
	}
}
