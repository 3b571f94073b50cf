package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/glycostack/glyco-engine/internal/models"
	"github.com/glycostack/glyco-engine/internal/services"
)

type handlers struct {
	service *services.AnalysisService
	logger  *slog.Logger
}

type analyzeBody struct {
	Payload     string              `json:"payload"`
	TargetRange *models.TargetRange `json:"target_range,omitempty"`
}

type responseBody struct {
	Payload string       `json:"payload"`
	Event   models.Event `json:"event"`
}

type trendBody struct {
	Payload        string              `json:"payload"`
	Events         []models.Event      `json:"events,omitempty"`
	TargetRange    *models.TargetRange `json:"target_range,omitempty"`
	PatternMinDays int                 `json:"pattern_min_days,omitempty"`
}

// historyView mirrors models.HistoryEntry with the summary inlined as JSON
// instead of base64 bytes.
type historyView struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	CreatedAt string          `json:"created_at"`
	Summary   json.RawMessage `json:"summary"`
}

type errorBody struct {
	Error     string `json:"error"`
	ErrorKind string `json:"error_kind"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) analyze(w http.ResponseWriter, r *http.Request) {
	var body analyzeBody
	if !h.decode(w, r, &body) {
		return
	}
	result, err := h.service.Analyze(r.Context(), models.AnalyzeRequest{
		Payload: body.Payload,
		Range:   body.TargetRange,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) response(w http.ResponseWriter, r *http.Request) {
	var body responseBody
	if !h.decode(w, r, &body) {
		return
	}
	result, err := h.service.AnalyzeResponse(r.Context(), models.ResponseRequest{
		Payload: body.Payload,
		Event:   body.Event,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) trend(w http.ResponseWriter, r *http.Request) {
	var body trendBody
	if !h.decode(w, r, &body) {
		return
	}
	summary, err := h.service.Trend(r.Context(), models.TrendRequest{
		Payload:        body.Payload,
		Events:         body.Events,
		Range:          body.TargetRange,
		PatternMinDays: body.PatternMinDays,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handlers) results(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a non-negative integer", ErrorKind: "bad_request"})
			return
		}
		limit = n
	}
	entries, err := h.service.Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	views := make([]historyView, 0, len(entries))
	for _, e := range entries {
		views = append(views, historyView{
			ID:        e.ID,
			Kind:      e.Kind,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			Summary:   json.RawMessage(e.Summary),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": views})
}

func (h *handlers) remoteEntries(w http.ResponseWriter, r *http.Request) {
	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "count must be a non-negative integer", ErrorKind: "bad_request"})
			return
		}
		count = n
	}
	payload, err := h.service.FetchRemote(r.Context(), count)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(payload))
}

func (h *handlers) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error(), ErrorKind: "bad_request"})
		return false
	}
	return true
}

// writeError maps typed analysis errors onto 422 with a stable error_kind
// label; anything unrecognized is a 500.
func (h *handlers) writeError(w http.ResponseWriter, err error) {
	kind := models.ErrorKind(err)
	status := http.StatusUnprocessableEntity
	if kind == "internal" {
		status = http.StatusInternalServerError
		h.logger.Error("request failed", slog.Any("error", err))
	}
	writeJSON(w, status, errorBody{Error: err.Error(), ErrorKind: kind})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
