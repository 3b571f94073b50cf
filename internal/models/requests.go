package models

import "time"

// AnalyzeRequest asks for window metrics over a raw series payload.
type AnalyzeRequest struct {
	Payload string
	Range   *TargetRange
}

// ResponseRequest asks for an event-response analysis with PK/PD fitting.
type ResponseRequest struct {
	Payload string
	Event   Event
}

// TrendRequest asks for a multi-day trend aggregation.
type TrendRequest struct {
	Payload        string
	Events         []Event
	Range          *TargetRange
	PatternMinDays int
}

// HistoryEntry is one stored analysis result in the recent-results list.
type HistoryEntry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	Summary   []byte    `json:"summary"`
}
