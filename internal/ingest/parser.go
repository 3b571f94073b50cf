package ingest

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/glycostack/glyco-engine/internal/models"
	"github.com/glycostack/glyco-engine/internal/utils"
)

// rawRow is one reading before normalization, still in source units.
type rawRow struct {
	Timestamp time.Time
	Value     float64
}

// parser is one format strategy. Sniff must be cheap and side-effect free;
// Parse returns the rows it could read plus the count of rows it dropped.
type parser interface {
	Name() string
	Sniff(text string) bool
	Parse(text string) ([]rawRow, int, error)
}

// parsers returns the format strategies in priority order. The device
// layout is tried before generic delimited text because its rows also
// tokenize as whitespace-delimited columns.
func parsers() []parser {
	return []parser{jsonParser{}, deviceParser{}, delimitedParser{}}
}

// dataLines strips blank and #-comment lines.
func dataLines(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// jsonParser reads an array of key-value records, accepting the timestamp
// and glucose key aliases seen across CGM exports.
type jsonParser struct{}

func (jsonParser) Name() string { return "json" }

func (jsonParser) Sniff(text string) bool {
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{")
}

func (jsonParser) Parse(text string) ([]rawRow, int, error) {
	var records []map[string]any
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") {
		var single map[string]any
		if err := json.Unmarshal([]byte(trimmed), &single); err != nil {
			return nil, 0, &models.ParseError{Format: "json", Msg: err.Error()}
		}
		records = []map[string]any{single}
	} else if err := json.Unmarshal([]byte(trimmed), &records); err != nil {
		return nil, 0, &models.ParseError{Format: "json", Msg: err.Error()}
	}

	rows := make([]rawRow, 0, len(records))
	dropped := 0
	for _, rec := range records {
		ts, tsOK := jsonTimestamp(rec)
		value, valOK := jsonValue(rec)
		if !tsOK || !valOK {
			dropped++
			continue
		}
		rows = append(rows, rawRow{Timestamp: ts, Value: value})
	}
	return rows, dropped, nil
}

func jsonTimestamp(rec map[string]any) (time.Time, bool) {
	for _, key := range []string{"timestamp", "time", "date", "dateString"} {
		raw, ok := rec[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case string:
			if t, err := utils.ParseTimestamp(v); err == nil {
				return t, true
			}
		case float64:
			// Nightscout-style epoch milliseconds.
			return time.UnixMilli(int64(v)).UTC(), true
		}
	}
	return time.Time{}, false
}

func jsonValue(rec map[string]any) (float64, bool) {
	for _, key := range []string{"glucose", "value", "sgv", "sg"} {
		raw, ok := rec[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// deviceParser reads the single-file meter export layout:
//
//	ID date time recordType value
//	69137 2024/03/16 12:03 0 15.3
//
// Header and footer lines are skipped by the leading-numeric-ID check.
// Values are in mmol/L by convention for this layout; the normalizer's
// unit heuristic handles the conversion.
type deviceParser struct{}

func (deviceParser) Name() string { return "device" }

func (deviceParser) Sniff(text string) bool {
	for _, line := range dataLines(text) {
		fields := strings.Fields(line)
		if len(fields) >= 5 && isDigits(fields[0]) {
			return true
		}
	}
	return false
}

func (deviceParser) Parse(text string) ([]rawRow, int, error) {
	rows := make([]rawRow, 0)
	dropped := 0
	for _, line := range dataLines(text) {
		fields := strings.Fields(line)
		if len(fields) < 5 || !isDigits(fields[0]) {
			continue
		}
		ts, err := utils.ParseTimestamp(fields[1] + " " + fields[2])
		if err != nil {
			dropped++
			continue
		}
		value, err := strconv.ParseFloat(fields[4], 64)
		if err != nil {
			dropped++
			continue
		}
		rows = append(rows, rawRow{Timestamp: ts, Value: value})
	}
	if len(rows) == 0 && dropped == 0 {
		return nil, 0, &models.ParseError{Format: "device", Msg: "no data rows"}
	}
	// All rows dropped is an empty result, not a format failure; the
	// normalizer reports it with the drop count.
	return rows, dropped, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// delimitedParser reads comma-, tab-, or space-separated text with or
// without a header row. Column selection follows header keywords when a
// header is present, else first column = time, last column = glucose.
type delimitedParser struct{}

func (delimitedParser) Name() string { return "delimited" }

// Sniff accepts anything line-oriented; delimited is the fallback strategy.
func (delimitedParser) Sniff(text string) bool {
	return len(dataLines(text)) > 0
}

func (delimitedParser) Parse(text string) ([]rawRow, int, error) {
	lines := dataLines(text)
	if len(lines) == 0 {
		return nil, 0, &models.ParseError{Format: "delimited", Msg: "no data lines"}
	}

	delim := detectDelimiter(lines[0])
	header := splitRow(lines[0], delim)
	timeIdx, valueIdx, hasHeader, headerMatched := matchColumns(header)

	start := 0
	if hasHeader {
		start = 1
	} else {
		// Headerless: first column is time, last is glucose. With
		// whitespace delimiting the date and clock tokens split, so the
		// value sits after a two-token timestamp.
		timeIdx, valueIdx = 0, -1
	}

	rows := make([]rawRow, 0, len(lines)-start)
	dropped := 0
	for _, line := range lines[start:] {
		fields := splitRow(line, delim)
		row, ok := parseRow(fields, timeIdx, valueIdx, delim)
		if !ok {
			dropped++
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 && dropped == 0 && !headerMatched {
		return nil, 0, &models.ParseError{Format: "delimited", Msg: "no parseable rows"}
	}
	return rows, dropped, nil
}

func detectDelimiter(line string) string {
	switch {
	case strings.Contains(line, "\t"):
		return "\t"
	case strings.Contains(line, ","):
		return ","
	default:
		return " "
	}
}

func splitRow(line, delim string) []string {
	var fields []string
	if delim == " " {
		fields = strings.Fields(line)
	} else {
		fields = strings.Split(line, delim)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

var (
	timeKeywords  = []string{"timestamp", "datetime", "time", "date"}
	valueKeywords = []string{"glucose", "value", "sgv", "sg", "bg", "mg"}
)

// matchColumns inspects a candidate header row. It reports the matched
// column indexes, whether the row is a header at all, and whether any header
// keyword actually matched; a row whose first field parses as a timestamp is
// data, not a header.
func matchColumns(fields []string) (timeIdx, valueIdx int, isHeader, matched bool) {
	if len(fields) == 0 {
		return 0, -1, false, false
	}
	if _, err := utils.ParseTimestamp(fields[0]); err == nil {
		return 0, -1, false, false
	}
	if _, err := utils.ParseTimestamp(fields[0] + " " + safeField(fields, 1)); err == nil {
		return 0, -1, false, false
	}

	timeIdx, valueIdx = -1, -1
	for i, field := range fields {
		lower := strings.ToLower(field)
		if timeIdx < 0 {
			for _, kw := range timeKeywords {
				if strings.Contains(lower, kw) {
					timeIdx = i
					break
				}
			}
		}
		if valueIdx < 0 {
			for _, kw := range valueKeywords {
				if strings.Contains(lower, kw) {
					valueIdx = i
					break
				}
			}
		}
	}
	matched = timeIdx >= 0 || valueIdx >= 0
	if timeIdx < 0 {
		timeIdx = 0
	}
	if valueIdx < 0 {
		valueIdx = len(fields) - 1
	}
	return timeIdx, valueIdx, true, matched
}

func safeField(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

// parseRow extracts one sample. valueIdx < 0 means "last column"; with
// whitespace delimiting, a timestamp may occupy two adjacent tokens.
func parseRow(fields []string, timeIdx, valueIdx int, delim string) (rawRow, bool) {
	if timeIdx >= len(fields) {
		return rawRow{}, false
	}

	ts, err := utils.ParseTimestamp(fields[timeIdx])
	twoToken := false
	if err != nil && delim == " " && timeIdx+1 < len(fields) {
		ts, err = utils.ParseTimestamp(fields[timeIdx] + " " + fields[timeIdx+1])
		twoToken = err == nil
	}
	if err != nil {
		return rawRow{}, false
	}

	vi := valueIdx
	if vi < 0 {
		vi = len(fields) - 1
	} else if twoToken && vi > timeIdx {
		vi++
	}
	if vi >= len(fields) || vi == timeIdx {
		return rawRow{}, false
	}
	value, err := strconv.ParseFloat(fields[vi], 64)
	if err != nil {
		return rawRow{}, false
	}
	return rawRow{Timestamp: ts, Value: value}, true
}
