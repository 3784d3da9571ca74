package store

import (
	"database/sql"
	"fmt"
	"time"
)

// UsageEvent is one immutable usage row from the event log.
// Invariant: TotalTokens == PromptTokens + CompletionTokens; violations are
// repaired during coercion, never rejected.
type UsageEvent struct {
	ID               int64
	Timestamp        time.Time
	Model            string
	Endpoint         string
	Provider         string
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	InputCost        float64
	OutputCost       float64
	TotalCost        float64
	LatencyMs        int64
}

// RawEvent carries the nullable column values of one scanned row, before
// coercion. The gateway scans into this and runs ParseEvent on it so that a
// malformed row is a typed outcome instead of a scan panic.
type RawEvent struct {
	ID               sql.NullInt64
	Timestamp        sql.NullTime
	Model            sql.NullString
	Endpoint         sql.NullString
	Provider         sql.NullString
	PromptTokens     sql.NullInt64
	CompletionTokens sql.NullInt64
	TotalTokens      sql.NullInt64
	InputCost        sql.NullFloat64
	OutputCost       sql.NullFloat64
	TotalCost        sql.NullFloat64
	LatencyMs        sql.NullInt64
}

// DataIntegrityWarning marks a row that cannot contribute to aggregation.
// The row is dropped and processing continues.
type DataIntegrityWarning struct {
	Field string
}

func (w *DataIntegrityWarning) Error() string {
	return fmt.Sprintf("usage row missing required field %q", w.Field)
}

// ParseEvent is the total coercion from a raw row to a UsageEvent. A row
// without a timestamp, model or total cost is unusable and yields a
// DataIntegrityWarning. Every other missing value coerces to its zero,
// and the token-sum invariant is repaired in place.
func ParseEvent(raw RawEvent) (UsageEvent, error) {
	if !raw.Timestamp.Valid {
		return UsageEvent{}, &DataIntegrityWarning{Field: "timestamp"}
	}
	if !raw.Model.Valid || raw.Model.String == "" {
		return UsageEvent{}, &DataIntegrityWarning{Field: "model"}
	}
	if !raw.TotalCost.Valid {
		return UsageEvent{}, &DataIntegrityWarning{Field: "total_cost"}
	}

	ev := UsageEvent{
		ID:               raw.ID.Int64,
		Timestamp:        raw.Timestamp.Time.UTC(),
		Model:            raw.Model.String,
		Endpoint:         raw.Endpoint.String,
		Provider:         raw.Provider.String,
		PromptTokens:     raw.PromptTokens.Int64,
		CompletionTokens: raw.CompletionTokens.Int64,
		TotalTokens:      raw.TotalTokens.Int64,
		InputCost:        raw.InputCost.Float64,
		OutputCost:       raw.OutputCost.Float64,
		TotalCost:        raw.TotalCost.Float64,
		LatencyMs:        raw.LatencyMs.Int64,
	}

	if ev.TotalTokens != ev.PromptTokens+ev.CompletionTokens {
		ev.TotalTokens = ev.PromptTokens + ev.CompletionTokens
	}

	return ev, nil
}
