package api

import "time"

type UsageEvent struct {
	ID               int64     `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	Model            string    `json:"model"`
	Endpoint         string    `json:"endpoint_name"`
	Provider         string    `json:"api_provider"`
	PromptTokens     int64     `json:"prompt_tokens"`
	CompletionTokens int64     `json:"completion_tokens"`
	TotalTokens      int64     `json:"total_tokens"`
	InputCost        float64   `json:"input_cost"`
	OutputCost       float64   `json:"output_cost"`
	TotalCost        float64   `json:"total_cost"`
	LatencyMs        int64     `json:"latency_ms"`
}

type Pagination struct {
	Page         int `json:"page"`
	PerPage      int `json:"per_page"`
	TotalPages   int `json:"total_pages"`
	TotalRecords int `json:"total_records"`
}

type LogPage struct {
	Logs       []UsageEvent `json:"logs"`
	Pagination Pagination   `json:"pagination"`
	Filters    FilterSet    `json:"filters"`
}

// LogRequest is the ingest payload accepted by POST /api/v1/log.
type LogRequest struct {
	Model            string `json:"model"`
	PromptTokens     *int64 `json:"prompt_tokens"`
	CompletionTokens *int64 `json:"completion_tokens"`
	TotalTokens      *int64 `json:"total_tokens"`
	LatencyMs        *int64 `json:"latency_ms"`
	Endpoint         string `json:"endpoint_name"`
	Provider         string `json:"api_provider"`
	Timestamp        string `json:"timestamp"`
}

type LogResponse struct {
	Message string     `json:"message"`
	Log     UsageEvent `json:"log"`
}
