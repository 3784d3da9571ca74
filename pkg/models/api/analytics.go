package api

import "time"

// TimePeriod echoes the resolved date range of a query back to the caller.
type TimePeriod struct {
	Start       time.Time `json:"start_date"`
	End         time.Time `json:"end_date"`
	Granularity string    `json:"granularity"`
}

// DimensionMetrics is one row of a per-model/endpoint/provider breakdown.
type DimensionMetrics struct {
	TotalSpend    float64 `json:"total_spend"`
	TotalRequests int64   `json:"total_requests"`
	TotalTokens   int64   `json:"total_tokens"`
	Percent       float64 `json:"percent"`
}

type SummaryReport struct {
	TotalSpend        float64                     `json:"total_spend"`
	TotalRequests     int64                       `json:"total_requests"`
	TotalTokens       int64                       `json:"total_tokens"`
	AvgCostPerRequest float64                     `json:"avg_cost_per_request"`
	AvgLatencyMs      float64                     `json:"avg_latency_ms"`
	ProviderBreakdown map[string]DimensionMetrics `json:"provider_breakdown"`
	ModelBreakdown    map[string]DimensionMetrics `json:"model_breakdown"`
	EndpointBreakdown map[string]DimensionMetrics `json:"endpoint_breakdown"`
	Period            TimePeriod                  `json:"period"`
}

// TrendPoint is one dense time bucket of a trend series. SortKey is the
// bucket-start epoch assigned at creation; it orders the series and is not
// part of the wire contract.
type TrendPoint struct {
	Period           string   `json:"period"`
	PeriodLabel      string   `json:"period_label"`
	TotalSpend       float64  `json:"total_spend"`
	TotalRequests    int64    `json:"total_requests"`
	TotalTokens      int64    `json:"total_tokens"`
	PromptTokens     int64    `json:"prompt_tokens"`
	CompletionTokens int64    `json:"completion_tokens"`
	AvgLatencyMs     float64  `json:"avg_latency_ms"`
	ModelsUsed       []string `json:"models_used"`
	EndpointsUsed    []string `json:"endpoints_used"`
	ProvidersUsed    []string `json:"providers_used"`

	SortKey int64 `json:"-"`
}

type TrendReport struct {
	Metrics []TrendPoint `json:"metrics"`
	Period  TimePeriod   `json:"period"`
}

// DistributionRow is one entry of a Top-N breakdown by a single dimension.
type DistributionRow struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
	Cost    float64 `json:"cost"`
}

// DistributionReport caps the breakdown at the requested limit; everything
// beyond the cap is summed into Other rather than silently truncated.
type DistributionReport struct {
	Data   []DistributionRow `json:"data"`
	Other  DistributionRow   `json:"other"`
	Period TimePeriod        `json:"period"`
}

type Recommendation struct {
	CurrentModel     string  `json:"current_model"`
	RecommendedModel string  `json:"recommended_model"`
	SimilarityScore  float64 `json:"similarity_score"`
	PotentialSavings float64 `json:"potential_savings"`
	UsageCount       int64   `json:"usage_count"`
	Reason           string  `json:"reason"`
}

type RecommendationReport struct {
	Recommendations       []Recommendation `json:"recommendations"`
	TotalPotentialSavings float64          `json:"total_potential_savings"`
	Filters               FilterSet        `json:"filters"`
}

// FilterSet echoes the normalized filters applied to a query.
type FilterSet struct {
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Models      []string  `json:"models"`
	Endpoints   []string  `json:"endpoints"`
	Providers   []string  `json:"providers"`
	Granularity string    `json:"granularity"`
}

type FilterOptions struct {
	Models        []string `json:"models"`
	Endpoints     []string `json:"endpoints"`
	Providers     []string `json:"providers"`
	Granularities []string `json:"granularities"`
}
