package domain

// ModelUsage is the per-model rollup the recommendation engine works from.
type ModelUsage struct {
	Model            string
	TotalSpend       float64
	TotalRequests    int64
	TotalTokens      int64
	PromptTokens     int64
	CompletionTokens int64
	InputCost        float64
	OutputCost       float64
	AvgLatency       float64
}

// Recommendation is a ranked model-substitution suggestion. Derived per
// request, never persisted.
type Recommendation struct {
	CurrentModel     string
	RecommendedModel string
	SimilarityScore  float64
	PotentialSavings float64
	UsageCount       int64
	Reason           string
}
