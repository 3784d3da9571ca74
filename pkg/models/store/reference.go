package store

// ModelPrice is one row of the model_pricing reference table.
// Prices are per 1K tokens.
type ModelPrice struct {
	Model       string
	InputPrice  float64
	OutputPrice float64
	Active      bool
}

// ModelAlternative is one row of the model_alternatives reference table.
type ModelAlternative struct {
	SourceModel      string
	AlternativeModel string
	SimilarityScore  float64
	Recommended      bool
}
