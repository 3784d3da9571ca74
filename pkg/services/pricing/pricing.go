package pricing

import (
	"math"
	"strings"

	"github.com/tokenatlas/tokenatlas/pkg/models/store"
)

// Costs is the priced breakdown of one request.
type Costs struct {
	InputCost  float64
	OutputCost float64
	TotalCost  float64
}

// Calculate prices a request from its token counts. Reference prices are
// per 1K tokens; results are rounded to 6 decimal places.
func Calculate(promptTokens, completionTokens int64, price store.ModelPrice) Costs {
	input := round6(float64(promptTokens) / 1000 * price.InputPrice)
	output := round6(float64(completionTokens) / 1000 * price.OutputPrice)
	return Costs{
		InputCost:  input,
		OutputCost: output,
		TotalCost:  round6(input + output),
	}
}

// InferProvider guesses the provider from the model name when the payload
// omits it.
func InferProvider(model string) string {
	model = strings.ToLower(model)
	switch {
	case strings.Contains(model, "gpt"):
		return "OpenAI"
	case strings.Contains(model, "claude"):
		return "Anthropic"
	case strings.Contains(model, "mistral"):
		return "Mistral"
	case strings.Contains(model, "gemini"):
		return "Google"
	default:
		return "Unknown"
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
