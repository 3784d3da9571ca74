package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tokenatlas/tokenatlas/pkg/models/store"
)

func TestCalculate(t *testing.T) {
	price := store.ModelPrice{Model: "gpt-4", InputPrice: 0.03, OutputPrice: 0.06}

	costs := Calculate(1000, 500, price)
	assert.InDelta(t, 0.03, costs.InputCost, 1e-9)
	assert.InDelta(t, 0.03, costs.OutputCost, 1e-9)
	assert.InDelta(t, 0.06, costs.TotalCost, 1e-9)
}

func TestCalculate_RoundsToSixDecimals(t *testing.T) {
	price := store.ModelPrice{InputPrice: 0.0005, OutputPrice: 0.0015}

	costs := Calculate(7, 3, price)
	assert.InDelta(t, 0.000004, costs.InputCost, 1e-12)  // 0.0000035 rounds up
	assert.InDelta(t, 0.000005, costs.OutputCost, 1e-12) // 0.0000045 rounds up
}

func TestCalculate_ZeroTokens(t *testing.T) {
	costs := Calculate(0, 0, store.ModelPrice{InputPrice: 0.03, OutputPrice: 0.06})
	assert.Zero(t, costs.InputCost)
	assert.Zero(t, costs.OutputCost)
	assert.Zero(t, costs.TotalCost)
}

func TestInferProvider(t *testing.T) {
	tests := []struct {
		model    string
		provider string
	}{
		{"gpt-4", "OpenAI"},
		{"GPT-3.5-Turbo", "OpenAI"},
		{"claude-2", "Anthropic"},
		{"mistral-small", "Mistral"},
		{"gemini-pro", "Google"},
		{"llama-3-70b", "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.provider, InferProvider(tt.model))
		})
	}
}
