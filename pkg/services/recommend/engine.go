package recommend

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/tokenatlas/tokenatlas/pkg/models/domain"
	"github.com/tokenatlas/tokenatlas/pkg/models/store"
	"github.com/tokenatlas/tokenatlas/pkg/store/reference"
)

// significanceGate suppresses recommendations whose savings do not exceed
// this share of the model's observed spend in the window.
const significanceGate = 0.10

type Engine struct {
	ref reference.Store
}

func NewEngine(ref reference.Store) *Engine {
	return &Engine{ref: ref}
}

// Recommend cross-references observed per-model usage with the pricing and
// alternatives reference tables and returns ranked cost-saving suggestions.
// Missing reference data yields fewer (or zero) recommendations, never an
// error: the dashboard renders an empty list instead of failing.
func (e *Engine) Recommend(ctx context.Context, usage []domain.ModelUsage) []domain.Recommendation {
	logger := zerolog.Ctx(ctx)

	alternatives, err := e.ref.FetchAlternatives(ctx, true)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load model alternatives, returning no recommendations")
		return nil
	}
	prices, err := e.ref.FetchPrices(ctx, true)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load model pricing, returning no recommendations")
		return nil
	}

	priceLookup := make(map[string]store.ModelPrice, len(prices))
	for _, p := range prices {
		priceLookup[p.Model] = p
	}

	altLookup := make(map[string][]store.ModelAlternative)
	for _, alt := range alternatives {
		altLookup[alt.SourceModel] = append(altLookup[alt.SourceModel], alt)
	}

	var recommendations []domain.Recommendation
	for _, mu := range usage {
		currentPrice, ok := priceLookup[mu.Model]
		if !ok {
			continue
		}

		for _, alt := range altLookup[mu.Model] {
			altPrice, ok := priceLookup[alt.AlternativeModel]
			if !ok {
				continue
			}

			// Savings use the actual observed token split for the model
			// in this window, priced per 1K tokens.
			currentCost := tokenCost(mu.PromptTokens, mu.CompletionTokens, currentPrice)
			altCost := tokenCost(mu.PromptTokens, mu.CompletionTokens, altPrice)
			savings := currentCost - altCost

			if savings <= mu.TotalSpend*significanceGate {
				continue
			}

			recommendations = append(recommendations, domain.Recommendation{
				CurrentModel:     mu.Model,
				RecommendedModel: alt.AlternativeModel,
				SimilarityScore:  alt.SimilarityScore,
				PotentialSavings: savings,
				UsageCount:       mu.TotalRequests,
				Reason:           fmt.Sprintf("Switch to save %.2f based on your usage pattern", savings),
			})
		}
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		if recommendations[i].PotentialSavings != recommendations[j].PotentialSavings {
			return recommendations[i].PotentialSavings > recommendations[j].PotentialSavings
		}
		return recommendations[i].SimilarityScore > recommendations[j].SimilarityScore
	})

	return recommendations
}

func tokenCost(promptTokens, completionTokens int64, price store.ModelPrice) float64 {
	return float64(promptTokens)*price.InputPrice/1000 +
		float64(completionTokens)*price.OutputPrice/1000
}
