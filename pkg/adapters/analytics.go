package adapters

import (
	"github.com/tokenatlas/tokenatlas/pkg/models/api"
	"github.com/tokenatlas/tokenatlas/pkg/models/domain"
	"github.com/tokenatlas/tokenatlas/pkg/models/store"
)

func MapStoreEventToApi(ev store.UsageEvent) api.UsageEvent {
	return api.UsageEvent{
		ID:               ev.ID,
		Timestamp:        ev.Timestamp,
		Model:            ev.Model,
		Endpoint:         ev.Endpoint,
		Provider:         ev.Provider,
		PromptTokens:     ev.PromptTokens,
		CompletionTokens: ev.CompletionTokens,
		TotalTokens:      ev.TotalTokens,
		InputCost:        ev.InputCost,
		OutputCost:       ev.OutputCost,
		TotalCost:        ev.TotalCost,
		LatencyMs:        ev.LatencyMs,
	}
}

func MapFilterSetDomainToApi(fs domain.FilterSet) api.FilterSet {
	return api.FilterSet{
		StartDate:   fs.Start,
		EndDate:     fs.End,
		Models:      emptyIfNil(fs.Models),
		Endpoints:   emptyIfNil(fs.Endpoints),
		Providers:   emptyIfNil(fs.Providers),
		Granularity: string(fs.Granularity),
	}
}

func MapFilterSetDomainToPeriod(fs domain.FilterSet) api.TimePeriod {
	return api.TimePeriod{
		Start:       fs.Start,
		End:         fs.End,
		Granularity: string(fs.Granularity),
	}
}

func MapRecommendationDomainToApi(rec domain.Recommendation) api.Recommendation {
	return api.Recommendation{
		CurrentModel:     rec.CurrentModel,
		RecommendedModel: rec.RecommendedModel,
		SimilarityScore:  rec.SimilarityScore,
		PotentialSavings: rec.PotentialSavings,
		UsageCount:       rec.UsageCount,
		Reason:           rec.Reason,
	}
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
