package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tokenatlas/tokenatlas/pkg/models/api"
	"github.com/tokenatlas/tokenatlas/pkg/models/domain"
	"github.com/tokenatlas/tokenatlas/pkg/models/store"
	"github.com/tokenatlas/tokenatlas/pkg/services/pricing"
	"github.com/tokenatlas/tokenatlas/pkg/store/reference"
	"github.com/tokenatlas/tokenatlas/pkg/store/usagelog"
)

// ErrPricingNotFound marks an ingest payload whose model has no active
// pricing row; the caller maps it to 404.
var ErrPricingNotFound = errors.New("no active pricing for model")

// Recorder validates, prices and persists incoming usage events.
type Recorder struct {
	ref    reference.Store
	events usagelog.Store
	now    func() time.Time
}

func NewRecorder(ref reference.Store, events usagelog.Store) *Recorder {
	return &Recorder{ref: ref, events: events, now: time.Now}
}

// Record turns an ingest payload into a persisted usage event. Field-level
// problems surface as InvalidFilterError so the caller can report which
// field to fix; the token-sum invariant is repaired, never rejected.
func (r *Recorder) Record(ctx context.Context, req api.LogRequest) (store.UsageEvent, error) {
	ev, err := buildEvent(req, r.now)
	if err != nil {
		return store.UsageEvent{}, err
	}

	price, ok, err := r.ref.PriceFor(ctx, ev.Model)
	if err != nil {
		return store.UsageEvent{}, fmt.Errorf("pricing lookup for %q: %w", ev.Model, err)
	}
	if !ok {
		return store.UsageEvent{}, fmt.Errorf("%w: %s", ErrPricingNotFound, ev.Model)
	}

	costs := pricing.Calculate(ev.PromptTokens, ev.CompletionTokens, price)
	ev.InputCost = costs.InputCost
	ev.OutputCost = costs.OutputCost
	ev.TotalCost = costs.TotalCost

	return r.events.Insert(ctx, ev)
}

func buildEvent(req api.LogRequest, now func() time.Time) (store.UsageEvent, error) {
	if req.Model == "" {
		return store.UsageEvent{}, domain.NewInvalidFilterError("model", "missing required field")
	}
	if req.PromptTokens == nil {
		return store.UsageEvent{}, domain.NewInvalidFilterError("prompt_tokens", "missing required field")
	}
	if req.CompletionTokens == nil {
		return store.UsageEvent{}, domain.NewInvalidFilterError("completion_tokens", "missing required field")
	}
	if req.LatencyMs == nil {
		return store.UsageEvent{}, domain.NewInvalidFilterError("latency_ms", "missing required field")
	}
	if *req.PromptTokens < 0 || *req.CompletionTokens < 0 {
		return store.UsageEvent{}, domain.NewInvalidFilterError("prompt_tokens", "token counts cannot be negative")
	}

	timestamp := now().UTC()
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			return store.UsageEvent{}, domain.NewInvalidFilterError("timestamp",
				"cannot parse %q as an ISO-8601 timestamp", req.Timestamp)
		}
		timestamp = parsed.UTC()
	}

	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = "default"
	}
	provider := req.Provider
	if provider == "" {
		provider = pricing.InferProvider(req.Model)
	}

	return store.UsageEvent{
		Timestamp:        timestamp,
		Model:            req.Model,
		Endpoint:         endpoint,
		Provider:         provider,
		PromptTokens:     *req.PromptTokens,
		CompletionTokens: *req.CompletionTokens,
		TotalTokens:      *req.PromptTokens + *req.CompletionTokens,
		LatencyMs:        *req.LatencyMs,
	}, nil
}
