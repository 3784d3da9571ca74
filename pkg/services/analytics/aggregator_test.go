package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokenatlas/tokenatlas/pkg/models/api"
	"github.com/tokenatlas/tokenatlas/pkg/models/domain"
	"github.com/tokenatlas/tokenatlas/pkg/models/store"
)

func dayFilter(start, end time.Time) domain.FilterSet {
	return domain.FilterSet{Start: start, End: end, Granularity: domain.GranularityDay}
}

func sampleEvents() []store.UsageEvent {
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	return []store.UsageEvent{
		{
			Timestamp: base, Model: "gpt-4", Endpoint: "chat", Provider: "OpenAI",
			PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500,
			InputCost: 0.03, OutputCost: 0.03, TotalCost: 0.06, LatencyMs: 400,
		},
		{
			Timestamp: base.AddDate(0, 0, 1), Model: "gpt-4", Endpoint: "chat", Provider: "OpenAI",
			PromptTokens: 500, CompletionTokens: 250, TotalTokens: 750,
			InputCost: 0.015, OutputCost: 0.015, TotalCost: 0.03, LatencyMs: 200,
		},
		{
			Timestamp: base.AddDate(0, 0, 2), Model: "claude-2", Endpoint: "completion", Provider: "Anthropic",
			PromptTokens: 200, CompletionTokens: 100, TotalTokens: 300,
			InputCost: 0.005, OutputCost: 0.005, TotalCost: 0.01, LatencyMs: 300,
		},
		{
			Timestamp: base.AddDate(0, 0, 2), Model: "", Endpoint: "", Provider: "",
			TotalTokens: 100, TotalCost: 0.005,
		},
	}
}

func TestSummarize(t *testing.T) {
	fs := dayFilter(
		time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC),
	)
	report := Summarize(fs, sampleEvents())

	assert.InDelta(t, 0.105, report.TotalSpend, 1e-9)
	assert.Equal(t, int64(4), report.TotalRequests)
	assert.Equal(t, int64(2650), report.TotalTokens)
	assert.InDelta(t, 0.105/4, report.AvgCostPerRequest, 1e-9)
	assert.InDelta(t, 300, report.AvgLatencyMs, 1e-9) // only events with latency samples

	require.Contains(t, report.ModelBreakdown, "gpt-4")
	require.Contains(t, report.ModelBreakdown, "claude-2")
	require.Contains(t, report.ModelBreakdown, domain.UnknownDimension)

	gpt4 := report.ModelBreakdown["gpt-4"]
	assert.InDelta(t, 0.09, gpt4.TotalSpend, 1e-9)
	assert.Equal(t, int64(2), gpt4.TotalRequests)
	assert.InDelta(t, 85.7, gpt4.Percent, 1e-9)

	// Breakdown spend sums back to the overall total.
	var sum float64
	for _, m := range report.ModelBreakdown {
		sum += m.TotalSpend
	}
	assert.InDelta(t, report.TotalSpend, sum, 1e-9)
}

func TestSummarize_Empty(t *testing.T) {
	fs := dayFilter(
		time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC),
	)
	report := Summarize(fs, nil)

	assert.Zero(t, report.TotalSpend)
	assert.Zero(t, report.TotalRequests)
	assert.Zero(t, report.AvgCostPerRequest)
	assert.Zero(t, report.AvgLatencyMs)
	assert.Empty(t, report.ModelBreakdown)
}

func TestTrendPoints_DenseSeries(t *testing.T) {
	fs := dayFilter(
		time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC),
	)
	events := sampleEvents()
	points := TrendPoints(fs, events, time.Now())

	// Four days in range, all present even when empty.
	require.Len(t, points, 4)
	assert.Equal(t, "2025-05-01", points[0].Period)
	assert.Equal(t, "2025-05-04", points[3].Period)

	assert.Equal(t, int64(1), points[0].TotalRequests)
	assert.Equal(t, int64(1), points[1].TotalRequests)
	assert.Equal(t, int64(2), points[2].TotalRequests)
	assert.Zero(t, points[3].TotalRequests)
	assert.Equal(t, []string{}, points[3].ModelsUsed)

	assert.Equal(t, []string{"claude-2"}, points[2].ModelsUsed)

	// Spend is conserved across the series.
	var total, fromPoints float64
	for _, ev := range events {
		total += ev.TotalCost
	}
	for _, p := range points {
		fromPoints += p.TotalSpend
	}
	assert.InDelta(t, total, fromPoints, 1e-9)
}

func TestTrendPoints_EmptySetYieldsSyntheticPoint(t *testing.T) {
	now := time.Date(2025, 5, 16, 14, 30, 0, 0, time.UTC)
	fs := dayFilter(
		time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC),
	)

	points := TrendPoints(fs, nil, now)
	require.Len(t, points, 1)

	p := points[0]
	assert.Equal(t, "2025-05-16", p.Period)
	assert.Equal(t, "May 16", p.PeriodLabel)
	assert.Zero(t, p.TotalSpend)
	assert.Zero(t, p.TotalRequests)
	assert.Equal(t, []string{}, p.ModelsUsed)
	assert.Equal(t, []string{}, p.EndpointsUsed)
	assert.Equal(t, []string{}, p.ProvidersUsed)
}

func TestSortTrendPoints_LabelFallback(t *testing.T) {
	// Points without a sort key, as after a serialization round trip,
	// still order by their display label.
	points := []api.TrendPoint{
		{PeriodLabel: "3 PM"},
		{PeriodLabel: "12 AM"},
		{PeriodLabel: "nonsense"},
		{PeriodLabel: "9 AM"},
		{PeriodLabel: "12 PM"},
	}

	SortTrendPoints(points, domain.GranularityHour)

	labels := make([]string, 0, len(points))
	for _, p := range points {
		labels = append(labels, p.PeriodLabel)
	}
	assert.Equal(t, []string{"12 AM", "9 AM", "12 PM", "3 PM", "nonsense"}, labels)
}

func TestDistribute_TopNWithOther(t *testing.T) {
	fs := dayFilter(
		time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC),
	)
	events := []store.UsageEvent{
		{Model: "gpt-4", TotalTokens: 500, TotalCost: 0.05},
		{Model: "claude-2", TotalTokens: 300, TotalCost: 0.02},
		{Model: "gpt-3.5-turbo", TotalTokens: 150, TotalCost: 0.001},
		{Model: "mistral-small", TotalTokens: 50, TotalCost: 0.0005},
	}

	report := Distribute(fs, events, DimensionModel, MetricTokens, 2)

	require.Len(t, report.Data, 2)
	assert.Equal(t, "gpt-4", report.Data[0].Name)
	assert.Equal(t, float64(500), report.Data[0].Value)
	assert.InDelta(t, 50.0, report.Data[0].Percent, 1e-9)
	assert.Equal(t, "claude-2", report.Data[1].Name)

	assert.Equal(t, "other", report.Other.Name)
	assert.Equal(t, float64(200), report.Other.Value)
	assert.InDelta(t, 20.0, report.Other.Percent, 1e-9)
	assert.InDelta(t, 0.0015, report.Other.Cost, 1e-9)
}

func TestDistribute_CostMetricAndNoneBucket(t *testing.T) {
	fs := dayFilter(
		time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC),
	)
	events := []store.UsageEvent{
		{Endpoint: "chat", TotalTokens: 100, TotalCost: 0.03},
		{Endpoint: "", TotalTokens: 100, TotalCost: 0.01},
	}

	report := Distribute(fs, events, DimensionEndpoint, MetricCost, 10)

	require.Len(t, report.Data, 2)
	assert.Equal(t, "chat", report.Data[0].Name)
	assert.InDelta(t, 0.03, report.Data[0].Value, 1e-9)
	assert.InDelta(t, 75.0, report.Data[0].Percent, 1e-9)
	assert.Equal(t, domain.UnknownDimension, report.Data[1].Name)
	assert.Empty(t, report.Other.Name)
}

func TestModelUsageRollup(t *testing.T) {
	usage := ModelUsageRollup(sampleEvents())

	require.Len(t, usage, 3)
	assert.Equal(t, "gpt-4", usage[0].Model)
	assert.InDelta(t, 0.09, usage[0].TotalSpend, 1e-9)
	assert.Equal(t, int64(1500), usage[0].PromptTokens)
	assert.Equal(t, int64(750), usage[0].CompletionTokens)
	assert.Equal(t, "claude-2", usage[1].Model)
	assert.Equal(t, domain.UnknownDimension, usage[2].Model)
}
