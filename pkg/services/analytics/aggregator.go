package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/tokenatlas/tokenatlas/pkg/models/api"
	"github.com/tokenatlas/tokenatlas/pkg/models/domain"
	"github.com/tokenatlas/tokenatlas/pkg/models/store"
	"github.com/tokenatlas/tokenatlas/pkg/services/bucket"
)

// Dimension selects which event field a breakdown groups by.
type Dimension string

const (
	DimensionModel    Dimension = "model"
	DimensionEndpoint Dimension = "endpoint"
	DimensionProvider Dimension = "provider"
)

// Metric selects what a distribution row's value measures.
type Metric string

const (
	MetricTokens Metric = "tokens"
	MetricCost   Metric = "cost"
)

// Summarize reduces a filtered event set into totals and per-dimension
// breakdowns. Events with a blank dimension value land in the "None"
// bucket; they are counted, never dropped.
func Summarize(fs domain.FilterSet, events []store.UsageEvent) api.SummaryReport {
	totals := domain.NewMetricAccumulator()
	byModel := make(map[string]*domain.MetricAccumulator)
	byEndpoint := make(map[string]*domain.MetricAccumulator)
	byProvider := make(map[string]*domain.MetricAccumulator)

	for _, ev := range events {
		accumulate(totals, ev)
		accumulate(dimensionBucket(byModel, ev.Model), ev)
		accumulate(dimensionBucket(byEndpoint, ev.Endpoint), ev)
		accumulate(dimensionBucket(byProvider, ev.Provider), ev)
	}

	avgCost := 0.0
	if totals.TotalRequests > 0 {
		avgCost = totals.TotalCost / float64(totals.TotalRequests)
	}

	return api.SummaryReport{
		TotalSpend:        totals.TotalCost,
		TotalRequests:     totals.TotalRequests,
		TotalTokens:       totals.TotalTokens,
		AvgCostPerRequest: avgCost,
		AvgLatencyMs:      totals.AvgLatency(),
		ProviderBreakdown: breakdown(byProvider, totals.TotalCost),
		ModelBreakdown:    breakdown(byModel, totals.TotalCost),
		EndpointBreakdown: breakdown(byEndpoint, totals.TotalCost),
		Period: api.TimePeriod{
			Start:       fs.Start,
			End:         fs.End,
			Granularity: string(fs.Granularity),
		},
	}
}

// TrendPoints builds the dense trend series for a filter range. An empty
// event set still yields one synthetic zero-valued point at the current
// instant so that charts always have something to render.
func TrendPoints(fs domain.FilterSet, events []store.UsageEvent, now time.Time) []api.TrendPoint {
	if len(events) == 0 {
		start := bucket.Truncate(now.UTC(), fs.Granularity)
		return []api.TrendPoint{{
			Period:        bucket.PeriodKey(start, fs.Granularity),
			PeriodLabel:   bucket.Label(start, fs.Granularity),
			ModelsUsed:    []string{},
			EndpointsUsed: []string{},
			ProvidersUsed: []string{},
			SortKey:       start.Unix(),
		}}
	}

	series := bucket.NewSeries(fs.Start, fs.End, fs.Granularity)
	for _, ev := range events {
		series.Add(ev)
	}

	points := make([]api.TrendPoint, 0, series.Len())
	for _, b := range series.Buckets() {
		points = append(points, api.TrendPoint{
			Period:           b.Period,
			PeriodLabel:      b.Label,
			TotalSpend:       b.Metrics.TotalCost,
			TotalRequests:    b.Metrics.TotalRequests,
			TotalTokens:      b.Metrics.TotalTokens,
			PromptTokens:     b.Metrics.PromptTokens,
			CompletionTokens: b.Metrics.CompletionTokens,
			AvgLatencyMs:     b.Metrics.AvgLatency(),
			ModelsUsed:       sortedValues(b.Metrics.Models),
			EndpointsUsed:    sortedValues(b.Metrics.Endpoints),
			ProvidersUsed:    sortedValues(b.Metrics.Providers),
			SortKey:          b.Key,
		})
	}

	SortTrendPoints(points, fs.Granularity)
	return points
}

// SortTrendPoints orders a series ascending. Points created by this engine
// carry the bucket-start epoch; points round-tripped through a serialized
// payload lose it, in which case the display label is re-ranked instead.
func SortTrendPoints(points []api.TrendPoint, g domain.Granularity) {
	sort.SliceStable(points, func(i, j int) bool {
		return pointRank(points[i], g) < pointRank(points[j], g)
	})
}

func pointRank(p api.TrendPoint, g domain.Granularity) int64 {
	if p.SortKey != 0 {
		return p.SortKey
	}
	return int64(bucket.RankLabel(p.PeriodLabel, g))
}

// Distribute computes a Top-N breakdown by one dimension. Entries beyond
// the cap are summed into the Other row with correctly summed
// value/percent/cost, never silently truncated.
func Distribute(fs domain.FilterSet, events []store.UsageEvent, dim Dimension, metric Metric, limit int) api.DistributionReport {
	if limit <= 0 {
		limit = 10
	}

	type tally struct {
		tokens int64
		cost   float64
	}
	tallies := make(map[string]*tally)
	var totalTokens int64
	var totalCost float64

	for _, ev := range events {
		key := dimensionValue(ev, dim)
		t, ok := tallies[key]
		if !ok {
			t = &tally{}
			tallies[key] = t
		}
		t.tokens += ev.TotalTokens
		t.cost += ev.TotalCost
		totalTokens += ev.TotalTokens
		totalCost += ev.TotalCost
	}

	rows := make([]api.DistributionRow, 0, len(tallies))
	for key, t := range tallies {
		value := float64(t.tokens)
		total := float64(totalTokens)
		if metric == MetricCost {
			value = t.cost
			total = totalCost
		}
		rows = append(rows, api.DistributionRow{
			Name:    key,
			Value:   value,
			Percent: percentOf(value, total),
			Cost:    t.cost,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Value != rows[j].Value {
			return rows[i].Value > rows[j].Value
		}
		return rows[i].Name < rows[j].Name
	})

	report := api.DistributionReport{
		Period: api.TimePeriod{
			Start:       fs.Start,
			End:         fs.End,
			Granularity: string(fs.Granularity),
		},
	}
	if len(rows) <= limit {
		report.Data = rows
		return report
	}

	report.Data = rows[:limit]
	for _, row := range rows[limit:] {
		report.Other.Value += row.Value
		report.Other.Percent += row.Percent
		report.Other.Cost += row.Cost
	}
	report.Other.Name = "other"
	report.Other.Percent = roundPct(report.Other.Percent)
	return report
}

// ModelUsageRollup produces the per-model usage view the recommendation
// engine ranks against, ordered by spend descending.
func ModelUsageRollup(events []store.UsageEvent) []domain.ModelUsage {
	byModel := make(map[string]*domain.MetricAccumulator)
	for _, ev := range events {
		accumulate(dimensionBucket(byModel, ev.Model), ev)
	}

	usage := make([]domain.ModelUsage, 0, len(byModel))
	for model, m := range byModel {
		usage = append(usage, domain.ModelUsage{
			Model:            model,
			TotalSpend:       m.TotalCost,
			TotalRequests:    m.TotalRequests,
			TotalTokens:      m.TotalTokens,
			PromptTokens:     m.PromptTokens,
			CompletionTokens: m.CompletionTokens,
			InputCost:        m.InputCost,
			OutputCost:       m.OutputCost,
			AvgLatency:       m.AvgLatency(),
		})
	}

	sort.SliceStable(usage, func(i, j int) bool {
		if usage[i].TotalSpend != usage[j].TotalSpend {
			return usage[i].TotalSpend > usage[j].TotalSpend
		}
		return usage[i].Model < usage[j].Model
	})
	return usage
}

func accumulate(m *domain.MetricAccumulator, ev store.UsageEvent) {
	m.TotalCost += ev.TotalCost
	m.InputCost += ev.InputCost
	m.OutputCost += ev.OutputCost
	m.TotalRequests++
	m.TotalTokens += ev.TotalTokens
	m.PromptTokens += ev.PromptTokens
	m.CompletionTokens += ev.CompletionTokens
	if ev.LatencyMs > 0 {
		m.LatencySum += float64(ev.LatencyMs)
		m.LatencyCount++
	}
	if ev.Model != "" {
		m.Models.Add(ev.Model)
	}
	if ev.Endpoint != "" {
		m.Endpoints.Add(ev.Endpoint)
	}
	if ev.Provider != "" {
		m.Providers.Add(ev.Provider)
	}
}

func dimensionBucket(buckets map[string]*domain.MetricAccumulator, key string) *domain.MetricAccumulator {
	if key == "" {
		key = domain.UnknownDimension
	}
	m, ok := buckets[key]
	if !ok {
		m = domain.NewMetricAccumulator()
		buckets[key] = m
	}
	return m
}

func dimensionValue(ev store.UsageEvent, dim Dimension) string {
	var v string
	switch dim {
	case DimensionEndpoint:
		v = ev.Endpoint
	case DimensionProvider:
		v = ev.Provider
	default:
		v = ev.Model
	}
	if v == "" {
		return domain.UnknownDimension
	}
	return v
}

func breakdown(buckets map[string]*domain.MetricAccumulator, totalCost float64) map[string]api.DimensionMetrics {
	out := make(map[string]api.DimensionMetrics, len(buckets))
	for key, m := range buckets {
		out[key] = api.DimensionMetrics{
			TotalSpend:    m.TotalCost,
			TotalRequests: m.TotalRequests,
			TotalTokens:   m.TotalTokens,
			Percent:       percentOf(m.TotalCost, totalCost),
		}
	}
	return out
}

// percentOf is the share of total rounded to one decimal; a zero total
// yields 0, never an error.
func percentOf(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return roundPct(value / total * 100)
}

func roundPct(v float64) float64 {
	return math.Round(v*10) / 10
}

func sortedValues(set domain.StringSet) []string {
	values := make([]string, 0, len(set))
	for v := range set {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
