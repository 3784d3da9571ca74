package analytics

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/tokenatlas/tokenatlas/pkg/adapters"
	"github.com/tokenatlas/tokenatlas/pkg/cache"
	"github.com/tokenatlas/tokenatlas/pkg/models/api"
	"github.com/tokenatlas/tokenatlas/pkg/models/domain"
	"github.com/tokenatlas/tokenatlas/pkg/models/store"
	"github.com/tokenatlas/tokenatlas/pkg/services/filters"
	"github.com/tokenatlas/tokenatlas/pkg/services/recommend"
	"github.com/tokenatlas/tokenatlas/pkg/store/usagelog"
)

// Controller runs the query pipeline: normalize, consult the cache, fetch
// paginated pages from the store, aggregate, and store the result back.
// Every method returns a well-formed (possibly zeroed) result for store
// failures; only InvalidFilterError crosses the boundary.
type Controller interface {
	GetSummary(ctx context.Context, raw filters.Raw) (api.SummaryReport, error)
	GetTrend(ctx context.Context, raw filters.Raw) (api.TrendReport, error)
	GetDistribution(ctx context.Context, raw filters.Raw, dim Dimension, metric Metric, limit int) (api.DistributionReport, error)
	GetRecommendations(ctx context.Context, raw filters.Raw) (api.RecommendationReport, error)
	GetLogs(ctx context.Context, raw filters.Raw, page usagelog.Page, sort usagelog.Sort) (api.LogPage, error)
	GetFilterOptions(ctx context.Context) (api.FilterOptions, error)
}

type Dependencies struct {
	Normalizer  *filters.Normalizer
	Events      usagelog.Store
	Recommender *recommend.Engine
	Cache       *cache.QueryCache
	// PageSize bounds each store fetch; peak memory stays proportional
	// to it, not to the result set.
	PageSize int
	Clock    func() time.Time
}

type controller struct {
	normalizer  *filters.Normalizer
	events      usagelog.Store
	recommender *recommend.Engine
	cache       *cache.QueryCache
	pageSize    int
	now         func() time.Time
}

func NewController(deps Dependencies) Controller {
	if deps.PageSize <= 0 {
		deps.PageSize = usagelog.DefaultPageSize
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &controller{
		normalizer:  deps.Normalizer,
		events:      deps.Events,
		recommender: deps.Recommender,
		cache:       deps.Cache,
		pageSize:    deps.PageSize,
		now:         deps.Clock,
	}
}

func (c *controller) GetSummary(ctx context.Context, raw filters.Raw) (api.SummaryReport, error) {
	defer c.cache.Sweep(ctx)

	fs, err := c.normalizer.Normalize(ctx, raw)
	if err != nil {
		return api.SummaryReport{}, err
	}

	fingerprint := cache.Fingerprint(cache.KindSummary, fs)
	if cached, ok := c.cache.Get(cache.KindSummary, fingerprint); ok {
		return cached.(api.SummaryReport), nil
	}

	events := c.fetchAll(ctx, fs)
	report := Summarize(fs, events)

	c.cache.Set(cache.KindSummary, fingerprint, report)
	return report, nil
}

func (c *controller) GetTrend(ctx context.Context, raw filters.Raw) (api.TrendReport, error) {
	defer c.cache.Sweep(ctx)

	fs, err := c.normalizer.Normalize(ctx, raw)
	if err != nil {
		return api.TrendReport{}, err
	}

	fingerprint := cache.Fingerprint(cache.KindTrend, fs)
	if cached, ok := c.cache.Get(cache.KindTrend, fingerprint); ok {
		return cached.(api.TrendReport), nil
	}

	events := c.fetchAll(ctx, fs)
	report := api.TrendReport{
		Metrics: TrendPoints(fs, events, c.now()),
		Period:  adapters.MapFilterSetDomainToPeriod(fs),
	}

	c.cache.Set(cache.KindTrend, fingerprint, report)
	return report, nil
}

func (c *controller) GetDistribution(
	ctx context.Context,
	raw filters.Raw,
	dim Dimension,
	metric Metric,
	limit int,
) (api.DistributionReport, error) {
	defer c.cache.Sweep(ctx)

	fs, err := c.normalizer.Normalize(ctx, raw)
	if err != nil {
		return api.DistributionReport{}, err
	}

	fingerprint := cache.Fingerprint(cache.KindDistribution, fs,
		string(dim), string(metric), strconv.Itoa(limit))
	if cached, ok := c.cache.Get(cache.KindDistribution, fingerprint); ok {
		return cached.(api.DistributionReport), nil
	}

	events := c.fetchAll(ctx, fs)
	report := Distribute(fs, events, dim, metric, limit)

	c.cache.Set(cache.KindDistribution, fingerprint, report)
	return report, nil
}

func (c *controller) GetRecommendations(ctx context.Context, raw filters.Raw) (api.RecommendationReport, error) {
	defer c.cache.Sweep(ctx)

	fs, err := c.normalizer.Normalize(ctx, raw)
	if err != nil {
		return api.RecommendationReport{}, err
	}

	fingerprint := cache.Fingerprint(cache.KindRecommendations, fs)
	if cached, ok := c.cache.Get(cache.KindRecommendations, fingerprint); ok {
		return cached.(api.RecommendationReport), nil
	}

	events := c.fetchAll(ctx, fs)
	recommendations := c.recommender.Recommend(ctx, ModelUsageRollup(events))

	report := api.RecommendationReport{
		Recommendations: make([]api.Recommendation, 0, len(recommendations)),
		Filters:         adapters.MapFilterSetDomainToApi(fs),
	}
	for _, rec := range recommendations {
		report.Recommendations = append(report.Recommendations, adapters.MapRecommendationDomainToApi(rec))
		report.TotalPotentialSavings += rec.PotentialSavings
	}

	c.cache.Set(cache.KindRecommendations, fingerprint, report)
	return report, nil
}

func (c *controller) GetLogs(
	ctx context.Context,
	raw filters.Raw,
	page usagelog.Page,
	sort usagelog.Sort,
) (api.LogPage, error) {
	defer c.cache.Sweep(ctx)
	logger := zerolog.Ctx(ctx)

	fs, err := c.normalizer.Normalize(ctx, raw)
	if err != nil {
		return api.LogPage{}, err
	}

	events, total, err := c.events.FetchEvents(ctx, fs, page, sort)
	if err != nil {
		// Store failures degrade to an empty page, not a 5xx.
		logger.Error().Err(err).Msg("log fetch failed, returning empty page")
		events, total = nil, 0
	}

	totalPages := 1
	if total > 0 {
		totalPages = (total + page.Size - 1) / page.Size
	}

	logs := make([]api.UsageEvent, 0, len(events))
	for _, ev := range events {
		logs = append(logs, adapters.MapStoreEventToApi(ev))
	}

	return api.LogPage{
		Logs: logs,
		Pagination: api.Pagination{
			Page:         page.Number,
			PerPage:      page.Size,
			TotalPages:   totalPages,
			TotalRecords: total,
		},
		Filters: adapters.MapFilterSetDomainToApi(fs),
	}, nil
}

func (c *controller) GetFilterOptions(ctx context.Context) (api.FilterOptions, error) {
	logger := zerolog.Ctx(ctx)

	models, endpoints, providers, err := c.events.DistinctValues(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("filter options query failed, returning empty options")
		models, endpoints, providers = nil, nil, nil
	}

	granularities := make([]string, 0, len(domain.Granularities()))
	for _, g := range domain.Granularities() {
		granularities = append(granularities, string(g))
	}

	return api.FilterOptions{
		Models:        emptyIfNil(models),
		Endpoints:     emptyIfNil(endpoints),
		Providers:     emptyIfNil(providers),
		Granularities: granularities,
	}, nil
}

// fetchAll drains every page of the filtered result set through the
// bounded gateway. Store failures are logged and degrade to an empty set
// so every public operation still returns a well-formed result.
// Termination is driven by pages covered against the match count, not the
// returned event count: the gateway drops malformed rows, so a page may
// come back short while later pages still hold events.
func (c *controller) fetchAll(ctx context.Context, fs domain.FilterSet) []store.UsageEvent {
	logger := zerolog.Ctx(ctx)

	var all []store.UsageEvent
	sort := usagelog.Sort{Field: "timestamp"}

	for number := 1; ; number++ {
		page := usagelog.Page{Number: number, Size: c.pageSize}
		events, total, err := c.events.FetchEvents(ctx, fs, page, sort)
		if err != nil {
			logger.Error().Err(err).Msg("usage fetch failed, aggregating without store data")
			return nil
		}

		all = append(all, events...)
		if number*c.pageSize >= total {
			break
		}
	}
	return all
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
