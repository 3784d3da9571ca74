package filters

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tokenatlas/tokenatlas/pkg/models/domain"
)

// Raw holds filter input exactly as it arrived, before any validation.
// The singular/plural field pairs exist because both parameter spellings
// have been accepted historically; Normalize unions them.
type Raw struct {
	StartDate   string
	EndDate     string
	Model       []string
	Models      []string
	Endpoint    []string
	Endpoints   []string
	Provider    []string
	Providers   []string
	Granularity string
}

// ExtentProber reports the min/max event timestamps in the store. Used to
// infer a date range when the request carries none; ok is false for an
// empty store.
type ExtentProber interface {
	TimeExtent(ctx context.Context) (min, max time.Time, ok bool, err error)
}

type Normalizer struct {
	prober ExtentProber
	now    func() time.Time
}

type Option func(*Normalizer)

// WithExtentProber enables date-range inference from the store when a
// request supplies neither start_date nor end_date.
func WithExtentProber(p ExtentProber) Option {
	return func(n *Normalizer) { n.prober = p }
}

func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// acceptedDateLayouts are tried in order. RFC3339 covers the trailing-Z and
// offset forms; the remaining layouts are interpreted as UTC.
var acceptedDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize turns raw filter input into a canonical FilterSet. It is pure
// apart from the optional store probe, and it never errors on a reversed
// date range: start/end are swapped instead.
func (n *Normalizer) Normalize(ctx context.Context, raw Raw) (domain.FilterSet, error) {
	granularity := domain.GranularityDay
	if raw.Granularity != "" {
		granularity = domain.Granularity(strings.ToLower(strings.TrimSpace(raw.Granularity)))
		if !granularity.Valid() {
			return domain.FilterSet{}, domain.NewInvalidFilterError("granularity",
				"unknown granularity %q, must be one of hour, day, week, month, year", raw.Granularity)
		}
	}

	end := n.now().UTC()
	if raw.EndDate != "" {
		parsed, err := parseDate(raw.EndDate)
		if err != nil {
			return domain.FilterSet{}, domain.NewInvalidFilterError("end_date",
				"cannot parse %q as an ISO-8601 date", raw.EndDate)
		}
		end = parsed
	}

	var start time.Time
	switch {
	case raw.StartDate != "":
		parsed, err := parseDate(raw.StartDate)
		if err != nil {
			return domain.FilterSet{}, domain.NewInvalidFilterError("start_date",
				"cannot parse %q as an ISO-8601 date", raw.StartDate)
		}
		start = parsed
	case raw.EndDate == "" && n.prober != nil:
		start = n.inferStart(ctx, end)
	default:
		start = end.AddDate(-1, 0, 0)
	}

	if start.After(end) {
		start, end = end, start
	}

	return domain.FilterSet{
		Start:       start,
		End:         end,
		Models:      mergeList(raw.Model, raw.Models),
		Endpoints:   mergeList(raw.Endpoint, raw.Endpoints),
		Providers:   mergeList(raw.Provider, raw.Providers),
		Granularity: granularity,
	}, nil
}

// inferStart asks the store for its data extent. Probe failures fall back
// to the default one-year window; they are not the caller's problem.
func (n *Normalizer) inferStart(ctx context.Context, end time.Time) time.Time {
	logger := zerolog.Ctx(ctx)

	min, _, ok, err := n.prober.TimeExtent(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("date extent probe failed, using default window")
		return end.AddDate(-1, 0, 0)
	}
	if !ok || !min.Before(end) {
		return end.AddDate(-1, 0, 0)
	}
	return min.UTC()
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	var lastErr error
	for _, layout := range acceptedDateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// mergeList unions two historically-aliased parameter lists: values are
// trimmed, empties dropped, duplicates collapsed keeping first-seen order.
func mergeList(primary, alias []string) []string {
	var out []string
	seen := domain.NewStringSet()
	for _, v := range append(append([]string{}, primary...), alias...) {
		v = strings.TrimSpace(v)
		if v == "" || seen.Has(v) {
			continue
		}
		seen.Add(v)
		out = append(out, v)
	}
	return out
}
