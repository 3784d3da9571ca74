package bucket

import (
	"time"

	"github.com/tokenatlas/tokenatlas/pkg/models/domain"
	"github.com/tokenatlas/tokenatlas/pkg/models/store"
)

// Bucket is one calendar-aligned slice of a trend series. Key is the epoch
// second of the bucket start, assigned once at creation; Label is display
// only and never participates in ordering.
type Bucket struct {
	Key     int64
	Start   time.Time
	Period  string
	Label   string
	Metrics *domain.MetricAccumulator
}

// Series is the dense, ordered bucket list for one filter range. Buckets
// are generated up front from the range alone, so a bucket with no events
// still appears with zero metrics.
type Series struct {
	granularity domain.Granularity
	buckets     []*Bucket
	index       map[int64]*Bucket
}

// NewSeries pre-generates every bucket covering [start, end) at the given
// granularity. The first bucket starts at the truncated range start; the
// last bucket starts at or before the range end.
func NewSeries(start, end time.Time, g domain.Granularity) *Series {
	s := &Series{
		granularity: g,
		index:       make(map[int64]*Bucket),
	}

	for cursor := Truncate(start.UTC(), g); cursor.Before(end.UTC()); cursor = Next(cursor, g) {
		b := &Bucket{
			Key:     cursor.Unix(),
			Start:   cursor,
			Period:  PeriodKey(cursor, g),
			Label:   Label(cursor, g),
			Metrics: domain.NewMetricAccumulator(),
		}
		s.buckets = append(s.buckets, b)
		s.index[b.Key] = b
	}

	return s
}

// Add assigns one event to exactly one bucket by truncating its timestamp.
// Events outside the pre-generated range are ignored.
func (s *Series) Add(ev store.UsageEvent) {
	key := Truncate(ev.Timestamp.UTC(), s.granularity).Unix()
	b, ok := s.index[key]
	if !ok {
		return
	}

	m := b.Metrics
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

// Buckets returns the series in ascending Key order.
func (s *Series) Buckets() []*Bucket {
	return s.buckets
}

func (s *Series) Len() int { return len(s.buckets) }

// Truncate floors a UTC instant to its calendar unit. Weeks start on the
// preceding Monday (ISO week start).
func Truncate(t time.Time, g domain.Granularity) time.Time {
	t = t.UTC()
	switch g {
	case domain.GranularityHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	case domain.GranularityWeek:
		midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		back := (int(midnight.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -back)
	case domain.GranularityMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case domain.GranularityYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
}

// Next advances a truncated instant by one unit. Month and year use
// calendar arithmetic, not a fixed duration.
func Next(t time.Time, g domain.Granularity) time.Time {
	switch g {
	case domain.GranularityHour:
		return t.Add(time.Hour)
	case domain.GranularityWeek:
		return t.AddDate(0, 0, 7)
	case domain.GranularityMonth:
		return t.AddDate(0, 1, 0)
	case domain.GranularityYear:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// PeriodKey is the canonical machine-readable period identifier.
func PeriodKey(t time.Time, g domain.Granularity) string {
	switch g {
	case domain.GranularityHour:
		return t.Format("2006-01-02 15:00")
	case domain.GranularityMonth:
		return t.Format("2006-01")
	case domain.GranularityYear:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}

// Label is the human display label for a bucket start.
func Label(t time.Time, g domain.Granularity) string {
	switch g {
	case domain.GranularityHour:
		return t.Format("3 PM")
	case domain.GranularityWeek:
		return "Week of " + t.Format("Jan 2")
	case domain.GranularityMonth:
		return t.Format("Jan 2006")
	case domain.GranularityYear:
		return t.Format("2006")
	default:
		return t.Format("Jan 2")
	}
}
