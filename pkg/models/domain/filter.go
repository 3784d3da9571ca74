package domain

import "time"

// Granularity is the calendar unit used for time bucketing.
type Granularity string

const (
	GranularityHour  Granularity = "hour"
	GranularityDay   Granularity = "day"
	GranularityWeek  Granularity = "week"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

func Granularities() []Granularity {
	return []Granularity{
		GranularityHour,
		GranularityDay,
		GranularityWeek,
		GranularityMonth,
		GranularityYear,
	}
}

func (g Granularity) Valid() bool {
	switch g {
	case GranularityHour, GranularityDay, GranularityWeek, GranularityMonth, GranularityYear:
		return true
	}
	return false
}

// FilterSet is the canonical, normalized form of a dashboard filter request.
// Start and End are UTC with Start < End. The string sets preserve first-seen
// order from the request.
type FilterSet struct {
	Start       time.Time
	End         time.Time
	Models      []string
	Endpoints   []string
	Providers   []string
	Granularity Granularity
}
