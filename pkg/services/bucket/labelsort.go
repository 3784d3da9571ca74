package bucket

import (
	"math"
	"strconv"
	"strings"

	"github.com/tokenatlas/tokenatlas/pkg/models/domain"
)

// rankLast sorts any label that fails to parse after everything else.
const rankLast = math.MaxInt32

var monthIndex = map[string]int{
	"Jan": 1, "Feb": 2, "Mar": 3, "Apr": 4, "May": 5, "Jun": 6,
	"Jul": 7, "Aug": 8, "Sep": 9, "Oct": 10, "Nov": 11, "Dec": 12,
}

var weekdayRank = map[string]int{
	"Sun": 0, "Mon": 1, "Tue": 2, "Wed": 3, "Thu": 4, "Fri": 5, "Sat": 6,
}

// RankLabel reconstructs a numeric sort rank from a display label. Points
// deserialized from a cached payload carry only period/label strings, so
// the label is sometimes the only sort signal left; this derives an order
// from it without ever raising. Unparseable labels rank last.
func RankLabel(label string, g domain.Granularity) int {
	label = strings.TrimSpace(label)
	if label == "" {
		return rankLast
	}

	switch g {
	case domain.GranularityHour:
		return rankHourLabel(label)
	case domain.GranularityWeek:
		return rankWeekLabel(label)
	case domain.GranularityYear:
		if year, err := strconv.Atoi(label); err == nil {
			return year
		}
		return rankLast
	default:
		return rankCalendarLabel(label)
	}
}

// rankHourLabel maps "12 AM".."11 PM" onto the 24h clock. 12 AM is hour 0
// and 12 PM stays 12, so both need explicit correction.
func rankHourLabel(label string) int {
	fields := strings.Fields(label)
	if len(fields) != 2 {
		return rankLast
	}
	hour, err := strconv.Atoi(fields[0])
	if err != nil || hour < 1 || hour > 12 {
		return rankLast
	}

	switch strings.ToUpper(fields[1]) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	default:
		return rankLast
	}
	return hour
}

// rankCalendarLabel handles "May 16" and "May 2025" forms via the month
// abbreviation table. A trailing number small enough to be a day of month
// contributes to the rank; a year does not.
func rankCalendarLabel(label string) int {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return rankLast
	}
	month, ok := monthIndex[fields[0]]
	if !ok {
		return rankLast
	}

	day := 0
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[1]); err == nil && n >= 1 && n <= 31 {
			day = n
		}
	}
	return month*100 + day
}

// rankWeekLabel strips the "Week of " prefix, then ranks either by the
// Sun=0..Sat=6 weekday table or by the calendar table, whichever matches.
func rankWeekLabel(label string) int {
	label = strings.TrimPrefix(label, "Week of ")

	fields := strings.Fields(label)
	if len(fields) == 0 {
		return rankLast
	}

	if rank, ok := weekdayRank[fields[0]]; ok {
		day := 0
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil && n >= 1 && n <= 31 {
				day = n
			}
		}
		return rank*100 + day
	}
	return rankCalendarLabel(label)
}
