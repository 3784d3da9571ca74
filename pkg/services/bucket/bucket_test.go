package bucket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokenatlas/tokenatlas/pkg/models/domain"
	"github.com/tokenatlas/tokenatlas/pkg/models/store"
)

func TestTruncate(t *testing.T) {
	instant := time.Date(2025, 5, 16, 14, 42, 31, 0, time.UTC) // a Friday

	tests := []struct {
		granularity domain.Granularity
		expected    time.Time
	}{
		{domain.GranularityHour, time.Date(2025, 5, 16, 14, 0, 0, 0, time.UTC)},
		{domain.GranularityDay, time.Date(2025, 5, 16, 0, 0, 0, 0, time.UTC)},
		{domain.GranularityWeek, time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)},
		{domain.GranularityMonth, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
		{domain.GranularityYear, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(string(tt.granularity), func(t *testing.T) {
			assert.Equal(t, tt.expected, Truncate(instant, tt.granularity))
		})
	}
}

func TestTruncate_WeekStartsMonday(t *testing.T) {
	monday := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)

	// Every day of the week maps back to the same Monday.
	for offset := 0; offset < 7; offset++ {
		day := monday.AddDate(0, 0, offset)
		assert.Equal(t, monday, Truncate(day, domain.GranularityWeek), "day %s", day)
	}

	sunday := monday.AddDate(0, 0, -1)
	assert.Equal(t, monday.AddDate(0, 0, -7), Truncate(sunday, domain.GranularityWeek))
}

func TestNext_CalendarArithmetic(t *testing.T) {
	// Month lengths vary, so Next must not assume a fixed duration.
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), Next(jan, domain.GranularityMonth))

	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) // leap year
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Next(feb, domain.GranularityMonth))

	dec := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Next(dec, domain.GranularityMonth))

	year := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Next(year, domain.GranularityYear))
}

func TestNewSeries_DenseAndContiguous(t *testing.T) {
	tests := []struct {
		name        string
		granularity domain.Granularity
		start, end  time.Time
		count       int
	}{
		{
			"hours across a day boundary",
			domain.GranularityHour,
			time.Date(2025, 5, 15, 22, 10, 0, 0, time.UTC),
			time.Date(2025, 5, 16, 2, 0, 0, 0, time.UTC),
			4,
		},
		{
			"days across february",
			domain.GranularityDay,
			time.Date(2025, 2, 26, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
			5,
		},
		{
			"months across a year boundary",
			domain.GranularityMonth,
			time.Date(2024, 11, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
			4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSeries(tt.start, tt.end, tt.granularity)
			buckets := s.Buckets()
			require.Len(t, buckets, tt.count)

			for i, b := range buckets {
				assert.Equal(t, b.Start.Unix(), b.Key)
				assert.Equal(t, b.Start, Truncate(b.Start, tt.granularity), "bucket %d not aligned", i)
				assert.Zero(t, b.Metrics.TotalRequests, "bucket %d not zero-initialized", i)
				if i > 0 {
					assert.Equal(t, b.Start, Next(buckets[i-1].Start, tt.granularity),
						"gap between bucket %d and %d", i-1, i)
				}
			}
		})
	}
}

func TestSeries_Add(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC)
	s := NewSeries(start, end, domain.GranularityDay)

	s.Add(store.UsageEvent{
		Timestamp:        time.Date(2025, 5, 2, 9, 15, 0, 0, time.UTC),
		Model:            "gpt-4",
		Endpoint:         "chat",
		Provider:         "OpenAI",
		PromptTokens:     100,
		CompletionTokens: 50,
		TotalTokens:      150,
		TotalCost:        0.01,
		LatencyMs:        200,
	})
	s.Add(store.UsageEvent{
		Timestamp:   time.Date(2025, 5, 2, 23, 59, 59, 0, time.UTC),
		Model:       "claude-2",
		TotalTokens: 40,
		TotalCost:   0.002,
	})
	// Outside the range, silently dropped.
	s.Add(store.UsageEvent{
		Timestamp: time.Date(2025, 5, 9, 0, 0, 0, 0, time.UTC),
		TotalCost: 99,
	})

	buckets := s.Buckets()
	require.Len(t, buckets, 3)

	second := buckets[1]
	assert.Equal(t, int64(2), second.Metrics.TotalRequests)
	assert.Equal(t, int64(190), second.Metrics.TotalTokens)
	assert.InDelta(t, 0.012, second.Metrics.TotalCost, 1e-9)
	assert.InDelta(t, 200, second.Metrics.AvgLatency(), 1e-9)
	assert.True(t, second.Metrics.Models.Has("gpt-4"))
	assert.True(t, second.Metrics.Models.Has("claude-2"))

	assert.Zero(t, buckets[0].Metrics.TotalRequests)
	assert.Zero(t, buckets[2].Metrics.TotalRequests)
}

func TestPeriodKeyAndLabel(t *testing.T) {
	morning := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	noon := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	afternoon := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	midnight := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "2025-01-02 09:00", PeriodKey(morning, domain.GranularityHour))
	assert.Equal(t, "2025-01-02", PeriodKey(morning, domain.GranularityDay))
	assert.Equal(t, "2025-01", PeriodKey(morning, domain.GranularityMonth))
	assert.Equal(t, "2025", PeriodKey(morning, domain.GranularityYear))

	assert.Equal(t, "9 AM", Label(morning, domain.GranularityHour))
	assert.Equal(t, "12 PM", Label(noon, domain.GranularityHour))
	assert.Equal(t, "3 PM", Label(afternoon, domain.GranularityHour))
	assert.Equal(t, "12 AM", Label(midnight, domain.GranularityHour))
	assert.Equal(t, "Jan 2", Label(morning, domain.GranularityDay))
	assert.Equal(t, "Week of Jan 2", Label(morning, domain.GranularityWeek))
	assert.Equal(t, "Jan 2025", Label(morning, domain.GranularityMonth))
	assert.Equal(t, "2025", Label(morning, domain.GranularityYear))
}
