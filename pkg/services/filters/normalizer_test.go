package filters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokenatlas/tokenatlas/pkg/models/domain"
)

var testNow = time.Date(2025, 5, 16, 10, 30, 0, 0, time.UTC)

func newTestNormalizer(opts ...Option) *Normalizer {
	opts = append(opts, WithClock(func() time.Time { return testNow }))
	return NewNormalizer(opts...)
}

func TestNormalize_Defaults(t *testing.T) {
	n := newTestNormalizer()

	fs, err := n.Normalize(context.Background(), Raw{})
	require.NoError(t, err)

	assert.Equal(t, testNow, fs.End)
	assert.Equal(t, testNow.AddDate(-1, 0, 0), fs.Start)
	assert.Equal(t, domain.GranularityDay, fs.Granularity)
	assert.Empty(t, fs.Models)
	assert.Empty(t, fs.Endpoints)
	assert.Empty(t, fs.Providers)
}

func TestNormalize_DateFormats(t *testing.T) {
	n := newTestNormalizer()

	tests := []struct {
		name     string
		value    string
		expected time.Time
	}{
		{"rfc3339 with Z", "2025-03-20T00:00:00Z", time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)},
		{"rfc3339 with offset", "2025-03-20T02:00:00+02:00", time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)},
		{"no zone", "2025-03-20T12:30:00", time.Date(2025, 3, 20, 12, 30, 0, 0, time.UTC)},
		{"date only", "2025-03-20", time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := n.Normalize(context.Background(), Raw{EndDate: tt.value})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, fs.End)
		})
	}
}

func TestNormalize_MalformedDates(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.Normalize(context.Background(), Raw{StartDate: "not-a-date"})
	var invalid *domain.InvalidFilterError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "start_date", invalid.Field)

	_, err = n.Normalize(context.Background(), Raw{EndDate: "20/03/2025"})
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "end_date", invalid.Field)
}

func TestNormalize_SwapsReversedDates(t *testing.T) {
	n := newTestNormalizer()

	ordered, err := n.Normalize(context.Background(), Raw{
		StartDate: "2025-01-01",
		EndDate:   "2025-02-01",
	})
	require.NoError(t, err)

	reversed, err := n.Normalize(context.Background(), Raw{
		StartDate: "2025-02-01",
		EndDate:   "2025-01-01",
	})
	require.NoError(t, err)

	// Supplying the dates in either order yields the identical filter.
	assert.Equal(t, ordered, reversed)
	assert.True(t, reversed.Start.Before(reversed.End))
}

func TestNormalize_Granularity(t *testing.T) {
	n := newTestNormalizer()

	fs, err := n.Normalize(context.Background(), Raw{Granularity: "MONTH"})
	require.NoError(t, err)
	assert.Equal(t, domain.GranularityMonth, fs.Granularity)

	_, err = n.Normalize(context.Background(), Raw{Granularity: "fortnight"})
	var invalid *domain.InvalidFilterError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "granularity", invalid.Field)
}

func TestNormalize_AliasListUnion(t *testing.T) {
	n := newTestNormalizer()

	fs, err := n.Normalize(context.Background(), Raw{
		Model:  []string{" gpt-4 ", "claude-2", ""},
		Models: []string{"gpt-4", "gpt-3.5-turbo", "  "},
	})
	require.NoError(t, err)

	// Union of both spellings, trimmed, de-duplicated, first-seen order.
	assert.Equal(t, []string{"gpt-4", "claude-2", "gpt-3.5-turbo"}, fs.Models)
}

type stubProber struct {
	min, max time.Time
	ok       bool
	err      error
}

func (s stubProber) TimeExtent(context.Context) (time.Time, time.Time, bool, error) {
	return s.min, s.max, s.ok, s.err
}

func TestNormalize_ExtentInference(t *testing.T) {
	dataStart := time.Date(2024, 11, 2, 8, 0, 0, 0, time.UTC)

	t.Run("uses store extent when no dates given", func(t *testing.T) {
		n := newTestNormalizer(WithExtentProber(stubProber{min: dataStart, max: testNow, ok: true}))

		fs, err := n.Normalize(context.Background(), Raw{})
		require.NoError(t, err)
		assert.Equal(t, dataStart, fs.Start)
		assert.Equal(t, testNow, fs.End)
	})

	t.Run("empty store falls back to default window", func(t *testing.T) {
		n := newTestNormalizer(WithExtentProber(stubProber{ok: false}))

		fs, err := n.Normalize(context.Background(), Raw{})
		require.NoError(t, err)
		assert.Equal(t, testNow.AddDate(-1, 0, 0), fs.Start)
	})

	t.Run("probe failure falls back to default window", func(t *testing.T) {
		n := newTestNormalizer(WithExtentProber(stubProber{err: errors.New("store down")}))

		fs, err := n.Normalize(context.Background(), Raw{})
		require.NoError(t, err)
		assert.Equal(t, testNow.AddDate(-1, 0, 0), fs.Start)
	})

	t.Run("explicit end date disables inference", func(t *testing.T) {
		n := newTestNormalizer(WithExtentProber(stubProber{min: dataStart, max: testNow, ok: true}))

		fs, err := n.Normalize(context.Background(), Raw{EndDate: "2025-03-01"})
		require.NoError(t, err)
		end := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, end.AddDate(-1, 0, 0), fs.Start)
	})
}
