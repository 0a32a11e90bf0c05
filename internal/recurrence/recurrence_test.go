package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBetween_OccurrenceCounts(t *testing.T) {
	cases := []struct {
		name  string
		freq  Frequency
		start time.Time
		end   time.Time
		want  int
	}{
		{"daily ten days", FrequencyDaily, Date(2019, 1, 1), Date(2019, 1, 10), 10},
		{"daily single day", FrequencyDaily, Date(2019, 1, 1), Date(2019, 1, 1), 1},
		{"monthly ten months", FrequencyMonthly, Date(2019, 1, 1), Date(2019, 10, 1), 10},
		{"monthly single month", FrequencyMonthly, Date(2019, 1, 1), Date(2019, 1, 1), 1},
		{"weekly five weeks", FrequencyWeekly, Date(2019, 1, 1), Date(2019, 2, 1), 5},
		{"weekly nine weeks", FrequencyWeekly, Date(2019, 1, 1), Date(2019, 3, 1), 9},
		{"weekly thirteen weeks", FrequencyWeekly, Date(2019, 1, 1), Date(2019, 4, 1), 13},
		{"weekly single week", FrequencyWeekly, Date(2019, 1, 1), Date(2019, 1, 1), 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dates, err := Between(tc.freq, tc.start, tc.end)
			require.NoError(t, err)
			assert.Len(t, dates, tc.want)
		})
	}
}

func TestBetween_StrictlyIncreasingFromStart(t *testing.T) {
	for _, freq := range []Frequency{FrequencyDaily, FrequencyWeekly, FrequencyMonthly} {
		dates, err := Between(freq, Date(2019, 1, 15), Date(2020, 3, 1))
		require.NoError(t, err)
		require.NotEmpty(t, dates)
		assert.Equal(t, Date(2019, 1, 15), dates[0])
		for i := 1; i < len(dates); i++ {
			assert.True(t, dates[i].After(dates[i-1]), "%s: dates must be strictly increasing", freq)
		}
	}
}

func TestBetween_MonthlyClampsToEndOfMonth(t *testing.T) {
	dates, err := Between(FrequencyMonthly, Date(2019, 1, 31), Date(2019, 4, 30))
	require.NoError(t, err)
	require.Len(t, dates, 4)
	assert.Equal(t, Date(2019, 1, 31), dates[0])
	assert.Equal(t, Date(2019, 2, 28), dates[1])
	assert.Equal(t, Date(2019, 3, 31), dates[2])
	assert.Equal(t, Date(2019, 4, 30), dates[3])
}

func TestBetween_MonthlyClampsInLeapYear(t *testing.T) {
	dates, err := Between(FrequencyMonthly, Date(2020, 1, 31), Date(2020, 2, 29))
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, Date(2020, 2, 29), dates[1])
}

func TestBetween_StartAfterEnd(t *testing.T) {
	dates, err := Between(FrequencyDaily, Date(2019, 2, 1), Date(2019, 1, 1))
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestBetween_InvalidFrequency(t *testing.T) {
	for _, freq := range []Frequency{"", "incorrect frequency", "daily"} {
		_, err := Between(freq, Date(2019, 1, 1), Date(2019, 2, 1))
		assert.True(t, errors.Is(err, ErrInvalidFrequency), "frequency %q", freq)
	}
}
