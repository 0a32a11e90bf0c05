// Package recurrence generates occurrence dates for payment schedules.
package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// Frequency is the cadence of a recurring payment obligation.
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

var ErrInvalidFrequency = errors.New("invalid_payment_frequency")

// Date returns the given calendar date at midnight UTC. All occurrence
// arithmetic is done on dates in this form.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf truncates t to its calendar date at midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Between returns the ordered occurrence dates for freq from start through
// end, both inclusive. start == end yields exactly one occurrence; start
// after end yields none. Weekly occurrences fall every 7 days from start.
// Monthly occurrences fall on start's day-of-month, clamped to the last day
// of shorter months.
func Between(freq Frequency, start, end time.Time) ([]time.Time, error) {
	start = DateOf(start)
	end = DateOf(end)

	switch freq {
	case FrequencyDaily:
		return daily(start, end), nil
	case FrequencyWeekly:
		return weekly(start, end), nil
	case FrequencyMonthly:
		return monthly(start, end), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFrequency, string(freq))
	}
}

func daily(start, end time.Time) []time.Time {
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

func weekly(start, end time.Time) []time.Time {
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 7) {
		dates = append(dates, d)
	}
	return dates
}

func monthly(start, end time.Time) []time.Time {
	var dates []time.Time
	for i := 0; ; i++ {
		d := addMonthsClamped(start, i)
		if d.After(end) {
			return dates
		}
		dates = append(dates, d)
	}
}

// addMonthsClamped advances start by n calendar months, keeping start's
// day-of-month and clamping to the last day of the target month. A plain
// AddDate would roll Jan 31 + 1 month over into March.
func addMonthsClamped(start time.Time, n int) time.Time {
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	day := start.Day()
	if last := lastDayOfMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
