// Package tradingdays enumerates business days, optionally skipping exchange holidays.
package tradingdays

import (
	"fmt"
	"strings"
	"time"

	"github.com/scmhub/calendar"

	"stockForecaster/internal/ports"
)

// Calendar decides which dates are business days. The zero value counts
// every weekday.
type Calendar struct {
	exchange *calendar.Calendar
}

// Weekdays returns a calendar without holidays.
func Weekdays() *Calendar {
	return &Calendar{}
}

// New returns a calendar for the exchange with the given ISO 10383 MIC
// (e.g. "xnys"). An empty MIC yields Weekdays().
func New(mic string) (*Calendar, error) {
	mic = strings.ToLower(strings.TrimSpace(mic))
	if mic == "" {
		return Weekdays(), nil
	}
	cal := calendar.GetCalendar(mic)
	if cal == nil {
		return nil, fmt.Errorf("%w: unknown exchange calendar %q", ports.ErrConfigurationError, mic)
	}
	return &Calendar{exchange: cal}, nil
}

// Date truncates t to its calendar date at midnight UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsBusinessDay reports whether the calendar date of t is a business day.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if c == nil || c.exchange == nil {
		return true
	}
	// Midday in the exchange's zone so the date cannot shift across midnight.
	y, m, d := t.Date()
	return c.exchange.IsBusinessDay(time.Date(y, m, d, 12, 0, 0, 0, c.exchange.Loc))
}

// Next returns the n business days strictly after the date of after.
func (c *Calendar) Next(after time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)
	d := Date(after)
	for len(days) < n {
		d = d.AddDate(0, 0, 1)
		if c.IsBusinessDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// Last returns the n business days ending on or before the date of end, oldest first.
func (c *Calendar) Last(end time.Time, n int) []time.Time {
	days := make([]time.Time, n)
	d := Date(end)
	for i := n - 1; i >= 0; {
		if c.IsBusinessDay(d) {
			days[i] = d
			i--
		}
		d = d.AddDate(0, 0, -1)
	}
	return days
}
